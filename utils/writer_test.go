package utils

import (
	"bytes"
	"errors"
	"testing"
)

func TestWriterScalars(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0x01)
	w.WriteU16(0x0203)
	w.WriteU32(0x04050607)
	w.WriteI16(-2)

	want := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0xff, 0xfe}
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = % x, want % x", w.Bytes(), want)
	}
}

func TestLittleEndianWriter(t *testing.T) {
	w := NewLittleEndianWriter()
	w.WriteU16(0x1234)
	if !bytes.Equal(w.Bytes(), []byte{0x34, 0x12}) {
		t.Errorf("Bytes = % x", w.Bytes())
	}
}

func TestWriterAdvanceZeroFills(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xaa)
	w.Advance(3)
	w.WriteU8(0xbb)
	if !bytes.Equal(w.Bytes(), []byte{0xaa, 0, 0, 0, 0xbb}) {
		t.Errorf("Bytes = % x", w.Bytes())
	}
}

func TestWriterBackpatch(t *testing.T) {
	w := NewWriter()
	lenAt := w.Position()
	w.Advance(4)
	w.WriteData([]byte("payload"))
	w.WriteU32At(uint32(w.Position()), lenAt)

	want := append([]byte{0, 0, 0, 11}, []byte("payload")...)
	if !bytes.Equal(w.Bytes(), want) {
		t.Errorf("Bytes = % x, want % x", w.Bytes(), want)
	}
}

func TestWriteUintOverflow(t *testing.T) {
	w := NewWriter()
	if err := w.WriteUint(0x1ff, 1); !errors.Is(err, ErrValueOverflow) {
		t.Errorf("0x1ff in one byte: %v", err)
	}
	if err := w.WriteUint(0xff, 1); err != nil {
		t.Errorf("0xff in one byte: %v", err)
	}
	if err := w.WriteUint(0x123456, 3); err == nil {
		t.Error("width 3 accepted")
	}
}

func TestWritePString(t *testing.T) {
	w := NewWriter()
	w.WritePString([]byte("abc"))
	if !bytes.Equal(w.Bytes(), []byte{3, 'a', 'b', 'c'}) {
		t.Errorf("Bytes = % x", w.Bytes())
	}

	w = NewWriter()
	w.WritePString(bytes.Repeat([]byte{'x'}, 300))
	if w.Len() != 256 {
		t.Errorf("overlong pstring length = %d, want 256", w.Len())
	}
}

func TestWriteCString(t *testing.T) {
	w := NewWriter()
	w.WriteCString([]byte("hi"))
	if !bytes.Equal(w.Bytes(), []byte{'h', 'i', 0}) {
		t.Errorf("Bytes = % x", w.Bytes())
	}
}
