package utils

import (
	"bytes"
	"errors"
	"testing"
)

func TestReaderScalars(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0xff})

	if v, _ := r.ReadU8(); v != 0x01 {
		t.Errorf("ReadU8 = %#x", v)
	}
	if v, _ := r.ReadU16(); v != 0x0203 {
		t.Errorf("ReadU16 = %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0x04050607 {
		t.Errorf("ReadU32 = %#x", v)
	}
	if v, _ := r.ReadI8(); v != -1 {
		t.Errorf("ReadI8 = %d", v)
	}
	if r.Remaining() != 0 {
		t.Errorf("Remaining = %d", r.Remaining())
	}
	if _, err := r.ReadU8(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("read past end: %v", err)
	}
}

func TestLittleEndianReader(t *testing.T) {
	r := NewLittleEndianReader([]byte{0x34, 0x12, 0x78, 0x56, 0x00, 0x00})
	if v, _ := r.ReadU16(); v != 0x1234 {
		t.Errorf("ReadU16 = %#x", v)
	}
	if v, _ := r.ReadU32(); v != 0x5678 {
		t.Errorf("ReadU32 = %#x", v)
	}
}

func TestReadUintWidths(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08})
	if v, _ := r.ReadUint(3); v != 0x010203 {
		t.Errorf("ReadUint(3) = %#x", v)
	}
	if v, _ := r.ReadUint(1); v != 0x04 {
		t.Errorf("ReadUint(1) = %#x", v)
	}
	if v, _ := r.ReadUint(4); v != 0x05060708 {
		t.Errorf("ReadUint(4) = %#x", v)
	}

	le := NewLittleEndianReader([]byte{0x01, 0x02, 0x03})
	if v, _ := le.ReadUint(3); v != 0x030201 {
		t.Errorf("little-endian ReadUint(3) = %#x", v)
	}

	r = NewReader([]byte{0x01, 0x02})
	if _, err := r.ReadUint(3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("short ReadUint(3): %v", err)
	}
	if _, err := r.ReadUint(5); err == nil {
		t.Error("width 5 accepted")
	}
}

func TestPositionStack(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4})
	r.Advance(1)
	r.PushPosition()
	r.Advance(2)
	r.PushPosition()
	r.Advance(1)
	r.PopPosition()
	if r.Position() != 3 {
		t.Errorf("after inner pop: %d", r.Position())
	}
	r.PopPosition()
	if r.Position() != 1 {
		t.Errorf("after outer pop: %d", r.Position())
	}
	if err := r.SetPosition(5); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("SetPosition past end: %v", err)
	}
}

func TestReadPString(t *testing.T) {
	r := NewReader([]byte{3, 'a', 'b', 'c', 0})
	s, err := r.ReadPString()
	if err != nil || string(s) != "abc" {
		t.Fatalf("ReadPString = %q, %v", s, err)
	}

	r = NewReader([]byte{5, 'a'})
	if _, err := r.ReadPString(); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("truncated pstring: %v", err)
	}
}

func TestReadCString(t *testing.T) {
	r := NewReader([]byte{'h', 'i', 0, 'x'})
	s, consumed, err := r.ReadCString(-1)
	if err != nil || string(s) != "hi" || consumed != 3 {
		t.Fatalf("ReadCString = %q, %d, %v", s, consumed, err)
	}
	if r.Position() != 3 {
		t.Errorf("position after terminator = %d", r.Position())
	}

	// No terminator inside the bound: the whole window is the string.
	r = NewReader([]byte{'h', 'i', 0})
	s, consumed, err = r.ReadCString(2)
	if err != nil || string(s) != "hi" || consumed != 2 {
		t.Fatalf("bounded ReadCString = %q, %d, %v", s, consumed, err)
	}
}

func TestSubReader(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})
	sub, err := r.SubReader(3)
	if err != nil {
		t.Fatal(err)
	}
	if sub.Len() != 3 {
		t.Errorf("sub len = %d", sub.Len())
	}
	if r.Position() != 3 {
		t.Errorf("parent position = %d", r.Position())
	}
	if _, err := r.SubReader(3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("oversized sub: %v", err)
	}
}

func TestSubReaderPadded(t *testing.T) {
	r := NewReader([]byte{1, 2})
	sub, truncated := r.SubReaderPadded(4)
	if !truncated {
		t.Error("expected truncation")
	}
	got, _ := sub.ReadData(4)
	if !bytes.Equal(got, []byte{1, 2, 0, 0}) {
		t.Errorf("padded data = % x", got)
	}

	r = NewReader([]byte{1, 2, 3})
	if _, truncated := r.SubReaderPadded(2); truncated {
		t.Error("unexpected truncation")
	}

	// A hostile declared length must not drive the allocation.
	r = NewReader([]byte{1, 2})
	sub, truncated = r.SubReaderPadded(0xfffffff0)
	if !truncated {
		t.Error("expected truncation")
	}
	if sub.Len() > 2+maxPadding {
		t.Errorf("padded length %d exceeds cap", sub.Len())
	}
	if b, _ := sub.ReadData(2); !bytes.Equal(b, []byte{1, 2}) {
		t.Errorf("padded data = % x", b)
	}
}
