package utils

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrValueOverflow is returned when a value does not fit the field it is
// being written to.
var ErrValueOverflow = errors.New("value overflow")

// Writer builds a byte buffer sequentially, with absolute-offset rewrites
// for length fields that are only known after their content is written.
type Writer struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

func NewWriter() *Writer {
	return &Writer{order: binary.BigEndian}
}

func NewLittleEndianWriter() *Writer {
	return &Writer{order: binary.LittleEndian}
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Position() int { return w.pos }
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) grow(n int) []byte {
	if need := w.pos + n; need > len(w.buf) {
		if need > cap(w.buf) {
			newBuf := make([]byte, need, need*2)
			copy(newBuf, w.buf)
			w.buf = newBuf
		} else {
			w.buf = w.buf[:need]
		}
	}
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b
}

// Advance moves the cursor forward, zero-filling any newly covered bytes.
func (w *Writer) Advance(n int) {
	b := w.grow(n)
	for i := range b {
		b[i] = 0
	}
}

func (w *Writer) SetPosition(p int) {
	if p > len(w.buf) {
		w.pos = len(w.buf)
		w.Advance(p - len(w.buf))
	}
	w.pos = p
}

func (w *Writer) WriteData(b []byte) {
	copy(w.grow(len(b)), b)
}

func (w *Writer) WriteU8(v uint8) { w.grow(1)[0] = v }
func (w *Writer) WriteU16(v uint16) { w.order.PutUint16(w.grow(2), v) }
func (w *Writer) WriteU32(v uint32) { w.order.PutUint32(w.grow(4), v) }
func (w *Writer) WriteU64(v uint64) { w.order.PutUint64(w.grow(8), v) }

func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }
func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }
func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }
func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

// WriteUint writes an unsigned integer of width 1, 2, 4 or 8 bytes and
// fails with ErrValueOverflow if the value needs more bits than that.
func (w *Writer) WriteUint(v uint64, width int) error {
	if width < 8 && v >= 1<<(width*8) {
		return errors.Wrapf(ErrValueOverflow, "value 0x%x in %d-byte field", v, width)
	}
	switch width {
	case 1:
		w.WriteU8(uint8(v))
	case 2:
		w.WriteU16(uint16(v))
	case 4:
		w.WriteU32(uint32(v))
	case 8:
		w.WriteU64(v)
	default:
		return errors.Errorf("unsupported integer width %d", width)
	}
	return nil
}

// The At variants backpatch an already-written region; the offset must have
// been covered by a previous write or Advance.
func (w *Writer) WriteU8At(v uint8, off int) { w.buf[off] = v }
func (w *Writer) WriteU16At(v uint16, off int) { w.order.PutUint16(w.buf[off:off+2], v) }
func (w *Writer) WriteU32At(v uint32, off int) { w.order.PutUint32(w.buf[off:off+4], v) }
func (w *Writer) WriteU64At(v uint64, off int) { w.order.PutUint64(w.buf[off:off+8], v) }

func (w *Writer) WriteUintAt(v uint64, width int, off int) error {
	if width < 8 && v >= 1<<(width*8) {
		return errors.Wrapf(ErrValueOverflow, "value 0x%x in %d-byte field", v, width)
	}
	switch width {
	case 1:
		w.WriteU8At(uint8(v), off)
	case 2:
		w.WriteU16At(uint16(v), off)
	case 4:
		w.WriteU32At(uint32(v), off)
	case 8:
		w.WriteU64At(v, off)
	default:
		return errors.Errorf("unsupported integer width %d", width)
	}
	return nil
}

// WritePString writes a 1-byte length prefix followed by the bytes;
// anything past 255 bytes is truncated.
func (w *Writer) WritePString(b []byte) {
	if len(b) > 255 {
		b = b[:255]
	}
	w.WriteU8(uint8(len(b)))
	w.WriteData(b)
}

// WriteCString writes the bytes followed by a zero terminator.
func (w *Writer) WriteCString(b []byte) {
	w.WriteData(b)
	w.WriteU8(0)
}
