package utils

import (
	"bytes"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrInsufficientData is returned when a read requires more bytes than
// remain in the buffer.
var ErrInsufficientData = errors.New("insufficient data")

// Reader is a sequential cursor over an in-memory byte buffer. Resource
// files are big-endian, so that is the default order.
type Reader struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
	stack []int
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b, order: binary.BigEndian}
}

// NewLittleEndianReader is used for the rez format index, which is the one
// little-endian corner of this family of formats.
func NewLittleEndianReader(b []byte) *Reader {
	return &Reader{buf: b, order: binary.LittleEndian}
}

func (r *Reader) Len() int { return len(r.buf) }
func (r *Reader) Position() int { return r.pos }
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) SetPosition(p int) error {
	if p < 0 || p > len(r.buf) {
		return errors.Wrapf(ErrInsufficientData, "position 0x%x outside buffer of 0x%x", p, len(r.buf))
	}
	r.pos = p
	return nil
}

// PushPosition saves the cursor so lookahead can be undone with
// PopPosition. Used when a later field's offset determines an earlier
// field's implied length.
func (r *Reader) PushPosition() {
	r.stack = append(r.stack, r.pos)
}

func (r *Reader) PopPosition() {
	if n := len(r.stack); n > 0 {
		r.pos = r.stack[n-1]
		r.stack = r.stack[:n-1]
	}
}

func (r *Reader) Advance(n int) error {
	if n < 0 || r.pos+n > len(r.buf) {
		return errors.Wrapf(ErrInsufficientData, "advance %d at 0x%x of 0x%x", n, r.pos, len(r.buf))
	}
	r.pos += n
	return nil
}

// ReadData consumes exactly n bytes. The returned slice aliases the
// underlying buffer and must not be modified.
func (r *Reader) ReadData(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, errors.Wrapf(ErrInsufficientData, "read %d at 0x%x of 0x%x", n, r.pos, len(r.buf))
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

func (r *Reader) ReadU8() (uint8, error) {
	b, err := r.ReadData(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.ReadData(2)
	if err != nil {
		return 0, err
	}
	return r.order.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.ReadData(4)
	if err != nil {
		return 0, err
	}
	return r.order.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.ReadData(8)
	if err != nil {
		return 0, err
	}
	return r.order.Uint64(b), nil
}

func (r *Reader) ReadI8() (int8, error) {
	v, err := r.ReadU8()
	return int8(v), err
}

func (r *Reader) ReadI16() (int16, error) {
	v, err := r.ReadU16()
	return int16(v), err
}

func (r *Reader) ReadI32() (int32, error) {
	v, err := r.ReadU32()
	return int32(v), err
}

func (r *Reader) ReadI64() (int64, error) {
	v, err := r.ReadU64()
	return int64(v), err
}

// ReadUint reads an unsigned big- or little-endian integer of width 1, 2,
// 3, 4 or 8 bytes. The 3-byte width serves the 24-bit offset fields of the
// classic resource map.
func (r *Reader) ReadUint(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := r.ReadU8()
		return uint64(v), err
	case 2:
		v, err := r.ReadU16()
		return uint64(v), err
	case 3:
		b, err := r.ReadData(3)
		if err != nil {
			return 0, err
		}
		if r.order == binary.LittleEndian {
			return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16, nil
		}
		return uint64(b[0])<<16 | uint64(b[1])<<8 | uint64(b[2]), nil
	case 4:
		v, err := r.ReadU32()
		return uint64(v), err
	case 8:
		return r.ReadU64()
	default:
		return 0, errors.Errorf("unsupported integer width %d", width)
	}
}

// ReadPString reads a 1-byte length prefix followed by that many bytes.
func (r *Reader) ReadPString() ([]byte, error) {
	l, err := r.ReadU8()
	if err != nil {
		return nil, err
	}
	return r.ReadData(int(l))
}

// ReadCString reads bytes up to the first zero byte or max bytes,
// whichever comes first. The terminator is consumed when present within
// the max bound; consumed reports the total number of bytes eaten.
func (r *Reader) ReadCString(max int) (s []byte, consumed int, err error) {
	if max < 0 || max > r.Remaining() {
		max = r.Remaining()
	}
	window := r.buf[r.pos : r.pos+max]
	if i := bytes.IndexByte(window, 0); i >= 0 {
		r.pos += i + 1
		return window[:i], i + 1, nil
	}
	r.pos += max
	return window, max, nil
}

// SubReader returns a bounded cursor over the next n bytes and advances
// past them. Reads through the sub-cursor can never escape the bound.
func (r *Reader) SubReader(n int) (*Reader, error) {
	b, err := r.ReadData(n)
	if err != nil {
		return nil, err
	}
	return &Reader{buf: b, order: r.order}, nil
}

// maxPadding caps the zero fill of SubReaderPadded so a corrupt declared
// length cannot force an allocation of its own size. A truncated decode
// fails with ErrInsufficientData either way; the cap only bounds how far
// the best-effort pass can get first.
const maxPadding = 1 << 16

// SubReaderPadded is SubReader for declared lengths that may exceed the
// remaining input: the short region is copied and zero-filled up to n so a
// best-effort decode can still run. truncated reports whether padding was
// needed; the caller is expected to surface ErrInsufficientData afterwards.
func (r *Reader) SubReaderPadded(n int) (sub *Reader, truncated bool) {
	if n <= r.Remaining() {
		sub, _ = r.SubReader(n)
		return sub, false
	}
	size := n
	if size > r.Remaining()+maxPadding {
		size = r.Remaining() + maxPadding
	}
	padded := make([]byte, size)
	copy(padded, r.buf[r.pos:])
	r.pos = len(r.buf)
	return &Reader{buf: padded, order: r.order}, true
}
