package template

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

type padding int

const (
	padNone padding = iota
	padOdd          // total consumed bytes odd
	padEven         // total consumed bytes even
	padFixed        // total consumed bytes exactly fixedSize
)

// CStringElement: zero-terminated legacy text. CSTR has no padding, OCST
// pads the total (string + terminator + padding) to odd, ECST to even, and
// Cnnn occupies exactly nnn bytes, terminator included.
type CStringElement struct {
	base
	pad       padding
	fixedSize int // total field size when pad == padFixed
	value     string
}

func (e *CStringElement) maxLength() int {
	if e.pad == padFixed {
		return e.fixedSize - 1
	}
	return -1 // unbounded
}

func (e *CStringElement) ReadData(r *utils.Reader) error {
	s, consumed, err := r.ReadCString(e.maxLength())
	if err != nil {
		return err
	}
	e.value = utils.DecodeText(s)
	switch e.pad {
	case padFixed:
		// The field is fixed-size whether or not the text fills it.
		return r.Advance(e.fixedSize - consumed)
	case padOdd:
		if consumed%2 == 0 {
			return r.Advance(1)
		}
	case padEven:
		if consumed%2 == 1 {
			return r.Advance(1)
		}
	}
	return nil
}

func (e *CStringElement) WriteData(w *utils.Writer) error {
	b := utils.EncodeText(e.value)
	if max := e.maxLength(); max >= 0 && len(b) > max {
		b = b[:max]
	}
	w.WriteCString(b)
	written := len(b) + 1
	switch e.pad {
	case padFixed:
		w.Advance(e.fixedSize - written)
	case padOdd:
		if written%2 == 0 {
			w.Advance(1)
		}
	case padEven:
		if written%2 == 1 {
			w.Advance(1)
		}
	}
	return nil
}

func (e *CStringElement) Value() interface{} { return e.value }
func (e *CStringElement) String() string { return e.value }
func (e *CStringElement) SetString(s string) { e.value = s }

func (e *CStringElement) Clone() Element {
	c := *e
	return &c
}

// PStringElement: length-prefixed legacy text. PSTR has a 1-byte prefix,
// WSTR 2 bytes, LSTR 4 bytes. OSTR/ESTR pad the total to odd/even and
// Pnnn occupies exactly nnn bytes, prefix included.
type PStringElement struct {
	base
	lenWidth  int
	pad       padding
	fixedSize int
	value     string
}

func (e *PStringElement) maxLength() int {
	if e.pad == padFixed {
		return e.fixedSize - e.lenWidth
	}
	switch e.lenWidth {
	case 1:
		return 255
	case 2:
		return 65535
	default:
		return -1
	}
}

func (e *PStringElement) ReadData(r *utils.Reader) error {
	length, err := r.ReadUint(e.lenWidth)
	if err != nil {
		return err
	}
	n := int(length)
	if max := e.maxLength(); max >= 0 && n > max {
		return errors.Errorf("%s %q: declared length %d exceeds field capacity %d", e.tag, e.label, n, max)
	}
	s, err := r.ReadData(n)
	if err != nil {
		return err
	}
	e.value = utils.DecodeText(s)
	consumed := e.lenWidth + n
	switch e.pad {
	case padFixed:
		return r.Advance(e.fixedSize - consumed)
	case padOdd:
		if consumed%2 == 0 {
			return r.Advance(1)
		}
	case padEven:
		if consumed%2 == 1 {
			return r.Advance(1)
		}
	}
	return nil
}

func (e *PStringElement) WriteData(w *utils.Writer) error {
	b := utils.EncodeText(e.value)
	if max := e.maxLength(); max >= 0 && len(b) > max {
		b = b[:max]
	}
	if err := w.WriteUint(uint64(len(b)), e.lenWidth); err != nil {
		return err
	}
	w.WriteData(b)
	written := e.lenWidth + len(b)
	switch e.pad {
	case padFixed:
		w.Advance(e.fixedSize - written)
	case padOdd:
		if written%2 == 0 {
			w.Advance(1)
		}
	case padEven:
		if written%2 == 1 {
			w.Advance(1)
		}
	}
	return nil
}

func (e *PStringElement) Value() interface{} { return e.value }
func (e *PStringElement) String() string { return e.value }
func (e *PStringElement) SetString(s string) { e.value = s }

func (e *PStringElement) Clone() Element {
	c := *e
	return &c
}

// parseFixedSize parses the hex size suffix of Cnnn/Pnnn/Fnnn tags.
func parseFixedSize(tag string) (int, error) {
	n, err := strconv.ParseUint(tag[1:], 16, 16)
	if err != nil || n == 0 {
		return 0, errors.Errorf("bad size suffix in template tag %q", tag)
	}
	return int(n), nil
}
