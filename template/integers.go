package template

import (
	"fmt"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// IntElement covers the fixed-width integer tags: DBYT/DWRD/DLNG/DQWD
// (signed decimal), UBYT/UWRD/ULNG/UQWD (unsigned) and HBYT/HWRD/HLNG/HQWD
// (unsigned, displayed as hex). The raw bits are kept in a uint64; the
// signed flag only affects interpretation.
type IntElement struct {
	base
	width  int
	signed bool
	hex    bool
	raw    uint64
}

func (e *IntElement) ReadData(r *utils.Reader) error {
	v, err := r.ReadUint(e.width)
	if err != nil {
		return err
	}
	e.raw = v
	return nil
}

func (e *IntElement) WriteData(w *utils.Writer) error {
	return w.WriteUint(e.raw, e.width)
}

func (e *IntElement) Value() interface{} {
	if e.hex {
		return fmt.Sprintf("0x%0*x", e.width*2, e.raw)
	}
	if e.signed {
		return e.Int()
	}
	return e.raw
}

// Int sign-extends the raw bits to the element's width.
func (e *IntElement) Int() int64 {
	shift := uint(64 - e.width*8)
	return int64(e.raw<<shift) >> shift
}

func (e *IntElement) Uint() uint64 { return e.raw }

func (e *IntElement) SetInt(v int64) {
	e.raw = uint64(v) & widthMask(e.width)
}

func (e *IntElement) SetUint(v uint64) {
	e.raw = v & widthMask(e.width)
}

func (e *IntElement) Clone() Element {
	c := *e
	return &c
}

func widthMask(width int) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return 1<<(uint(width)*8) - 1
}

func newIntElement(tag, label string) *IntElement {
	e := &IntElement{base: base{tag: tag, label: label}}
	switch tag[0] {
	case 'D':
		e.signed = true
	case 'H':
		e.hex = true
	}
	switch tag[1:] {
	case "BYT":
		e.width = 1
	case "WRD":
		e.width = 2
	case "LNG":
		e.width = 4
	case "QWD":
		e.width = 8
	}
	return e
}
