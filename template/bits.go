package template

import (
	"github.com/rsrcutils/rsrcbrowser/status"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

// BoolElement (BOOL): a 16-bit word where any nonzero value reads as true.
// Writing normalizes to 1/0.
type BoolElement struct {
	base
	value bool
}

func (e *BoolElement) ReadData(r *utils.Reader) error {
	v, err := r.ReadU16()
	if err != nil {
		return err
	}
	e.value = v != 0
	return nil
}

func (e *BoolElement) WriteData(w *utils.Writer) error {
	if e.value {
		w.WriteU16(1)
	} else {
		w.WriteU16(0)
	}
	return nil
}

func (e *BoolElement) Value() interface{} { return e.value }
func (e *BoolElement) Bool() bool { return e.value }
func (e *BoolElement) SetBool(v bool) { e.value = v }

func (e *BoolElement) Clone() Element {
	c := *e
	return &c
}

// BitGroupElement packs a run of consecutive BBIT template entries into one
// byte, most significant bit first. The template parser builds the group
// from the individual BBIT lines; fewer than 8 bits leaves the low bits of
// the byte unused.
type BitGroupElement struct {
	base
	labels []string
	bits   []bool
}

func newBitGroup(labels []string) *BitGroupElement {
	if len(labels) > 8 {
		labels = labels[:8]
	}
	return &BitGroupElement{
		base:   base{tag: "BBIT", label: labels[0]},
		labels: labels,
		bits:   make([]bool, len(labels)),
	}
}

func (e *BitGroupElement) ReadData(r *utils.Reader) error {
	v, err := r.ReadU8()
	if err != nil {
		return err
	}
	for i := range e.bits {
		e.bits[i] = v&(0x80>>uint(i)) != 0
	}
	if rest := v & (0xff >> uint(len(e.bits))); rest != 0 {
		status.Warning("template: unused bits 0x%02x in BBIT group %q", rest, e.label)
	}
	return nil
}

func (e *BitGroupElement) WriteData(w *utils.Writer) error {
	var v uint8
	for i, b := range e.bits {
		if b {
			v |= 0x80 >> uint(i)
		}
	}
	w.WriteU8(v)
	return nil
}

func (e *BitGroupElement) Value() interface{} {
	m := make(map[string]bool, len(e.bits))
	for i, l := range e.labels {
		m[l] = e.bits[i]
	}
	return m
}

func (e *BitGroupElement) Bit(i int) bool { return e.bits[i] }
func (e *BitGroupElement) SetBit(i int, v bool) { e.bits[i] = v }
func (e *BitGroupElement) BitCount() int { return len(e.bits) }

func (e *BitGroupElement) Clone() Element {
	c := *e
	c.bits = append([]bool(nil), e.bits...)
	return &c
}
