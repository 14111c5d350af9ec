package template

import (
	"encoding/hex"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// CharElement (CHAR): one byte of legacy text.
type CharElement struct {
	base
	value byte
}

func (e *CharElement) ReadData(r *utils.Reader) error {
	v, err := r.ReadU8()
	if err != nil {
		return err
	}
	e.value = v
	return nil
}

func (e *CharElement) WriteData(w *utils.Writer) error {
	w.WriteU8(e.value)
	return nil
}

func (e *CharElement) Value() interface{} {
	return utils.DecodeText([]byte{e.value})
}

func (e *CharElement) Clone() Element {
	c := *e
	return &c
}

// TypeNameElement (TNAM): a 4-character type code.
type TypeNameElement struct {
	base
	value [4]byte
}

func (e *TypeNameElement) ReadData(r *utils.Reader) error {
	b, err := r.ReadData(4)
	if err != nil {
		return err
	}
	copy(e.value[:], b)
	return nil
}

func (e *TypeNameElement) WriteData(w *utils.Writer) error {
	w.WriteData(e.value[:])
	return nil
}

func (e *TypeNameElement) Value() interface{} {
	return utils.DecodeText(e.value[:])
}

func (e *TypeNameElement) Clone() Element {
	c := *e
	return &c
}

// FillElement (FBYT/FWRD/FLNG/Fnnn): reserved bytes, skipped on read and
// zeroed on write.
type FillElement struct {
	base
	size int
}

func (e *FillElement) ReadData(r *utils.Reader) error {
	return r.Advance(e.size)
}

func (e *FillElement) WriteData(w *utils.Writer) error {
	w.Advance(e.size)
	return nil
}

func (e *FillElement) Value() interface{} { return nil }

func (e *FillElement) Clone() Element {
	c := *e
	return &c
}

// AlignElement (ALGN/AWRD/ALNG): advances the cursor to the next multiple
// of the boundary, relative to the start of the record.
type AlignElement struct {
	base
	boundary int
}

func (e *AlignElement) ReadData(r *utils.Reader) error {
	if rem := r.Position() % e.boundary; rem != 0 {
		return r.Advance(e.boundary - rem)
	}
	return nil
}

func (e *AlignElement) WriteData(w *utils.Writer) error {
	if rem := w.Position() % e.boundary; rem != 0 {
		w.Advance(e.boundary - rem)
	}
	return nil
}

func (e *AlignElement) Value() interface{} { return nil }

func (e *AlignElement) Clone() Element {
	c := *e
	return &c
}

// DividerElement (DVDR): a display-only separator with no wire data.
type DividerElement struct {
	base
}

func (e *DividerElement) ReadData(r *utils.Reader) error { return nil }
func (e *DividerElement) WriteData(w *utils.Writer) error { return nil }
func (e *DividerElement) Value() interface{} { return nil }

func (e *DividerElement) Clone() Element {
	c := *e
	return &c
}

// HexDumpElement (HEXD): the rest of the record as an opaque blob. Must be
// the last element of a template.
type HexDumpElement struct {
	base
	data []byte
}

func (e *HexDumpElement) ReadData(r *utils.Reader) error {
	b, err := r.ReadData(r.Remaining())
	if err != nil {
		return err
	}
	e.data = append([]byte(nil), b...)
	return nil
}

func (e *HexDumpElement) WriteData(w *utils.Writer) error {
	w.WriteData(e.data)
	return nil
}

func (e *HexDumpElement) Value() interface{} {
	return hex.EncodeToString(e.data)
}

func (e *HexDumpElement) Data() []byte { return e.data }

func (e *HexDumpElement) Clone() Element {
	c := *e
	c.data = append([]byte(nil), e.data...)
	return &c
}
