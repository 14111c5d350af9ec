package template

import (
	"github.com/rsrcutils/rsrcbrowser/utils"
)

// RectElement is a QuickDraw rectangle: four consecutive signed 16-bit
// bounds, fixed 8 bytes, no padding.
type RectElement struct {
	base
	Top, Left, Bottom, Right int16
}

func (e *RectElement) ReadData(r *utils.Reader) error {
	var err error
	if e.Top, err = r.ReadI16(); err != nil {
		return err
	}
	if e.Left, err = r.ReadI16(); err != nil {
		return err
	}
	if e.Bottom, err = r.ReadI16(); err != nil {
		return err
	}
	e.Right, err = r.ReadI16()
	return err
}

func (e *RectElement) WriteData(w *utils.Writer) error {
	w.WriteI16(e.Top)
	w.WriteI16(e.Left)
	w.WriteI16(e.Bottom)
	w.WriteI16(e.Right)
	return nil
}

func (e *RectElement) Value() interface{} {
	return [4]int16{e.Top, e.Left, e.Bottom, e.Right}
}

func (e *RectElement) Clone() Element {
	c := *e
	return &c
}

// PointElement is a QuickDraw point: vertical then horizontal, signed
// 16-bit each.
type PointElement struct {
	base
	V, H int16
}

func (e *PointElement) ReadData(r *utils.Reader) error {
	var err error
	if e.V, err = r.ReadI16(); err != nil {
		return err
	}
	e.H, err = r.ReadI16()
	return err
}

func (e *PointElement) WriteData(w *utils.Writer) error {
	w.WriteI16(e.V)
	w.WriteI16(e.H)
	return nil
}

func (e *PointElement) Value() interface{} {
	return [2]int16{e.V, e.H}
}

func (e *PointElement) Clone() Element {
	c := *e
	return &c
}
