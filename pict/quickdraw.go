package pict

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

// qdRect is a QuickDraw rectangle: top, left, bottom, right as signed
// 16-bit words in that order on the wire.
type qdRect struct {
	Top, Left, Bottom, Right int16
}

func readRect(r *utils.Reader) (qdRect, error) {
	var rect qdRect
	var err error
	if rect.Top, err = r.ReadI16(); err != nil {
		return rect, err
	}
	if rect.Left, err = r.ReadI16(); err != nil {
		return rect, err
	}
	if rect.Bottom, err = r.ReadI16(); err != nil {
		return rect, err
	}
	if rect.Right, err = r.ReadI16(); err != nil {
		return rect, err
	}
	if rect.Bottom < rect.Top || rect.Right < rect.Left {
		return rect, errors.Wrapf(resource.ErrInvalidFormat, "rect %v is inside out", rect)
	}
	return rect, nil
}

func writeRect(w *utils.Writer, rect qdRect) {
	w.WriteI16(rect.Top)
	w.WriteI16(rect.Left)
	w.WriteI16(rect.Bottom)
	w.WriteI16(rect.Right)
}

func (r qdRect) width() int { return int(r.Right) - int(r.Left) }
func (r qdRect) height() int { return int(r.Bottom) - int(r.Top) }

func (r qdRect) imageRect() image.Rectangle {
	return image.Rect(int(r.Left), int(r.Top), int(r.Right), int(r.Bottom))
}

func (r qdRect) intersect(o qdRect) qdRect {
	out := r
	if o.Top > out.Top {
		out.Top = o.Top
	}
	if o.Left > out.Left {
		out.Left = o.Left
	}
	if o.Bottom < out.Bottom {
		out.Bottom = o.Bottom
	}
	if o.Right < out.Right {
		out.Right = o.Right
	}
	if out.Bottom < out.Top {
		out.Bottom = out.Top
	}
	if out.Right < out.Left {
		out.Right = out.Left
	}
	return out
}

func (r qdRect) empty() bool { return r.width() <= 0 || r.height() <= 0 }

type qdPoint struct {
	V, H int16 // vertical first on the wire
}

func readPoint(r *utils.Reader) (qdPoint, error) {
	var p qdPoint
	var err error
	if p.V, err = r.ReadI16(); err != nil {
		return p, err
	}
	p.H, err = r.ReadI16()
	return p, err
}

// readColor reads a 48-bit RGBColor, keeping the high byte of each
// component.
func readColor(r *utils.Reader) (color.RGBA, error) {
	var c color.RGBA
	red, err := r.ReadU16()
	if err != nil {
		return c, err
	}
	green, err := r.ReadU16()
	if err != nil {
		return c, err
	}
	blue, err := r.ReadU16()
	if err != nil {
		return c, err
	}
	return color.RGBA{R: uint8(red >> 8), G: uint8(green >> 8), B: uint8(blue >> 8), A: 0xff}, nil
}

// skipRegion consumes a region, returning its bounding rect. The first
// word is the region's total size including itself; anything beyond the
// 10-byte bounding box is shape data we do not rasterize.
func skipRegion(r *utils.Reader) (qdRect, error) {
	size, err := r.ReadU16()
	if err != nil {
		return qdRect{}, err
	}
	if size < 10 {
		return qdRect{}, errors.Wrapf(resource.ErrInvalidFormat, "region size %d below the 10-byte minimum", size)
	}
	rect, err := readRect(r)
	if err != nil {
		return qdRect{}, err
	}
	return rect, r.Advance(int(size) - 10)
}

// pixMap is the v2 pixel map header. baseAddr is already consumed by the
// caller where present.
type pixMap struct {
	RowBytes  int
	Bounds    qdRect
	PackType  int
	PixelSize int
	CmpCount  int
}

// readPixMap parses a pixMap whose rowBytes (with its pixmap flag in the
// high bit) has already been read.
func readPixMap(r *utils.Reader, rowBytes uint16) (pixMap, error) {
	pm := pixMap{RowBytes: int(rowBytes & 0x7fff)}
	var err error
	if pm.Bounds, err = readRect(r); err != nil {
		return pm, err
	}
	if err = r.Advance(2); err != nil { // pmVersion
		return pm, err
	}
	packType, err := r.ReadU16()
	if err != nil {
		return pm, err
	}
	pm.PackType = int(packType)
	if err = r.Advance(12); err != nil { // packSize, hRes, vRes
		return pm, err
	}
	if err = r.Advance(2); err != nil { // pixelType
		return pm, err
	}
	pixelSize, err := r.ReadU16()
	if err != nil {
		return pm, err
	}
	pm.PixelSize = int(pixelSize)
	cmpCount, err := r.ReadU16()
	if err != nil {
		return pm, err
	}
	pm.CmpCount = int(cmpCount)
	// cmpSize, planeBytes, pmTable, pmReserved.
	return pm, r.Advance(14)
}

// readColorTable reads a ColorTable: header then explicit (index, rgb)
// entries. Out-of-range indexes fall back to sequential assignment, which
// is what QuickDraw did for device color tables.
func readColorTable(r *utils.Reader) ([]color.RGBA, error) {
	if err := r.Advance(6); err != nil { // ctSeed, ctFlags
		return nil, err
	}
	ctSize, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	n := int(ctSize) + 1
	if n > 256 {
		return nil, errors.Wrapf(resource.ErrInvalidFormat, "color table with %d entries", n)
	}
	table := make([]color.RGBA, n)
	for i := 0; i < n; i++ {
		idx, err := r.ReadU16()
		if err != nil {
			return nil, err
		}
		c, err := readColor(r)
		if err != nil {
			return nil, err
		}
		if int(idx) >= n {
			idx = uint16(i)
		}
		table[idx] = c
	}
	return table, nil
}

// expand555Word widens a 5-5-5 pixel the same way the sprite codec does.
func expand555Word(p uint16) color.RGBA {
	r := uint8(p>>10) & 0x1f
	g := uint8(p>>5) & 0x1f
	b := uint8(p) & 0x1f
	return color.RGBA{R: r<<3 | r>>2, G: g<<3 | g>>2, B: b<<3 | b>>2, A: 0xff}
}
