// Package pict decodes and encodes QuickDraw pictures. Version 1 streams
// use 1-byte opcodes, version 2 streams 2-byte opcodes aligned to even
// offsets; the numeric opcode values are the historical QuickDraw
// assignments and must stay that way for compatibility with old files.
package pict

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

type opcode uint16

const (
	opNop            opcode = 0x0000
	opClip           opcode = 0x0001
	opBkPat          opcode = 0x0002
	opTxFont         opcode = 0x0003
	opTxFace         opcode = 0x0004
	opTxMode         opcode = 0x0005
	opSpExtra        opcode = 0x0006
	opPnSize         opcode = 0x0007
	opPnMode         opcode = 0x0008
	opPnPat          opcode = 0x0009
	opFillPat        opcode = 0x000a
	opOvSize         opcode = 0x000b
	opOrigin         opcode = 0x000c
	opTxSize         opcode = 0x000d
	opFgColor        opcode = 0x000e
	opBkColor        opcode = 0x000f
	opTxRatio        opcode = 0x0010
	opVersion        opcode = 0x0011
	opBkPixPat       opcode = 0x0012
	opPnPixPat       opcode = 0x0013
	opFillPixPat     opcode = 0x0014
	opPnLocHFrac     opcode = 0x0015
	opChExtra        opcode = 0x0016
	opRGBFgCol       opcode = 0x001a
	opRGBBkCol       opcode = 0x001b
	opHiliteMode     opcode = 0x001c
	opHiliteColor    opcode = 0x001d
	opDefHilite      opcode = 0x001e
	opOpColor        opcode = 0x001f
	opLine           opcode = 0x0020
	opLineFrom       opcode = 0x0021
	opShortLine      opcode = 0x0022
	opShortLineFrom  opcode = 0x0023
	opLongText       opcode = 0x0028
	opDHText         opcode = 0x0029
	opDVText         opcode = 0x002a
	opDHDVText       opcode = 0x002b
	opFontName       opcode = 0x002c
	opLineJustify    opcode = 0x002d
	opGlyphState     opcode = 0x002e
	opFrameRect      opcode = 0x0030
	opFrameSameRect  opcode = 0x0038
	opFrameRRect     opcode = 0x0040
	opFrameSameRRect opcode = 0x0048
	opFrameOval      opcode = 0x0050
	opFrameSameOval  opcode = 0x0058
	opFrameArc       opcode = 0x0060
	opFrameSameArc   opcode = 0x0068
	opFramePoly      opcode = 0x0070
	opFrameSamePoly  opcode = 0x0078
	opFrameRgn       opcode = 0x0080
	opFrameSameRgn   opcode = 0x0088
	opBitsRect       opcode = 0x0090
	opBitsRgn        opcode = 0x0091
	opPackBitsRect   opcode = 0x0098
	opPackBitsRgn    opcode = 0x0099
	opDirectBitsRect opcode = 0x009a
	opDirectBitsRgn  opcode = 0x009b
	opShortComment   opcode = 0x00a0
	opLongComment    opcode = 0x00a1
	opEndPicture     opcode = 0x00ff
	opVersion2       opcode = 0x02ff
	opHeaderOp       opcode = 0x0c00
	opCompressedQT   opcode = 0x8200
)

// Drawing verbs, the low 3 bits of the shape opcodes.
const (
	verbFrame = iota
	verbPaint
	verbErase
	verbInvert
	verbFill
)

type decoder struct {
	r        *utils.Reader
	version  int
	frame    qdRect
	canvas   *image.RGBA
	produced bool

	clip    qdRect
	origin  qdPoint
	pen     qdPoint
	penSize qdPoint
	ovSize  qdPoint
	fg      color.RGBA
	bg      color.RGBA
	op      color.RGBA

	lastRect  qdRect
	lastRRect qdRect
	lastOval  qdRect
	lastArc   qdRect
}

// Decode renders a picture stream to an image. A picture that carries no
// drawable content fails as unsupported rather than returning an empty
// canvas.
func Decode(data []byte) (image.Image, error) {
	r := utils.NewReader(data)
	if err := r.Advance(2); err != nil { // picSize, unreliable for large pictures
		return nil, errors.Wrap(resource.ErrInvalidFormat, "picture too short")
	}
	frame, err := readRect(r)
	if err != nil {
		return nil, errors.Wrap(err, "picture frame")
	}
	if frame.empty() {
		return nil, errors.Wrap(resource.ErrInvalidFormat, "empty picture frame")
	}

	d := &decoder{
		r:       r,
		frame:   frame,
		canvas:  image.NewRGBA(frame.imageRect()),
		clip:    frame,
		penSize: qdPoint{V: 1, H: 1},
		ovSize:  qdPoint{V: 8, H: 8},
		fg:      color.RGBA{0, 0, 0, 0xff},
		bg:      color.RGBA{0xff, 0xff, 0xff, 0xff},
	}
	if err := d.detectVersion(); err != nil {
		return nil, err
	}

	img, err := d.run()
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (d *decoder) detectVersion() error {
	first, err := d.r.ReadU16()
	if err != nil {
		return errors.Wrap(resource.ErrInvalidFormat, "missing version opcode")
	}
	switch {
	case opcode(first) == opVersion: // 0x0011: v2 version op
		ver, err := d.r.ReadU16()
		if err != nil || opcode(ver) != opVersion2 {
			return errors.Wrapf(resource.ErrInvalidFormat, "bad v2 version word 0x%04x", ver)
		}
		d.version = 2
	case first>>8 == 0x11: // v1: version op byte, version byte
		if first&0xff != 0x01 {
			return errors.Wrapf(resource.ErrUnsupported, "picture version %d", first&0xff)
		}
		d.version = 1
	default:
		return errors.Wrapf(resource.ErrInvalidFormat, "unrecognized version bytes 0x%04x", first)
	}
	return nil
}

func (d *decoder) nextOpcode() (opcode, error) {
	if d.version == 1 {
		b, err := d.r.ReadU8()
		return opcode(b), err
	}
	if d.r.Position()%2 == 1 {
		if err := d.r.Advance(1); err != nil {
			return 0, err
		}
	}
	op, err := d.r.ReadU16()
	return opcode(op), err
}

func (d *decoder) run() (image.Image, error) {
	for {
		op, err := d.nextOpcode()
		if err != nil {
			return nil, errors.Wrap(err, "picture stream truncated")
		}
		if op == opEndPicture {
			break
		}
		img, err := d.dispatch(op)
		if err != nil {
			return nil, errors.Wrapf(err, "picture opcode 0x%04x", uint16(op))
		}
		if img != nil {
			return img, nil // embedded codec replaces the picture entirely
		}
	}
	if !d.produced {
		return nil, errors.Wrap(resource.ErrUnsupported, "picture contains nothing to show")
	}
	return d.canvas, nil
}

func (d *decoder) dispatch(op opcode) (image.Image, error) {
	switch op {
	case opNop, opHiliteMode, opDefHilite:
		return nil, nil
	case opClip:
		rect, err := skipRegion(d.r)
		if err != nil {
			return nil, err
		}
		d.clip = d.shifted(rect).intersect(d.frame)
		return nil, nil
	case opOrigin:
		dh, err := d.r.ReadI16()
		if err != nil {
			return nil, err
		}
		dv, err := d.r.ReadI16()
		if err != nil {
			return nil, err
		}
		d.origin.H += dh
		d.origin.V += dv
		return nil, nil
	case opPnSize:
		p, err := readPoint(d.r)
		if err != nil {
			return nil, err
		}
		d.penSize = p
		return nil, nil
	case opOvSize:
		p, err := readPoint(d.r)
		if err != nil {
			return nil, err
		}
		d.ovSize = p
		return nil, nil
	case opRGBFgCol:
		c, err := readColor(d.r)
		if err != nil {
			return nil, err
		}
		d.fg = c
		return nil, nil
	case opRGBBkCol:
		c, err := readColor(d.r)
		if err != nil {
			return nil, err
		}
		d.bg = c
		return nil, nil
	case opOpColor:
		c, err := readColor(d.r)
		if err != nil {
			return nil, err
		}
		d.op = c
		return nil, nil
	case opBkPixPat, opPnPixPat, opFillPixPat:
		return nil, d.skipPixPat()
	case opLine, opLineFrom, opShortLine, opShortLineFrom:
		return nil, d.readLine(op)
	case opBitsRect, opBitsRgn:
		return nil, d.readBits(false, false, op == opBitsRgn)
	case opPackBitsRect, opPackBitsRgn:
		return nil, d.readBits(true, false, op == opPackBitsRgn)
	case opDirectBitsRect, opDirectBitsRgn:
		return nil, d.readBits(true, true, op == opDirectBitsRgn)
	case opShortComment:
		return nil, d.r.Advance(2)
	case opLongComment:
		if err := d.r.Advance(2); err != nil { // comment kind
			return nil, err
		}
		size, err := d.r.ReadU16()
		if err != nil {
			return nil, err
		}
		return nil, d.r.Advance(int(size))
	case opHeaderOp:
		return nil, d.r.Advance(24)
	case opCompressedQT:
		return d.readQuickTime()
	}

	if op >= opFrameRect && op <= opFrameSameRgn+7 {
		return nil, d.readShape(op)
	}
	if skip, ok := fixedSkip[op]; ok {
		return nil, d.r.Advance(skip)
	}
	if op >= opLongText && op <= opGlyphState {
		return nil, d.skipText(op)
	}
	// Apple's reserved ranges carry self-describing or high-byte-derived
	// data lengths; skip them so unknown-but-wellformed pictures decode.
	switch {
	case op >= 0x0100 && op <= 0x7fff:
		return nil, d.r.Advance(2 * int(op>>8))
	case op >= 0x8000 && op <= 0x80ff:
		return nil, nil
	case op >= 0x8100:
		size, err := d.r.ReadU32()
		if err != nil {
			return nil, err
		}
		return nil, d.r.Advance(int(size))
	}
	return nil, errors.Wrap(resource.ErrUnsupported, "opcode not handled")
}

// fixedSkip lists the state opcodes whose payload we consume but ignore.
var fixedSkip = map[opcode]int{
	opBkPat:       8,
	opTxFont:      2,
	opTxFace:      1,
	opTxMode:      2,
	opSpExtra:     4,
	opPnMode:      2,
	opPnPat:       8,
	opFillPat:     8,
	opTxSize:      2,
	opFgColor:     4,
	opBkColor:     4,
	opTxRatio:     8,
	opVersion:     1,
	opPnLocHFrac:  2,
	opChExtra:     2,
	opHiliteColor: 6,
}

func (d *decoder) skipPixPat() error {
	patType, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	switch patType {
	case 0:
		return d.r.Advance(8)
	case 2:
		if err := d.r.Advance(8); err != nil {
			return err
		}
		return d.r.Advance(6) // RGBColor
	default:
		return errors.Wrapf(resource.ErrUnsupported, "pixel pattern type %d", patType)
	}
}

func (d *decoder) skipText(op opcode) error {
	switch op {
	case opLongText:
		if err := d.r.Advance(4); err != nil { // location
			return err
		}
	case opDHText, opDVText:
		if err := d.r.Advance(1); err != nil {
			return err
		}
	case opDHDVText:
		if err := d.r.Advance(2); err != nil {
			return err
		}
	case opFontName, opLineJustify, opGlyphState:
		size, err := d.r.ReadU16()
		if err != nil {
			return err
		}
		return d.r.Advance(int(size))
	}
	count, err := d.r.ReadU8()
	if err != nil {
		return err
	}
	return d.r.Advance(int(count))
}

// shifted applies the accumulated origin offset.
func (d *decoder) shifted(rect qdRect) qdRect {
	rect.Top -= d.origin.V
	rect.Bottom -= d.origin.V
	rect.Left -= d.origin.H
	rect.Right -= d.origin.H
	return rect
}

func (d *decoder) shiftedPoint(p qdPoint) qdPoint {
	return qdPoint{V: p.V - d.origin.V, H: p.H - d.origin.H}
}

func (d *decoder) setPixel(x, y int, c color.RGBA) {
	if x < int(d.clip.Left) || x >= int(d.clip.Right) || y < int(d.clip.Top) || y >= int(d.clip.Bottom) {
		return
	}
	d.canvas.SetRGBA(x, y, c)
}

func (d *decoder) invertPixel(x, y int) {
	if x < int(d.clip.Left) || x >= int(d.clip.Right) || y < int(d.clip.Top) || y >= int(d.clip.Bottom) {
		return
	}
	c := d.canvas.RGBAAt(x, y)
	d.canvas.SetRGBA(x, y, color.RGBA{R: ^c.R, G: ^c.G, B: ^c.B, A: 0xff})
}

func (d *decoder) verbPixel(x, y, verb int) {
	switch verb {
	case verbErase:
		d.setPixel(x, y, d.bg)
	case verbInvert:
		d.invertPixel(x, y)
	default:
		d.setPixel(x, y, d.fg)
	}
}

func (d *decoder) readShape(op opcode) error {
	kind := (int(op) - int(opFrameRect)) >> 3 // rect, rrect, oval, arc, poly, rgn pairs
	verb := int(op) & 7
	same := kind%2 == 1
	kind /= 2
	if verb > verbFill {
		return errors.Wrapf(resource.ErrUnsupported, "shape verb %d", verb)
	}

	switch kind {
	case 0: // rect
		rect, err := d.shapeRect(same, &d.lastRect)
		if err != nil {
			return err
		}
		d.drawRect(rect, verb)
	case 1: // round rect
		rect, err := d.shapeRect(same, &d.lastRRect)
		if err != nil {
			return err
		}
		d.drawRRect(rect, verb)
	case 2: // oval
		rect, err := d.shapeRect(same, &d.lastOval)
		if err != nil {
			return err
		}
		d.drawOval(rect, verb)
	case 3: // arc
		rect, err := d.shapeRect(same, &d.lastArc)
		if err != nil {
			return err
		}
		start, err := d.r.ReadI16()
		if err != nil {
			return err
		}
		angle, err := d.r.ReadI16()
		if err != nil {
			return err
		}
		d.drawArc(rect, int(start), int(angle), verb)
	case 4: // polygon
		return d.readPoly(verb)
	case 5: // region, rasterized as its bounding box
		if !same {
			rect, err := skipRegion(d.r)
			if err != nil {
				return err
			}
			d.lastRect = rect
		}
		d.drawRect(d.shifted(d.lastRect), verb)
	}
	return nil
}

func (d *decoder) shapeRect(same bool, last *qdRect) (qdRect, error) {
	if !same {
		rect, err := readRect(d.r)
		if err != nil {
			return qdRect{}, err
		}
		*last = rect
	}
	return d.shifted(*last), nil
}

func (d *decoder) drawRect(rect qdRect, verb int) {
	d.produced = true
	penW, penH := int(d.penSize.H), int(d.penSize.V)
	for y := int(rect.Top); y < int(rect.Bottom); y++ {
		for x := int(rect.Left); x < int(rect.Right); x++ {
			if verb == verbFrame {
				inner := x >= int(rect.Left)+penW && x < int(rect.Right)-penW &&
					y >= int(rect.Top)+penH && y < int(rect.Bottom)-penH
				if inner {
					continue
				}
			}
			d.verbPixel(x, y, verb)
		}
	}
}

// inOval tests a pixel center against the ellipse inscribed in rect.
func inOval(rect qdRect, x, y int) bool {
	rx := float64(rect.width()) / 2
	ry := float64(rect.height()) / 2
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := (float64(x) + 0.5 - float64(rect.Left)) - rx
	dy := (float64(y) + 0.5 - float64(rect.Top)) - ry
	return dx*dx/(rx*rx)+dy*dy/(ry*ry) <= 1
}

func (d *decoder) drawOval(rect qdRect, verb int) {
	d.produced = true
	inner := qdRect{
		Top:    rect.Top + d.penSize.V,
		Left:   rect.Left + d.penSize.H,
		Bottom: rect.Bottom - d.penSize.V,
		Right:  rect.Right - d.penSize.H,
	}
	for y := int(rect.Top); y < int(rect.Bottom); y++ {
		for x := int(rect.Left); x < int(rect.Right); x++ {
			if !inOval(rect, x, y) {
				continue
			}
			if verb == verbFrame && inOval(inner, x, y) {
				continue
			}
			d.verbPixel(x, y, verb)
		}
	}
}

// inRRect tests against a rect with elliptical corners of the current
// oval size.
func (d *decoder) inRRect(rect qdRect, x, y int) bool {
	if x < int(rect.Left) || x >= int(rect.Right) || y < int(rect.Top) || y >= int(rect.Bottom) {
		return false
	}
	cw, ch := int(d.ovSize.H)/2, int(d.ovSize.V)/2
	if cw <= 0 || ch <= 0 {
		return true
	}
	cx, cy := x, y
	if x < int(rect.Left)+cw {
		cx = int(rect.Left) + cw
	} else if x >= int(rect.Right)-cw {
		cx = int(rect.Right) - cw - 1
	}
	if y < int(rect.Top)+ch {
		cy = int(rect.Top) + ch
	} else if y >= int(rect.Bottom)-ch {
		cy = int(rect.Bottom) - ch - 1
	}
	if cx == x && cy == y {
		return true
	}
	dx := float64(x - cx)
	dy := float64(y - cy)
	return dx*dx/float64(cw*cw)+dy*dy/float64(ch*ch) <= 1
}

func (d *decoder) drawRRect(rect qdRect, verb int) {
	d.produced = true
	inner := qdRect{
		Top:    rect.Top + d.penSize.V,
		Left:   rect.Left + d.penSize.H,
		Bottom: rect.Bottom - d.penSize.V,
		Right:  rect.Right - d.penSize.H,
	}
	for y := int(rect.Top); y < int(rect.Bottom); y++ {
		for x := int(rect.Left); x < int(rect.Right); x++ {
			if !d.inRRect(rect, x, y) {
				continue
			}
			if verb == verbFrame && d.inRRect(inner, x, y) {
				continue
			}
			d.verbPixel(x, y, verb)
		}
	}
}

// drawArc draws the pie wedge between start and start+angle, degrees
// measured like QuickDraw: 0 at 12 o'clock, clockwise.
func (d *decoder) drawArc(rect qdRect, start, angle, verb int) {
	d.produced = true
	if angle < 0 {
		start += angle
		angle = -angle
	}
	from := float64(start)
	sweep := float64(angle)

	cx := float64(rect.Left) + float64(rect.width())/2
	cy := float64(rect.Top) + float64(rect.height())/2
	for y := int(rect.Top); y < int(rect.Bottom); y++ {
		for x := int(rect.Left); x < int(rect.Right); x++ {
			if !inOval(rect, x, y) {
				continue
			}
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			deg := math.Atan2(dx, -dy) * 180 / math.Pi
			if deg < 0 {
				deg += 360
			}
			rel := deg - from
			for rel < 0 {
				rel += 360
			}
			if rel > sweep {
				continue
			}
			d.verbPixel(x, y, verb)
		}
	}
}

func (d *decoder) readLine(op opcode) error {
	from := d.pen
	var to qdPoint
	switch op {
	case opLine, opShortLine:
		p, err := readPoint(d.r)
		if err != nil {
			return err
		}
		from = p
		if op == opLine {
			p, err = readPoint(d.r)
			if err != nil {
				return err
			}
			to = p
			break
		}
		fallthrough
	case opShortLineFrom:
		dh, err := d.r.ReadI8()
		if err != nil {
			return err
		}
		dv, err := d.r.ReadI8()
		if err != nil {
			return err
		}
		to = qdPoint{V: from.V + int16(dv), H: from.H + int16(dh)}
	case opLineFrom:
		p, err := readPoint(d.r)
		if err != nil {
			return err
		}
		to = p
	}
	d.drawLine(d.shiftedPoint(from), d.shiftedPoint(to))
	d.pen = to
	return nil
}

func (d *decoder) drawLine(from, to qdPoint) {
	d.produced = true
	penW, penH := int(d.penSize.H), int(d.penSize.V)
	if penW < 1 {
		penW = 1
	}
	if penH < 1 {
		penH = 1
	}
	plot := func(x, y int) {
		for dy := 0; dy < penH; dy++ {
			for dx := 0; dx < penW; dx++ {
				d.setPixel(x+dx, y+dy, d.fg)
			}
		}
	}

	x0, y0 := int(from.H), int(from.V)
	x1, y1 := int(to.H), int(to.V)
	dx := x1 - x0
	if dx < 0 {
		dx = -dx
	}
	dy := y0 - y1
	if dy > 0 {
		dy = -dy
	}
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		if 2*e >= dy {
			e += dy
			x0 += sx
		}
		if 2*e <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (d *decoder) readPoly(verb int) error {
	size, err := d.r.ReadU16()
	if err != nil {
		return err
	}
	if size < 10 || size%2 != 0 {
		return errors.Wrapf(resource.ErrInvalidFormat, "polygon size %d", size)
	}
	if _, err := readRect(d.r); err != nil { // polyBBox
		return err
	}
	n := (int(size) - 10) / 4
	pts := make([]qdPoint, n)
	for i := range pts {
		p, err := readPoint(d.r)
		if err != nil {
			return err
		}
		pts[i] = d.shiftedPoint(p)
	}
	if len(pts) < 2 {
		return nil
	}
	d.produced = true
	if verb == verbFrame {
		for i := 0; i+1 < len(pts); i++ {
			d.drawLine(pts[i], pts[i+1])
		}
		return nil
	}
	d.fillPoly(pts, verb)
	return nil
}

// fillPoly rasterizes with an even-odd scanline rule.
func (d *decoder) fillPoly(pts []qdPoint, verb int) {
	minY, maxY := int(pts[0].V), int(pts[0].V)
	for _, p := range pts {
		if int(p.V) < minY {
			minY = int(p.V)
		}
		if int(p.V) > maxY {
			maxY = int(p.V)
		}
	}
	for y := minY; y < maxY; y++ {
		var xs []float64
		fy := float64(y) + 0.5
		for i := 0; i < len(pts); i++ {
			a, b := pts[i], pts[(i+1)%len(pts)]
			ay, by := float64(a.V), float64(b.V)
			if (fy >= ay) == (fy >= by) {
				continue
			}
			t := (fy - ay) / (by - ay)
			xs = append(xs, float64(a.H)+t*(float64(b.H)-float64(a.H)))
		}
		sort.Float64s(xs)
		for i := 0; i+1 < len(xs); i += 2 {
			for x := int(math.Ceil(xs[i] - 0.5)); float64(x)+0.5 < xs[i+1]; x++ {
				d.verbPixel(x, y, verb)
			}
		}
	}
}

func (d *decoder) readQuickTime() (image.Image, error) {
	size, err := d.r.ReadU32()
	if err != nil {
		return nil, err
	}
	block, err := d.r.ReadData(int(size))
	if err != nil {
		return nil, err
	}
	// The block wraps an ImageDescription plus compressed data; the only
	// codec handled is JPEG, located by its start-of-image marker.
	if idx := bytes.Index(block, []byte{0xff, 0xd8, 0xff}); idx >= 0 {
		img, err := jpeg.Decode(bytes.NewReader(block[idx:]))
		if err == nil {
			return img, nil
		}
	}
	return nil, errors.Wrap(resource.ErrUnsupported, "compressed picture codec")
}
