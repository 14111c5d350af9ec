package pict

import (
	"image/color"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

// readBits handles the six CopyBits opcodes. packed selects per-row
// PackBits compression, direct the 16/32-bit pixMap form, hasRegion a
// trailing mask region.
func (d *decoder) readBits(packed, direct, hasRegion bool) error {
	var pm pixMap
	var table []color.RGBA
	var err error

	if direct {
		if err = d.r.Advance(4); err != nil { // baseAddr, always 0x000000ff
			return err
		}
	}
	rowBytes, err := d.r.ReadU16()
	if err != nil {
		return err
	}

	if rowBytes&0x8000 != 0 {
		if pm, err = readPixMap(d.r, rowBytes); err != nil {
			return err
		}
		if !direct {
			if table, err = readColorTable(d.r); err != nil {
				return err
			}
		}
	} else {
		// Old-style 1-bit bitMap: just bounds after rowBytes.
		pm.RowBytes = int(rowBytes)
		pm.PixelSize = 1
		pm.CmpCount = 1
		if pm.Bounds, err = readRect(d.r); err != nil {
			return err
		}
		table = []color.RGBA{
			{0xff, 0xff, 0xff, 0xff},
			{0, 0, 0, 0xff},
		}
	}

	srcRect, err := readRect(d.r)
	if err != nil {
		return err
	}
	dstRect, err := readRect(d.r)
	if err != nil {
		return err
	}
	if err = d.r.Advance(2); err != nil { // transfer mode
		return err
	}
	if hasRegion {
		if _, err = skipRegion(d.r); err != nil {
			return err
		}
	}

	rows, err := d.readPixelRows(pm, packed, direct, table)
	if err != nil {
		return err
	}
	d.blit(rows, pm.Bounds, srcRect, dstRect)
	return nil
}

// packedRow reads one length-prefixed compressed row into a bounded
// sub-reader, so a short unpack can never eat the next row's prefix.
func (d *decoder) packedRow(rowBytes int) (*utils.Reader, error) {
	var n int
	if rowBytes > 250 {
		v, err := d.r.ReadU16()
		if err != nil {
			return nil, err
		}
		n = int(v)
	} else {
		v, err := d.r.ReadU8()
		if err != nil {
			return nil, err
		}
		n = int(v)
	}
	return d.r.SubReader(n)
}

func (d *decoder) readPixelRows(pm pixMap, packed, direct bool, table []color.RGBA) ([][]color.RGBA, error) {
	width := pm.Bounds.width()
	height := pm.Bounds.height()
	if width <= 0 || height <= 0 {
		return nil, errors.Wrapf(resource.ErrInvalidFormat, "pixel map bounds %v", pm.Bounds)
	}

	packType := pm.PackType
	if packType == 0 {
		switch pm.PixelSize {
		case 16:
			packType = 3
		case 32:
			packType = 4
		default:
			packType = 1
		}
		if !packed {
			packType = 1
		}
	}
	if pm.RowBytes < 8 {
		packType = 1
	}

	rows := make([][]color.RGBA, height)
	for y := 0; y < height; y++ {
		row := make([]color.RGBA, width)
		switch {
		case direct && pm.PixelSize == 16:
			if err := d.readRow16(row, packType); err != nil {
				return nil, err
			}
		case direct && pm.PixelSize == 32:
			if err := d.readRow32(row, packType, pm.CmpCount); err != nil {
				return nil, err
			}
		case direct:
			return nil, errors.Wrapf(resource.ErrUnsupported, "direct pixels of size %d", pm.PixelSize)
		default:
			if err := d.readRowIndexed(row, pm, packed, table); err != nil {
				return nil, err
			}
		}
		rows[y] = row
	}
	return rows, nil
}

func (d *decoder) readRow16(row []color.RGBA, packType int) error {
	var raw []byte
	switch packType {
	case 1:
		b, err := d.r.ReadData(len(row) * 2)
		if err != nil {
			return err
		}
		raw = b
	case 3:
		sub, err := d.packedRow(len(row) * 2)
		if err != nil {
			return err
		}
		if raw, err = unpackBitsWords(sub, len(row)); err != nil {
			return err
		}
	default:
		return errors.Wrapf(resource.ErrUnsupported, "16-bit pack type %d", packType)
	}
	for i := range row {
		row[i] = expand555Word(uint16(raw[i*2])<<8 | uint16(raw[i*2+1]))
	}
	return nil
}

func (d *decoder) readRow32(row []color.RGBA, packType, cmpCount int) error {
	if cmpCount != 3 && cmpCount != 4 {
		return errors.Wrapf(resource.ErrUnsupported, "%d-component direct pixels", cmpCount)
	}
	width := len(row)
	switch packType {
	case 1:
		b, err := d.r.ReadData(width * 4)
		if err != nil {
			return err
		}
		for i := range row {
			row[i] = color.RGBA{R: b[i*4+1], G: b[i*4+2], B: b[i*4+3], A: 0xff}
		}
	case 2:
		b, err := d.r.ReadData(width * 3)
		if err != nil {
			return err
		}
		for i := range row {
			row[i] = color.RGBA{R: b[i*3], G: b[i*3+1], B: b[i*3+2], A: 0xff}
		}
	case 4:
		sub, err := d.packedRow(width * cmpCount)
		if err != nil {
			return err
		}
		planes, err := unpackBits(sub, width*cmpCount)
		if err != nil {
			return err
		}
		if cmpCount == 4 {
			planes = planes[width:] // leading alpha plane is ignored
		}
		for i := range row {
			row[i] = color.RGBA{R: planes[i], G: planes[width+i], B: planes[2*width+i], A: 0xff}
		}
	default:
		return errors.Wrapf(resource.ErrUnsupported, "32-bit pack type %d", packType)
	}
	return nil
}

func (d *decoder) readRowIndexed(row []color.RGBA, pm pixMap, packed bool, table []color.RGBA) error {
	switch pm.PixelSize {
	case 1, 2, 4, 8:
	default:
		return errors.Wrapf(resource.ErrUnsupported, "indexed pixels of size %d", pm.PixelSize)
	}

	var raw []byte
	if packed && pm.RowBytes >= 8 {
		sub, err := d.packedRow(pm.RowBytes)
		if err != nil {
			return err
		}
		if raw, err = unpackBits(sub, pm.RowBytes); err != nil {
			return err
		}
	} else {
		b, err := d.r.ReadData(pm.RowBytes)
		if err != nil {
			return err
		}
		raw = b
	}

	perByte := 8 / pm.PixelSize
	mask := byte(1<<pm.PixelSize - 1)
	for i := range row {
		byteIdx := i / perByte
		if byteIdx >= len(raw) {
			return errors.Wrapf(resource.ErrInvalidFormat, "row of %d bytes too short for %d pixels", len(raw), len(row))
		}
		shift := uint(8 - pm.PixelSize*(i%perByte+1))
		idx := int(raw[byteIdx] >> shift & mask)
		if idx < len(table) {
			row[i] = table[idx]
		}
	}
	return nil
}

// blit copies decoded rows into the canvas, scaling nearest-neighbor when
// the source and destination rectangles differ and trimming the source in
// proportion to whatever the clip cuts off the destination.
func (d *decoder) blit(rows [][]color.RGBA, bounds, src, dst qdRect) {
	dst = d.shifted(dst)
	clipped := dst.intersect(d.clip)
	if clipped.empty() || src.empty() || dst.empty() {
		return
	}
	d.produced = true
	for y := int(clipped.Top); y < int(clipped.Bottom); y++ {
		sy := int(src.Top) + (y-int(dst.Top))*src.height()/dst.height() - int(bounds.Top)
		if sy < 0 || sy >= len(rows) {
			continue
		}
		for x := int(clipped.Left); x < int(clipped.Right); x++ {
			sx := int(src.Left) + (x-int(dst.Left))*src.width()/dst.width() - int(bounds.Left)
			if sx < 0 || sx >= len(rows[sy]) {
				continue
			}
			d.setPixel(x, y, rows[sy][sx])
		}
	}
}
