package pict

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

const fixed72dpi = 72 << 16

// Encode writes an extended version 2 picture holding img as one
// directBitsRect block, PackBits-compressed per component row. The
// output decodes back with this package's own decoder.
func Encode(img image.Image) ([]byte, error) {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, errors.New("empty image")
	}
	if width > 8191 || height > 0x7fff {
		return nil, errors.Errorf("image size %dx%d does not fit picture fields", width, height)
	}
	frame := qdRect{Bottom: int16(height), Right: int16(width)}
	rowBytes := width * 4

	w := utils.NewWriter()
	w.Advance(2) // picture size, backpatched below
	writeRect(w, frame)

	w.WriteU16(uint16(opVersion))
	w.WriteU16(uint16(opVersion2))

	// Extended v2 header: version -2, resolution, source rect.
	w.WriteU16(uint16(opHeaderOp))
	w.WriteU16(0xfffe)
	w.WriteU16(0)
	w.WriteU32(fixed72dpi)
	w.WriteU32(fixed72dpi)
	writeRect(w, frame)
	w.Advance(4)

	w.WriteU16(uint16(opClip))
	w.WriteU16(10)
	writeRect(w, frame)

	w.WriteU16(uint16(opDirectBitsRect))
	w.WriteU32(0x000000ff) // baseAddr placeholder mandated by the format
	w.WriteU16(uint16(rowBytes) | 0x8000)
	writeRect(w, frame)
	w.WriteU16(0) // pmVersion
	w.WriteU16(4) // packType: run length by component
	w.WriteU32(0) // packSize
	w.WriteU32(fixed72dpi)
	w.WriteU32(fixed72dpi)
	w.WriteU16(16) // pixelType: direct
	w.WriteU16(32)
	w.WriteU16(3) // cmpCount
	w.WriteU16(8) // cmpSize
	w.WriteU32(0) // planeBytes
	w.WriteU32(0) // pmTable
	w.WriteU32(0) // pmReserved
	writeRect(w, frame)
	writeRect(w, frame)
	w.WriteU16(0) // srcCopy

	row := make([]byte, width*3)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.RGBAModel.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.RGBA)
			row[x] = c.R
			row[width+x] = c.G
			row[2*width+x] = c.B
		}
		packed := packBits(row)
		if rowBytes > 250 {
			w.WriteU16(uint16(len(packed)))
		} else {
			w.WriteU8(uint8(len(packed)))
		}
		w.WriteData(packed)
	}
	if w.Position()%2 == 1 {
		w.Advance(1)
	}
	w.WriteU16(uint16(opEndPicture))

	// The classic size field only holds the low 16 bits; large pictures
	// rely on the actual data length instead.
	w.WriteU16At(uint16(w.Position()&0xffff), 0)
	return w.Bytes(), nil
}
