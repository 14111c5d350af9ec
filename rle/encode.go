package rle

import (
	"image"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// EncodeOptions tune the lossy parts of encoding. The 5-bit channel
// quantization itself is inherent to the format.
type EncodeOptions struct {
	// Dither carries the quantization error along each scan line,
	// serpentine (direction alternating with line parity).
	Dither bool
}

type encodedPixel struct {
	transparent bool
	value       uint16
}

// Encode packs frames into a sprite container. All frames must share the
// same dimensions.
func Encode(frames []*image.RGBA, opts EncodeOptions) ([]byte, error) {
	if len(frames) == 0 {
		return nil, errors.New("no frames to encode")
	}
	bounds := frames[0].Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width > 0xffff || height > 0xffff {
		return nil, errors.Errorf("frame size %dx%d exceeds the 16-bit header fields", width, height)
	}
	if len(frames) > 0xffff {
		return nil, errors.Errorf("%d frames exceed the 16-bit frame count", len(frames))
	}
	for i, f := range frames {
		if f.Bounds().Dx() != width || f.Bounds().Dy() != height {
			return nil, errors.Errorf("frame %d size %v differs from %dx%d", i+1, f.Bounds(), width, height)
		}
	}

	w := utils.NewWriter()
	w.WriteU16(uint16(width))
	w.WriteU16(uint16(height))
	w.WriteU16(16)
	w.Advance(2)
	w.WriteU16(uint16(len(frames)))
	w.Advance(6)

	for _, f := range frames {
		encodeFrame(w, f, opts)
	}
	return w.Bytes(), nil
}

func encodeFrame(w *utils.Writer, frame *image.RGBA, opts EncodeOptions) {
	bounds := frame.Bounds()

	// Blank lines are not emitted until later content needs them, so a
	// frame's trailing empty lines cost nothing.
	pendingLines := 0
	flushLines := func() {
		for ; pendingLines > 0; pendingLines-- {
			w.WriteU32(opLineStart << 24)
		}
	}

	for y := 0; y < bounds.Dy(); y++ {
		pendingLines++
		line := quantizeLine(frame, bounds.Min.Y+y, opts.Dither && y%2 == 1, opts.Dither)
		encodeLine(w, line, flushLines)
	}
	w.WriteU32(opFrameEnd << 24)
}

// quantizeLine classifies and quantizes one scan line. With dithering the
// truncation error of each channel is carried to the next pixel; reverse
// processes right to left so consecutive lines diffuse in opposite
// directions.
func quantizeLine(frame *image.RGBA, y int, reverse, dither bool) []encodedPixel {
	bounds := frame.Bounds()
	width := bounds.Dx()
	out := make([]encodedPixel, width)

	var carryR, carryG, carryB int
	quant := func(v uint8, carry *int) uint16 {
		adj := int(v)
		if dither {
			adj += *carry
			if adj < 0 {
				adj = 0
			} else if adj > 255 {
				adj = 255
			}
		}
		q := adj >> 3
		if dither {
			*carry = adj - (q<<3 | q>>2)
		}
		return uint16(q)
	}

	for i := 0; i < width; i++ {
		x := i
		if reverse {
			x = width - 1 - i
		}
		c := frame.RGBAAt(bounds.Min.X+x, y)
		if c.A < 0x80 {
			out[x] = encodedPixel{transparent: true}
			// A gap breaks the error carry.
			carryR, carryG, carryB = 0, 0, 0
			continue
		}
		if !dither {
			out[x] = encodedPixel{value: pack555(c)}
			continue
		}
		r := quant(c.R, &carryR)
		g := quant(c.G, &carryG)
		b := quant(c.B, &carryB)
		out[x] = encodedPixel{value: r<<10 | g<<5 | b}
	}
	return out
}

// altRunLen reports how far the line alternates between line[x] and
// line[x+1] without hitting a transparent pixel.
func altRunLen(line []encodedPixel, x int) int {
	if x+1 >= len(line) || line[x].transparent || line[x+1].transparent {
		return 0
	}
	a, b := line[x].value, line[x+1].value
	n := 2
	for x+n < len(line) && !line[x+n].transparent {
		want := a
		if n%2 == 1 {
			want = b
		}
		if line[x+n].value != want {
			break
		}
		n++
	}
	return n
}

// colorRunThreshold is the shortest alternating stretch worth a colorRun
// op: below it, raw pixel data is never larger.
const colorRunThreshold = 6

func encodeLine(w *utils.Writer, line []encodedPixel, flushLines func()) {
	x := 0
	var raw []uint16
	flushRaw := func() {
		if len(raw) == 0 {
			return
		}
		flushLines()
		w.WriteU32(opPixels<<24 | uint32(len(raw)*2))
		for _, p := range raw {
			w.WriteU16(p)
		}
		if len(raw)%2 == 1 {
			w.Advance(2)
		}
		raw = raw[:0]
	}

	for x < len(line) {
		if line[x].transparent {
			flushRaw()
			n := 0
			for x+n < len(line) && line[x+n].transparent {
				n++
			}
			x += n
			if x == len(line) {
				return // trailing transparency is implied by the next lineStart
			}
			flushLines()
			w.WriteU32(opSkip<<24 | uint32(n*2))
			continue
		}
		if n := altRunLen(line, x); n >= colorRunThreshold {
			flushRaw()
			flushLines()
			w.WriteU32(opColorRun<<24 | uint32(n))
			w.WriteU16(line[x].value)
			w.WriteU16(line[x+1].value)
			x += n
			continue
		}
		raw = append(raw, line[x].value)
		x++
	}
	flushRaw()
}
