// Package rle codes the 16-bit run-length sprite container: a fixed
// header followed by per-frame op streams of 4-byte big-endian words.
// The top byte of each word is the opcode, the low 24 bits a byte count
// or operand.
package rle

import (
	"image"
	"image/color"

	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

const (
	opFrameEnd  = 0
	opLineStart = 1
	opPixels    = 2
	opSkip      = 3
	opColorRun  = 4
)

const headerSize = 16

// Sprite is a decoded sprite container: equally sized frames.
type Sprite struct {
	Width  int
	Height int
	Frames []*image.RGBA
}

// expand555 widens a 5-5-5 pixel to RGBA, replicating the top 3 bits of
// each channel into the low 3 so pure white maps to 0xff.
func expand555(p uint16) color.RGBA {
	r := uint8(p>>10) & 0x1f
	g := uint8(p>>5) & 0x1f
	b := uint8(p) & 0x1f
	return color.RGBA{
		R: r<<3 | r>>2,
		G: g<<3 | g>>2,
		B: b<<3 | b>>2,
		A: 0xff,
	}
}

// pack555 is the inverse of expand555, dropping the low 3 bits.
func pack555(c color.RGBA) uint16 {
	return uint16(c.R>>3)<<10 | uint16(c.G>>3)<<5 | uint16(c.B>>3)
}

// Decode parses a whole sprite container.
func Decode(data []byte) (*Sprite, error) {
	r := utils.NewReader(data)

	width, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "sprite width")
	}
	height, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "sprite height")
	}
	depth, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "sprite depth")
	}
	if depth != 16 {
		return nil, errors.Wrapf(resource.ErrUnsupported, "sprite depth %d, only 16 handled", depth)
	}
	if err := r.Advance(2); err != nil {
		return nil, err
	}
	frameCount, err := r.ReadU16()
	if err != nil {
		return nil, errors.Wrap(err, "sprite frame count")
	}
	if err := r.Advance(6); err != nil {
		return nil, err
	}

	s := &Sprite{
		Width:  int(width),
		Height: int(height),
		Frames: make([]*image.RGBA, frameCount),
	}
	for i := range s.Frames {
		frame, err := s.decodeFrame(r)
		if err != nil {
			return nil, errors.Wrapf(err, "sprite frame %d of %d", i+1, frameCount)
		}
		s.Frames[i] = frame
	}
	return s, nil
}

func (s *Sprite) decodeFrame(r *utils.Reader) (*image.RGBA, error) {
	frame := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	line := -1
	x := 0

	for {
		op, err := r.ReadU32()
		if err != nil {
			return nil, err
		}
		count := int(op & 0xffffff)

		switch op >> 24 {
		case opFrameEnd:
			return frame, nil

		case opLineStart:
			line++
			x = 0
			if line >= s.Height {
				return nil, errors.Errorf("line %d exceeds frame height %d", line, s.Height)
			}

		case opSkip:
			if line < 0 {
				return nil, errors.New("skip before the first line start")
			}
			x += count / 2
			if x > s.Width {
				return nil, errors.Errorf("skip to x=%d exceeds frame width %d", x, s.Width)
			}

		case opPixels:
			if line < 0 {
				return nil, errors.New("pixel data before the first line start")
			}
			n := count / 2
			if x+n > s.Width {
				return nil, errors.Errorf("%d pixels at x=%d exceed frame width %d", n, x, s.Width)
			}
			for i := 0; i < n; i++ {
				p, err := r.ReadU16()
				if err != nil {
					return nil, err
				}
				frame.SetRGBA(x, line, expand555(p))
				x++
			}
			// Pixel data is padded to keep the op stream 4-byte aligned.
			if count%4 != 0 {
				if err := r.Advance(2); err != nil {
					return nil, err
				}
			}

		case opColorRun:
			if line < 0 {
				return nil, errors.New("color run before the first line start")
			}
			c0, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			c1, err := r.ReadU16()
			if err != nil {
				return nil, err
			}
			// Unlike skip and pixels, the color run operand counts
			// pixels, not bytes.
			n := count
			if x+n > s.Width {
				return nil, errors.Errorf("color run of %d at x=%d exceeds frame width %d", n, x, s.Width)
			}
			// The run starts with the first stored value and alternates.
			// The original tool was little-endian and emitted the pair in
			// this order; keep it even though a big-endian reading would
			// swap them.
			a, b := expand555(c0), expand555(c1)
			for i := 0; i < n; i++ {
				if i%2 == 0 {
					frame.SetRGBA(x, line, a)
				} else {
					frame.SetRGBA(x, line, b)
				}
				x++
			}

		default:
			return nil, errors.Wrapf(resource.ErrUnsupported, "sprite opcode 0x%02x", op>>24)
		}
	}
}
