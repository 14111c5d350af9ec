package rle

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/rsrcutils/rsrcbrowser/resource"
	"github.com/rsrcutils/rsrcbrowser/utils"
)

func spriteHeader(w, h, depth, frames uint16) *utils.Writer {
	out := utils.NewWriter()
	out.WriteU16(w)
	out.WriteU16(h)
	out.WriteU16(depth)
	out.Advance(2)
	out.WriteU16(frames)
	out.Advance(6)
	return out
}

func TestDecodeOps(t *testing.T) {
	w := spriteHeader(8, 2, 16, 1)
	w.WriteU32(opLineStart << 24)
	w.WriteU32(opSkip<<24 | 4) // 2 transparent pixels
	w.WriteU32(opPixels<<24 | 4)
	w.WriteU16(0x7fff) // white
	w.WriteU16(0x7c00) // red
	w.WriteU32(opLineStart << 24)
	w.WriteU32(opColorRun<<24 | 4) // 4 pixels alternating
	w.WriteU16(0x03e0)             // green
	w.WriteU16(0x001f)             // blue
	w.WriteU32(opFrameEnd << 24)

	s, err := Decode(w.Bytes())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Width != 8 || s.Height != 2 || len(s.Frames) != 1 {
		t.Fatalf("sprite = %dx%d, %d frames", s.Width, s.Height, len(s.Frames))
	}
	frame := s.Frames[0]

	if got := frame.RGBAAt(0, 0); got.A != 0 {
		t.Errorf("skipped pixel not transparent: %v", got)
	}
	if got := frame.RGBAAt(2, 0); got != (color.RGBA{0xff, 0xff, 0xff, 0xff}) {
		t.Errorf("pixel (2,0) = %v, want white", got)
	}
	if got := frame.RGBAAt(3, 0); got != (color.RGBA{0xff, 0, 0, 0xff}) {
		t.Errorf("pixel (3,0) = %v, want red", got)
	}

	// Color run starts with the first stored value and alternates, one
	// pixel per counted unit.
	green := color.RGBA{0, 0xff, 0, 0xff}
	blue := color.RGBA{0, 0, 0xff, 0xff}
	for x, want := range []color.RGBA{green, blue, green, blue} {
		if got := frame.RGBAAt(x, 1); got != want {
			t.Errorf("run pixel (%d,1) = %v, want %v", x, got, want)
		}
	}
}

func TestBitReplication(t *testing.T) {
	// 5-bit 0b10000 must widen to 0b10000100, not 0b10000000.
	c := expand555(0x10 << 10)
	if c.R != 0x84 {
		t.Errorf("R = 0x%02x, want 0x84", c.R)
	}
}

func TestDecodeRejectsDepth(t *testing.T) {
	w := spriteHeader(4, 4, 8, 0)
	if _, err := Decode(w.Bytes()); !errors.Is(err, resource.ErrUnsupported) {
		t.Fatalf("err = %v, want ErrUnsupported", err)
	}
}

func TestDecodeBoundsChecks(t *testing.T) {
	tests := []struct {
		name string
		ops  func(w *utils.Writer)
	}{
		{"line past height", func(w *utils.Writer) {
			w.WriteU32(opLineStart << 24)
			w.WriteU32(opLineStart << 24)
			w.WriteU32(opLineStart << 24)
		}},
		{"skip past width", func(w *utils.Writer) {
			w.WriteU32(opLineStart << 24)
			w.WriteU32(opSkip<<24 | 10) // 5 pixels into a 4-wide frame
		}},
		{"pixels before line start", func(w *utils.Writer) {
			w.WriteU32(opPixels<<24 | 2)
			w.WriteU16(0)
		}},
		{"skip before line start", func(w *utils.Writer) {
			w.WriteU32(opSkip<<24 | 2)
		}},
		{"color run past width", func(w *utils.Writer) {
			w.WriteU32(opLineStart << 24)
			w.WriteU32(opColorRun<<24 | 5) // 5 pixels into a 4-wide frame
			w.WriteU16(0)
			w.WriteU16(0)
		}},
		{"unknown opcode", func(w *utils.Writer) {
			w.WriteU32(9 << 24)
		}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			w := spriteHeader(4, 2, 16, 1)
			test.ops(w)
			w.WriteU32(opFrameEnd << 24)
			if _, err := Decode(w.Bytes()); err == nil {
				t.Error("expected decode error")
			}
		})
	}
}

// quantized builds a color that survives the 5-bit round trip exactly.
func quantized(r, g, b uint8) color.RGBA {
	return expand555(uint16(r>>3)<<10 | uint16(g>>3)<<5 | uint16(b>>3))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const w, h = 16, 4
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	// Line 0: opaque run, interior gap, then more pixels.
	for x := 0; x < 5; x++ {
		frame.SetRGBA(x, 0, quantized(uint8(x*16), 0x80, 0x20))
	}
	frame.SetRGBA(9, 0, quantized(0xff, 0xff, 0xff))
	// Line 1: long two-color alternation, worth a color run.
	a, b := quantized(0xff, 0, 0), quantized(0, 0, 0xff)
	for x := 0; x < w; x++ {
		if x%2 == 0 {
			frame.SetRGBA(x, 1, a)
		} else {
			frame.SetRGBA(x, 1, b)
		}
	}
	// Lines 2..3 stay blank.

	data, err := Encode([]*image.RGBA{frame}, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := s.Frames[0]
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if got.RGBAAt(x, y) != frame.RGBAAt(x, y) {
				t.Fatalf("pixel (%d,%d) = %v, want %v", x, y, got.RGBAAt(x, y), frame.RGBAAt(x, y))
			}
		}
	}
}

func TestEncodeUsesColorRun(t *testing.T) {
	const w = 12
	frame := image.NewRGBA(image.Rect(0, 0, w, 1))
	a, b := quantized(0xf8, 0, 0), quantized(0, 0xf8, 0)
	for x := 0; x < w; x++ {
		if x%2 == 0 {
			frame.SetRGBA(x, 0, a)
		} else {
			frame.SetRGBA(x, 0, b)
		}
	}
	data, err := Encode([]*image.RGBA{frame}, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// header + lineStart + colorRun op + 2 pixel values + frameEnd.
	want := headerSize + 4 + 4 + 4 + 4
	if len(data) != want {
		t.Errorf("encoded %d bytes, want %d (color run not chosen?)", len(data), want)
	}
}

func TestEncodeOmitsTrailingBlankLines(t *testing.T) {
	frame := image.NewRGBA(image.Rect(0, 0, 4, 8))
	frame.SetRGBA(0, 0, quantized(0xff, 0, 0))

	data, err := Encode([]*image.RGBA{frame}, EncodeOptions{})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// header + lineStart + pixels op + 1 padded pixel + frameEnd: the 7
	// blank lines below the pixel cost nothing.
	want := headerSize + 4 + 4 + 4 + 4
	if len(data) != want {
		t.Errorf("encoded %d bytes, want %d", len(data), want)
	}

	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if s.Height != 8 {
		t.Errorf("height = %d, want 8", s.Height)
	}
}

func TestEncodeDitherStaysClose(t *testing.T) {
	const w, h = 32, 4
	frame := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			frame.SetRGBA(x, y, color.RGBA{uint8(x * 8), uint8(x * 4), 0x40, 0xff})
		}
	}
	data, err := Encode([]*image.RGBA{frame}, EncodeOptions{Dither: true})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	s, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			got, want := s.Frames[0].RGBAAt(x, y), frame.RGBAAt(x, y)
			if diff(got.R, want.R) > 15 || diff(got.G, want.G) > 15 || diff(got.B, want.B) > 15 {
				t.Fatalf("pixel (%d,%d) = %v too far from %v", x, y, got, want)
			}
		}
	}
}

func diff(a, b uint8) int {
	if a > b {
		return int(a - b)
	}
	return int(b - a)
}

func TestEncodeMismatchedFrames(t *testing.T) {
	frames := []*image.RGBA{
		image.NewRGBA(image.Rect(0, 0, 4, 4)),
		image.NewRGBA(image.Rect(0, 0, 8, 4)),
	}
	if _, err := Encode(frames, EncodeOptions{}); err == nil {
		t.Error("expected error for mismatched frame sizes")
	}
}
