package pict

import (
	"github.com/pkg/errors"

	"github.com/rsrcutils/rsrcbrowser/utils"
)

// unpackBits expands a PackBits stream into exactly want bytes. A control
// byte 0..127 copies n+1 literal bytes; 0x81..0xff repeats the next byte
// 257-n times; 0x80 is a no-op.
func unpackBits(r *utils.Reader, want int) ([]byte, error) {
	out := make([]byte, 0, want)
	for len(out) < want {
		ctl, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		switch {
		case ctl == 0x80:
		case ctl > 0x80:
			n := 257 - int(ctl)
			b, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				out = append(out, b)
			}
		default:
			lit, err := r.ReadData(int(ctl) + 1)
			if err != nil {
				return nil, err
			}
			out = append(out, lit...)
		}
	}
	if len(out) != want {
		return nil, errors.Errorf("packed row expands to %d bytes, want %d", len(out), want)
	}
	return out, nil
}

// unpackBitsWords is the 16-bit pixel variant: run lengths count words,
// not bytes.
func unpackBitsWords(r *utils.Reader, wantWords int) ([]byte, error) {
	out := make([]byte, 0, wantWords*2)
	for len(out) < wantWords*2 {
		ctl, err := r.ReadU8()
		if err != nil {
			return nil, err
		}
		switch {
		case ctl == 0x80:
		case ctl > 0x80:
			n := 257 - int(ctl)
			hi, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			lo, err := r.ReadU8()
			if err != nil {
				return nil, err
			}
			for i := 0; i < n; i++ {
				out = append(out, hi, lo)
			}
		default:
			lit, err := r.ReadData((int(ctl) + 1) * 2)
			if err != nil {
				return nil, err
			}
			out = append(out, lit...)
		}
	}
	if len(out) != wantWords*2 {
		return nil, errors.Errorf("packed row expands to %d words, want %d", len(out)/2, wantWords)
	}
	return out, nil
}

// packBits compresses one row. Runs of 3 or more identical bytes become
// repeat tokens, everything else literal chunks of at most 128 bytes.
func packBits(row []byte) []byte {
	var out []byte
	i := 0
	for i < len(row) {
		run := 1
		for i+run < len(row) && run < 128 && row[i+run] == row[i] {
			run++
		}
		if run >= 3 {
			out = append(out, byte(257-run), row[i])
			i += run
			continue
		}
		// Literal chunk up to the next run of 3.
		start := i
		for i < len(row) && i-start < 128 {
			if i+2 < len(row) && row[i] == row[i+1] && row[i] == row[i+2] {
				break
			}
			i++
		}
		out = append(out, byte(i-start-1))
		out = append(out, row[start:i]...)
	}
	return out
}
