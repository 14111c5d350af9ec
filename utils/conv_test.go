package utils

import (
	"bytes"
	"testing"
)

func TestDecodeText(t *testing.T) {
	// 0x8d is a cedilla c in MacRoman.
	if got := DecodeText([]byte{'f', 'a', 0x8d, 'a', 'd', 'e'}); got != "façade" {
		t.Errorf("DecodeText = %q", got)
	}
}

func TestDecodeTextZ(t *testing.T) {
	if got := DecodeTextZ([]byte{'h', 'i', 0, 'x', 'x'}); got != "hi" {
		t.Errorf("DecodeTextZ = %q", got)
	}
	if got := DecodeTextZ([]byte{'h', 'i'}); got != "hi" {
		t.Errorf("unterminated DecodeTextZ = %q", got)
	}
}

func TestEncodeTextRoundTrip(t *testing.T) {
	for _, s := range []string{"", "plain", "café", "™"} {
		if got := DecodeText(EncodeText(s)); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}

func TestEncodeTextReplacesUnmappable(t *testing.T) {
	got := EncodeText("aあb")
	if len(got) != 3 || got[0] != 'a' || got[2] != 'b' {
		t.Errorf("EncodeText = % x", got)
	}
}

func TestEncodeTextBuffer(t *testing.T) {
	got := EncodeTextBuffer("hi", 4)
	if !bytes.Equal(got, []byte{'h', 'i', 0, 0}) {
		t.Errorf("EncodeTextBuffer = % x", got)
	}
	got = EncodeTextBuffer("toolong", 4)
	if !bytes.Equal(got, []byte("tool")) {
		t.Errorf("truncated EncodeTextBuffer = % x", got)
	}
}
