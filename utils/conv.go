package utils

import (
	"bytes"

	"golang.org/x/text/encoding"
	"golang.org/x/text/transform"

	"github.com/rsrcutils/rsrcbrowser/config"
)

// DecodeText converts legacy single-byte text to a Go string using the
// configured charmap. Single-byte decoders cannot fail; every input byte
// maps to some rune.
func DecodeText(bs []byte) string {
	s, _, err := transform.Bytes(config.GetEncoding().NewDecoder(), bs)
	if err != nil {
		panic(err)
	}
	return string(s)
}

// DecodeTextZ decodes up to the first zero byte.
func DecodeTextZ(bs []byte) string {
	if n := bytes.IndexByte(bs, 0); n >= 0 {
		bs = bs[:n]
	}
	return DecodeText(bs)
}

// EncodeText converts a Go string to legacy single-byte text. Runes with no
// mapping in the configured charmap become the encoder's replacement byte
// rather than failing; resource names and template strings are display
// data, not identifiers.
func EncodeText(s string) []byte {
	enc := encoding.ReplaceUnsupported(config.GetEncoding().NewEncoder())
	bs, _, err := transform.Bytes(enc, []byte(s))
	if err != nil {
		panic(err)
	}
	return bs
}

// EncodeTextBuffer encodes into a fixed-size zero-padded buffer,
// truncating if needed. Used for the fixed-width name fields of the rez
// format index.
func EncodeTextBuffer(s string, bufSize int) []byte {
	bs := EncodeText(s)
	r := make([]byte, bufSize)
	copy(r, bs)
	return r
}
