package lol

import (
	"bytes"

	"golang.org/x/text/encoding/charmap"
)

// DecodeName decodes a NUL padded name buffer. Bytes after the first NUL
// are ignored.
func DecodeName(b []byte) string {
	b = bytes.SplitN(b, []byte{0}, 2)[0]
	s, err := charmap.Windows1252.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(s)
}

// EncodeName writes name into dst and pads the rest with NUL. Names longer
// than dst are truncated.
func EncodeName(dst []byte, name string) {
	b, err := charmap.Windows1252.NewEncoder().Bytes([]byte(name))
	if err != nil {
		b = []byte(name)
	}
	n := copy(dst, b)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}
