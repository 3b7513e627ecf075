package slp

import (
	"bytes"
	"strings"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/width"
)

// decodeName converts a NUL padded Shift-JIS field to UTF-8 and folds runes to
// their canonical width (the console writes connect code hashes as U+FF03).
func decodeName(b []byte) string {
	b = trimNUL(b)
	if len(b) == 0 {
		return ""
	}
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "")
	}
	return width.Fold.String(string(out))
}

func decodeASCII(b []byte) string {
	return string(trimNUL(b))
}

func trimNUL(b []byte) []byte {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return b[:i]
	}
	return b
}
