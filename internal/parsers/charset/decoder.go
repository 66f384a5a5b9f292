// Package charset converts exported receipt files to UTF-8.
package charset

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// Encoding represents a text encoding
type Encoding string

const (
	EncodingUTF8        Encoding = "utf-8"
	EncodingUTF16LE     Encoding = "utf-16le"
	EncodingWindows1252 Encoding = "windows-1252"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DetectEncoding guesses the encoding of a byte buffer. Spreadsheet exports
// on Windows are either UTF-16 with a BOM or Windows-1252.
func DetectEncoding(data []byte) Encoding {
	if len(data) >= 2 && data[0] == 0xFF && data[1] == 0xFE {
		return EncodingUTF16LE
	}
	if bytes.HasPrefix(data, utf8BOM) || utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingWindows1252
}

// Decode converts data to a UTF-8 string, detecting the encoding and
// dropping any byte order mark.
func Decode(data []byte) (string, error) {
	var dec *encoding.Decoder
	switch DetectEncoding(data) {
	case EncodingUTF8:
		return string(bytes.TrimPrefix(data, utf8BOM)), nil
	case EncodingUTF16LE:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
	default:
		dec = charmap.Windows1252.NewDecoder()
	}
	out, err := dec.Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decode receipt text: %w", err)
	}
	return string(out), nil
}
