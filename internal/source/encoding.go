package source

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Encoding names reported by DetectAndDecode.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF8BOM     = "utf-8-bom"
	EncodingUTF16LE     = "utf-16le"
	EncodingUTF16BE     = "utf-16be"
	EncodingWindows1252 = "windows-1252"
)

// DetectAndDecode strips any byte order mark and converts data to UTF-8.
// Input that is neither BOM-marked nor valid UTF-8 is read as Windows-1252,
// the usual encoding of spreadsheet exports.
func DetectAndDecode(data []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(data, bomUTF8):
		return data[len(bomUTF8):], EncodingUTF8BOM, nil
	case bytes.HasPrefix(data, bomUTF16LE):
		out, err := decodeWith(data, unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM))
		return out, EncodingUTF16LE, err
	case bytes.HasPrefix(data, bomUTF16BE):
		out, err := decodeWith(data, unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM))
		return out, EncodingUTF16BE, err
	case utf8.Valid(data):
		return data, EncodingUTF8, nil
	}

	out, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data)
	if err != nil {
		return nil, "", fmt.Errorf("windows-1252 decode failed: %w", err)
	}
	return out, EncodingWindows1252, nil
}

func decodeWith(data []byte, enc encoding.Encoding) ([]byte, error) {
	out, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return nil, fmt.Errorf("utf-16 decode failed: %w", err)
	}
	return out, nil
}
