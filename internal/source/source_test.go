package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestDecode_Basic(t *testing.T) {
	data := []byte("Email, Phone ,Name\na@x.io,123,Ann\nb@x.io,456,Bob\n")

	res, err := Decode("people.csv", data, Options{})
	require.NoError(t, err)

	assert.Equal(t, "people.csv", res.Table.FileName)
	assert.Equal(t, []string{"Email", "Phone", "Name"}, res.Table.Columns)
	assert.Equal(t, []string{"a@x.io", "b@x.io"}, res.Table.Preview["Email"])
	assert.Equal(t, [][]string{{"a@x.io", "123", "Ann"}, {"b@x.io", "456", "Bob"}}, res.Table.Rows)
	assert.Equal(t, ',', res.Delimiter)
	assert.Equal(t, EncodingUTF8, res.Encoding)
	assert.Empty(t, res.Warnings)
}

func TestDecode_PreviewIsBounded(t *testing.T) {
	data := []byte("n\n1\n2\n3\n4\n5\n6\n")

	res, err := Decode("n.csv", data, Options{PreviewRows: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, res.Table.Preview["n"])
	assert.Len(t, res.Table.Rows, 6)

	res, err = Decode("n.csv", data, Options{})
	require.NoError(t, err)
	assert.Len(t, res.Table.Preview["n"], 4)
}

func TestDecode_RaggedRows(t *testing.T) {
	data := []byte("a,b,c\n1,2\n1,2,3,4\n\n")

	res, err := Decode("r.csv", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2", ""}, {"1", "2", "3"}}, res.Table.Rows)
	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Message, "padding")
	assert.Contains(t, res.Warnings[1].Message, "truncating")
}

func TestDecode_Headers(t *testing.T) {
	data := []byte("email,,email,email\n1,2,3,4\n")

	res, err := Decode("h.csv", data, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"email", "column_2", "email (2)", "email (3)"}, res.Table.Columns)
	assert.Len(t, res.Warnings, 2)
}

func TestDecode_Delimiters(t *testing.T) {
	tests := []struct {
		name string
		data string
		want rune
	}{
		{"comma", "a,b\n1,2\n", ','},
		{"semicolon", "a;b;c\n1;2;3\n", ';'},
		{"tab", "a\tb\n1\t2\n", '\t'},
		{"quoted commas ignored", "\"a,b,c\";d;e\n1;2;3\n", ';'},
		{"single column", "a\n1\n", ','},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode("d.csv", []byte(tt.data), Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res.Delimiter)
		})
	}
}

func TestDecode_Encodings(t *testing.T) {
	plain := "Prénom,Ville\nZoé,Orléans\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(plain)
	require.NoError(t, err)
	latin, err := charmap.Windows1252.NewEncoder().String(plain)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
		enc  string
	}{
		{"utf-8", []byte(plain), EncodingUTF8},
		{"utf-8 bom", append([]byte{0xEF, 0xBB, 0xBF}, plain...), EncodingUTF8BOM},
		{"utf-16le", []byte(utf16), EncodingUTF16LE},
		{"windows-1252", []byte(latin), EncodingWindows1252},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := Decode("e.csv", tt.data, Options{})
			require.NoError(t, err)
			assert.Equal(t, tt.enc, res.Encoding)
			assert.Equal(t, []string{"Prénom", "Ville"}, res.Table.Columns)
			assert.Equal(t, []string{"Zoé"}, res.Table.Preview["Prénom"])
		})
	}
}

func TestDecode_Empty(t *testing.T) {
	_, err := Decode("e.csv", nil, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestDecodeFile_TSVExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.tsv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\tc\n1,2\t3\n"), 0o600))

	res, err := DecodeFile(path, Options{})
	require.NoError(t, err)
	assert.Equal(t, "data.tsv", res.Table.FileName)
	assert.Equal(t, []string{"a,b", "c"}, res.Table.Columns)
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("x.CSV"))
	assert.True(t, Supported("/tmp/y.tsv"))
	assert.False(t, Supported("z.xlsx"))
}
