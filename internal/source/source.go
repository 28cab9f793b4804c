// Package source decodes uploaded delimited files into the source tables
// the reconciliation engine works on.
package source

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/leapimport/internal/reconcile"
)

// Warning is a non-fatal problem found while decoding a row.
type Warning struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// Options controls decoding.
type Options struct {
	// PreviewRows bounds the sample kept per column. Zero uses
	// reconcile.DefaultPreviewLimit.
	PreviewRows int
	// Delimiter forces the field separator. Zero sniffs it from the header.
	Delimiter rune
}

// Result is a decoded file.
type Result struct {
	Table     reconcile.SourceTable
	Encoding  string
	Delimiter rune
	Warnings  []Warning
}

// Extensions lists the file extensions DecodeFile accepts.
var Extensions = []string{".csv", ".tsv", ".txt"}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// DecodeFile reads and decodes the file at path.
func DecodeFile(path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	if opts.Delimiter == 0 && strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}

	return Decode(filepath.Base(path), data, opts)
}

// Decode converts raw file bytes into a source table. Rows with too few
// cells are padded and rows with too many are truncated; both produce a
// warning. Blank header cells are named column_N and repeated headers get a
// numeric suffix so every header is unique.
func Decode(name string, data []byte, opts Options) (*Result, error) {
	decoded, enc, err := DetectAndDecode(data)
	if err != nil {
		return nil, fmt.Errorf("encoding detection failed: %w", err)
	}

	delim := opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(decoded)
	}
	limit := opts.PreviewRows
	if limit <= 0 {
		limit = reconcile.DefaultPreviewLimit
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.Comma = delim
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty file: no header row found")
		}
		return nil, fmt.Errorf("failed to read header row: %w", err)
	}

	res := &Result{Encoding: enc, Delimiter: delim}
	headers = normalizeHeaders(headers, &res.Warnings)

	width := len(headers)
	preview := make(map[string][]string, width)
	for _, h := range headers {
		preview[h] = []string{}
	}

	var rows [][]string
	rowNum := 1
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowNum++

		if err != nil {
			res.Warnings = append(res.Warnings, Warning{Row: rowNum, Message: fmt.Sprintf("parse error: %v", err)})
			continue
		}
		if isBlank(row) {
			continue
		}

		switch {
		case len(row) < width:
			res.Warnings = append(res.Warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; padding with empty values", len(row), width),
			})
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		case len(row) > width:
			res.Warnings = append(res.Warnings, Warning{
				Row:     rowNum,
				Message: fmt.Sprintf("row has %d columns, expected %d; truncating extra columns", len(row), width),
			})
			row = row[:width]
		}

		if len(rows) < limit {
			for i, h := range headers {
				preview[h] = append(preview[h], row[i])
			}
		}
		rows = append(rows, row)
	}

	res.Table = reconcile.SourceTable{
		FileName: name,
		Columns:  headers,
		Preview:  preview,
		Rows:     rows,
	}
	return res, nil
}

func normalizeHeaders(raw []string, warnings *[]Warning) []string {
	headers := make([]string, len(raw))
	taken := make(map[string]bool, len(raw))

	for i, h := range raw {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("column_%d", i+1)
		}

		name := h
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s (%d)", h, n)
		}
		if name != h {
			*warnings = append(*warnings, Warning{
				Row:     1,
				Message: fmt.Sprintf("duplicate header %q renamed to %q", h, name),
			})
		}

		taken[name] = true
		headers[i] = name
	}

	return headers
}

// sniffDelimiter picks the most frequent of comma, semicolon and tab in the
// first line, ignoring quoted text. Comma wins ties.
func sniffDelimiter(data []byte) rune {
	line, _ := bufio.NewReader(bytes.NewReader(data)).ReadString('\n')

	counts := map[rune]int{}
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case !quoted && (r == ',' || r == ';' || r == '\t'):
			counts[r]++
		}
	}

	best := ','
	for _, r := range []rune{';', '\t'} {
		if counts[r] > counts[best] {
			best = r
		}
	}
	return best
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
