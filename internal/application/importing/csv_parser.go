package importing

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// RawRow is one source row keyed by CSV column name.
type RawRow map[string]string

type ParsedCSV struct {
	Headers []string
	Rows    []RawRow
}

// ParseCSV reads a header line followed by data rows. Lines starting with '#'
// are treated as comments so templates with instructions parse back cleanly.
// Short rows are padded with empty values and extra cells are dropped.
func ParseCSV(r io.Reader) (ParsedCSV, error) {
	br := stripUTF8BOM(bufio.NewReader(r))

	reader := csv.NewReader(br)
	reader.FieldsPerRecord = -1
	reader.Comment = '#'

	headers, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParsedCSV{}, fmt.Errorf("%w: missing header", ErrInvalidCSV)
		}
		return ParsedCSV{}, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
	}

	seen := make(map[string]struct{}, len(headers))
	for i := range headers {
		headers[i] = strings.TrimSpace(headers[i])
		if !utf8.ValidString(headers[i]) {
			return ParsedCSV{}, fmt.Errorf("%w: invalid header encoding", ErrInvalidCSV)
		}
		if headers[i] == "" {
			return ParsedCSV{}, fmt.Errorf("%w: empty header in column %d", ErrInvalidCSV, i+1)
		}
		if _, dup := seen[headers[i]]; dup {
			return ParsedCSV{}, fmt.Errorf("%w: duplicate header %q", ErrInvalidCSV, headers[i])
		}
		seen[headers[i]] = struct{}{}
	}

	parsed := ParsedCSV{Headers: headers}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ParsedCSV{}, fmt.Errorf("%w: %v", ErrInvalidCSV, err)
		}
		if blankRecord(record) {
			continue
		}

		row := make(RawRow, len(headers))
		for i, header := range headers {
			if i < len(record) {
				row[header] = record[i]
			} else {
				row[header] = ""
			}
		}
		parsed.Rows = append(parsed.Rows, row)
	}

	return parsed, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
