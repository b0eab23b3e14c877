package csv

import (
	"bufio"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// MalformedRowError reports a data row whose field count does not match
// the header. Line is the 1-based line number in the source file.
type MalformedRowError struct {
	Line   int
	Fields int
	Want   int
}

func (e *MalformedRowError) Error() string {
	return fmt.Sprintf("malformed row at line %d: %d fields, header has %d", e.Line, e.Fields, e.Want)
}

// Read parses the CSV file at path into a Dataset. The first record is
// the header; every following record must have the same field count.
// A missing file surfaces as a wrapped fs.ErrNotExist so callers can
// classify it with errors.Is.
func Read(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening csv %s: %w", path, err)
	}
	defer f.Close()

	ds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("reading csv %s: %w", path, err)
	}
	return ds, nil
}

// Parse reads CSV content from r into a Dataset. Exposed separately so
// tests and future non-file sources can feed readers directly.
func Parse(r io.Reader) (*Dataset, error) {
	cr := stdcsv.NewReader(skipBOM(r))
	// FieldsPerRecord defaults to the width of the first record, which is
	// exactly the header-alignment rule we need. Mismatches come back as
	// csv.ErrFieldCount and are translated below.

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty file: no header row")
	}
	if err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}

	for i, h := range header {
		header[i] = CleanHeader(h)
	}
	if err := validateHeader(header); err != nil {
		return nil, err
	}

	var rows [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *stdcsv.ParseError
			if errors.As(err, &pe) && errors.Is(pe.Err, stdcsv.ErrFieldCount) {
				return nil, &MalformedRowError{Line: pe.Line, Fields: len(record), Want: len(header)}
			}
			return nil, fmt.Errorf("parsing row: %w", err)
		}
		rows = append(rows, record)
	}

	return &Dataset{Header: header, Rows: rows}, nil
}

func validateHeader(header []string) error {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		if h == "" {
			return fmt.Errorf("header column %d is empty", i+1)
		}
		if j, dup := seen[h]; dup {
			return fmt.Errorf("duplicate header column %q (positions %d and %d)", h, j+1, i+1)
		}
		seen[h] = i
	}
	return nil
}

// skipBOM strips a leading UTF-8 byte order mark. Excel exports
// routinely start with one and encoding/csv would fold it into the
// first header cell.
func skipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	if head, err := br.Peek(3); err == nil && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		br.Discard(3)
	}
	return br
}

// CleanHeader normalizes a header cell: trims whitespace, strips a
// stray BOM, and unwraps the ="value" formula guard Excel emits when a
// sheet is saved as CSV. Data cells are never cleaned - values round-trip
// into the lookup exactly as written.
func CleanHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	if strings.HasPrefix(h, `="`) && strings.HasSuffix(h, `"`) && len(h) >= 3 {
		h = h[2 : len(h)-1]
	}
	return h
}
