// Package spl turns an in-memory Dataset into the SPL statements that
// materialize it as a Splunk lookup. Generation is a pure transformation:
// no network, no clock, no I/O. The statements are executed elsewhere.
//
// Statement shape (per chunk of rows):
//
//	| makeresults
//	| eval "col1"="v1<D>v2"
//	| makemv delim="<D>" allowempty=true "col1"
//	| mvexpand "col1"
//	| appendcols [| makeresults | eval "col2"="..." | makemv ... | mvexpand "col2"]
//	| fields - _time
//	| outputlookup "name.csv"
//
// Each column's values are joined with the configured delimiter inside a
// single eval literal, split back into a multivalue field with makemv,
// and fanned out to one event per row with mvexpand. Columns after the
// first are stitched on with appendcols, which relies on every column
// expanding to the same row count - that is why a value containing the
// delimiter, or composing it with a neighbor at a join boundary, is a
// hard generation error and never a best-effort escape.
package spl

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultChunkSize is the number of rows emitted per statement when the
// caller does not configure one. Bounded so a large CSV never produces a
// search string beyond what splunkd accepts in a single request.
const DefaultChunkSize = 500

// Generator builds lookup-populating SPL from a Dataset.
type Generator struct {
	delimiter string
	chunkSize int
}

// NewGenerator validates the delimiter and returns a Generator.
// The delimiter must be non-empty and must not contain a double quote
// or backslash, since it is spliced into eval string literals verbatim.
func NewGenerator(delimiter string, chunkSize int) (*Generator, error) {
	if delimiter == "" {
		return nil, fmt.Errorf("delimiter must not be empty")
	}
	if strings.ContainsAny(delimiter, `"\`) {
		return nil, fmt.Errorf("delimiter %q must not contain quote or backslash characters", delimiter)
	}
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Generator{delimiter: delimiter, chunkSize: chunkSize}, nil
}

// Delimiter returns the configured record delimiter.
func (g *Generator) Delimiter() string {
	return g.delimiter
}

// ValueError reports a cell that cannot be represented with the current
// delimiter. Row is the 1-based data row; 0 means the header itself.
// Composed marks a cell that is delimiter-free on its own but forms the
// delimiter together with an adjacent cell at the join boundary.
type ValueError struct {
	Row       int
	Column    string
	Delimiter string
	Composed  bool
}

func (e *ValueError) Error() string {
	switch {
	case e.Row == 0:
		return fmt.Sprintf("header column %q contains the delimiter %q", e.Column, e.Delimiter)
	case e.Composed:
		return fmt.Sprintf("value at row %d column %q forms the delimiter %q with an adjacent value", e.Row, e.Column, e.Delimiter)
	default:
		return fmt.Sprintf("value at row %d column %q contains the delimiter %q", e.Row, e.Column, e.Delimiter)
	}
}

// Dataset is the minimal view of parsed CSV content the generator
// needs. Callers copy the header and rows out of their own CSV type.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Generate produces the ordered SPL statements that populate lookup with
// the dataset's content. The first statement overwrites the lookup, any
// following chunk appends, so executing them in order is required.
//
// An empty dataset yields one schema-only statement that preserves the
// header with zero data rows.
func (g *Generator) Generate(ds Dataset, lookup string) ([]string, error) {
	if err := ValidateLookupName(lookup); err != nil {
		return nil, err
	}
	if len(ds.Header) == 0 {
		return nil, fmt.Errorf("dataset has no header columns")
	}
	if err := g.checkRepresentable(ds); err != nil {
		return nil, err
	}

	if len(ds.Rows) == 0 {
		return []string{g.schemaOnlyStatement(ds.Header, lookup)}, nil
	}

	var statements []string
	for start := 0; start < len(ds.Rows); start += g.chunkSize {
		end := start + g.chunkSize
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		statements = append(statements, g.chunkStatement(ds, start, end, lookup, start > 0))
	}
	return statements, nil
}

// checkRepresentable rejects any header or cell containing the delimiter.
// Quotes and backslashes are escapable; the delimiter is not, because
// makemv splits on it after the literal has already been parsed.
func (g *Generator) checkRepresentable(ds Dataset) error {
	for _, h := range ds.Header {
		if strings.Contains(h, g.delimiter) {
			return &ValueError{Row: 0, Column: h, Delimiter: g.delimiter}
		}
	}
	for i, row := range ds.Rows {
		for j, v := range row {
			if strings.Contains(v, g.delimiter) {
				return &ValueError{Row: i + 1, Column: ds.Header[j], Delimiter: g.delimiter}
			}
		}
	}
	return g.checkComposition(ds)
}

// checkComposition simulates the remote makemv split for every chunk and
// column: joining a column's cells and splitting the result on the
// delimiter must give the cells back. Cells that are delimiter-free on
// their own can still compose one at a join boundary (delimiter ";;",
// cells "x;" and ";y" join to "x;;;;y") or shift the leftmost match
// (cells "x;" and "y" join to "x;;;y", splitting as "x" and ";y"),
// silently misaligning every later row in the column.
func (g *Generator) checkComposition(ds Dataset) error {
	for start := 0; start < len(ds.Rows); start += g.chunkSize {
		end := start + g.chunkSize
		if end > len(ds.Rows) {
			end = len(ds.Rows)
		}
		for col := range ds.Header {
			cells := make([]string, 0, end-start)
			for i := start; i < end; i++ {
				cells = append(cells, ds.Rows[i][col])
			}
			pieces := strings.Split(strings.Join(cells, g.delimiter), g.delimiter)
			if i, ok := firstDivergence(cells, pieces); !ok {
				return &ValueError{
					Row:       start + i + 1,
					Column:    ds.Header[col],
					Delimiter: g.delimiter,
					Composed:  true,
				}
			}
		}
	}
	return nil
}

// firstDivergence returns the index of the first cell the round trip does
// not reproduce, or ok when the two slices are identical.
func firstDivergence(cells, pieces []string) (int, bool) {
	for i := range cells {
		if i >= len(pieces) || pieces[i] != cells[i] {
			return i, false
		}
	}
	if len(pieces) > len(cells) {
		return len(cells) - 1, false
	}
	return 0, true
}

// chunkStatement renders rows [start,end) as one statement.
func (g *Generator) chunkStatement(ds Dataset, start, end int, lookup string, appendMode bool) string {
	var b strings.Builder

	for col := range ds.Header {
		joined := g.joinColumn(ds, col, start, end)
		if col == 0 {
			b.WriteString(g.columnPipeline(ds.Header[col], joined))
		} else {
			b.WriteString(" | appendcols [")
			b.WriteString(g.columnPipeline(ds.Header[col], joined))
			b.WriteString("]")
		}
	}

	b.WriteString(" | fields - _time")
	b.WriteString(g.outputClause(lookup, appendMode))
	return b.String()
}

// columnPipeline renders the makeresults/eval/makemv/mvexpand chain for
// one column. The joined literal is already escaped.
func (g *Generator) columnPipeline(column, joined string) string {
	field := quoteField(column)
	return fmt.Sprintf(`| makeresults | eval %s="%s" | makemv delim="%s" allowempty=true %s | mvexpand %s`,
		field, joined, g.delimiter, field, field)
}

// joinColumn escapes each cell of the column and joins the chunk's rows
// with the delimiter.
func (g *Generator) joinColumn(ds Dataset, col, start, end int) string {
	parts := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		parts = append(parts, escapeLiteral(ds.Rows[i][col]))
	}
	return strings.Join(parts, g.delimiter)
}

// schemaOnlyStatement declares every header field and filters all events
// out, so the published lookup keeps the schema with zero rows. Whether
// outputlookup writes the header line for a zero-result search depends on
// the splunkd version and its create_empty setting; on instances where it
// does not, the file comes out empty instead of header-only.
func (g *Generator) schemaOnlyStatement(header []string, lookup string) string {
	var b strings.Builder
	b.WriteString("| makeresults | eval ")
	for i, h := range header {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(quoteField(h))
		b.WriteString(`=""`)
	}
	b.WriteString(" | fields - _time | where 0=1")
	b.WriteString(g.outputClause(lookup, false))
	return b.String()
}

func (g *Generator) outputClause(lookup string, appendMode bool) string {
	if appendMode {
		return fmt.Sprintf(` | outputlookup append=true "%s"`, lookup)
	}
	return fmt.Sprintf(` | outputlookup "%s"`, lookup)
}

// escapeLiteral makes a value safe inside a double-quoted eval literal.
// Backslash first, then quote - the order matters.
func escapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return s
}

// quoteField wraps a field name in double quotes for eval/makemv/mvexpand,
// escaping any quote or backslash the header may carry.
func quoteField(name string) string {
	return `"` + escapeLiteral(name) + `"`
}

// lookupNamePattern is deliberately strict: lookup names are interpolated
// into SPL and into REST filter expressions, so anything outside this set
// is rejected up front rather than escaped.
var lookupNamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidateLookupName checks that name is a plausible lookup file name:
// safe character set and a .csv extension.
func ValidateLookupName(name string) error {
	if name == "" {
		return fmt.Errorf("lookup name must not be empty")
	}
	if !lookupNamePattern.MatchString(name) {
		return fmt.Errorf("lookup name %q contains characters outside [A-Za-z0-9._-]", name)
	}
	if !strings.HasSuffix(name, ".csv") {
		return fmt.Errorf("lookup name %q must end in .csv", name)
	}
	return nil
}
