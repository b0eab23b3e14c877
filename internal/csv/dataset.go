// Package csv loads source CSV files into an in-memory Dataset.
//
// The Dataset preserves the header order and treats every value as an
// opaque string: no type coercion, no trimming of data cells. Only the
// header row is cleaned (BOM, surrounding whitespace, Excel formula
// artifacts), because header cells become lookup field names.
package csv

// Dataset is the parsed content of one CSV file: the header in file
// order plus every data row aligned to it. It is built once by Read
// and treated as read-only afterward.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows (the header is not counted).
func (d *Dataset) Len() int {
	return len(d.Rows)
}

// Column returns the values of the named column in row order.
// The second return value is false when the column does not exist.
func (d *Dataset) Column(name string) ([]string, bool) {
	idx := -1
	for i, h := range d.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}

	vals := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		vals[i] = row[idx]
	}
	return vals, true
}

// Row returns the i-th data row as a column→value mapping.
// Mostly useful in tests; the generator works column-wise.
func (d *Dataset) Row(i int) map[string]string {
	out := make(map[string]string, len(d.Header))
	for j, h := range d.Header {
		out[h] = d.Rows[i][j]
	}
	return out
}
