package csv

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp csv: %v", err)
	}
	return path
}

func TestRead_Basic(t *testing.T) {
	path := writeTemp(t, "a,b\n1,2\n3,4\n")

	ds, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got, want := len(ds.Header), 2; got != want {
		t.Fatalf("header length = %d, want %d", got, want)
	}
	if ds.Header[0] != "a" || ds.Header[1] != "b" {
		t.Errorf("header = %v, want [a b]", ds.Header)
	}
	if ds.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", ds.Len())
	}
	if got := ds.Row(0); got["a"] != "1" || got["b"] != "2" {
		t.Errorf("row 0 = %v, want {a:1 b:2}", got)
	}
	if got := ds.Row(1); got["a"] != "3" || got["b"] != "4" {
		t.Errorf("row 1 = %v, want {a:3 b:4}", got)
	}
}

func TestRead_FileNotFound(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("Read() expected error for missing file")
	}
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want wrapped fs.ErrNotExist", err)
	}
}

func TestRead_MalformedRow(t *testing.T) {
	path := writeTemp(t, "a,b\n1,2\n3\n5,6\n")

	_, err := Read(path)
	if err == nil {
		t.Fatal("Read() expected error for short row")
	}

	var mre *MalformedRowError
	if !errors.As(err, &mre) {
		t.Fatalf("error = %v, want MalformedRowError", err)
	}
	if mre.Line != 3 {
		t.Errorf("MalformedRowError.Line = %d, want 3", mre.Line)
	}
	if mre.Want != 2 {
		t.Errorf("MalformedRowError.Want = %d, want 2", mre.Want)
	}
}

func TestRead_EmptyFile(t *testing.T) {
	path := writeTemp(t, "")

	_, err := Read(path)
	if err == nil || !strings.Contains(err.Error(), "no header row") {
		t.Errorf("Read() error = %v, want no-header error", err)
	}
}

func TestRead_HeaderOnly(t *testing.T) {
	path := writeTemp(t, "a,b\n")

	ds, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if ds.Len() != 0 {
		t.Errorf("Len() = %d, want 0", ds.Len())
	}
	if len(ds.Header) != 2 {
		t.Errorf("header length = %d, want 2", len(ds.Header))
	}
}

func TestRead_DuplicateHeader(t *testing.T) {
	path := writeTemp(t, "a,a\n1,2\n")

	_, err := Read(path)
	if err == nil || !strings.Contains(err.Error(), "duplicate header") {
		t.Errorf("Read() error = %v, want duplicate header error", err)
	}
}

func TestRead_BOMAndExcelArtifacts(t *testing.T) {
	path := writeTemp(t, "\xEF\xBB\xBF ip ,=\"host\"\n10.0.0.1,web01\n")

	ds, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if ds.Header[0] != "ip" || ds.Header[1] != "host" {
		t.Errorf("header = %v, want [ip host]", ds.Header)
	}
}

func TestRead_QuotedValuesPreserved(t *testing.T) {
	path := writeTemp(t, "a,b\n\"x,y\",\" padded \"\n")

	ds, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	row := ds.Row(0)
	if row["a"] != "x,y" {
		t.Errorf("row[a] = %q, want %q", row["a"], "x,y")
	}
	// Data cells are opaque: whitespace survives.
	if row["b"] != " padded " {
		t.Errorf("row[b] = %q, want %q", row["b"], " padded ")
	}
}

func TestDataset_Column(t *testing.T) {
	ds := &Dataset{
		Header: []string{"a", "b"},
		Rows:   [][]string{{"1", "2"}, {"3", "4"}},
	}

	col, ok := ds.Column("b")
	if !ok {
		t.Fatal("Column(b) not found")
	}
	if len(col) != 2 || col[0] != "2" || col[1] != "4" {
		t.Errorf("Column(b) = %v, want [2 4]", col)
	}

	if _, ok := ds.Column("nope"); ok {
		t.Error("Column(nope) = found, want missing")
	}
}
