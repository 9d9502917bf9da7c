package moocdb

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// Writer is the sink a single table's rows are stored into. Row order within
// a table is insertion order.
type Writer interface {
	Store(row Row) error
	Close() error
}

// CSVWriter writes rows of one table into a CSV file, one value per schema
// field, in schema order.
type CSVWriter struct {
	file   *os.File
	writer *csv.Writer
	fields []string
}

// NewCSVWriter opens path for writing and binds the writer to the given
// ordered field list.
func NewCSVWriter(path string, fields []string) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	return &CSVWriter{
		file:   f,
		writer: csv.NewWriter(f),
		fields: fields,
	}, nil
}

// Store writes one row. Missing fields are written as empty strings so the
// column count is always stable.
func (w *CSVWriter) Store(row Row) error {
	record := make([]string, len(w.fields))
	for i, field := range w.fields {
		record[i] = row[field]
	}
	return w.writer.Write(record)
}

// Close flushes buffered rows and closes the underlying file.
func (w *CSVWriter) Close() error {
	w.writer.Flush()
	if err := w.writer.Error(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}

// MOOCdb bundles one Writer per MOOCdb table, all rooted in a single output
// directory. Each course run owns its own instance.
type MOOCdb struct {
	writers map[string]Writer
}

// New creates the output directory if needed and opens one CSV writer per
// table, named <table>.csv.
func New(dir string) (*MOOCdb, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	writers := make(map[string]Writer, len(Tables))
	for name, fields := range Tables {
		w, err := NewCSVWriter(filepath.Join(dir, name+".csv"), fields)
		if err != nil {
			for _, open := range writers {
				open.Close()
			}
			return nil, err
		}
		writers[name] = w
	}
	return &MOOCdb{writers: writers}, nil
}

// Writer returns the sink for the named table. The table name must be one of
// the Tables keys; unknown names panic since they indicate a programming
// error, not bad input data.
func (m *MOOCdb) Writer(table string) Writer {
	w, ok := m.writers[table]
	if !ok {
		panic(fmt.Sprintf("moocdb: unknown table %q", table))
	}
	return w
}

// Close closes every table writer, returning the first error encountered.
func (m *MOOCdb) Close() error {
	var firstErr error
	for _, w := range m.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
