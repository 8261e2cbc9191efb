package logstore

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
)

// LoadCSV reads a headerless log CSV from disk and returns a frozen store.
func LoadCSV(path string) (*Store, error) {
	f, err := os.Open(path) // #nosec G304 - path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("open log csv: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read log csv %s: %w", path, err)
	}
	return store, nil
}

// ReadCSV parses headerless CSV rows into records. Fields map positionally
// onto Columns. Rows whose field count does not match the schema are skipped
// with a warning rather than failing the whole load.
func ReadCSV(r io.Reader) (*Store, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records []Record
	line := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
		if len(row) != len(Columns) {
			log.Printf("logstore: skipping csv line %d: got %d fields, want %d", line, len(row), len(Columns))
			continue
		}
		records = append(records, NewRecord(row))
	}

	return NewStore(records), nil
}
