// Package logstore provides a frozen in-memory view over a log dataset with a
// fixed column schema. Records are loaded once (typically from a CSV export)
// and never mutated afterwards.
package logstore

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Columns is the fixed schema, in the order fields appear in the CSV export.
var Columns = []string{
	"timestamp_full",
	"timestamp_simple",
	"unknown1",
	"unknown2",
	"unknown3",
	"SeverityText",
	"unknown4",
	"ServiceName",
	"message",
	"schema_url",
	"metadata_json",
	"unknown5",
	"class_name",
	"unknown6",
	"unknown7",
	"order_result_json",
}

// ColumnTimestamp is the full-resolution timestamp column used for range
// filtering and time bucketing.
const ColumnTimestamp = "timestamp_full"

// RuntimeNameKey is the metadata key carrying the process runtime name.
const RuntimeNameKey = "process.runtime.name"

var columnIndex = func() map[string]int {
	m := make(map[string]int, len(Columns))
	for i, c := range Columns {
		m[c] = i
	}
	return m
}()

// Record is a single immutable log row.
type Record struct {
	fields []string
}

// NewRecord creates a record from positional field values. Missing trailing
// fields are treated as empty.
func NewRecord(fields []string) Record {
	vals := make([]string, len(Columns))
	copy(vals, fields)
	return Record{fields: vals}
}

// NewRecordFromMap creates a record from column name to value pairs. Columns
// not present in the schema are ignored.
func NewRecordFromMap(values map[string]string) Record {
	vals := make([]string, len(Columns))
	for col, v := range values {
		if i, ok := columnIndex[col]; ok {
			vals[i] = v
		}
	}
	return Record{fields: vals}
}

// Value returns the value of the named column and whether the column exists
// in the schema.
func (r Record) Value(column string) (string, bool) {
	i, ok := columnIndex[column]
	if !ok {
		return "", false
	}
	return r.fields[i], true
}

// Timestamp parses the timestamp_full attribute. The stored format is
// "2006-01-02 15:04:05" with an optional fractional-seconds part of up to
// nine digits.
func (r Record) Timestamp() (time.Time, error) {
	raw, _ := r.Value(ColumnTimestamp)
	return ParseTimestamp(raw)
}

// Metadata decodes the metadata_json blob into a key-value map. The source
// data sometimes carries single-quoted pseudo-JSON; that form is tolerated.
// A blob that cannot be decoded yields an empty map.
func (r Record) Metadata() map[string]string {
	raw, _ := r.Value("metadata_json")
	out := make(map[string]string)
	if strings.TrimSpace(raw) == "" {
		return out
	}

	var generic map[string]any
	if err := json.Unmarshal([]byte(raw), &generic); err != nil {
		// Retry with single quotes normalized to double quotes.
		fixed := strings.ReplaceAll(raw, "'", `"`)
		if err := json.Unmarshal([]byte(fixed), &generic); err != nil {
			return out
		}
	}
	for k, v := range generic {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// RuntimeName returns the process runtime name from the metadata blob, or ""
// when absent.
func (r Record) RuntimeName() string {
	return r.Metadata()[RuntimeNameKey]
}

// EmbeddingText builds the text used for semantic indexing: severity, service,
// runtime name and message joined in that order.
func (r Record) EmbeddingText() string {
	sev, _ := r.Value("SeverityText")
	svc, _ := r.Value("ServiceName")
	msg, _ := r.Value("message")
	parts := []string{sev, svc, r.RuntimeName(), msg}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

// Map returns all column values keyed by column name.
func (r Record) Map() map[string]string {
	out := make(map[string]string, len(Columns))
	for i, c := range Columns {
		out[c] = r.fields[i]
	}
	return out
}

// Store is a frozen ordered sequence of log records.
type Store struct {
	records []Record
}

// NewStore creates a store from a record slice. The slice is retained, so
// callers must not mutate it afterwards.
func NewStore(records []Record) *Store {
	return &Store{records: records}
}

// Len returns the number of records.
func (s *Store) Len() int {
	return len(s.records)
}

// Records returns the records in load order. Callers must treat the returned
// slice as read-only.
func (s *Store) Records() []Record {
	return s.records
}

// HasColumn reports whether the named column exists in the schema.
func (s *Store) HasColumn(column string) bool {
	_, ok := columnIndex[column]
	return ok
}

// ParseTimestamp parses a stored timestamp string, tolerating any
// fractional-second precision from none up to nanoseconds.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
