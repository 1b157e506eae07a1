// Package record defines the typed representation of one tabular record
// before and after validation, and the validation outcome types shared by
// the transformation and batch layers.
package record

import (
	"fmt"
	"strings"
)

// ErrorKind categorizes a per-column validation failure.
type ErrorKind string

const (
	KindMissingRequired ErrorKind = "missing_required"
	KindParseFailure    ErrorKind = "parse_failure"
	KindOutOfRange      ErrorKind = "out_of_range"
	KindPatternMismatch ErrorKind = "pattern_mismatch"
)

// ValidationError describes one failed column in one record. Validation
// errors are values on the rejection path, never Go errors that abort a batch.
type ValidationError struct {
	Column string
	Value  string // raw value as read, empty if absent
	Kind   ErrorKind
	Detail string
}

func (e ValidationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s: %s (value %q)", e.Column, e.Detail, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Column, e.Detail)
}

// RawRecord is an ordered mapping from column name to an untyped textual
// value, one per source row. Immutable once constructed.
type RawRecord struct {
	line    int
	columns []string
	values  map[string]string
}

// NewRawRecord pairs a header with one data row. Cells beyond the header are
// dropped; header columns beyond the row are absent values. line is the
// 1-based source line for reporting.
func NewRawRecord(line int, header []string, row []string) RawRecord {
	values := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(row) {
			values[strings.ToLower(name)] = row[i]
		}
	}
	return RawRecord{
		line:    line,
		columns: append([]string(nil), header...),
		values:  values,
	}
}

// Line returns the 1-based source line of the record.
func (r RawRecord) Line() int { return r.line }

// Columns returns the column names in source header order.
func (r RawRecord) Columns() []string { return r.columns }

// Get returns the raw value for a column, matching the name
// case-insensitively. ok is false when the column was absent from the
// source row.
func (r RawRecord) Get(name string) (string, bool) {
	v, ok := r.values[strings.ToLower(name)]
	return v, ok
}

// Row returns the raw cells in header order, absent cells as empty strings.
// Used for rejected-record reporting.
func (r RawRecord) Row() []string {
	row := make([]string, len(r.columns))
	for i, name := range r.columns {
		row[i] = r.values[strings.ToLower(name)]
	}
	return row
}

// ValidatedRecord is an ordered mapping from column name to a typed value
// conforming to the schema: every non-nullable column holds a valid pgtype
// value, nullable absences hold the type's null. Never mutated after the
// transformer returns it.
type ValidatedRecord struct {
	line    int
	columns []string
	values  map[string]any
}

// NewValidatedRecord builds a validated record. columns is the schema's
// declared order; values must hold an entry per column.
func NewValidatedRecord(line int, columns []string, values map[string]any) ValidatedRecord {
	return ValidatedRecord{
		line:    line,
		columns: append([]string(nil), columns...),
		values:  values,
	}
}

// Line returns the 1-based source line of the record.
func (v ValidatedRecord) Line() int { return v.line }

// Columns returns the column names in schema order.
func (v ValidatedRecord) Columns() []string { return v.columns }

// Value returns the typed value for a column.
func (v ValidatedRecord) Value(name string) (any, bool) {
	val, ok := v.values[name]
	return val, ok
}

// Row returns the typed values in schema order, ready for a bulk insert.
func (v ValidatedRecord) Row() []any {
	row := make([]any, len(v.columns))
	for i, name := range v.columns {
		row[i] = v.values[name]
	}
	return row
}

// RejectedRecord pairs the original raw record with the full set of
// validation errors found in it. Exists only on the failure path; it is
// reported, never persisted.
type RejectedRecord struct {
	Record RawRecord
	Errors []ValidationError
}
