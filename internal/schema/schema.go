// Package schema defines the column descriptors that drive CSV cleaning,
// type conversion, and validation. A Schema is loaded once at process start
// and treated as immutable configuration for the process lifetime.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Type is the semantic destination type of a column, independent of its
// textual source representation.
type Type int

const (
	TypeText Type = iota
	TypeInteger
	TypeDecimal
	TypeDate
	TypeTimestamp
	TypeBool
)

// String returns a human-readable name for the type.
func (t Type) String() string {
	switch t {
	case TypeText:
		return "text"
	case TypeInteger:
		return "integer"
	case TypeDecimal:
		return "decimal"
	case TypeDate:
		return "date"
	case TypeTimestamp:
		return "timestamp"
	case TypeBool:
		return "bool"
	default:
		return "unknown"
	}
}

// CasePolicy controls case normalization applied to text values after trimming.
type CasePolicy int

const (
	CaseNone CasePolicy = iota
	CaseLower
	CaseUpper
	CaseTitle
)

// Default boolean literal spellings, matched case-insensitively.
var (
	DefaultTrueValues  = []string{"true", "t", "yes", "y", "1"}
	DefaultFalseValues = []string{"false", "f", "no", "n", "0"}
)

// Column describes one destination column: its name as it appears in the CSV
// header, its semantic type, nullability, and per-type configuration.
type Column struct {
	Name     string // CSV header name (matched case-insensitively)
	DBColumn string // Database column name (derived from Name when empty)
	Type     Type
	Nullable bool

	// Text configuration.
	Case    CasePolicy
	Pattern *regexp.Regexp // applied after case normalization
	Enum    []string       // valid values, matched case-insensitively

	// Decimal configuration: exact number of fractional digits allowed.
	// More fractional digits in the input is a parse failure, never rounding.
	Scale int

	// Date/timestamp configuration. Layout is a Go reference layout and is
	// required for these types. Zero Min/Max means unbounded.
	Layout   string
	Min, Max time.Time

	// Integer bounds. Nil means unbounded; values outside are out-of-range.
	MinInt, MaxInt *int64

	// Boolean literal sets. Defaults apply when empty.
	TrueValues, FalseValues []string
}

// DB returns the database column name, deriving it from Name when unset.
// "Date of Admission" -> "date_of_admission"
func (c Column) DB() string {
	if c.DBColumn != "" {
		return c.DBColumn
	}
	return strings.ToLower(strings.ReplaceAll(c.Name, " ", "_"))
}

// Truthy returns the truthy literal set for the column, applying defaults.
func (c Column) Truthy() []string {
	if len(c.TrueValues) > 0 {
		return c.TrueValues
	}
	return DefaultTrueValues
}

// Falsy returns the falsy literal set for the column, applying defaults.
func (c Column) Falsy() []string {
	if len(c.FalseValues) > 0 {
		return c.FalseValues
	}
	return DefaultFalseValues
}

// Schema is an ordered sequence of column descriptors for one destination
// table. Column order is the declared validation and insert order.
type Schema struct {
	Table   string
	Columns []Column
}

// Names returns the CSV column names in declared order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// DBColumns returns the database column names in declared order.
func (s Schema) DBColumns() []string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = c.DB()
	}
	return cols
}

// Validate checks the schema for misconfiguration. Schema errors are fatal at
// load time; they are never downgraded to per-record rejections.
func (s Schema) Validate() error {
	if s.Table == "" {
		return fmt.Errorf("schema has no table name")
	}
	if len(s.Columns) == 0 {
		return fmt.Errorf("schema %q has no columns", s.Table)
	}

	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c.Name == "" {
			return fmt.Errorf("schema %q has a column with no name", s.Table)
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			return fmt.Errorf("schema %q has duplicate column %q", s.Table, c.Name)
		}
		seen[key] = true

		switch c.Type {
		case TypeDecimal:
			if c.Scale < 0 {
				return fmt.Errorf("column %q has negative decimal scale %d", c.Name, c.Scale)
			}
		case TypeDate, TypeTimestamp:
			if c.Layout == "" {
				return fmt.Errorf("column %q has no layout for type %s", c.Name, c.Type)
			}
			if !c.Min.IsZero() && !c.Max.IsZero() && c.Max.Before(c.Min) {
				return fmt.Errorf("column %q has max bound before min bound", c.Name)
			}
		case TypeInteger:
			if c.MinInt != nil && c.MaxInt != nil && *c.MaxInt < *c.MinInt {
				return fmt.Errorf("column %q has max bound %d below min bound %d", c.Name, *c.MaxInt, *c.MinInt)
			}
		case TypeBool:
			if overlap := literalOverlap(c.Truthy(), c.Falsy()); overlap != "" {
				return fmt.Errorf("column %q lists %q as both truthy and falsy", c.Name, overlap)
			}
		}
	}
	return nil
}

// literalOverlap returns the first literal present in both sets, ignoring case.
func literalOverlap(truthy, falsy []string) string {
	for _, t := range truthy {
		for _, f := range falsy {
			if strings.EqualFold(t, f) {
				return t
			}
		}
	}
	return ""
}

// IntRange is a convenience for declaring integer bounds inline.
func IntRange(min, max int64) (*int64, *int64) {
	return &min, &max
}
