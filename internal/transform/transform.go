// Package transform applies a schema's cleaning, normalization, and
// validation rules to raw records, producing either a validated record or a
// rejected record carrying every error found in it.
package transform

import (
	"fmt"

	"github.com/carelake/ingest/internal/record"
	"github.com/carelake/ingest/internal/schema"
)

// Transformer validates raw records against one schema. It holds no mutable
// state, so one Transformer may be shared across concurrent workers.
type Transformer struct {
	schema schema.Schema
	names  []string
}

// New builds a transformer, rejecting a misconfigured schema up front.
func New(s schema.Schema) (*Transformer, error) {
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &Transformer{schema: s, names: s.Names()}, nil
}

// Schema returns the schema the transformer validates against.
func (t *Transformer) Schema() schema.Schema { return t.schema }

// Apply validates one raw record. It walks the schema's columns in declared
// order, cleans each cell, classifies it, and collects every validation
// error rather than stopping at the first, so a rejected record carries the
// complete diagnostic for the row.
//
// A schema column absent from the record is an absent value, not a failure
// of the batch. Columns in the record but not in the schema are ignored, so
// wider source files keep working.
func (t *Transformer) Apply(raw record.RawRecord) (record.ValidatedRecord, *record.RejectedRecord) {
	values := make(map[string]any, len(t.schema.Columns))
	var errs []record.ValidationError

	for _, col := range t.schema.Columns {
		cell, present := raw.Get(col.Name)

		cleaned := ""
		if present {
			cleaned = record.CleanCell(cell)
		}

		if cleaned == "" {
			if col.Nullable {
				values[col.Name] = record.Null(col.Type)
				continue
			}
			detail := "required column is missing"
			if present {
				detail = "required value is empty"
			}
			errs = append(errs, record.ValidationError{
				Column: col.Name,
				Value:  cell,
				Kind:   record.KindMissingRequired,
				Detail: detail,
			})
			continue
		}

		typed, verr := record.Classify(cleaned, col)
		if verr != nil {
			errs = append(errs, *verr)
			continue
		}
		values[col.Name] = typed
	}

	if len(errs) > 0 {
		return record.ValidatedRecord{}, &record.RejectedRecord{Record: raw, Errors: errs}
	}
	return record.NewValidatedRecord(raw.Line(), t.names, values), nil
}
