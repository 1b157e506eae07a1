package store

import (
	"testing"

	"github.com/carelake/ingest/internal/schema"
)

func TestInsertStatement(t *testing.T) {
	s := schema.Schema{
		Table: "patients",
		Columns: []schema.Column{
			{Name: "Name", Type: schema.TypeText},
			{Name: "Age", Type: schema.TypeInteger},
			{Name: "Date of Admission", Type: schema.TypeDate, Layout: "2006-01-02"},
		},
	}

	got := insertStatement(s)
	want := `INSERT INTO "patients" (name, age, date_of_admission) VALUES ($1, $2, $3)`
	if got != want {
		t.Errorf("insertStatement() = %q, want %q", got, want)
	}
}
