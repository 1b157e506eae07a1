package report

import (
	"strings"
	"testing"
	"time"

	"github.com/carelake/ingest/internal/pipeline"
	"github.com/carelake/ingest/internal/record"
)

func testResult() *pipeline.BatchResult {
	header := []string{"Name", "Age"}
	return &pipeline.BatchResult{
		BatchID: "b-123",
		Rejected: []record.RejectedRecord{
			{
				Record: record.NewRawRecord(4, header, []string{"ann", "-3"}),
				Errors: []record.ValidationError{
					{Column: "Age", Value: "-3", Kind: record.KindOutOfRange, Detail: "below minimum 0"},
				},
			},
			{
				Record: record.NewRawRecord(7, header, []string{"", "abc"}),
				Errors: []record.ValidationError{
					{Column: "Name", Kind: record.KindMissingRequired, Detail: "required value is empty"},
					{Column: "Age", Value: "abc", Kind: record.KindParseFailure, Detail: "not a base-10 integer"},
				},
			},
		},
		Counts:   pipeline.Counts{Total: 10, Accepted: 8, Rejected: 2},
		Duration: 125 * time.Millisecond,
	}
}

func TestWrite(t *testing.T) {
	var buf strings.Builder
	if err := Write(&buf, "patients.csv", testResult()); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := buf.String()

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("output has %d lines, want 4:\n%s", len(lines), out)
	}

	if !strings.Contains(lines[0], "10 total") || !strings.Contains(lines[0], "8 accepted") || !strings.Contains(lines[0], "2 rejected") {
		t.Errorf("header line = %q, missing counts", lines[0])
	}
	if !strings.HasPrefix(lines[1], "line 4:") || !strings.Contains(lines[1], "below minimum 0") {
		t.Errorf("first error line = %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "line 7:") || !strings.Contains(lines[2], "required value is empty") {
		t.Errorf("second error line = %q", lines[2])
	}
	if !strings.HasPrefix(lines[3], "line 7:") || !strings.Contains(lines[3], "not a base-10 integer") {
		t.Errorf("third error line = %q", lines[3])
	}
}

func TestWrite_CleanBatch(t *testing.T) {
	var buf strings.Builder
	res := &pipeline.BatchResult{
		BatchID: "b-1",
		Counts:  pipeline.Counts{Total: 3, Accepted: 3},
	}
	if err := Write(&buf, "ok.csv", res); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if got := strings.Count(buf.String(), "\n"); got != 1 {
		t.Errorf("clean batch printed %d lines, want 1", got)
	}
}

func TestNewSummary(t *testing.T) {
	s := NewSummary("patients.csv", testResult())

	if s.BatchID != "b-123" || s.Source != "patients.csv" {
		t.Errorf("Summary identity = %q/%q", s.BatchID, s.Source)
	}
	if s.Total != 10 || s.Accepted != 8 || s.Rejected != 2 {
		t.Errorf("Summary counts = %d/%d/%d", s.Total, s.Accepted, s.Rejected)
	}
	if s.DurationMs != 125 {
		t.Errorf("DurationMs = %d, want 125", s.DurationMs)
	}
	if s.CompletedAt.IsZero() {
		t.Error("CompletedAt is zero")
	}
}

func TestLatest(t *testing.T) {
	var l Latest

	if _, ok := l.Get(); ok {
		t.Fatal("Get() before any Set should report not ok")
	}

	l.Set(Summary{BatchID: "first"})
	l.Set(Summary{BatchID: "second"})

	s, ok := l.Get()
	if !ok || s.BatchID != "second" {
		t.Errorf("Get() = %+v, %v; want latest summary", s, ok)
	}
}
