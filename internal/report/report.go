// Package report renders batch outcomes for operators: a line-oriented
// rejection report and a JSON summary served by the admin server.
package report

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/carelake/ingest/internal/pipeline"
)

// Summary is the JSON shape of one completed batch.
type Summary struct {
	BatchID     string    `json:"batch_id"`
	Source      string    `json:"source"`
	Total       int       `json:"total"`
	Accepted    int       `json:"accepted"`
	Rejected    int       `json:"rejected"`
	DurationMs  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewSummary builds the summary for a finished batch.
func NewSummary(source string, res *pipeline.BatchResult) Summary {
	return Summary{
		BatchID:     res.BatchID,
		Source:      source,
		Total:       res.Counts.Total,
		Accepted:    res.Counts.Accepted,
		Rejected:    res.Counts.Rejected,
		DurationMs:  res.Duration.Milliseconds(),
		CompletedAt: time.Now().UTC(),
	}
}

// Write renders the batch outcome to w: a header line with the counts, then
// one line per validation error in source order. Nothing per-record is
// printed for a fully clean batch.
func Write(w io.Writer, source string, res *pipeline.BatchResult) error {
	_, err := fmt.Fprintf(w, "batch %s (%s): %d total, %d accepted, %d rejected\n",
		res.BatchID, source, res.Counts.Total, res.Counts.Accepted, res.Counts.Rejected)
	if err != nil {
		return err
	}

	for _, rej := range res.Rejected {
		for _, verr := range rej.Errors {
			if _, err := fmt.Fprintf(w, "line %d: column %s\n", rej.Record.Line(), verr.Error()); err != nil {
				return err
			}
		}
	}
	return nil
}

// Latest tracks the most recently completed batch for the admin endpoint.
// Safe for concurrent use.
type Latest struct {
	mu      sync.RWMutex
	summary *Summary
}

// Set records a completed batch.
func (l *Latest) Set(s Summary) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.summary = &s
}

// Get returns the last recorded summary; ok is false before any batch has
// completed.
func (l *Latest) Get() (Summary, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.summary == nil {
		return Summary{}, false
	}
	return *l.summary, true
}
