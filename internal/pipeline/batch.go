// Package pipeline drives batches of raw records through the transformer and
// partitions the outcomes into accepted and rejected sets with stable
// source ordering.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/carelake/ingest/internal/record"
	"github.com/carelake/ingest/internal/transform"
)

// contextCheckInterval is how often the sequential path polls for
// cancellation.
const contextCheckInterval = 100

// Counts holds the per-batch accounting. Accepted+Rejected == Total always.
type Counts struct {
	Total    int `json:"total"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

// BatchResult is the outcome of one batch run. Accepted and Rejected each
// preserve the records' relative source order. Never mutated after Run
// returns it.
type BatchResult struct {
	BatchID  string
	Accepted []record.ValidatedRecord
	Rejected []record.RejectedRecord
	Counts   Counts
	Duration time.Duration
}

// Coordinator applies the transformer to every record of a batch, optionally
// across a fixed-size pool of workers.
type Coordinator struct {
	transformer *transform.Transformer
	workers     int
}

// NewCoordinator builds a coordinator. workers below 1 runs sequentially.
func NewCoordinator(t *transform.Transformer, workers int) *Coordinator {
	if workers < 1 {
		workers = 1
	}
	return &Coordinator{transformer: t, workers: workers}
}

// outcome is one record's result, written at its source index so the
// partition below restores source order regardless of finish order.
type outcome struct {
	accepted *record.ValidatedRecord
	rejected *record.RejectedRecord
}

// Run validates every record and partitions the results. Content never fails
// a batch: a run only returns an error when the context is cancelled. A
// batch where every record is rejected still completes with zero accepted.
func (c *Coordinator) Run(ctx context.Context, raws []record.RawRecord) (*BatchResult, error) {
	start := time.Now()
	outcomes := make([]outcome, len(raws))

	if c.workers == 1 {
		for i, raw := range raws {
			if i%contextCheckInterval == 0 && ctx.Err() != nil {
				return nil, ctx.Err()
			}
			outcomes[i] = c.apply(raw)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.workers)
		for i, raw := range raws {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				outcomes[i] = c.apply(raw)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	res := &BatchResult{BatchID: uuid.New().String()}
	for _, o := range outcomes {
		if o.accepted != nil {
			res.Accepted = append(res.Accepted, *o.accepted)
		} else {
			res.Rejected = append(res.Rejected, *o.rejected)
		}
	}
	res.Counts = Counts{
		Total:    len(raws),
		Accepted: len(res.Accepted),
		Rejected: len(res.Rejected),
	}
	res.Duration = time.Since(start)
	return res, nil
}

func (c *Coordinator) apply(raw record.RawRecord) outcome {
	validated, rejected := c.transformer.Apply(raw)
	if rejected != nil {
		return outcome{rejected: rejected}
	}
	return outcome{accepted: &validated}
}
