// Package service orchestrates one file's trip through the pipeline: read,
// validate, persist, report.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/carelake/ingest/internal/config"
	"github.com/carelake/ingest/internal/ingest"
	"github.com/carelake/ingest/internal/metrics"
	"github.com/carelake/ingest/internal/pipeline"
	"github.com/carelake/ingest/internal/report"
	"github.com/carelake/ingest/internal/store"
	"github.com/carelake/ingest/internal/transform"
)

// Service runs CSV files end to end against one schema.
type Service struct {
	opts        ingest.Options
	coordinator *pipeline.Coordinator
	transformer *transform.Transformer
	store       *store.Store
	latest      *report.Latest
	out         io.Writer
	log         *slog.Logger
}

// New wires the pipeline for one schema.
func New(cfg *config.Config, t *transform.Transformer, st *store.Store, latest *report.Latest, log *slog.Logger) (*Service, error) {
	policy, err := ingest.ParsePolicy(cfg.Ingest.DuplicateHeaders)
	if err != nil {
		return nil, err
	}

	return &Service{
		opts: ingest.Options{
			MaxFileSize:      cfg.Ingest.MaxFileSize,
			DuplicateHeaders: policy,
			RetryAttempts:    cfg.Ingest.RetryAttempts,
			RetryDelay:       cfg.Ingest.RetryDelay,
		},
		coordinator: pipeline.NewCoordinator(t, cfg.Pipeline.Workers),
		transformer: t,
		store:       st,
		latest:      latest,
		out:         os.Stdout,
		log:         log,
	}, nil
}

// IngestFile processes one CSV file: rejected rows are reported, accepted
// rows are inserted, and the batch summary is recorded. Rejected content is
// not an error; only I/O, database, and cancellation failures are.
func (s *Service) IngestFile(ctx context.Context, path string) error {
	in, err := ingest.ReadFile(ctx, path, s.opts)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("error").Inc()
		return err
	}

	res, err := s.coordinator.Run(ctx, in.Records)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("run batch for %s: %w", path, err)
	}

	inserted, err := s.store.InsertBatch(ctx, s.transformer.Schema(), res.Accepted)
	if err != nil {
		metrics.BatchesTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("persist batch %s: %w", res.BatchID, err)
	}

	metrics.BatchesTotal.WithLabelValues("ok").Inc()
	metrics.RowsTotal.WithLabelValues("accepted").Add(float64(res.Counts.Accepted))
	metrics.RowsTotal.WithLabelValues("rejected").Add(float64(res.Counts.Rejected))
	metrics.BatchDuration.Observe(res.Duration.Seconds())

	if err := report.Write(s.out, in.Source, res); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	s.latest.Set(report.NewSummary(in.Source, res))

	s.log.Info("batch complete",
		"batch_id", res.BatchID,
		"source", in.Source,
		"total", res.Counts.Total,
		"accepted", res.Counts.Accepted,
		"rejected", res.Counts.Rejected,
		"inserted", inserted,
		"duration", res.Duration,
	)
	return nil
}
