// Package watch feeds the pipeline from an inbox directory: CSV files already
// present are processed on startup, then filesystem events pick up new
// arrivals. Handled files are moved to a processed directory so a restart
// never re-ingests them.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/carelake/ingest/internal/config"
)

// Handler processes one CSV file. An error leaves the file in the inbox for
// manual inspection.
type Handler func(ctx context.Context, path string) error

// Watcher drives the handler from an inbox directory.
type Watcher struct {
	cfg     config.WatchConfig
	handler Handler
	log     *slog.Logger
}

// New creates a watcher. Both directories are created if missing.
func New(cfg config.WatchConfig, handler Handler, log *slog.Logger) (*Watcher, error) {
	for _, dir := range []string{cfg.Inbox, cfg.Processed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return &Watcher{cfg: cfg, handler: handler, log: log}, nil
}

// Run processes pre-existing inbox files, then blocks handling filesystem
// events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.cfg.Inbox); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Inbox, err)
	}

	// Files that arrived before the watch was registered.
	if err := w.sweep(ctx); err != nil {
		return err
	}

	w.log.Info("watching inbox", "dir", w.cfg.Inbox)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if !isCSV(event.Name) {
				continue
			}
			w.settle(ctx)
			w.process(ctx, event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// sweep handles every CSV already sitting in the inbox, oldest path order.
func (w *Watcher) sweep(ctx context.Context) error {
	entries, err := os.ReadDir(w.cfg.Inbox)
	if err != nil {
		return fmt.Errorf("read inbox %s: %w", w.cfg.Inbox, err)
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if e.IsDir() || !isCSV(e.Name()) {
			continue
		}
		w.process(ctx, filepath.Join(w.cfg.Inbox, e.Name()))
	}
	return nil
}

// process runs the handler and archives the file on success. A handler error
// is logged and the file stays in place.
func (w *Watcher) process(ctx context.Context, path string) {
	if _, err := os.Stat(path); err != nil {
		// Gone between event and pickup.
		return
	}

	log := w.log.With("file", path)
	log.Info("processing file")

	if err := w.handler(ctx, path); err != nil {
		log.Error("processing failed, leaving file in inbox", "error", err)
		return
	}

	dest := filepath.Join(w.cfg.Processed, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		log.Error("move to processed failed", "error", err)
		return
	}
	log.Info("file processed", "moved_to", dest)
}

// settle waits out the configured delay so a file still being written is not
// read mid-copy.
func (w *Watcher) settle(ctx context.Context) {
	if w.cfg.Settle <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(w.cfg.Settle):
	}
}

func isCSV(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".csv")
}
