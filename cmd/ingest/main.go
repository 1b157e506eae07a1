package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/carelake/ingest/internal/config"
	"github.com/carelake/ingest/internal/logging"
	"github.com/carelake/ingest/internal/report"
	"github.com/carelake/ingest/internal/schema"
	"github.com/carelake/ingest/internal/server"
	"github.com/carelake/ingest/internal/service"
	"github.com/carelake/ingest/internal/store"
	"github.com/carelake/ingest/internal/transform"
	"github.com/carelake/ingest/internal/watch"
)

func main() {
	file := pflag.String("file", "", "ingest one CSV file and exit")
	watchMode := pflag.Bool("watch", false, "watch the inbox directory for CSV files")
	skipMigrations := pflag.Bool("skip-migrations", false, "do not run database migrations on startup")
	pflag.Parse()

	if (*file == "" && !*watchMode) || (*file != "" && *watchMode) {
		fmt.Fprintln(os.Stderr, "usage: ingest --file <path> | --watch")
		os.Exit(2)
	}

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	log := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	log.Info("configuration loaded",
		"workers", cfg.Pipeline.Workers,
		"db_max_conns", cfg.Database.MaxConns,
		"duplicate_headers", cfg.Ingest.DuplicateHeaders,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, cfg.Database, log)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		log.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	if !*skipMigrations {
		if err := st.Migrate(ctx); err != nil {
			log.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	transformer, err := transform.New(schema.Patients())
	if err != nil {
		log.Error("invalid schema", "error", err)
		os.Exit(1)
	}

	latest := &report.Latest{}
	svc, err := service.New(cfg, transformer, st, latest, log)
	if err != nil {
		log.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	if *file != "" {
		if err := svc.IngestFile(ctx, *file); err != nil {
			log.Error("ingestion failed", "file", *file, "error", err)
			os.Exit(1)
		}
		return
	}

	// Watch mode: admin server alongside the directory watcher.
	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server, latest, log)
		go func() {
			if err := srv.Start(); err != nil {
				log.Error("admin server failed", "error", err)
				stop()
			}
		}()
	}

	watcher, err := watch.New(cfg.Watch, svc.IngestFile, log)
	if err != nil {
		log.Error("failed to start watcher", "error", err)
		os.Exit(1)
	}

	if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("watcher stopped", "error", err)
	}

	log.Info("shutting down...")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("shutdown error", "error", err)
		}
	}
}
