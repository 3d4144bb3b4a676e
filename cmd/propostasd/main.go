package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mpereira356/propostas-system/internal/async"
	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/export"
	"github.com/mpereira356/propostas-system/internal/ingest"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/pipeline"
	"github.com/mpereira356/propostas-system/internal/repository"
	"github.com/mpereira356/propostas-system/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
	// Optional .env for local development.
	_ = godotenv.Load()

	cfg, err := common.LoadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	logger := common.NewLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repository.Open(ctx, repository.Config{
		DSN:             cfg.Database.DSN,
		MaxConns:        cfg.Database.MaxConns,
		MinConns:        cfg.Database.MinConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
		MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
		DialTimeout:     cfg.Database.DialTimeout,
	}, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.EnsureSchema(ctx, db); err != nil {
		return err
	}
	if err := repository.HealthCheck(ctx, db, cfg.Database.DialTimeout); err != nil {
		return err
	}
	logger.Info("database ready")

	repo := repository.NewPropostaRepository(db, logger)
	pdf := pdftext.NewExtractor()
	processor := pipeline.NewProcessor(repo, pdf, cfg.Ingest.UploadDir, logger)
	queue := async.NewQueue(logger)
	intake := ingest.NewService(cfg.Ingest, queue, processor, repo, logger)
	reextractor := pipeline.NewReextractor(repo, pdf, cfg.Ingest.UploadDir, cfg.Reextract.BatchSize, logger)
	exporter := export.NewService(repo, logger)

	if dir := cfg.Ingest.WatchDir; dir != "" && dir != cfg.Ingest.UploadDir {
		watcher := ingest.NewWatcher(dir, 2*time.Second, intake, logger)
		if err := watcher.Start(ctx); err != nil {
			return err
		}
	}

	srv := server.New(cfg.Server, db, repo, intake, queue, reextractor, exporter,
		cfg.Ingest.UploadDir, cfg.Ingest.MaxUploadBytes, logger)
	if err := srv.Run(ctx); err != nil {
		return err
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := queue.Shutdown(drainCtx); err != nil {
		logger.Warn("queue did not drain before shutdown", "error", err)
	}
	logger.Info("stopped")
	return nil
}
