// Command reextract runs one bulk re-extraction pass over every stored
// proposal whose source PDF is still retained, then prints the summary.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/pipeline"
	"github.com/mpereira356/propostas-system/internal/repository"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal:", err)
		os.Exit(1)
	}
}

func run() error {
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

	repo := repository.NewPropostaRepository(db, logger)
	pdf := pdftext.NewExtractor()
	job := pipeline.NewReextractor(repo, pdf, cfg.Ingest.UploadDir, cfg.Reextract.BatchSize, logger)

	summary, _ := job.Run(ctx)
	fmt.Printf("eligible=%d completed=%d errors=%d skipped=%d\n",
		summary.TotalEligible, summary.Completed, summary.ErrorCount, summary.Skipped)
	return nil
}
