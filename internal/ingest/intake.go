// Package ingest accepts proposal PDFs, from API uploads or a watched
// directory, stores them under the upload directory and hands them to the
// background queue.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mpereira356/propostas-system/internal/async"
	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/pipeline"
	"github.com/mpereira356/propostas-system/internal/repository"
)

// Upload statuses reported back per file.
const (
	StatusQueued    = "queued"
	StatusDuplicate = "duplicate"
	StatusRejected  = "rejected"
)

var unsafeCharsRe = regexp.MustCompile(`[^\p{L}\p{N} ._\-()]+`)

// Upload is one incoming file: its client-side name, content and declared
// size.
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

// FileReport is the per-file outcome of an intake call.
type FileReport struct {
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// Service validates and stores uploads, then enqueues processing.
type Service struct {
	cfg    common.IngestConfig
	queue  *async.Queue
	proc   *pipeline.Processor
	repo   *repository.PropostaRepository
	logger *slog.Logger
}

func NewService(cfg common.IngestConfig, queue *async.Queue, proc *pipeline.Processor, repo *repository.PropostaRepository, logger *slog.Logger) *Service {
	return &Service{cfg: cfg, queue: queue, proc: proc, repo: repo, logger: logger}
}

// Accept handles a batch of uploads. The call validates, persists and
// enqueues; extraction itself happens on the background worker, so the
// returned reports say "queued", not "imported". Duplicates are reported
// immediately without touching the queue.
func (s *Service) Accept(ctx context.Context, uploads []Upload) ([]FileReport, error) {
	if len(uploads) == 0 {
		return nil, common.WrapError(common.ErrInvalidInput, "no files in request")
	}
	if len(uploads) > s.cfg.MaxUploadFiles {
		return nil, common.WrapError(common.ErrInvalidInput,
			fmt.Sprintf("too many files: %d (limit %d)", len(uploads), s.cfg.MaxUploadFiles))
	}

	reports := make([]FileReport, 0, len(uploads))
	for _, up := range uploads {
		reports = append(reports, s.acceptOne(ctx, up))
	}
	return reports, nil
}

func (s *Service) acceptOne(ctx context.Context, up Upload) FileReport {
	name := SanitizeFilename(up.Filename)
	if name == "" || !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return FileReport{Filename: up.Filename, Status: StatusRejected, Detail: "only PDF files are accepted"}
	}
	if up.Size > s.cfg.MaxUploadBytes {
		return FileReport{Filename: name, Status: StatusRejected,
			Detail: fmt.Sprintf("file exceeds %d bytes", s.cfg.MaxUploadBytes)}
	}

	taken, err := s.repo.ExistsByFilename(ctx, name)
	if err != nil {
		return FileReport{Filename: name, Status: StatusRejected, Detail: err.Error()}
	}
	if taken {
		return FileReport{Filename: name, Status: StatusDuplicate, Detail: "filename already imported"}
	}

	if err := s.save(name, up.Content); err != nil {
		s.logger.Error("upload save failed", "filename", name, "error", err)
		return FileReport{Filename: name, Status: StatusRejected, Detail: "could not store file"}
	}

	s.enqueue(name)
	return FileReport{Filename: name, Status: StatusQueued}
}

func (s *Service) save(name string, content io.Reader) error {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(s.cfg.UploadDir, name))
	if err != nil {
		return err
	}
	defer dst.Close()

	// One extra byte past the limit turns into a rejection even when the
	// declared size lied.
	n, err := io.Copy(dst, io.LimitReader(content, s.cfg.MaxUploadBytes+1))
	if err != nil {
		return err
	}
	if n > s.cfg.MaxUploadBytes {
		os.Remove(dst.Name())
		return fmt.Errorf("file exceeds %d bytes", s.cfg.MaxUploadBytes)
	}
	return nil
}

func (s *Service) enqueue(name string) {
	s.queue.Enqueue(async.Job{
		Filename: name,
		Run: func(ctx context.Context) error {
			if s.cfg.ProcessTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, s.cfg.ProcessTimeout)
				defer cancel()
			}
			_, err := s.proc.Process(ctx, name)
			return err
		},
	})
}

// SanitizeFilename strips any path component and characters that have no
// business in a stored filename.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = unsafeCharsRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return name
}
