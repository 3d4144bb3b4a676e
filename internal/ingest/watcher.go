package ingest

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher picks up proposal PDFs dropped into a directory outside the API,
// moving them through the same intake path as uploads.
type Watcher struct {
	dir      string
	debounce time.Duration
	svc      *Service
	logger   *slog.Logger
}

func NewWatcher(dir string, debounce time.Duration, svc *Service, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	return &Watcher{dir: dir, debounce: debounce, svc: svc, logger: logger}
}

// Start watches the directory until ctx is cancelled. Create, write and
// rename bursts for the same file are coalesced so a file is only ingested
// once its writer has gone quiet.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return err
	}
	w.logger.Info("watching directory", "dir", w.dir)

	go func() {
		defer fsw.Close()

		// pending belongs to this goroutine alone; the debounce timer only
		// delivers a tick into the select below, it never touches the map.
		pending := map[string]struct{}{}
		timer := time.NewTimer(w.debounce)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				for path := range pending {
					delete(pending, path)
					w.ingest(ctx, path)
				}
			case e, ok := <-fsw.Events:
				if !ok {
					return
				}
				if !isPDF(e.Name) || e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
					continue
				}
				pending[e.Name] = struct{}{}
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				w.logger.Error("watcher error", "error", err)
			}
		}
	}()
	return nil
}

// ingest funnels a discovered file through the intake service so it gets
// the same validation, dedup and queueing as an API upload.
func (w *Watcher) ingest(ctx context.Context, path string) {
	f, err := os.Open(path)
	if err != nil {
		w.logger.Warn("discovered file vanished", "path", path, "error", err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		w.logger.Warn("stat failed", "path", path, "error", err)
		return
	}

	report := w.svc.acceptOne(ctx, Upload{
		Filename: filepath.Base(path),
		Size:     info.Size(),
		Content:  f,
	})
	w.logger.Info("discovered file handled",
		"filename", report.Filename, "status", report.Status, "detail", report.Detail)
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}
