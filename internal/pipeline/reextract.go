package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/mpereira356/propostas-system/internal/entity"
	"github.com/mpereira356/propostas-system/internal/extract"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/repository"
)

// ReextractSummary reports one bulk re-extraction run.
type ReextractSummary struct {
	TotalEligible int `json:"total_eligible"`
	Completed     int `json:"completed"`
	ErrorCount    int `json:"error_count"`
	Skipped       int `json:"skipped"`
}

// Reextractor re-runs field extraction over every stored record whose
// source file is still on disk, merging improved values without ever
// overwriting good data with worse.
type Reextractor struct {
	repo      *repository.PropostaRepository
	pdf       pdftext.TextExtractor
	uploadDir string
	batchSize int
	logger    *slog.Logger

	running atomic.Bool
	mu      sync.Mutex
	last    ReextractSummary
}

func NewReextractor(repo *repository.PropostaRepository, pdf pdftext.TextExtractor, uploadDir string, batchSize int, logger *slog.Logger) *Reextractor {
	return &Reextractor{
		repo:      repo,
		pdf:       pdf,
		uploadDir: uploadDir,
		batchSize: batchSize,
		logger:    logger,
	}
}

// Running reports whether a run is in flight.
func (r *Reextractor) Running() bool { return r.running.Load() }

// LastSummary returns the result of the most recent completed run.
func (r *Reextractor) LastSummary() ReextractSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Run walks all records, re-extracts each retained file and flushes merged
// updates in transactional batches. Only one run may be active at a time;
// an overlapping call returns false immediately.
func (r *Reextractor) Run(ctx context.Context) (ReextractSummary, bool) {
	if !r.running.CompareAndSwap(false, true) {
		return ReextractSummary{}, false
	}
	defer r.running.Store(false)

	var summary ReextractSummary
	records, err := r.repo.ListAll(ctx)
	if err != nil {
		r.logger.Error("reextract: list failed", "error", err)
		summary.ErrorCount++
		return summary, true
	}

	var batch []*entity.Proposta
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := r.repo.UpdateBatch(ctx, batch); err != nil {
			r.logger.Error("reextract: batch update failed", "size", len(batch), "error", err)
			summary.ErrorCount += len(batch)
			summary.Completed -= len(batch)
		}
		batch = batch[:0]
	}

	for _, rec := range records {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(r.uploadDir, rec.NomeArquivoPDF)
		if _, err := os.Stat(path); err != nil {
			summary.Skipped++
			continue
		}
		summary.TotalEligible++

		text, err := r.pdf.Extract(ctx, path)
		if err != nil {
			r.logger.Warn("reextract: unreadable", "filename", rec.NomeArquivoPDF, "error", err)
			summary.ErrorCount++
			continue
		}
		doc := extract.All(extract.NewSource(text.FullText, text.Lines), rec.NomeArquivoPDF)
		if Merge(rec, doc) {
			batch = append(batch, rec)
		}
		summary.Completed++

		if len(batch) >= r.batchSize {
			flush()
		}
	}
	flush()

	r.mu.Lock()
	r.last = summary
	r.mu.Unlock()
	r.logger.Info("reextract finished",
		"eligible", summary.TotalEligible,
		"completed", summary.Completed,
		"errors", summary.ErrorCount,
		"skipped", summary.Skipped)
	return summary, true
}

// Merge copies freshly extracted values onto the stored record, but only
// where the new value is informative: non-empty and not the "Não
// informado" sentinel. Existing data is never blanked. Reports whether
// anything changed.
func Merge(rec *entity.Proposta, doc *extract.Document) bool {
	changed := false
	apply := func(dst **string, src *string) {
		if !informative(src) {
			return
		}
		if *dst != nil && **dst == *src {
			return
		}
		v := *src
		*dst = &v
		changed = true
	}

	apply(&rec.RazaoSocial, doc.RazaoSocial)
	apply(&rec.NomeFantasia, doc.NomeFantasia)
	apply(&rec.DataEmissao, doc.DataEmissao)
	apply(&rec.Validade, doc.Validade)
	apply(&rec.CNPJ, doc.CNPJ)
	apply(&rec.Telefone, doc.Telefone)
	apply(&rec.Celular, doc.Celular)
	apply(&rec.Email, doc.Email)
	apply(&rec.PessoaContato, doc.PessoaContato)
	apply(&rec.ValorTotal, doc.ValorTotal)
	apply(&rec.CodVendedor, doc.CodVendedor)
	apply(&rec.GarantiaResumo, doc.GarantiaResumo)
	apply(&rec.GarantiaTexto, doc.GarantiaTexto)

	apply(&rec.InstalacaoStatus, &doc.InstalacaoStatus)
	apply(&rec.QualificacoesStatus, &doc.QualificacoesStatus)
	apply(&rec.TreinamentoStatus, &doc.TreinamentoStatus)

	if due := Vencimento(rec.DataEmissao); due != nil && (rec.DataVencimento == nil || *rec.DataVencimento != *due) {
		rec.DataVencimento = due
		changed = true
	}
	return changed
}

func informative(s *string) bool {
	return s != nil && *s != "" && *s != extract.StatusNaoInformado
}
