package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/ingest"
	"github.com/mpereira356/propostas-system/internal/repository"
)

// handleUpload accepts up to the configured number of PDFs in one
// multipart request and answers with per-file reports. Processing is
// asynchronous; 202 means "queued", not "imported".
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		s.writeError(w, common.WrapError(common.ErrInvalidInput, "malformed multipart body"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	uploads := make([]ingest.Upload, 0, len(headers))
	var open []io.Closer
	defer func() {
		for _, c := range open {
			c.Close()
		}
	}()
	for _, h := range headers {
		f, err := h.Open()
		if err != nil {
			s.writeError(w, common.WrapError(err, "open upload"))
			return
		}
		open = append(open, f)
		uploads = append(uploads, ingest.Upload{
			Filename: h.Filename,
			Size:     h.Size,
			Content:  f,
		})
	}

	reports, err := s.intake.Accept(r.Context(), uploads)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"files":    reports,
		"progress": s.queue.Progress(),
	})
}

func listFilterFromQuery(r *http.Request) repository.ListFilter {
	q := r.URL.Query()
	return repository.ListFilter{
		RazaoSocial: q.Get("razao_social"),
		CNPJ:        q.Get("cnpj"),
		IDProposta:  q.Get("id_proposta"),
		CodVendedor: q.Get("cod_vendedor"),
		OrderBy:     q.Get("order_by"),
		Descending:  q.Get("order") == "desc",
	}
}

// handleList returns the current version of every proposal group, history
// attached, honoring the filter query parameters.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	recs, err := s.repo.ListCurrent(r.Context(), listFilterFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]PropostaResponse, 0, len(recs))
	for _, p := range recs {
		out = append(out, toPropostaResponse(p, true))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"propostas": out,
		"total":     len(out),
	})
}

func (s *Server) pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, common.WrapError(common.ErrInvalidInput, "malformed id")
	}
	return id, nil
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropostaResponse(p, true))
}

// handleUpdate applies a manual edit. The body is validated against the
// update schema first; only non-empty submitted values overwrite.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyLen))
	if err != nil {
		s.writeError(w, common.WrapError(common.ErrInvalidInput, "read body"))
		return
	}
	if err := validateUpdatePayload(body); err != nil {
		s.writeError(w, common.WrapError(common.ErrInvalidInput, err.Error()))
		return
	}

	var req PropostaUpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, common.WrapError(common.ErrInvalidInput, "decode body"))
		return
	}

	p, err := s.repo.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	req.RazaoSocial.applyTo(&p.RazaoSocial)
	req.NomeFantasia.applyTo(&p.NomeFantasia)
	req.DataEmissao.applyTo(&p.DataEmissao)
	req.Validade.applyTo(&p.Validade)
	req.CNPJ.applyTo(&p.CNPJ)
	req.Telefone.applyTo(&p.Telefone)
	req.Celular.applyTo(&p.Celular)
	req.Email.applyTo(&p.Email)
	req.PessoaContato.applyTo(&p.PessoaContato)
	req.ValorTotal.applyTo(&p.ValorTotal)
	req.CodVendedor.applyTo(&p.CodVendedor)
	req.DataVencimento.applyTo(&p.DataVencimento)
	req.InstalacaoStatus.applyTo(&p.InstalacaoStatus)
	req.QualificacoesStatus.applyTo(&p.QualificacoesStatus)
	req.TreinamentoStatus.applyTo(&p.TreinamentoStatus)
	req.GarantiaResumo.applyTo(&p.GarantiaResumo)
	req.GarantiaTexto.applyTo(&p.GarantiaTexto)
	req.Observacoes.applyTo(&p.Observacoes)

	if err := s.repo.Update(r.Context(), p); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPropostaResponse(p, true))
}

// handleObservacoes sets only the free-text observation field, a lighter
// path than the full manual edit.
func (s *Server) handleObservacoes(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var req struct {
		Observacoes *string `json:"observacoes"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.maxBodyLen)).Decode(&req); err != nil {
		s.writeError(w, common.WrapError(common.ErrInvalidInput, "decode body"))
		return
	}
	if err := s.repo.UpdateObservacoes(r.Context(), id, req.Observacoes); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDelete removes the record, its items via the cascade, and the
// retained upload from disk.
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	filename, err := s.repo.Delete(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if filename != "" {
		if err := os.Remove(filepath.Join(s.uploadDir, filename)); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("could not remove upload", "filename", filename, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	snap := s.queue.Progress()
	writeJSON(w, http.StatusOK, map[string]any{
		"submitted":         snap.Submitted,
		"completed":         snap.Completed,
		"pending":           snap.Pending,
		"percent":           snap.Percent,
		"batch_drained":     snap.Drained,
		"reextract_running": s.reextract.Running(),
	})
}

// handleReextractStart kicks off a bulk re-extraction in the background.
// A second call while one is running answers 409.
func (s *Server) handleReextractStart(w http.ResponseWriter, r *http.Request) {
	if s.reextract.Running() {
		writeJSON(w, http.StatusConflict, errorResponse{Error: "re-extraction already running"})
		return
	}
	go func() {
		// Detached from the request context: the run outlives the HTTP call.
		s.reextract.Run(context.Background())
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "started"})
}

func (s *Server) handleReextractStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"running":      s.reextract.Running(),
		"last_summary": s.reextract.LastSummary(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.exporter.ExportPropostasXLSX(r.Context(), listFilterFromQuery(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="propostas.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleClientes(w http.ResponseWriter, r *http.Request) {
	clientes, err := s.repo.ListClientes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]ClienteResponse, 0, len(clientes))
	for _, c := range clientes {
		out = append(out, toClienteResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"clientes": out, "total": len(out)})
}

// handleDashboard summarizes the proposal base: won, lost, open and
// past-due counts for the landing view.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := s.repo.Dashboard(r.Context(), time.Now())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"total":     counts.Total,
		"ganhas":    counts.Ganhas,
		"perdidas":  counts.Perdidas,
		"em_aberto": counts.EmAberto,
		"vencidas":  counts.Vencidas,
	})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := repository.HealthCheck(r.Context(), s.db, 2*time.Second); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
