package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/mpereira356/propostas-system/internal/async"
	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/entity"
	"github.com/mpereira356/propostas-system/internal/export"
	"github.com/mpereira356/propostas-system/internal/ingest"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/pipeline"
	"github.com/mpereira356/propostas-system/internal/repository"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (pdftext.Document, error) {
	return pdftext.Document{}, errors.New("stub")
}

func strPtr(s string) *string { return &s }

func newTestServer(t *testing.T) (*Server, *repository.PropostaRepository) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	if err := repository.EnsureSchema(context.Background(), db); err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repository.NewPropostaRepository(db, logger)
	uploadDir := t.TempDir()
	proc := pipeline.NewProcessor(repo, stubExtractor{}, uploadDir, logger)
	queue := async.NewQueue(logger)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		queue.Shutdown(ctx)
	})
	intakeCfg := common.IngestConfig{UploadDir: uploadDir, MaxUploadFiles: 5, MaxUploadBytes: 1 << 20}
	intake := ingest.NewService(intakeCfg, queue, proc, repo, logger)
	reextractor := pipeline.NewReextractor(repo, stubExtractor{}, uploadDir, 25, logger)
	exporter := export.NewService(repo, logger)

	srv := New(common.ServerConfig{Addr: ":0", ShutdownTimeout: time.Second},
		db, repo, intake, queue, reextractor, exporter, uploadDir, 1<<20, logger)
	return srv, repo
}

func seedProposta(t *testing.T, repo *repository.PropostaRepository) *entity.Proposta {
	t.Helper()
	id := uuid.New()
	p := &entity.Proposta{
		ID:             id,
		IDProposta:     "BA.1234/25",
		RazaoSocial:    strPtr("ACME Equipamentos LTDA"),
		CNPJ:           strPtr("12.345.678/0001-99"),
		NomeArquivoPDF: "123 A.pdf",
		DataImportacao: time.Now(),
	}
	if err := repo.Create(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestListPropostas(t *testing.T) {
	srv, repo := newTestServer(t)
	seedProposta(t, repo)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/propostas", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var body struct {
		Propostas []PropostaResponse `json:"propostas"`
		Total     int                `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Total != 1 || body.Propostas[0].IDProposta != "BA.1234/25" {
		t.Errorf("body = %+v", body)
	}
	if !body.Propostas[0].EhMaisRecente {
		t.Error("listing rows must be marked current")
	}
}

func TestGetPropostaNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/propostas/"+uuid.NewString(), nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetPropostaMalformedID(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/propostas/nao-e-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestUpdateProposta(t *testing.T) {
	srv, repo := newTestServer(t)
	p := seedProposta(t, repo)

	payload := `{"telefone": "(11) 3333-4444", "razao_social": null, "cnpj": ""}`
	req := httptest.NewRequest(http.MethodPut, "/api/propostas/"+p.ID.String(), bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	got, err := repo.GetByID(context.Background(), p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Telefone == nil || *got.Telefone != "(11) 3333-4444" {
		t.Errorf("telefone = %v", got.Telefone)
	}
	if got.RazaoSocial == nil || *got.RazaoSocial != "ACME Equipamentos LTDA" {
		t.Errorf("null must not blank a populated field, got %v", got.RazaoSocial)
	}
	if got.CNPJ == nil || *got.CNPJ != "12.345.678/0001-99" {
		t.Errorf("empty string must not blank a populated field, got %v", got.CNPJ)
	}
}

func TestUpdatePropostaRejectsUnknownKey(t *testing.T) {
	srv, repo := newTestServer(t)
	p := seedProposta(t, repo)

	payload := `{"id_proposta": "HACK/99"}`
	req := httptest.NewRequest(http.MethodPut, "/api/propostas/"+p.ID.String(), bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for schema violation", rec.Code)
	}
}

func TestObservacoes(t *testing.T) {
	srv, repo := newTestServer(t)
	p := seedProposta(t, repo)

	payload := `{"observacoes": "cliente pediu revisão"}`
	req := httptest.NewRequest(http.MethodPut, "/api/propostas/"+p.ID.String()+"/observacoes", bytes.NewBufferString(payload))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	got, _ := repo.GetByID(context.Background(), p.ID)
	if got.Observacoes == nil || *got.Observacoes != "cliente pediu revisão" {
		t.Errorf("observacoes = %v", got.Observacoes)
	}
}

func TestDeleteProposta(t *testing.T) {
	srv, repo := newTestServer(t)
	p := seedProposta(t, repo)

	req := httptest.NewRequest(http.MethodDelete, "/api/propostas/"+p.ID.String(), nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if _, err := repo.GetByID(context.Background(), p.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("record still present: %v", err)
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	p := seedProposta(t, repo)
	won := repository.ObsGanha
	if err := repo.UpdateObservacoes(context.Background(), p.ID, &won); err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["total"] != 1 || body["ganhas"] != 1 || body["em_aberto"] != 0 {
		t.Errorf("body = %v", body)
	}
}

func TestProgressEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/progress", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"submitted", "completed", "pending", "percent", "batch_drained", "reextract_running"} {
		if _, ok := body[key]; !ok {
			t.Errorf("missing key %q in %v", key, body)
		}
	}
}

func TestExportEndpoint(t *testing.T) {
	srv, repo := newTestServer(t)
	seedProposta(t, repo)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/export.xlsx", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" {
		t.Errorf("content type = %q", ct)
	}
	if rec.Body.Len() == 0 {
		t.Error("empty workbook body")
	}
}
