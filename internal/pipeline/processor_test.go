package pipeline

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/repository"
)

// fakeExtractor serves canned text per path suffix.
type fakeExtractor struct {
	texts map[string]string
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) (pdftext.Document, error) {
	if f.err != nil {
		return pdftext.Document{}, f.err
	}
	for suffix, text := range f.texts {
		if strings.HasSuffix(path, suffix) {
			var lines []string
			for _, l := range strings.Split(text, "\n") {
				l = strings.TrimSpace(l)
				if l != "" {
					lines = append(lines, l)
				}
			}
			return pdftext.Document{FullText: text, Lines: lines}, nil
		}
	}
	return pdftext.Document{}, errors.New("no such document")
}

func newTestProcessor(t *testing.T, pdf pdftext.TextExtractor) (*Processor, *repository.PropostaRepository) {
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
	return NewProcessor(repo, pdf, "uploads", logger), repo
}

const propostaCompleta = `PROPOSTA COMERCIAL
17/JAN/25
Razão Social: ACME Equipamentos LTDA
CNPJ: 12.345.678/0001-99
Telefone: (11) 3333-4444
Contato: João da Silva
Validade: 30 DIAS
ITENS COTADOS
ITEM 01 Autoclave Vertical
R$ 10.000,00 R$ 20.000,00
01 02
VALOR TOTAL DA PROPOSTA
TOTAL R$ 20.000,00`

func TestProcessIngestsDocument(t *testing.T) {
	pdf := &fakeExtractor{texts: map[string]string{"123 A.pdf": propostaCompleta}}
	proc, _ := newTestProcessor(t, pdf)

	p, err := proc.Process(context.Background(), "123 A.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if p.IDProposta != "BA.123/25" {
		t.Errorf("id = %q, want synthesized BA.123/25", p.IDProposta)
	}
	if p.IDPropostaBase != "123" || p.Versao != "A" {
		t.Errorf("lineage = %q / %q", p.IDPropostaBase, p.Versao)
	}
	if p.DataEmissao == nil || *p.DataEmissao != "17/01/2025" {
		t.Errorf("emissao = %v", p.DataEmissao)
	}
	if p.DataVencimento == nil || *p.DataVencimento != "16/02/2025" {
		t.Errorf("vencimento = %v", p.DataVencimento)
	}
	if len(p.Itens) != 1 || p.Itens[0].Quantidade != "2" {
		t.Errorf("itens = %+v", p.Itens)
	}
}

func TestProcessRejectsDuplicateFilename(t *testing.T) {
	pdf := &fakeExtractor{texts: map[string]string{"123 A.pdf": propostaCompleta}}
	proc, _ := newTestProcessor(t, pdf)

	if _, err := proc.Process(context.Background(), "123 A.pdf"); err != nil {
		t.Fatal(err)
	}
	_, err := proc.Process(context.Background(), "123 A.pdf")
	if !errors.Is(err, common.ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestProcessUnreadableSource(t *testing.T) {
	proc, _ := newTestProcessor(t, &fakeExtractor{err: errors.New("corrupt stream")})

	_, err := proc.Process(context.Background(), "broken.pdf")
	if !errors.Is(err, common.ErrUnreadableSource) {
		t.Errorf("err = %v, want ErrUnreadableSource", err)
	}
}

func TestProcessInsufficientData(t *testing.T) {
	pdf := &fakeExtractor{texts: map[string]string{"sem nada.pdf": "texto sem identificadores"}}
	proc, _ := newTestProcessor(t, pdf)

	_, err := proc.Process(context.Background(), "sem nada.pdf")
	if !errors.Is(err, common.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestProcessResolvesIdentifierCollision(t *testing.T) {
	pdf := &fakeExtractor{texts: map[string]string{
		"123 A.pdf": propostaCompleta,
		"123 B.pdf": propostaCompleta,
	}}
	proc, repo := newTestProcessor(t, pdf)
	ctx := context.Background()

	first, err := proc.Process(ctx, "123 A.pdf")
	if err != nil {
		t.Fatal(err)
	}
	second, err := proc.Process(ctx, "123 B.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if first.IDProposta == second.IDProposta {
		t.Fatalf("identifiers must be unique, both are %q", first.IDProposta)
	}
	if second.IDPropostaBase != first.IDPropostaBase {
		t.Errorf("both versions must share the base group")
	}

	if ok, _ := repo.ExistsByIDProposta(ctx, second.IDProposta); !ok {
		t.Error("second identifier not persisted")
	}
}
