// Package pipeline turns a retained upload into a persisted proposal
// record: text extraction, field extraction, identity resolution, then a
// single transactional write.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/entity"
	"github.com/mpereira356/propostas-system/internal/extract"
	"github.com/mpereira356/propostas-system/internal/identity"
	"github.com/mpereira356/propostas-system/internal/pdftext"
	"github.com/mpereira356/propostas-system/internal/repository"
)

const vencimentoDays = 30

// Processor ingests one document end to end.
type Processor struct {
	repo      *repository.PropostaRepository
	pdf       pdftext.TextExtractor
	uploadDir string
	logger    *slog.Logger
	now       func() time.Time
}

func NewProcessor(repo *repository.PropostaRepository, pdf pdftext.TextExtractor, uploadDir string, logger *slog.Logger) *Processor {
	return &Processor{
		repo:      repo,
		pdf:       pdf,
		uploadDir: uploadDir,
		logger:    logger,
		now:       time.Now,
	}
}

// Process ingests the named file from the upload directory. The error is
// one of the ingest taxonomy sentinels (duplicate, unreadable,
// insufficient data) or an internal failure; in every error case nothing
// is persisted.
func (pr *Processor) Process(ctx context.Context, filename string) (*entity.Proposta, error) {
	taken, err := pr.repo.ExistsByFilename(ctx, filename)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%q: %w", filename, common.ErrDuplicate)
	}

	doc, err := pr.extractDocument(ctx, filename)
	if err != nil {
		return nil, err
	}

	p, err := pr.buildProposta(ctx, filename, doc)
	if err != nil {
		return nil, err
	}

	if err := pr.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	pr.logger.Info("proposta ingested",
		"filename", filename,
		"id_proposta", p.IDProposta,
		"versao", p.Versao,
		"itens", len(p.Itens))
	return p, nil
}

func (pr *Processor) extractDocument(ctx context.Context, filename string) (*extract.Document, error) {
	text, err := pr.pdf.Extract(ctx, filepath.Join(pr.uploadDir, filename))
	if err != nil {
		return nil, fmt.Errorf("%q: %w: %v", filename, common.ErrUnreadableSource, err)
	}
	src := extract.NewSource(text.FullText, text.Lines)
	return extract.All(src, filename), nil
}

// buildProposta assembles the entity: identity first, then the extracted
// fields, then derived values.
func (pr *Processor) buildProposta(ctx context.Context, filename string, doc *extract.Document) (*entity.Proposta, error) {
	candidate := ""
	if doc.IDProposta != nil {
		candidate = *doc.IDProposta
	}
	base, versao := identity.Derive(filename, candidate)
	if candidate == "" && base == "" {
		return nil, fmt.Errorf("%q: %w", filename, common.ErrInsufficientData)
	}

	idProposta, err := identity.ResolveUnique(ctx, candidate, base, versao, filename, pr.repo.ExistsByIDProposta)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	p := &entity.Proposta{
		ID:             id,
		IDProposta:     idProposta,
		IDPropostaBase: base,
		Versao:         versao,

		RazaoSocial:   doc.RazaoSocial,
		NomeFantasia:  doc.NomeFantasia,
		DataEmissao:   doc.DataEmissao,
		Validade:      doc.Validade,
		CNPJ:          doc.CNPJ,
		Telefone:      doc.Telefone,
		Celular:       doc.Celular,
		Email:         doc.Email,
		PessoaContato: doc.PessoaContato,
		ValorTotal:    doc.ValorTotal,
		CodVendedor:   doc.CodVendedor,

		InstalacaoStatus:    &doc.InstalacaoStatus,
		QualificacoesStatus: &doc.QualificacoesStatus,
		TreinamentoStatus:   &doc.TreinamentoStatus,
		GarantiaResumo:      doc.GarantiaResumo,
		GarantiaTexto:       doc.GarantiaTexto,

		NomeArquivoPDF: filename,
		DataImportacao: pr.now(),
	}
	p.DataVencimento = Vencimento(doc.DataEmissao)

	for _, item := range doc.Itens {
		p.Itens = append(p.Itens, &entity.ItemProposta{
			ID:            uuid.New(),
			PropostaID:    id,
			Numero:        item.Numero,
			Descricao:     item.Descricao,
			Quantidade:    item.Quantidade,
			ValorUnitario: item.ValorUnitario,
			ValorTotal:    item.ValorTotal,
		})
	}
	return p, nil
}

// Vencimento derives the payment due date: issue date plus thirty days.
// Nil when the issue date is absent or malformed.
func Vencimento(dataEmissao *string) *string {
	if dataEmissao == nil {
		return nil
	}
	t, err := time.Parse("02/01/2006", *dataEmissao)
	if err != nil {
		return nil
	}
	due := t.AddDate(0, 0, vencimentoDays).Format("02/01/2006")
	return &due
}
