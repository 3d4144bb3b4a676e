// Package export produces XLSX snapshots of the proposal listing.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mpereira356/propostas-system/internal/repository"
)

// Service is a tiny façade over the repository that produces XLSX bytes.
type Service struct {
	repo   *repository.PropostaRepository
	logger *slog.Logger
}

func NewService(repo *repository.PropostaRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger}
}

// ExportPropostasXLSX returns a workbook with the current version of every
// proposal group, honoring the same filters as the listing endpoint.
func (s *Service) ExportPropostasXLSX(ctx context.Context, filter repository.ListFilter) ([]byte, error) {
	start := time.Now()

	recs, err := s.repo.ListCurrent(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("query propostas: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Propostas"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	// The default sheet is noise once ours exists.
	_ = f.DeleteSheet("Sheet1")

	headers := []string{
		"ID Proposta",
		"ID Base",
		"Versão",
		"Razão Social",
		"CNPJ",
		"Data Emissão",
		"Validade",
		"Valor Total",
		"Cód. Vendedor",
		"Instalação",
		"Qualificações",
		"Treinamento",
		"Data Importação",
		"Arquivo",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, p := range recs {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, p.IDProposta)
		write(2, p.IDPropostaBase)
		write(3, p.Versao)
		write(4, deref(p.RazaoSocial))
		write(5, deref(p.CNPJ))
		write(6, deref(p.DataEmissao))
		write(7, deref(p.Validade))
		write(8, deref(p.ValorTotal))
		write(9, deref(p.CodVendedor))
		write(10, deref(p.InstalacaoStatus))
		write(11, deref(p.QualificacoesStatus))
		write(12, deref(p.TreinamentoStatus))
		write(13, p.DataImportacao.Format("02/01/2006 15:04"))
		write(14, p.NomeArquivoPDF)
		row++
	}

	_ = f.SetColWidth(sheet, "A", "B", 16)
	_ = f.SetColWidth(sheet, "C", "C", 8)
	_ = f.SetColWidth(sheet, "D", "D", 40)
	_ = f.SetColWidth(sheet, "E", "E", 20)
	_ = f.SetColWidth(sheet, "F", "H", 14)
	_ = f.SetColWidth(sheet, "I", "L", 14)
	_ = f.SetColWidth(sheet, "M", "N", 24)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"rows", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
