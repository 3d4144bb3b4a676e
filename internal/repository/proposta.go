// Package repository persists proposals, their line items and the client
// registry behind database/sql, speaking both SQLite and Postgres.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mpereira356/propostas-system/internal/common"
	"github.com/mpereira356/propostas-system/internal/entity"
	"github.com/mpereira356/propostas-system/internal/identity"
)

const propostaColumns = `id, id_proposta, id_proposta_base, versao, razao_social,
	nome_fantasia, data_emissao, validade, cnpj, telefone, celular, email,
	pessoa_contato, valor_total, cod_vendedor, data_vencimento,
	instalacao_status, qualificacoes_status, treinamento_status,
	garantia_resumo, garantia_texto, observacoes, nome_arquivo_pdf,
	data_importacao`

// PropostaRepository is the data access layer for proposals.
type PropostaRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewPropostaRepository(db *sql.DB, logger *slog.Logger) *PropostaRepository {
	return &PropostaRepository{db: db, logger: logger}
}

// ListFilter narrows and orders the current-version listing. Text filters
// are case-insensitive substring matches.
type ListFilter struct {
	RazaoSocial string
	CNPJ        string
	IDProposta  string
	CodVendedor string
	OrderBy     string
	Descending  bool
}

// orderColumns is the allow-list for ORDER BY; anything else falls back to
// the proposal identifier.
var orderColumns = map[string]string{
	"id_proposta":     "id_proposta",
	"razao_social":    "razao_social",
	"data_emissao":    "data_emissao",
	"data_importacao": "data_importacao",
	"valor_total":     "valor_total",
}

// ExistsByIDProposta reports whether a final identifier is already taken.
// Its signature matches identity.ExistsFunc.
func (r *PropostaRepository) ExistsByIDProposta(ctx context.Context, idProposta string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM propostas WHERE id_proposta = $1`, idProposta).Scan(&n)
	if err != nil {
		return false, common.WrapError(err, "count id_proposta")
	}
	return n > 0, nil
}

// ExistsByFilename reports whether a source file was already ingested.
func (r *PropostaRepository) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM propostas WHERE nome_arquivo_pdf = $1`, filename).Scan(&n)
	if err != nil {
		return false, common.WrapError(err, "count filename")
	}
	return n > 0, nil
}

// Create persists the proposal, its items and, when the proposal carries a
// CNPJ not seen before, a client row, all in one transaction.
func (r *PropostaRepository) Create(ctx context.Context, p *entity.Proposta) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin tx")
	}
	defer tx.Rollback()

	if err := insertProposta(ctx, tx, p); err != nil {
		return err
	}
	for _, item := range p.Itens {
		if err := insertItem(ctx, tx, item); err != nil {
			return err
		}
	}
	if p.CNPJ != nil && strings.TrimSpace(*p.CNPJ) != "" {
		if err := upsertCliente(ctx, tx, p); err != nil {
			return err
		}
	}

	return common.WrapError(tx.Commit(), "commit create")
}

func insertProposta(ctx context.Context, tx *sql.Tx, p *entity.Proposta) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO propostas (`+propostaColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		p.ID.String(), p.IDProposta, nullable(p.IDPropostaBase), nullable(p.Versao),
		p.RazaoSocial, p.NomeFantasia, p.DataEmissao, p.Validade, p.CNPJ,
		p.Telefone, p.Celular, p.Email, p.PessoaContato, p.ValorTotal,
		p.CodVendedor, p.DataVencimento, p.InstalacaoStatus,
		p.QualificacoesStatus, p.TreinamentoStatus, p.GarantiaResumo,
		p.GarantiaTexto, p.Observacoes, p.NomeArquivoPDF,
		p.DataImportacao.UnixNano())
	return common.WrapError(err, "insert proposta")
}

func insertItem(ctx context.Context, tx *sql.Tx, item *entity.ItemProposta) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO itens_proposta
		(id, proposta_id, numero, descricao, quantidade, valor_unitario, valor_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		item.ID.String(), item.PropostaID.String(), item.Numero,
		item.Descricao, item.Quantidade, item.ValorUnitario, item.ValorTotal)
	return common.WrapError(err, "insert item")
}

// upsertCliente registers the proposal's client unless a client with the
// same normalized CNPJ already exists.
func upsertCliente(ctx context.Context, tx *sql.Tx, p *entity.Proposta) error {
	cnpj := strings.TrimSpace(*p.CNPJ)
	norm := NormalizeCNPJ(cnpj)

	var n int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clientes WHERE cnpj = $1 OR cnpj_normalizado = $2`,
		cnpj, norm).Scan(&n)
	if err != nil {
		return common.WrapError(err, "query clientes")
	}
	if n > 0 {
		return nil
	}

	nome := "Cliente sem razão social"
	if p.RazaoSocial != nil && strings.TrimSpace(*p.RazaoSocial) != "" {
		nome = strings.TrimSpace(*p.RazaoSocial)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO clientes
		(id, nome, cnpj, cnpj_normalizado, data_criacao)
		VALUES ($1,$2,$3,$4,$5)`,
		uuid.New().String(), nome, cnpj, norm, p.DataImportacao.UnixNano())
	return common.WrapError(err, "insert cliente")
}

// NormalizeCNPJ strips everything but digits.
func NormalizeCNPJ(cnpj string) string {
	var b strings.Builder
	for _, r := range cnpj {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// GetByID loads one proposal and its items.
func (r *PropostaRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Proposta, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+propostaColumns+` FROM propostas WHERE id = $1`, id.String())
	p, err := scanProposta(row)
	if err == sql.ErrNoRows {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.WrapError(err, "load proposta")
	}
	if err := r.attachItens(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PropostaRepository) attachItens(ctx context.Context, p *entity.Proposta) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, proposta_id, numero,
		descricao, quantidade, valor_unitario, valor_total
		FROM itens_proposta WHERE proposta_id = $1 ORDER BY numero`, p.ID.String())
	if err != nil {
		return common.WrapError(err, "load itens")
	}
	defer rows.Close()

	for rows.Next() {
		item := &entity.ItemProposta{}
		var id, pid string
		if err := rows.Scan(&id, &pid, &item.Numero, &item.Descricao,
			&item.Quantidade, &item.ValorUnitario, &item.ValorTotal); err != nil {
			return common.WrapError(err, "scan item")
		}
		item.ID, _ = uuid.Parse(id)
		item.PropostaID, _ = uuid.Parse(pid)
		p.Itens = append(p.Itens, item)
	}
	return rows.Err()
}

// Update rewrites the proposal's mutable extracted fields. The identifier
// lineage, source filename and import timestamp never change here.
func (r *PropostaRepository) Update(ctx context.Context, p *entity.Proposta) error {
	return r.update(ctx, r.db, p)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *PropostaRepository) update(ctx context.Context, ex execer, p *entity.Proposta) error {
	res, err := ex.ExecContext(ctx, `UPDATE propostas SET
		razao_social = $1, nome_fantasia = $2, data_emissao = $3,
		validade = $4, cnpj = $5, telefone = $6, celular = $7, email = $8,
		pessoa_contato = $9, valor_total = $10, cod_vendedor = $11,
		data_vencimento = $12, instalacao_status = $13,
		qualificacoes_status = $14, treinamento_status = $15,
		garantia_resumo = $16, garantia_texto = $17, observacoes = $18
		WHERE id = $19`,
		p.RazaoSocial, p.NomeFantasia, p.DataEmissao, p.Validade, p.CNPJ,
		p.Telefone, p.Celular, p.Email, p.PessoaContato, p.ValorTotal,
		p.CodVendedor, p.DataVencimento, p.InstalacaoStatus,
		p.QualificacoesStatus, p.TreinamentoStatus, p.GarantiaResumo,
		p.GarantiaTexto, p.Observacoes, p.ID.String())
	if err != nil {
		return common.WrapError(err, "update proposta")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// UpdateBatch flushes a batch of re-extracted proposals in one transaction.
func (r *PropostaRepository) UpdateBatch(ctx context.Context, batch []*entity.Proposta) error {
	if len(batch) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return common.WrapError(err, "begin tx")
	}
	defer tx.Rollback()

	for _, p := range batch {
		if err := r.update(ctx, tx, p); err != nil {
			return err
		}
	}
	return common.WrapError(tx.Commit(), "commit batch")
}

// UpdateObservacoes sets only the free-text observation field.
func (r *PropostaRepository) UpdateObservacoes(ctx context.Context, id uuid.UUID, observacoes *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE propostas SET observacoes = $1 WHERE id = $2`,
		observacoes, id.String())
	if err != nil {
		return common.WrapError(err, "update observacoes")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.ErrNotFound
	}
	return nil
}

// Delete removes the proposal; its items go with it through the cascade.
// It returns the stored source filename so the caller can remove the
// retained upload.
func (r *PropostaRepository) Delete(ctx context.Context, id uuid.UUID) (string, error) {
	var filename string
	err := r.db.QueryRowContext(ctx,
		`SELECT nome_arquivo_pdf FROM propostas WHERE id = $1`, id.String()).Scan(&filename)
	if err == sql.ErrNoRows {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", common.WrapError(err, "load filename")
	}
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM propostas WHERE id = $1`, id.String()); err != nil {
		return "", common.WrapError(err, "delete proposta")
	}
	return filename, nil
}

// ListCurrent returns exactly one proposal per base group, the one with the
// most recent import, with its version history attached newest-first.
// Records without a base group are always current.
func (r *PropostaRepository) ListCurrent(ctx context.Context, f ListFilter) ([]*entity.Proposta, error) {
	var (
		where []string
		args  []any
	)
	addLike := func(col, v string) {
		if v == "" {
			return
		}
		args = append(args, "%"+strings.ToLower(v)+"%")
		where = append(where, fmt.Sprintf("LOWER(p.%s) LIKE $%d", col, len(args)))
	}
	addLike("razao_social", f.RazaoSocial)
	addLike("cnpj", f.CNPJ)
	addLike("id_proposta", f.IDProposta)
	addLike("cod_vendedor", f.CodVendedor)

	where = append(where, `(p.id_proposta_base IS NULL OR p.id_proposta_base = '' OR p.id IN (
		SELECT p2.id FROM propostas p2
		WHERE p2.id_proposta_base = p.id_proposta_base
		ORDER BY p2.data_importacao DESC, p2.id DESC LIMIT 1))`)

	col, ok := orderColumns[f.OrderBy]
	if !ok {
		col = "id_proposta"
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}

	query := `SELECT ` + prefixColumns("p") + ` FROM propostas p WHERE ` +
		strings.Join(where, " AND ") +
		fmt.Sprintf(" ORDER BY p.%s %s", col, dir)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.WrapError(err, "list current")
	}
	defer rows.Close()

	var out []*entity.Proposta
	for rows.Next() {
		p, err := scanProposta(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan proposta")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, common.WrapError(err, "list current")
	}

	for _, p := range out {
		if err := r.attachItens(ctx, p); err != nil {
			return nil, err
		}
		if err := r.attachHistorico(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// attachHistorico loads the proposal's base-group siblings, ordered by
// version letter descending then import time descending.
func (r *PropostaRepository) attachHistorico(ctx context.Context, p *entity.Proposta) error {
	if p.IDPropostaBase == "" {
		return nil
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+propostaColumns+` FROM propostas
		WHERE id_proposta_base = $1 AND id <> $2`,
		p.IDPropostaBase, p.ID.String())
	if err != nil {
		return common.WrapError(err, "load historico")
	}
	defer rows.Close()

	var hist []*entity.Proposta
	for rows.Next() {
		h, err := scanProposta(rows)
		if err != nil {
			return common.WrapError(err, "scan historico")
		}
		hist = append(hist, h)
	}
	if err := rows.Err(); err != nil {
		return common.WrapError(err, "load historico")
	}

	sort.SliceStable(hist, func(i, j int) bool {
		oi, oj := identity.Ordinal(hist[i].Versao), identity.Ordinal(hist[j].Versao)
		if oi != oj {
			return oi > oj
		}
		return hist[i].DataImportacao.After(hist[j].DataImportacao)
	})
	p.Historico = hist
	return nil
}

// ListAll returns every proposal, items not attached. Used by the bulk
// re-extraction job and the spreadsheet export.
func (r *PropostaRepository) ListAll(ctx context.Context) ([]*entity.Proposta, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+propostaColumns+` FROM propostas ORDER BY id_proposta`)
	if err != nil {
		return nil, common.WrapError(err, "list all")
	}
	defer rows.Close()

	var out []*entity.Proposta
	for rows.Next() {
		p, err := scanProposta(rows)
		if err != nil {
			return nil, common.WrapError(err, "scan proposta")
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DashboardCounts summarizes the proposal base: one tally per observation
// status plus how many open proposals are past their due date.
type DashboardCounts struct {
	Total    int
	Ganhas   int
	Perdidas int
	EmAberto int
	Vencidas int
}

// Observation statuses a proposal moves through.
const (
	ObsGanha   = "Proposta ganha"
	ObsPerdida = "Proposta perdida"
)

// Dashboard tallies every proposal by observation status. Anything not
// marked won or lost counts as open. Due dates are dd/mm/yyyy text, so
// the past-due check runs here rather than in SQL.
func (r *PropostaRepository) Dashboard(ctx context.Context, now time.Time) (DashboardCounts, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT observacoes, data_vencimento FROM propostas`)
	if err != nil {
		return DashboardCounts{}, common.WrapError(err, "dashboard query")
	}
	defer rows.Close()

	var counts DashboardCounts
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	for rows.Next() {
		var obs, venc sql.NullString
		if err := rows.Scan(&obs, &venc); err != nil {
			return DashboardCounts{}, common.WrapError(err, "scan dashboard row")
		}
		counts.Total++
		switch strings.TrimSpace(obs.String) {
		case ObsGanha:
			counts.Ganhas++
			continue
		case ObsPerdida:
			counts.Perdidas++
			continue
		}
		counts.EmAberto++
		if venc.Valid {
			due, err := time.Parse("02/01/2006", strings.TrimSpace(venc.String))
			if err == nil && due.Before(today) {
				counts.Vencidas++
			}
		}
	}
	return counts, rows.Err()
}

// ListClientes returns the client registry ordered by name.
func (r *PropostaRepository) ListClientes(ctx context.Context) ([]*entity.Cliente, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nome, cnpj, cnpj_normalizado, data_criacao
		FROM clientes ORDER BY nome`)
	if err != nil {
		return nil, common.WrapError(err, "list clientes")
	}
	defer rows.Close()

	var out []*entity.Cliente
	for rows.Next() {
		c := &entity.Cliente{}
		var id string
		var criado int64
		if err := rows.Scan(&id, &c.Nome, &c.CNPJ, &c.CNPJNormalizado, &criado); err != nil {
			return nil, common.WrapError(err, "scan cliente")
		}
		c.ID, _ = uuid.Parse(id)
		c.DataCriacao = nanosToTime(criado)
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProposta(row rowScanner) (*entity.Proposta, error) {
	p := &entity.Proposta{}
	var (
		id         string
		base, tag  sql.NullString
		importedAt int64
	)
	err := row.Scan(&id, &p.IDProposta, &base, &tag, &p.RazaoSocial,
		&p.NomeFantasia, &p.DataEmissao, &p.Validade, &p.CNPJ, &p.Telefone,
		&p.Celular, &p.Email, &p.PessoaContato, &p.ValorTotal,
		&p.CodVendedor, &p.DataVencimento, &p.InstalacaoStatus,
		&p.QualificacoesStatus, &p.TreinamentoStatus, &p.GarantiaResumo,
		&p.GarantiaTexto, &p.Observacoes, &p.NomeArquivoPDF, &importedAt)
	if err != nil {
		return nil, err
	}
	p.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("malformed row id %q: %w", id, err)
	}
	p.IDPropostaBase = base.String
	p.Versao = tag.String
	p.DataImportacao = nanosToTime(importedAt)
	return p, nil
}

func prefixColumns(alias string) string {
	cols := strings.Split(propostaColumns, ",")
	for i, c := range cols {
		cols[i] = alias + "." + strings.TrimSpace(c)
	}
	return strings.Join(cols, ", ")
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
