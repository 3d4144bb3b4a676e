package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are executed one by one: the pgx stdlib driver uses the
// extended protocol, which rejects multi-statement Exec.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS propostas (
		id                   TEXT PRIMARY KEY,
		id_proposta          TEXT NOT NULL UNIQUE,
		id_proposta_base     TEXT,
		versao               TEXT,
		razao_social         TEXT,
		nome_fantasia        TEXT,
		data_emissao         TEXT,
		validade             TEXT,
		cnpj                 TEXT,
		telefone             TEXT,
		celular              TEXT,
		email                TEXT,
		pessoa_contato       TEXT,
		valor_total          TEXT,
		cod_vendedor         TEXT,
		data_vencimento      TEXT,
		instalacao_status    TEXT,
		qualificacoes_status TEXT,
		treinamento_status   TEXT,
		garantia_resumo      TEXT,
		garantia_texto       TEXT,
		observacoes          TEXT,
		nome_arquivo_pdf     TEXT NOT NULL UNIQUE,
		data_importacao      BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_propostas_base ON propostas (id_proposta_base)`,
	`CREATE INDEX IF NOT EXISTS idx_propostas_cnpj ON propostas (cnpj)`,
	`CREATE TABLE IF NOT EXISTS itens_proposta (
		id             TEXT PRIMARY KEY,
		proposta_id    TEXT NOT NULL REFERENCES propostas (id) ON DELETE CASCADE,
		numero         TEXT,
		descricao      TEXT,
		quantidade     TEXT,
		valor_unitario TEXT,
		valor_total    TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_itens_proposta ON itens_proposta (proposta_id)`,
	`CREATE TABLE IF NOT EXISTS clientes (
		id               TEXT PRIMARY KEY,
		nome             TEXT NOT NULL,
		cnpj             TEXT NOT NULL UNIQUE,
		cnpj_normalizado TEXT,
		data_criacao     BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_clientes_cnpj_norm ON clientes (cnpj_normalizado)`,
}

// EnsureSchema creates the tables and indexes if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
