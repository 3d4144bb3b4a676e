// Package entity holds the persisted record types.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Proposta is one persisted proposal version. IDProposta is globally
// unique; IDPropostaBase groups every re-issue of the same underlying
// proposal. Optional extracted fields are pointers so "never extracted"
// stays distinct from "extracted blank".
type Proposta struct {
	ID             uuid.UUID
	IDProposta     string
	IDPropostaBase string
	Versao         string

	RazaoSocial   *string
	NomeFantasia  *string
	DataEmissao   *string
	Validade      *string
	CNPJ          *string
	Telefone      *string
	Celular       *string
	Email         *string
	PessoaContato *string
	ValorTotal    *string
	CodVendedor   *string

	DataVencimento *string // dd/mm/yyyy

	InstalacaoStatus    *string
	QualificacoesStatus *string
	TreinamentoStatus   *string
	GarantiaResumo      *string
	GarantiaTexto       *string

	Observacoes *string

	NomeArquivoPDF string
	DataImportacao time.Time

	// Filled by listing queries, not persisted as columns.
	Itens     []*ItemProposta
	Historico []*Proposta
}

// ItemProposta is one priced row of a proposal's item table.
type ItemProposta struct {
	ID            uuid.UUID
	PropostaID    uuid.UUID
	Numero        string
	Descricao     string
	Quantidade    string
	ValorUnitario string
	ValorTotal    string
}

// Cliente is a customer implied by an ingested proposal's tax id.
type Cliente struct {
	ID              uuid.UUID
	Nome            string
	CNPJ            string
	CNPJNormalizado string
	DataCriacao     time.Time
}
