package server

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/mpereira356/propostas-system/internal/entity"
)

// PropostaResponse is the wire shape of one proposal record.
type PropostaResponse struct {
	ID             string  `json:"id"`
	IDProposta     string  `json:"id_proposta"`
	IDPropostaBase string  `json:"id_proposta_base,omitempty"`
	Versao         string  `json:"versao,omitempty"`
	EhMaisRecente  bool    `json:"eh_mais_recente"`
	RazaoSocial    *string `json:"razao_social"`
	NomeFantasia   *string `json:"nome_fantasia"`
	DataEmissao    *string `json:"data_emissao"`
	Validade       *string `json:"validade"`
	CNPJ           *string `json:"cnpj"`
	Telefone       *string `json:"telefone"`
	Celular        *string `json:"celular"`
	Email          *string `json:"email"`
	PessoaContato  *string `json:"pessoa_contato"`
	ValorTotal     *string `json:"valor_total"`
	CodVendedor    *string `json:"cod_vendedor"`
	DataVencimento *string `json:"data_vencimento"`

	InstalacaoStatus    *string `json:"instalacao_status"`
	QualificacoesStatus *string `json:"qualificacoes_status"`
	TreinamentoStatus   *string `json:"treinamento_status"`
	GarantiaResumo      *string `json:"garantia_resumo"`
	GarantiaTexto       *string `json:"garantia_texto"`

	Observacoes    *string `json:"observacoes"`
	NomeArquivoPDF string  `json:"nome_arquivo_pdf"`
	DataImportacao string  `json:"data_importacao"`

	Itens     []ItemResponse     `json:"itens"`
	Historico []PropostaResponse `json:"historico,omitempty"`
}

// ItemResponse is one line item on the wire.
type ItemResponse struct {
	Numero        string `json:"numero"`
	Descricao     string `json:"descricao"`
	Quantidade    string `json:"quantidade"`
	ValorUnitario string `json:"valor_unitario"`
	ValorTotal    string `json:"valor_total"`
}

// ClienteResponse is one registry client on the wire.
type ClienteResponse struct {
	ID          string `json:"id"`
	Nome        string `json:"nome"`
	CNPJ        string `json:"cnpj"`
	DataCriacao string `json:"data_criacao"`
}

func toPropostaResponse(p *entity.Proposta, current bool) PropostaResponse {
	resp := PropostaResponse{
		ID:             p.ID.String(),
		IDProposta:     p.IDProposta,
		IDPropostaBase: p.IDPropostaBase,
		Versao:         p.Versao,
		EhMaisRecente:  current,

		RazaoSocial:    p.RazaoSocial,
		NomeFantasia:   p.NomeFantasia,
		DataEmissao:    p.DataEmissao,
		Validade:       p.Validade,
		CNPJ:           p.CNPJ,
		Telefone:       p.Telefone,
		Celular:        p.Celular,
		Email:          p.Email,
		PessoaContato:  p.PessoaContato,
		ValorTotal:     p.ValorTotal,
		CodVendedor:    p.CodVendedor,
		DataVencimento: p.DataVencimento,

		InstalacaoStatus:    p.InstalacaoStatus,
		QualificacoesStatus: p.QualificacoesStatus,
		TreinamentoStatus:   p.TreinamentoStatus,
		GarantiaResumo:      p.GarantiaResumo,
		GarantiaTexto:       p.GarantiaTexto,

		Observacoes:    p.Observacoes,
		NomeArquivoPDF: p.NomeArquivoPDF,
		DataImportacao: p.DataImportacao.Format(time.RFC3339),

		Itens: make([]ItemResponse, 0, len(p.Itens)),
	}
	for _, item := range p.Itens {
		resp.Itens = append(resp.Itens, ItemResponse{
			Numero:        item.Numero,
			Descricao:     item.Descricao,
			Quantidade:    item.Quantidade,
			ValorUnitario: item.ValorUnitario,
			ValorTotal:    item.ValorTotal,
		})
	}
	for _, h := range p.Historico {
		resp.Historico = append(resp.Historico, toPropostaResponse(h, false))
	}
	return resp
}

func toClienteResponse(c *entity.Cliente) ClienteResponse {
	return ClienteResponse{
		ID:          c.ID.String(),
		Nome:        c.Nome,
		CNPJ:        c.CNPJ,
		DataCriacao: c.DataCriacao.Format(time.RFC3339),
	}
}

// PropostaUpdateRequest is the manual-edit payload. Every field is
// optional; only non-empty submitted values overwrite, so an edit can
// never blank a populated field.
type PropostaUpdateRequest struct {
	RazaoSocial    fieldPatch `json:"razao_social"`
	NomeFantasia   fieldPatch `json:"nome_fantasia"`
	DataEmissao    fieldPatch `json:"data_emissao"`
	Validade       fieldPatch `json:"validade"`
	CNPJ           fieldPatch `json:"cnpj"`
	Telefone       fieldPatch `json:"telefone"`
	Celular        fieldPatch `json:"celular"`
	Email          fieldPatch `json:"email"`
	PessoaContato  fieldPatch `json:"pessoa_contato"`
	ValorTotal     fieldPatch `json:"valor_total"`
	CodVendedor    fieldPatch `json:"cod_vendedor"`
	DataVencimento fieldPatch `json:"data_vencimento"`

	InstalacaoStatus    fieldPatch `json:"instalacao_status"`
	QualificacoesStatus fieldPatch `json:"qualificacoes_status"`
	TreinamentoStatus   fieldPatch `json:"treinamento_status"`
	GarantiaResumo      fieldPatch `json:"garantia_resumo"`
	GarantiaTexto       fieldPatch `json:"garantia_texto"`

	Observacoes fieldPatch `json:"observacoes"`
}

// fieldPatch distinguishes "absent", "null" and "set" in the update body.
// Only the set-and-non-empty case applies; null and "" are no-ops.
type fieldPatch struct {
	Set   bool
	Value *string
}

func (f *fieldPatch) UnmarshalJSON(data []byte) error {
	f.Set = true
	if string(data) == "null" {
		f.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f.Value = &s
	return nil
}

func (f fieldPatch) applyTo(dst **string) {
	if !f.Set || f.Value == nil || strings.TrimSpace(*f.Value) == "" {
		return
	}
	*dst = f.Value
}
