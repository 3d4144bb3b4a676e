package extract

import "testing"

func TestAllPopulatesDocument(t *testing.T) {
	src := srcFrom(`ID da Proposta: BA.1234/25
17/JAN/25
Razão Social: ACME Equipamentos LTDA
CNPJ: 12.345.678/0001-99
Telefone: (11) 3333-4444
Validade: 15 DIAS`)

	doc := All(src, "123 A cod JM.pdf")

	if doc.IDProposta == nil || *doc.IDProposta != "BA.1234/25" {
		t.Errorf("id proposta = %v", doc.IDProposta)
	}
	if doc.DataEmissao == nil || *doc.DataEmissao != "17/01/2025" {
		t.Errorf("data emissao = %v", doc.DataEmissao)
	}
	if doc.Validade == nil || *doc.Validade != "15 DIAS" {
		t.Errorf("validade = %v", doc.Validade)
	}
	if doc.RazaoSocial == nil || *doc.RazaoSocial != "ACME Equipamentos LTDA" {
		t.Errorf("razao social = %v", doc.RazaoSocial)
	}
	if doc.CNPJ == nil || *doc.CNPJ != "12.345.678/0001-99" {
		t.Errorf("cnpj = %v", doc.CNPJ)
	}
	if doc.Telefone == nil || *doc.Telefone != "(11) 3333-4444" {
		t.Errorf("telefone = %v", doc.Telefone)
	}
	if doc.CodVendedor == nil || *doc.CodVendedor != "JM" {
		t.Errorf("cod vendedor = %v", doc.CodVendedor)
	}
	if doc.Email != nil {
		t.Errorf("email must be nil when absent, got %q", *doc.Email)
	}
	if doc.Celular != nil {
		t.Errorf("celular must be nil when absent, got %q", *doc.Celular)
	}
	if doc.InstalacaoStatus != StatusNaoInformado {
		t.Errorf("instalacao status = %q", doc.InstalacaoStatus)
	}
}

func TestAllDegradesToUnknown(t *testing.T) {
	doc := All(srcFrom("texto livre sem nenhum campo conhecido"), "proposta.pdf")

	if doc.IDProposta != nil {
		t.Errorf("id proposta = %q, want nil", *doc.IDProposta)
	}
	if doc.DataEmissao != nil || doc.Validade != nil || doc.CNPJ != nil {
		t.Error("absent fields must stay nil")
	}
	if doc.NomeFantasia == nil || *doc.NomeFantasia != StatusNaoInformado {
		t.Errorf("nome fantasia = %v, want the sentinel", doc.NomeFantasia)
	}
	if doc.Telefone == nil || *doc.Telefone != StatusNaoInformado {
		t.Errorf("telefone = %v, want the sentinel", doc.Telefone)
	}
	if doc.Itens != nil {
		t.Errorf("itens = %+v, want nil", doc.Itens)
	}
}
