package extract

import (
	"strings"
	"testing"
)

func srcFrom(text string) *Source {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return NewSource(text, lines)
}

func TestDataEmissaoNormalizesPortugueseMonth(t *testing.T) {
	src := srcFrom("PROPOSTA COMERCIAL\n17/JAN/25\nRazão Social: ACME LTDA")
	got, ok := DataEmissao(src)
	if !ok {
		t.Fatal("expected a date")
	}
	if got != "17/01/2025" {
		t.Errorf("got %q, want 17/01/2025", got)
	}
}

func TestDataEmissaoFourDigitYear(t *testing.T) {
	src := srcFrom("Emitido em 03/DEZ/2024")
	got, ok := DataEmissao(src)
	if !ok || got != "03/12/2024" {
		t.Errorf("got %q ok=%v, want 03/12/2024", got, ok)
	}
}

func TestDataEmissaoRejectsUnknownMonth(t *testing.T) {
	src := srcFrom("17/XYZ/25")
	if _, ok := DataEmissao(src); ok {
		t.Error("unknown month abbreviation must not produce a date")
	}
}

func TestDataEmissaoIgnoresDatesOutsideHeader(t *testing.T) {
	src := srcFrom(strings.Repeat("preenchimento de página com texto irrelevante\n", 20) + "17/JAN/25")
	if _, ok := DataEmissao(src); ok {
		t.Error("date deep in the document must be ignored")
	}
}

func TestValidadeForms(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Proposta válida por 30 (TRINTA) DIAS", "30 DIAS"},
		{"Validade: 15 DIAS", "15 DIAS"},
		{"Validade: Até 10.02.2025", "10/02/2025"},
		{"Validade: 28/02/2025", "28/02/2025"},
	}
	for _, tt := range tests {
		got, ok := Validade(srcFrom(tt.text))
		if !ok || got != tt.want {
			t.Errorf("Validade(%q) = %q ok=%v, want %q", tt.text, got, ok, tt.want)
		}
	}
}

func TestIDPropostaLabeled(t *testing.T) {
	src := srcFrom("ID da Proposta: BA.1234/25\n17/JAN/25")
	got, ok := IDProposta(src, "qualquer.pdf")
	if !ok || got != "BA.1234/25" {
		t.Errorf("got %q ok=%v, want BA.1234/25", got, ok)
	}
}

func TestIDPropostaBareOccurrence(t *testing.T) {
	src := srcFrom("Referente à proposta MP.987/24 enviada anteriormente")
	got, ok := IDProposta(src, "qualquer.pdf")
	if !ok || got != "MP.987/24" {
		t.Errorf("got %q ok=%v, want MP.987/24", got, ok)
	}
}

func TestIDPropostaSynthesizedFromFilename(t *testing.T) {
	src := srcFrom("PROPOSTA COMERCIAL\n17/JAN/25")
	got, ok := IDProposta(src, "123 REV A.pdf")
	if !ok || got != "BA.123/25" {
		t.Errorf("got %q ok=%v, want BA.123/25", got, ok)
	}
}

func TestIDPropostaSynthesizedAltPrefix(t *testing.T) {
	src := srcFrom("Linha MP-BIOS completa\n17/JAN/25")
	got, ok := IDProposta(src, "456.pdf")
	if !ok || got != "MP.456/25" {
		t.Errorf("got %q ok=%v, want MP.456/25", got, ok)
	}
}

func TestIDPropostaSynthesizedWithoutDateOmitsYear(t *testing.T) {
	src := srcFrom("PROPOSTA COMERCIAL sem data alguma")
	got, ok := IDProposta(src, "789 B.pdf")
	if !ok || got != "BA.789" {
		t.Errorf("got %q ok=%v, want BA.789", got, ok)
	}
}

func TestRazaoSocialOnLabelLine(t *testing.T) {
	src := srcFrom("Razão Social: ACME Equipamentos LTDA\nCNPJ: 12.345.678/0001-99")
	got, ok := RazaoSocial(src)
	if !ok || got != "ACME Equipamentos LTDA" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestRazaoSocialOnNextLine(t *testing.T) {
	src := srcFrom("Razão Social:\nACME Equipamentos LTDA\nCNPJ: 12.345.678/0001-99")
	got, ok := RazaoSocial(src)
	if !ok || got != "ACME Equipamentos LTDA" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestRazaoSocialGuardedNextLine(t *testing.T) {
	src := srcFrom("Razão Social:\nCNPJ: 12.345.678/0001-99")
	if got, ok := RazaoSocial(src); ok {
		t.Errorf("guard line must not become the company name, got %q", got)
	}
}

func TestNomeFantasiaDefaultsToSentinel(t *testing.T) {
	if got := NomeFantasia(srcFrom("documento sem o campo")); got != StatusNaoInformado {
		t.Errorf("got %q, want %q", got, StatusNaoInformado)
	}
}

func TestCNPJ(t *testing.T) {
	src := srcFrom("CNPJ: 12.345.678/0001-99 Inscrição Estadual: isenta")
	got, ok := CNPJ(src)
	if !ok || got != "12.345.678/0001-99" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestTelefonePrefersLabeledLine(t *testing.T) {
	src := srcFrom("(99) 1111-2222 fax\nTelefone: (11) 3333-4444")
	if got := Telefone(src); got != "(11) 3333-4444" {
		t.Errorf("got %q, want the labeled number", got)
	}
}

func TestTelefoneSentinelWhenAbsent(t *testing.T) {
	if got := Telefone(srcFrom("sem contatos")); got != StatusNaoInformado {
		t.Errorf("got %q, want %q", got, StatusNaoInformado)
	}
}

func TestCelular(t *testing.T) {
	got, ok := Celular(srcFrom("Cel: (11) 98765-4321"))
	if !ok || got != "(11) 98765-4321" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestEmailWindowExcludesBoilerplate(t *testing.T) {
	header := "Contato: vendas@acme.com.br\n"
	boiler := strings.Repeat("condições gerais de fornecimento e garantia aplicáveis\n", 60)
	src := srcFrom(header + boiler + "suporte@fabricante.com")
	got, ok := Email(src)
	if !ok || got != "vendas@acme.com.br" {
		t.Errorf("got %q ok=%v", got, ok)
	}

	src = srcFrom(boiler + "suporte@fabricante.com")
	if _, ok := Email(src); ok {
		t.Error("address outside the header window must be ignored")
	}
}

func TestPessoaContato(t *testing.T) {
	got, ok := PessoaContato(srcFrom("Contato: João da Silva\nTelefone: (11) 3333-4444"))
	if !ok || got != "João da Silva" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestLabelMatchingIgnoresCase(t *testing.T) {
	if got := Telefone(srcFrom("TELEFONE: (11) 3333-4444")); got != "(11) 3333-4444" {
		t.Errorf("telefone = %q", got)
	}
	got, ok := PessoaContato(srcFrom("CONTATO: Maria Souza\ntelefone: (11) 3333-4444"))
	if !ok || got != "Maria Souza" {
		t.Errorf("contato = %q ok=%v", got, ok)
	}
	if got := NomeFantasia(srcFrom("NOME FANTASIA OU LOCAL: Hospital Central")); got != "Hospital Central" {
		t.Errorf("nome fantasia = %q", got)
	}
}

func TestValorTotal(t *testing.T) {
	got, ok := ValorTotal(srcFrom("TOTAL R$ 1.234,56"))
	if !ok || got != "1.234,56" {
		t.Errorf("got %q ok=%v", got, ok)
	}
}

func TestCodVendedor(t *testing.T) {
	got, ok := CodVendedor("123 REV A cod JM.pdf")
	if !ok || got != "JM" {
		t.Errorf("got %q ok=%v, want JM", got, ok)
	}
	if _, ok := CodVendedor("123 REV A.pdf"); ok {
		t.Error("filename without a seller code must not match")
	}
}
