package extract

import (
	"strings"
	"testing"
)

const corpoSecoes = `PROPOSTA COMERCIAL
2.13 INSTALAÇÃO DO EQUIPAMENTO
Está incluso no fornecimento
2.14 TREINAMENTO OPERACIONAL
Não incluso neste fornecimento
2.15 QUALIFICAÇÕES
Incluso QD e QI conforme protocolo
3 GARANTIA
Para equipamentos 12 (DOZE) MESES
Para acessórios: 90 DIAS
4 CONDIÇÕES DE PAGAMENTO
pagamento em 30 dias`

func TestFindSectionBoundaries(t *testing.T) {
	src := srcFrom(corpoSecoes)
	lines, ok := FindSection(src, "TREINAMENTO")
	if !ok {
		t.Fatal("section not found")
	}
	if len(lines) != 2 || lines[0] != "2.14 TREINAMENTO OPERACIONAL" {
		t.Errorf("wrong section slice: %q", lines)
	}
}

func TestFindSectionMissing(t *testing.T) {
	if _, ok := FindSection(srcFrom("texto sem seções numeradas"), "INSTALAÇÃO"); ok {
		t.Error("must not find a section in unnumbered text")
	}
}

func TestClassifyIncluso(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Está incluso no fornecimento", StatusIncluso},
		{"Não incluso neste fornecimento", StatusNaoIncluso},
		{"NÃO INCLUSO", StatusNaoIncluso},
		{"nada a declarar", StatusNaoInformado},
		{"", StatusNaoInformado},
	}
	for _, tt := range tests {
		if got := ClassifyIncluso(tt.text); got != tt.want {
			t.Errorf("ClassifyIncluso(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

// The negative phrase contains the positive substring, so ordering of the
// checks is observable behavior.
func TestClassifyInclusoNegativeWins(t *testing.T) {
	if got := ClassifyIncluso("treinamento não incluso"); got != StatusNaoIncluso {
		t.Errorf("got %q, want %q", got, StatusNaoIncluso)
	}
}

func TestServicos(t *testing.T) {
	instalacao, qualificacoes, treinamento := Servicos(srcFrom(corpoSecoes))
	if instalacao != StatusIncluso {
		t.Errorf("instalacao = %q", instalacao)
	}
	if treinamento != StatusNaoIncluso {
		t.Errorf("treinamento = %q", treinamento)
	}
	if qualificacoes != "Incluso (QI/QD)" {
		t.Errorf("qualificacoes = %q, want Incluso (QI/QD)", qualificacoes)
	}
}

func TestServicosMissingSections(t *testing.T) {
	instalacao, qualificacoes, treinamento := Servicos(srcFrom("documento sem seções"))
	for _, got := range []string{instalacao, qualificacoes, treinamento} {
		if got != StatusNaoInformado {
			t.Errorf("got %q, want %q", got, StatusNaoInformado)
		}
	}
}

func TestGarantiaClauses(t *testing.T) {
	resumo, texto := Garantia(srcFrom(corpoSecoes))
	if texto == nil || !strings.Contains(*texto, "Para equipamentos") {
		t.Fatalf("texto = %v", texto)
	}
	if resumo == nil {
		t.Fatal("expected a clause summary")
	}
	want := "Para equipamentos: 12 MESES\nPara acessórios: 90 DIAS"
	if *resumo != want {
		t.Errorf("resumo = %q, want %q", *resumo, want)
	}
}

func TestGarantiaWithoutClauses(t *testing.T) {
	resumo, texto := Garantia(srcFrom("3 GARANTIA\nconforme contrato\n4 PAGAMENTO"))
	if texto == nil {
		t.Fatal("raw section text must be kept")
	}
	if resumo != nil {
		t.Errorf("resumo must be nil without clauses, got %q", *resumo)
	}
}

func TestGarantiaAbsent(t *testing.T) {
	resumo, texto := Garantia(srcFrom("documento sem a seção"))
	if resumo != nil || texto != nil {
		t.Error("both outputs must be nil when the section is missing")
	}
}
