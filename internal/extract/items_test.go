package extract

import "testing"

func TestItensPriceAnchoredRows(t *testing.T) {
	src := srcFrom(`CONFIGURAÇÃO E VALORES DOS ITENS COTADOS
It. Descricao Qt Unitario Sub Total
ITEM 01 Autoclave Vertical 75 litros
R$ 10.000,00 R$ 20.000,00
01 02
Bomba de vácuo para autoclave
R$ 500,00 R$ 500,00
VALOR TOTAL DA PROPOSTA R$ 20.500,00`)

	itens := Itens(src)
	if len(itens) != 2 {
		t.Fatalf("got %d items, want 2: %+v", len(itens), itens)
	}

	first := itens[0]
	if first.Numero != "01" {
		t.Errorf("numero = %q, want 01", first.Numero)
	}
	if first.Quantidade != "2" {
		t.Errorf("quantidade = %q, want 2 (leading zero trimmed)", first.Quantidade)
	}
	if first.ValorUnitario != "10.000,00" || first.ValorTotal != "20.000,00" {
		t.Errorf("prices = %q / %q", first.ValorUnitario, first.ValorTotal)
	}
	if first.Descricao != "ITEM 01 Autoclave Vertical 75 litros" {
		t.Errorf("descricao = %q", first.Descricao)
	}

	second := itens[1]
	if second.Numero != "02" {
		t.Errorf("fallback numero = %q, want 02", second.Numero)
	}
	if second.Quantidade != "1" {
		t.Errorf("default quantidade = %q, want 1", second.Quantidade)
	}
	if second.Descricao != "Bomba de vácuo para autoclave" {
		t.Errorf("descricao = %q", second.Descricao)
	}
}

func TestItensDescriptionOnPricedLine(t *testing.T) {
	src := srcFrom(`ITENS COTADOS
Estufa esterilizadora R$ 2.000,00 R$ 2.000,00
TOTAL DA PROPOSTA`)

	itens := Itens(src)
	if len(itens) != 1 {
		t.Fatalf("got %d items, want 1", len(itens))
	}
	if itens[0].Descricao != "Estufa esterilizadora" {
		t.Errorf("descricao = %q", itens[0].Descricao)
	}
	if itens[0].Numero != "01" || itens[0].Quantidade != "1" {
		t.Errorf("defaults: numero=%q quantidade=%q", itens[0].Numero, itens[0].Quantidade)
	}
}

func TestItensNoTable(t *testing.T) {
	if itens := Itens(srcFrom("proposta sem tabela de itens")); itens != nil {
		t.Errorf("got %+v, want nil", itens)
	}
}

func TestItensTableClosedByHeading(t *testing.T) {
	src := srcFrom(`ITENS COTADOS
Item fora de alcance
2.13 INSTALAÇÃO
Equipamento perdido R$ 1,00 R$ 1,00`)

	if itens := Itens(src); len(itens) != 0 {
		t.Errorf("rows after the closing heading must be ignored: %+v", itens)
	}
}
