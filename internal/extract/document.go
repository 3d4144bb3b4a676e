// Package extract recovers structured proposal data from the normalized
// line sequence produced by the text extraction adapter. Every extractor
// degrades to "unknown" on malformed input; nothing in this package
// returns an error or panics mid-document.
package extract

// Status values for inclusion/exclusion sections. StatusNaoInformado is
// also the sentinel the re-extraction merge treats as non-informative.
const (
	StatusIncluso      = "Incluso"
	StatusNaoIncluso   = "Não incluso"
	StatusNaoInformado = "Não informado"
)

// Source is the text of a single proposal document. Lines are trimmed and
// non-empty, in document order.
type Source struct {
	Text  string
	Lines []string
}

// Document carries everything recovered from one proposal. Nil pointers
// mean the field could not be extracted; they are distinct from fields
// explicitly present but blank.
type Document struct {
	IDProposta    *string
	DataEmissao   *string // dd/mm/yyyy
	Validade      *string
	RazaoSocial   *string
	NomeFantasia  *string
	CNPJ          *string
	Telefone      *string
	Celular       *string
	Email         *string
	PessoaContato *string
	ValorTotal    *string
	CodVendedor   *string

	Itens []LineItem

	InstalacaoStatus    string
	QualificacoesStatus string
	TreinamentoStatus   string

	GarantiaResumo *string
	GarantiaTexto  *string
}

// LineItem is one priced row of the proposal's item table. Monetary values
// stay in source locale format (comma decimals); coercion to numbers is a
// presentation concern.
type LineItem struct {
	Numero        string // 1-based, zero-padded to 2 digits
	Descricao     string
	Quantidade    string // "1" when no quantity column was isolated
	ValorUnitario string
	ValorTotal    string
}

func ptr(s string) *string { return &s }

// opt folds an extractor's (value, ok) result into an optional field.
func opt(v string, ok bool) *string {
	if ok {
		return &v
	}
	return nil
}
