package extract

// NewSource builds a Source from the adapter's full text and line sequence.
func NewSource(text string, lines []string) *Source {
	return &Source{Text: text, Lines: lines}
}

// All runs every extractor over the source. Individual failures degrade to
// unknown; the caller always gets a Document back.
func All(src *Source, filename string) *Document {
	doc := &Document{}

	doc.IDProposta = opt(IDProposta(src, filename))
	doc.DataEmissao = opt(DataEmissao(src))
	doc.Validade = opt(Validade(src))
	doc.RazaoSocial = opt(RazaoSocial(src))
	doc.NomeFantasia = ptr(NomeFantasia(src))
	doc.CNPJ = opt(CNPJ(src))
	doc.Telefone = ptr(Telefone(src))
	doc.Celular = opt(Celular(src))
	doc.Email = opt(Email(src))
	doc.PessoaContato = opt(PessoaContato(src))
	doc.ValorTotal = opt(ValorTotal(src))
	doc.CodVendedor = opt(CodVendedor(filename))

	doc.Itens = Itens(src)
	doc.InstalacaoStatus, doc.QualificacoesStatus, doc.TreinamentoStatus = Servicos(src)
	doc.GarantiaResumo, doc.GarantiaTexto = Garantia(src)

	return doc
}
