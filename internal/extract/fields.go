package extract

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// strategy attempts to recover one field from the source. Strategies for a
// field are tried in order, most specific first; the first hit wins.
type strategy func(src *Source) (string, bool)

func firstMatch(src *Source, strategies []strategy) (string, bool) {
	for _, s := range strategies {
		if v, ok := s(src); ok {
			return v, true
		}
	}
	return "", false
}

// headerWindow returns the first n runes of the text. Header-only fields
// scan this window so stray matches deep in the document are ignored.
func headerWindow(src *Source, n int) string {
	r := []rune(src.Text)
	if len(r) <= n {
		return src.Text
	}
	return string(r[:n])
}

// findLine returns the index and content of the first line matching re.
func findLine(src *Source, re *regexp.Regexp) (int, string, bool) {
	for i, line := range src.Lines {
		if re.MatchString(line) {
			return i, line, true
		}
	}
	return 0, "", false
}

// labelOrNextLine implements the shared label heuristic: prefer content on
// the label's own line after the colon; otherwise take the following line,
// unless that line starts another known field (guard), which means the
// field was legitimately left blank.
func labelOrNextLine(src *Source, label, guard *regexp.Regexp) (string, bool) {
	idx, line, ok := findLine(src, label)
	if !ok {
		return "", false
	}
	if _, after, found := strings.Cut(line, ":"); found && strings.TrimSpace(after) != "" {
		return strings.TrimSpace(after), true
	}
	if idx+1 < len(src.Lines) {
		next := src.Lines[idx+1]
		if !guard.MatchString(next) {
			return next, true
		}
	}
	return "", false
}

var (
	idLabelRe = regexp.MustCompile(`(?i)ID\s+da\s+Proposta:\s*([A-Z]{2}\.[A-Z0-9-]{3,6}/\d{2,4})`)
	idShortRe = regexp.MustCompile(`(?i)ID\s+da\s+([A-Z]{2}\.[A-Z0-9-]{3,6}/\d{2,4})`)
	idBareRe  = regexp.MustCompile(`(?i)[A-Z]{2}\.[A-Z0-9-]{3,6}/\d{2,4}`)

	filenameCodeRe = regexp.MustCompile(`^\s*([0-9]{3,4}[A-Z]?(-[A-Z])?)`)
	altPrefixRe    = regexp.MustCompile(`(?i)MP-?BIOS`)

	issueDateRe = regexp.MustCompile(`\d{2}/[A-Z]{3}/\d{2,4}`)

	validadeSpelledRe = regexp.MustCompile(`(?i)(\d+)\s*\([A-Z\s]+\)\s*DIAS`)
	validadeLabelRe   = regexp.MustCompile(`(?i)Validade:\s*(\d+)\s*DIAS`)
	validadeDateRe    = regexp.MustCompile(`(?i)Validade:\s*(?:Até\s*)?(\d{2}[./]\d{2}[./]\d{4})`)

	razaoLabelRe   = regexp.MustCompile(`(?i)Raz[aã]o\s+Social:`)
	razaoGuardRe   = regexp.MustCompile(`(?i)(Nome Fantasia|CNPJ|Telefone|Contato|Inscri)`)
	emissaoLabelRe = regexp.MustCompile(`(?i)Emiss[aã]o:`)

	fantasiaLabelRe = regexp.MustCompile(`(?i)Nome Fantasia ou Local`)
	fantasiaGuardRe = regexp.MustCompile(`(?i)(CNPJ|Telefone|Contato|Inscrição)`)

	cnpjRes = []*regexp.Regexp{
		regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`),
		regexp.MustCompile(`\d{2}[.\-]\d{3}[.\-]\d{3}[/-]\d{4}[/-]\d{2}`),
	}

	telefoneLabelRe = regexp.MustCompile(`(?i)Telefone:`)
	telefoneRe      = regexp.MustCompile(`\(\s*\d{2}\s*\)\s*\d{4,5}-?\d{4}`)
	celularRe       = regexp.MustCompile(`Cel:\s*\((\d{2})\)\s*(\d{4,5}-?\d{4})`)
	emailRe         = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

	contatoLabelRe = regexp.MustCompile(`(?i)Contato:`)
	contatoGuardRe = regexp.MustCompile(`(?i)(Telefone|Cel:|E-?Mail)`)

	valorTotalRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)TOTAL\s+R\$\s+([\d.,]+)`),
		regexp.MustCompile(`(?i)VALOR\s+TOTAL\s+DA\s+PROPOSTA[:\s]*R?\$?\s*([\d.,]+)`),
	}

	codVendedorRe = regexp.MustCompile(`(?i)cod\s*([A-Za-z0-9]+)`)
)

// monthNames maps Portuguese month abbreviations to two-digit numbers.
var monthNames = map[string]string{
	"JAN": "01", "FEV": "02", "MAR": "03", "ABR": "04",
	"MAI": "05", "JUN": "06", "JUL": "07", "AGO": "08",
	"SET": "09", "OUT": "10", "NOV": "11", "DEZ": "12",
}

// IDProposta extracts the proposal identifier: labeled pattern, shortened
// label, bare occurrence anywhere, then a synthesized id from the source
// filename.
func IDProposta(src *Source, filename string) (string, bool) {
	return firstMatch(src, []strategy{
		func(s *Source) (string, bool) { return group1(idLabelRe, s.Text) },
		func(s *Source) (string, bool) { return group1(idShortRe, s.Text) },
		func(s *Source) (string, bool) {
			if m := idBareRe.FindString(s.Text); m != "" {
				return m, true
			}
			return "", false
		},
		func(s *Source) (string, bool) { return idFromFilename(s, filename) },
	})
}

// idFromFilename synthesizes an identifier from the filename's leading
// numeric code, a prefix inferred from the text, and the issue date year.
func idFromFilename(src *Source, filename string) (string, bool) {
	m := filenameCodeRe.FindStringSubmatch(filepath.Base(filename))
	if m == nil {
		return "", false
	}
	codigo := m[1]

	prefixo := "BA"
	if altPrefixRe.MatchString(src.Text) {
		prefixo = "MP"
	}

	if data, ok := DataEmissao(src); ok {
		parts := strings.Split(data, "/")
		ano := parts[len(parts)-1]
		if len(ano) >= 2 {
			return fmt.Sprintf("%s.%s/%s", prefixo, codigo, ano[len(ano)-2:]), true
		}
	}
	return fmt.Sprintf("%s.%s", prefixo, codigo), true
}

// DataEmissao extracts the issue date from the header region and
// normalizes dd/MMM/yy(yy) to dd/mm/yyyy. Unknown month names reject the
// match.
func DataEmissao(src *Source) (string, bool) {
	m := issueDateRe.FindString(headerWindow(src, 500))
	if m == "" {
		return "", false
	}
	parts := strings.Split(m, "/")
	month, ok := monthNames[parts[1]]
	if !ok {
		return "", false
	}
	year := parts[2]
	if len(year) == 2 {
		year = "20" + year
	}
	return fmt.Sprintf("%s/%s/%s", parts[0], month, year), true
}

// Validade extracts the validity expression. Three competing patterns, in
// order: spelled-out days, labeled days, labeled absolute date.
func Validade(src *Source) (string, bool) {
	return firstMatch(src, []strategy{
		func(s *Source) (string, bool) {
			if m, ok := group1InWindow(validadeSpelledRe, s); ok {
				return m + " DIAS", true
			}
			return "", false
		},
		func(s *Source) (string, bool) {
			if m, ok := group1InWindow(validadeLabelRe, s); ok {
				return m + " DIAS", true
			}
			return "", false
		},
		func(s *Source) (string, bool) {
			if m, ok := group1InWindow(validadeDateRe, s); ok {
				return strings.ReplaceAll(m, ".", "/"), true
			}
			return "", false
		},
	})
}

// RazaoSocial extracts the company legal name: labeled line first, then
// the line following the issue label.
func RazaoSocial(src *Source) (string, bool) {
	return firstMatch(src, []strategy{
		func(s *Source) (string, bool) { return labelOrNextLine(s, razaoLabelRe, razaoGuardRe) },
		func(s *Source) (string, bool) {
			idx, _, ok := findLine(s, emissaoLabelRe)
			if !ok || idx+1 >= len(s.Lines) {
				return "", false
			}
			next := s.Lines[idx+1]
			if razaoGuardRe.MatchString(next) {
				return "", false
			}
			return next, true
		},
	})
}

// NomeFantasia extracts the trade name. The sentinel is returned when the
// label is present but blank or absent entirely, matching how existing
// records were populated.
func NomeFantasia(src *Source) string {
	if v, ok := labelOrNextLine(src, fantasiaLabelRe, fantasiaGuardRe); ok {
		return v
	}
	return StatusNaoInformado
}

// CNPJ extracts the tax id anywhere in the text.
func CNPJ(src *Source) (string, bool) {
	for _, re := range cnpjRes {
		if m := re.FindString(src.Text); m != "" {
			return m, true
		}
	}
	return "", false
}

// Telefone extracts the landline: the labeled line first, then the first
// phone-shaped token anywhere.
func Telefone(src *Source) string {
	if _, line, ok := findLine(src, telefoneLabelRe); ok {
		if m := telefoneRe.FindString(line); m != "" {
			return tidyPhone(m)
		}
	}
	if m := telefoneRe.FindString(src.Text); m != "" {
		return tidyPhone(m)
	}
	return StatusNaoInformado
}

// Celular extracts the mobile number from its labeled pattern.
func Celular(src *Source) (string, bool) {
	if m := celularRe.FindStringSubmatch(src.Text); m != nil {
		return fmt.Sprintf("(%s) %s", m[1], m[2]), true
	}
	return "", false
}

// Email extracts the first address in the header region. The window keeps
// addresses in boilerplate later in the document out.
func Email(src *Source) (string, bool) {
	if m := emailRe.FindString(headerWindow(src, 1500)); m != "" {
		return m, true
	}
	return "", false
}

// PessoaContato extracts the contact person from the labeled line.
func PessoaContato(src *Source) (string, bool) {
	return labelOrNextLine(src, contatoLabelRe, contatoGuardRe)
}

// ValorTotal extracts the proposal grand total.
func ValorTotal(src *Source) (string, bool) {
	for _, re := range valorTotalRes {
		if m := re.FindStringSubmatch(src.Text); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// CodVendedor extracts the seller code token from the source filename.
func CodVendedor(filename string) (string, bool) {
	if m := codVendedorRe.FindStringSubmatch(filename); m != nil {
		return m[1], true
	}
	return "", false
}

func group1(re *regexp.Regexp, text string) (string, bool) {
	if m := re.FindStringSubmatch(text); m != nil {
		return m[1], true
	}
	return "", false
}

func group1InWindow(re *regexp.Regexp, src *Source) (string, bool) {
	return group1(re, headerWindow(src, 500))
}

func tidyPhone(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "  ", " "))
}
