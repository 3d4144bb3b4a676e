package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// headingRe matches a numbered heading line ("2.13 INSTALAÇÃO ...").
// Numbered-heading detection is the section boundary algorithm shared by
// every section type.
var headingRe = regexp.MustCompile(`^\d+(?:\.\d+)?\s+`)

var (
	negativeInclusoRe = regexp.MustCompile(`(?i)n[aã]o\s+inclus`)
	positiveInclusoRe = regexp.MustCompile(`(?i)inclus`)

	garantiaRe      = regexp.MustCompile(`(?i)GARANTIA`)
	garantiaPrazoRe = regexp.MustCompile(`(?i)Para\s+(.+?)\s+(\d{1,3})\s*(?:\([A-ZÀ-Ü\s]+\))?\s*(MESES|MÊS|DIAS|DIA)`)
	spaceRunRe      = regexp.MustCompile(`\s+`)
)

// qualificacaoPartes are the qualification sub-tokens, in the order they
// are reported regardless of where they appear in the section.
var qualificacaoPartes = []string{"QI", "QO", "QD"}

// FindSection locates the section whose numbered heading contains keyword
// and returns its lines (heading included) up to the next numbered heading
// or end of document.
func FindSection(src *Source, keyword string) ([]string, bool) {
	keywordRe := regexp.MustCompile(`(?i)^\d+(?:\.\d+)?\s+.*` + regexp.QuoteMeta(keyword))
	start := -1
	for i, line := range src.Lines {
		if keywordRe.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, false
	}
	end := len(src.Lines)
	for j := start + 1; j < len(src.Lines); j++ {
		if headingRe.MatchString(src.Lines[j]) {
			end = j
			break
		}
	}
	return src.Lines[start:end], true
}

// ClassifyIncluso classifies a section body. The negative check must run
// first: the positive substring is contained in the negative phrase.
func ClassifyIncluso(sectionText string) string {
	if sectionText == "" {
		return StatusNaoInformado
	}
	if negativeInclusoRe.MatchString(sectionText) {
		return StatusNaoIncluso
	}
	if positiveInclusoRe.MatchString(sectionText) {
		return StatusIncluso
	}
	return StatusNaoInformado
}

// Servicos extracts the installation, qualification and training statuses.
func Servicos(src *Source) (instalacao, qualificacoes, treinamento string) {
	instalacao = sectionStatus(src, "INSTALAÇÃO", "INSTALACAO")
	treinamento = sectionStatus(src, "TREINAMENTO")

	qualLines, ok := findSectionAny(src, "QUALIFICAÇÕES", "QUALIFICACOES")
	qualText := strings.Join(qualLines, "\n")
	qualificacoes = ClassifyIncluso(qualText)
	if ok && qualificacoes == StatusIncluso {
		var partes []string
		for _, parte := range qualificacaoPartes {
			re := regexp.MustCompile(`(?i)\b` + parte + `\b`)
			if re.MatchString(qualText) {
				partes = append(partes, parte)
			}
		}
		if len(partes) > 0 {
			qualificacoes = fmt.Sprintf("%s (%s)", qualificacoes, strings.Join(partes, "/"))
		}
	}
	return instalacao, qualificacoes, treinamento
}

func sectionStatus(src *Source, keywords ...string) string {
	lines, _ := findSectionAny(src, keywords...)
	return ClassifyIncluso(strings.Join(lines, "\n"))
}

func findSectionAny(src *Source, keywords ...string) ([]string, bool) {
	for _, kw := range keywords {
		if lines, ok := FindSection(src, kw); ok {
			return lines, true
		}
	}
	return nil, false
}

// Garantia extracts the warranty section raw text and a one-line-per-clause
// summary. The summary is nil, not empty, when no clause matches; the raw
// text is kept either way.
func Garantia(src *Source) (resumo, texto *string) {
	start := -1
	for i, line := range src.Lines {
		if garantiaRe.MatchString(line) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, nil
	}
	end := len(src.Lines)
	for j := start + 1; j < len(src.Lines); j++ {
		if headingRe.MatchString(src.Lines[j]) {
			end = j
			break
		}
	}
	body := src.Lines[start:end]
	texto = ptr(strings.Join(body, "\n"))

	// Collapse line breaks so units wrapped onto their own line still match.
	compact := strings.TrimSpace(spaceRunRe.ReplaceAllString(strings.Join(body, " "), " "))

	var prazos []string
	for _, m := range garantiaPrazoRe.FindAllStringSubmatch(compact, -1) {
		descricao := strings.TrimSuffix(strings.TrimSpace(m[1]), ":")
		prazos = append(prazos, fmt.Sprintf("Para %s: %s %s", descricao, m[2], strings.ToUpper(m[3])))
	}
	if len(prazos) > 0 {
		resumo = ptr(strings.Join(prazos, "\n"))
	}
	return resumo, texto
}
