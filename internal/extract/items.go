package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var tableStartRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)It\.\s+Descricao\s+Qt`),
	regexp.MustCompile(`(?i)CONFIGUR.*VALORES.*ITENS`),
	regexp.MustCompile(`(?i)ITENS\s+COTAD`),
	regexp.MustCompile(`(?i)DESCRICAO\s+DO\s+ITEM`),
}

var tableEndRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)VALOR\s+TOTAL\s+DA\s+PROPOSTA`),
	regexp.MustCompile(`(?i)TOTAL\s+DA\s+PROPOSTA`),
	regexp.MustCompile(`(?i)^TOTAL\s+R\$`),
}

var (
	priceRe        = regexp.MustCompile(`R\$\s*([\d.,]+)\s+R\$\s*([\d.,]+)`)
	qtyLineRe      = regexp.MustCompile(`^(\d{1,3})\s+(\d{1,3})$`)
	itemNumRe      = regexp.MustCompile(`(?i)ITEM\s*(\d{1,3})`)
	headerIgnoreRe = regexp.MustCompile(`(?i)(It\.\s+Descricao|Qt|Unitario|Sub\s*Total|em\s*R\$|\(em\s*R\$\))`)
	continuationRe = regexp.MustCompile(`^\d+\.\d+`)
)

// Itens parses the variable-length item table. A line carrying the
// "unit price / line total" pair is the only reliable per-row anchor in
// this document family; numbering and quantity are recovered
// opportunistically around it, with safe defaults, so a malformed row
// yields a less complete item rather than a parse failure.
func Itens(src *Source) []LineItem {
	if len(src.Lines) == 0 {
		return nil
	}

	start := findFirstLine(src.Lines, tableStartRes)
	if start < 0 {
		return nil
	}

	end := findFirstLine(src.Lines, tableEndRes)
	if end < 0 {
		end = len(src.Lines)
	}
	// A numbered heading after the table start also closes the table. Bare
	// "nn nn" number/quantity lines look like headings and must not.
	for j := start + 1; j < len(src.Lines); j++ {
		if headingRe.MatchString(src.Lines[j]) && !qtyLineRe.MatchString(src.Lines[j]) {
			if j < end {
				end = j
			}
			break
		}
	}

	var itens []LineItem
	var buffer []string
	fallbackNum := 1

	for i := start + 1; i < end; i++ {
		line := src.Lines[i]

		if headerIgnoreRe.MatchString(line) {
			continue
		}

		priceMatch := priceRe.FindStringSubmatchIndex(line)
		if priceMatch == nil {
			// Accumulate description until a priced line closes the item.
			if line != "" && !continuationRe.MatchString(line) {
				buffer = append(buffer, line)
			}
			continue
		}

		valorUnitario := line[priceMatch[2]:priceMatch[3]]
		valorTotal := line[priceMatch[4]:priceMatch[5]]

		partes := buffer
		buffer = nil
		if antes := strings.TrimSpace(line[:priceMatch[0]]); antes != "" {
			partes = append(partes, antes)
		}
		descricao := strings.TrimSpace(strings.Join(partes, " "))

		numero := ""
		quantidade := ""
		if m := itemNumRe.FindStringSubmatch(descricao); m != nil {
			numero = zeroPad(m[1])
		}

		// A bare "nn nn" line right after the prices carries the item
		// number and quantity; consume it when present.
		if i+1 < end {
			if m := qtyLineRe.FindStringSubmatch(src.Lines[i+1]); m != nil {
				if numero == "" {
					numero = zeroPad(m[1])
				}
				quantidade = trimLeadingZeros(m[2])
				i++
			}
		}

		if numero == "" {
			numero = fmt.Sprintf("%02d", fallbackNum)
		}
		if quantidade == "" {
			quantidade = "1"
		}

		itens = append(itens, LineItem{
			Numero:        numero,
			Descricao:     descricao,
			Quantidade:    quantidade,
			ValorUnitario: valorUnitario,
			ValorTotal:    valorTotal,
		})
		fallbackNum++
	}

	return itens
}

func findFirstLine(lines []string, res []*regexp.Regexp) int {
	for _, re := range res {
		for i, line := range lines {
			if re.MatchString(line) {
				return i
			}
		}
	}
	return -1
}

func zeroPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func trimLeadingZeros(s string) string {
	if n, err := strconv.Atoi(s); err == nil {
		return strconv.Itoa(n)
	}
	return s
}
