// Package pdftext turns a PDF proposal into a normalized sequence of
// non-empty text lines for the extraction engine.
package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Document is the adapter output consumed by the extraction engine.
type Document struct {
	FullText  string
	PageTexts []string
	Lines     []string
}

// TextExtractor is the behavior the pipeline depends on.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Document, error)
}

// Extractor extracts text from PDF files using pdfcpu.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads every page of the PDF at path. Pages that yield no text in
// the default mode are retried in layout-preserving mode; pages that still
// yield nothing are skipped. An error is returned only when no page
// produced any text.
func (e *Extractor) Extract(ctx context.Context, path string) (Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return Document{}, fmt.Errorf("pdfcpu read: %w", err)
	}

	var full strings.Builder
	var pages []string
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		select {
		case <-ctx.Done():
			return Document{}, ctx.Err()
		default:
		}

		pageText := extractPage(pdfCtx, pageNr, false)
		if pageText == "" {
			pageText = extractPage(pdfCtx, pageNr, true)
		}
		if pageText == "" {
			continue
		}
		pages = append(pages, pageText)
		full.WriteString(pageText)
		full.WriteByte('\n')
	}

	if len(pages) == 0 {
		return Document{}, fmt.Errorf("no text content found in PDF")
	}

	fullText := full.String()
	return Document{
		FullText:  fullText,
		PageTexts: pages,
		Lines:     SplitLines(fullText),
	}, nil
}

// SplitLines returns the trimmed, non-empty lines of text in order.
func SplitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func extractPage(ctx *model.Context, pageNr int, layout bool) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return textFromStream(data, layout)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// textFromStream parses PDF content stream operators for text. In layout
// mode positioning operators become newlines rather than spaces, which
// recovers row structure from table-heavy pages the compact mode mangles.
func textFromStream(data []byte, layout bool) string {
	var sb strings.Builder

	writeMatches := func(line []byte) {
		for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
			if text := decodePDFString(m[1]); text != "" {
				sb.WriteString(text)
			}
		}
	}

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		switch {
		case bytes.HasSuffix(line, []byte("Tj")), bytes.HasSuffix(line, []byte("TJ")):
			writeMatches(line)
		case bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")):
			sb.WriteByte('\n')
			writeMatches(line)
		case bytes.HasSuffix(line, []byte("Td")), bytes.HasSuffix(line, []byte("TD")):
			if sb.Len() > 0 {
				if layout {
					sb.WriteByte('\n')
				} else {
					sb.WriteByte(' ')
				}
			}
		case bytes.Equal(line, []byte("T*")):
			sb.WriteByte('\n')
		}
	}

	return cleanText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\\' || i+1 >= len(raw) {
			sb.WriteByte(raw[i])
			continue
		}
		i++
		switch raw[i] {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case '\\', '(', ')':
			sb.WriteByte(raw[i])
		default:
			// Octal escape (e.g. \040 for space).
			if raw[i] >= '0' && raw[i] <= '7' {
				val := int(raw[i] - '0')
				for n := 0; n < 2 && i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7'; n++ {
					i++
					val = val*8 + int(raw[i]-'0')
				}
				sb.WriteByte(byte(val))
			} else {
				sb.WriteByte(raw[i])
			}
		}
	}
	return sb.String()
}

// cleanText collapses runs of horizontal whitespace but keeps newlines.
func cleanText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteByte('\n')
			prevSpace = true
		case unicode.IsSpace(r):
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsPrint(r):
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
