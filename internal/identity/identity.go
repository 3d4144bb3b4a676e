// Package identity reconciles repeated uploads of the same proposal into a
// lineage: a stable base identifier, a short version tag, and a globally
// unique final identifier per record.
package identity

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

const (
	maxTagLen       = 5
	maxComponentLen = 10
	maxIDLen        = 45
	defaultBase     = "PROP"
)

var (
	filenameBaseRe = regexp.MustCompile(`^\s*(\d{3})`)
	idSplitRe      = regexp.MustCompile(`^([A-Z]{2}\.[0-9]{3,5})([A-Z])?/(\d{2,4})$`)
	tokenSplitRe   = regexp.MustCompile(`[\s_.\-]+`)
	alnumRe        = regexp.MustCompile(`^[A-Za-z0-9]+$`)
	sanitizeRe     = regexp.MustCompile(`[^A-Za-z0-9\-]+`)
)

// ExistsFunc reports whether a final identifier is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Derive computes the base identifier and version tag for a document given
// its source filename and extracted identifier candidate. The filename's
// leading 3-digit code wins; a well-formed candidate of the shape
// XX.####A/YY is split into base XX.####/YY plus its embedded letter.
func Derive(filename, candidate string) (base, versao string) {
	name := filepath.Base(filename)
	if m := filenameBaseRe.FindStringSubmatch(name); m != nil {
		return m[1], VersionTag(name)
	}
	if m := idSplitRe.FindStringSubmatch(strings.ToUpper(candidate)); m != nil {
		return m[1] + "/" + m[3], m[2]
	}
	return "", VersionTag(name)
}

// VersionTag derives the version tag from a filename: the remainder after
// the leading 3-digit code, split on whitespace/underscore/dot/dash, first
// alphanumeric token, uppercased, capped at 5 characters.
func VersionTag(filename string) string {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if m := filenameBaseRe.FindStringSubmatch(stem); m != nil {
		stem = stem[len(m[0]):]
	}
	for _, tok := range tokenSplitRe.Split(stem, -1) {
		if tok == "" || !alnumRe.MatchString(tok) {
			continue
		}
		tag := strings.ToUpper(tok)
		if len(tag) > maxTagLen {
			tag = tag[:maxTagLen]
		}
		return tag
	}
	return ""
}

// Ordinal maps a version tag to its ordering position: a single uppercase
// letter is its 1-based alphabet position, anything else orders as 0.
func Ordinal(versao string) int {
	if len(versao) == 1 && versao[0] >= 'A' && versao[0] <= 'Z' {
		return int(versao[0]-'A') + 1
	}
	return 0
}

// ResolveUnique picks the final identifier for a record, trying in order:
// the candidate as-is, base-tag, then a sanitized bounded composite of
// base (or candidate, default PROP) and the filename stem with an
// incrementing numeric suffix until no collision remains.
func ResolveUnique(ctx context.Context, candidate, base, versao, filename string, exists ExistsFunc) (string, error) {
	if candidate != "" {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}

	if base != "" && versao != "" {
		composed := base + "-" + versao
		taken, err := exists(ctx, composed)
		if err != nil {
			return "", err
		}
		if !taken {
			return composed, nil
		}
	}

	prefix := truncate(sanitize(base), maxComponentLen)
	if prefix == "" {
		prefix = truncate(sanitize(candidate), maxComponentLen)
	}
	if prefix == "" {
		prefix = defaultBase
	}
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = truncate(sanitize(stem), maxComponentLen)

	composite := truncate(prefix+"-"+stem, maxIDLen)
	taken, err := exists(ctx, composite)
	if err != nil {
		return "", err
	}
	if !taken {
		return composite, nil
	}
	for n := 2; ; n++ {
		withSuffix := truncate(composite, maxIDLen-len(fmt.Sprint(n))-1) + "-" + fmt.Sprint(n)
		taken, err := exists(ctx, withSuffix)
		if err != nil {
			return "", err
		}
		if !taken {
			return withSuffix, nil
		}
	}
}

// sanitize strips everything except letters, digits and hyphens.
func sanitize(s string) string {
	return sanitizeRe.ReplaceAllString(s, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
