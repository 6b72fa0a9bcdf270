package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Rewrite is one case-insensitive substitution applied by Normalize.
type Rewrite struct {
	Pattern     *regexp.Regexp
	Replacement string
}

// NormalizationRules is applied top to bottom; order matters. Compound
// avenue forms must run before the plain street types and number markers
// run last. Replacements are padded with spaces so "cra.45" and "#45" split
// into tokens; whitespace is collapsed afterwards.
var NormalizationRules = []Rewrite{
	{regexp.MustCompile(`(?i)\bak\b\.?`), " Avenida Carrera "},
	{regexp.MustCompile(`(?i)\bac\b\.?`), " Avenida Calle "},
	{regexp.MustCompile(`(?i)\bav(?:enida)?\.?\s*(?:cra|kra|cr|kr|carrera)\b\.?`), " Avenida Carrera "},
	{regexp.MustCompile(`(?i)\bav(?:enida)?\.?\s*(?:cll|clle|cl|calle)\b\.?`), " Avenida Calle "},
	{regexp.MustCompile(`(?i)\b(?:cra|kra|cr|kr|carrera)\b\.?`), " Carrera "},
	{regexp.MustCompile(`(?i)\b(?:cll|clle|cl|calle)\b\.?`), " Calle "},
	{regexp.MustCompile(`(?i)\b(?:avda|av|avenida)\b\.?`), " Avenida "},
	{regexp.MustCompile(`(?i)\b(?:diag|dg|diagonal)\b\.?`), " Diagonal "},
	{regexp.MustCompile(`(?i)\b(?:transv|trans|tv|tr|transversal)\b\.?`), " Transversal "},
	{regexp.MustCompile(`(?i)\b(?:nro|num|no)\.`), " Número "},
	{regexp.MustCompile(`(?i)n[°º]`), " Número "},
	{regexp.MustCompile(`#`), " Número "},
}

var (
	reSpaces      = regexp.MustCompile(`\s+`)
	reNumberToken = regexp.MustCompile(`^[0-9-]+$`)
)

// Normalize rewrites a free-text address into its canonical spelling.
// Empty input yields an empty string.
func Normalize(raw string) string {
	s := collapseSpaces(raw)
	if s == "" {
		return ""
	}

	for _, r := range NormalizationRules {
		s = r.Pattern.ReplaceAllLiteralString(s, r.Replacement)
	}
	s = collapseSpaces(s)

	upper := cases.Upper(language.Spanish)
	lower := cases.Lower(language.Spanish)

	tokens := strings.Split(s, " ")
	for i, tok := range tokens {
		if reNumberToken.MatchString(tok) {
			continue
		}
		_, size := utf8.DecodeRuneInString(tok)
		tokens[i] = upper.String(tok[:size]) + lower.String(tok[size:])
	}
	return strings.Join(tokens, " ")
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(s, " "))
}
