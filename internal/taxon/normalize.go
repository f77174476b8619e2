package taxon

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var parenGroupPattern = regexp.MustCompile(`\([^()]*\)`)

// rankMarkers maps infraspecific rank spellings to their canonical form.
var rankMarkers = map[string]string{
	"subsp.":  "subsp.",
	"subsp":   "subsp.",
	"ssp.":    "subsp.",
	"ssp":     "subsp.",
	"var.":    "var.",
	"var":     "var.",
	"subvar.": "subvar.",
	"f.":      "f.",
	"fo.":     "f.",
	"forma":   "f.",
}

// Name is a parsed scientific name. Parts are lower-case and ASCII-folded.
type Name struct {
	Genus     string
	Epithet   string
	Rank      string
	Infra     string
	Authority string
	// Binomial is false when the input could not be confidently read as
	// genus + epithet; Raw then holds the folded text unchanged.
	Binomial bool
	Raw      string
}

// Canonical returns the comparison form of the name.
func (n Name) Canonical() string {
	if !n.Binomial {
		return n.Raw
	}
	parts := []string{n.Genus, n.Epithet}
	if n.Rank != "" {
		parts = append(parts, n.Rank)
	}
	if n.Infra != "" {
		parts = append(parts, n.Infra)
	}
	return strings.Join(parts, " ")
}

// Display returns the name with a capitalized genus, e.g. "Lynx pardinus".
func (n Name) Display() string {
	canonical := n.Canonical()
	if canonical == "" {
		return ""
	}
	genus, rest, _ := strings.Cut(canonical, " ")
	genus = cases.Title(language.Und).String(genus)
	if rest == "" {
		return genus
	}
	return genus + " " + rest
}

// Normalize returns the comparison form of a raw name. Blank input yields "".
func Normalize(raw string) string {
	return Parse(raw).Canonical()
}

// Genus returns the first token of a normalized name.
func Genus(normalized string) string {
	genus, _, _ := strings.Cut(normalized, " ")
	return genus
}

// Parse folds and splits a raw name into its parts.
func Parse(raw string) Name {
	folded := Fold(raw)
	if folded == "" {
		return Name{}
	}
	lowered := strings.ToLower(folded)
	fallback := Name{Raw: lowered}

	stripped := strings.Join(strings.Fields(parenGroupPattern.ReplaceAllString(folded, " ")), " ")
	tokens := strings.Fields(stripped)
	if len(tokens) < 2 || !isEpithetToken(tokens[0]) {
		return fallback
	}

	name := Name{Genus: strings.ToLower(tokens[0]), Binomial: true}
	i := 1
	if tokens[i] == "x" || tokens[i] == "×" {
		if len(tokens) < 3 {
			return fallback
		}
		i++
		name.Epithet = "x "
	}
	if !isEpithetToken(tokens[i]) {
		return fallback
	}
	name.Epithet += strings.ToLower(tokens[i])
	i++

	if i < len(tokens) {
		if rank, ok := rankMarkers[strings.ToLower(tokens[i])]; ok && i+1 < len(tokens) && isLowerEpithet(tokens[i+1]) {
			name.Rank = rank
			name.Infra = tokens[i+1]
			i += 2
		} else if isLowerEpithet(tokens[i]) && (i+1 == len(tokens) || isAuthorityStart(tokens[i+1])) {
			name.Infra = tokens[i]
			i++
		}
	}

	if i < len(tokens) {
		if !isAuthorityStart(tokens[i]) {
			return fallback
		}
		name.Authority = strings.Join(tokens[i:], " ")
	}
	name.Raw = name.Canonical()
	return name
}

// Fold trims, collapses whitespace, and strips diacritics, keeping case.
func Fold(raw string) string {
	collapsed := strings.Join(strings.Fields(raw), " ")
	if collapsed == "" {
		return ""
	}
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, collapsed)
	if err != nil {
		return collapsed
	}
	return folded
}

func isEpithetToken(token string) bool {
	if token == "" {
		return false
	}
	for _, r := range token {
		if !unicode.IsLetter(r) && r != '-' {
			return false
		}
	}
	return true
}

func isLowerEpithet(token string) bool {
	if !isEpithetToken(token) {
		return false
	}
	for _, r := range token {
		if unicode.IsUpper(r) {
			return false
		}
	}
	return !isConnector(token)
}

func isConnector(token string) bool {
	switch strings.ToLower(token) {
	case "&", "ex", "et":
		return true
	}
	return false
}

func isAuthorityStart(token string) bool {
	if isConnector(token) {
		return true
	}
	for i, r := range token {
		if i == 0 && unicode.IsUpper(r) {
			return true
		}
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
