package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var quoteReplacer = strings.NewReplacer(
	"‘", "'", // left single quotation mark
	"’", "'", // right single quotation mark
	"‚", "'", // single low-9 quotation mark
	"‛", "'", // single high-reversed-9 quotation mark
	"′", "'", // prime
	"´", "'", // acute accent used as apostrophe
	"`", "'", // grave accent used as apostrophe
	"“", `"`, // left double quotation mark
	"”", `"`, // right double quotation mark
	"„", `"`, // double low-9 quotation mark
	"‟", `"`, // double high-reversed-9 quotation mark
	"″", `"`, // double prime
	"«", `"`, // left angle quote
	"»", `"`, // right angle quote
)

var dashReplacer = strings.NewReplacer(
	"‐", "-", // hyphen
	"‑", "-", // non-breaking hyphen
	"‒", "-", // figure dash
	"–", "-", // en dash
	"—", "-", // em dash
	"―", "-", // horizontal bar
	"−", "-", // minus sign
)

// stripMarks decomposes compatibly and removes combining marks, turning
// accented letters into their base forms.
var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))

var folder = cases.Fold()

// Normalize canonicalizes text for comparison. It is deterministic, total,
// and idempotent: empty or whitespace-only input yields the empty string,
// and Normalize(Normalize(x)) == Normalize(x).
//
// Pipeline: trim, NFC, quote folding, dash folding, NFKD with combining
// marks stripped, case fold, whitespace collapse.
func Normalize(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = quoteReplacer.Replace(s)
	s = dashReplacer.Replace(s)
	if stripped, _, err := transform.String(stripMarks, s); err == nil {
		s = stripped
	}
	s = folder.String(s)
	return strings.Join(strings.Fields(s), " ")
}
