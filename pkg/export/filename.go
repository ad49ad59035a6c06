package export

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Filename turns a project name into a safe file name: accents folded,
// lowercased, non-alphanumerics replaced by "_", repeats collapsed and edges
// trimmed. An empty result becomes "report". ext is appended when non-empty.
func Filename(name, ext string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, name)
	if err != nil {
		folded = name
	}

	var sb strings.Builder
	underscore := false
	for _, r := range strings.ToLower(folded) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			sb.WriteByte('_')
			underscore = true
		}
	}

	base := strings.Trim(sb.String(), "_")
	if base == "" {
		base = "report"
	}
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		return base + "." + ext
	}
	return base
}
