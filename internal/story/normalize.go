package story

import (
	"strings"
	"unicode"
)

// Normalize lowercases the input, strips punctuation and symbols, and
// collapses runs of whitespace into single spaces. Answer matching always
// compares normalized forms on both sides.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// matches reports whether a normalized submission satisfies the part's
// answer contract.
func matches(p Part, normalized string) bool {
	if p.Kind == KindTeaRequest {
		token := Normalize(p.RequiredToken)
		return token != "" && strings.Contains(normalized, token)
	}
	for _, a := range p.Answers {
		want := Normalize(a)
		if want == "" {
			continue
		}
		switch p.Match {
		case MatchContains:
			if strings.Contains(normalized, want) {
				return true
			}
		default:
			if normalized == want {
				return true
			}
		}
	}
	return false
}
