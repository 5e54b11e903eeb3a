package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeName reduces a worker name to its comparison key: diacritics removed,
// ASCII letters and digits only, lower case, single spaces. Any value that is not
// a string normalizes to the empty key. The result is idempotent.
func NormalizeName(v any) string {
	name, ok := v.(string)
	if !ok {
		return ""
	}

	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)))
	decomposed, _, err := transform.String(t, name)
	if err != nil {
		decomposed = name
	}

	var sb strings.Builder
	sb.Grow(len(decomposed))
	for _, r := range decomposed {
		switch {
		case r > unicode.MaxASCII:
			// Characters without an ASCII decomposition are dropped, not spaced.
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == ' ':
			sb.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			sb.WriteRune(unicode.ToLower(r))
		default:
			sb.WriteByte(' ')
		}
	}

	return strings.Join(strings.Fields(sb.String()), " ")
}

// ReverseName reverses the token order of a name with more than one token
func ReverseName(name string) string {
	parts := strings.Fields(name)
	if len(parts) < 2 {
		return name
	}

	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, " ")
}
