package utils

import (
	"strings"
	"unicode"
)

// ToSnakeCase converts a CamelCase name to snake_case. It is used to derive
// MLIR operation names from the OpType enum identifiers, so runs of capitals
// (acronyms) are kept as one word: "ReinterpretCast" becomes
// "reinterpret_cast" and "MLIRName" becomes "mlir_name".
func ToSnakeCase(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if !unicode.IsUpper(r) {
			sb.WriteRune(r)
			continue
		}
		if i > 0 {
			prev := runes[i-1]
			newWord := !unicode.IsUpper(prev) && prev != '_'
			if !newWord && i+1 < len(runes) {
				// An acronym ends where a lower-case letter follows.
				next := runes[i+1]
				newWord = unicode.IsUpper(prev) && !unicode.IsUpper(next) && next != '_'
			}
			if newWord {
				sb.WriteRune('_')
			}
		}
		sb.WriteRune(unicode.ToLower(r))
	}
	return sb.String()
}

// NormalizeIdentifier makes a name usable as an IR identifier (function or
// input parameter name): any rune that is not an ASCII letter, digit or
// underscore is replaced with an underscore, and a leading digit gets an
// underscore prefix.
func NormalizeIdentifier(name string) string {
	if name == "" {
		return ""
	}
	var sb strings.Builder
	sb.Grow(len(name) + 1)
	if name[0] >= '0' && name[0] <= '9' {
		sb.WriteByte('_')
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}
