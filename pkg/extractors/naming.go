package extractors

import "strings"

// BuildQualifiedName joins name parts with dots, skipping empty parts.
// Qualified names are the natural keys assets are reconciled by, so the
// format must stay stable across runs.
func BuildQualifiedName(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			clean = append(clean, part)
		}
	}
	return strings.Join(clean, ".")
}

// SanitizeIdentifier strips surrounding whitespace and quoting from a
// database identifier before it is stored.
func SanitizeIdentifier(identifier string) string {
	s := strings.TrimSpace(identifier)
	s = strings.Trim(s, "\"'`")
	return s
}
