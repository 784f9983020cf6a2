package dispatch

import "strings"

// SanitizeFilename strips a requested external filename down to the safe
// character set [A-Za-z0-9_.-] and forces a .png suffix. Everything else,
// including path separators, is dropped rather than escaped, so a traversal
// attempt like "../../etc/passwd" degenerates to a harmless flat name. An
// empty request (or one that sanitizes to nothing but the suffix) means no
// custom filename was asked for.
func SanitizeFilename(requested string) string {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(requested))
	for _, r := range requested {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '_' || r == '-' || r == '.':
			b.WriteRune(r)
		}
	}

	cleaned := b.String()
	if strings.Trim(cleaned, ".") == "" {
		return ""
	}
	if !strings.HasSuffix(strings.ToLower(cleaned), ".png") {
		cleaned += ".png"
	}
	return cleaned
}
