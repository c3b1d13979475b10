package storage

import (
	"path/filepath"
	"strings"
	"unicode"
)

// SecureFilename reduces a client-supplied filename to a safe base name of
// ASCII letters, digits, '.', '-' and '_'. It may return "".
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	name = filepath.Base(name)
	if name == "." || name == "/" {
		return ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsSpace(r):
			b.WriteByte('_')
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		}
	}

	return strings.Trim(b.String(), "._")
}
