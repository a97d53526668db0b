package lib

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultImageTag is used when a project directory yields no usable tag characters.
const DefaultImageTag = "myapp"

// NewID generates a UUID version 4 string (RFC 4122). It is used as the
// container name of every run, so it must be unique per call.
func NewID() string {
	return uuid.NewString()
}

// ImageTag derives an image tag from a project directory. Image references
// only allow lowercase alphanumerics and a few separators, everything else is
// folded to '-'.
func ImageTag(dir string) string {
	base := strings.ToLower(filepath.Base(filepath.Clean(dir)))

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	tag := strings.Trim(b.String(), ".-_")
	if tag == "" {
		return DefaultImageTag
	}
	return "flem-" + tag
}
