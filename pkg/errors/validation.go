package errors

import (
	"strings"
	"unicode"
)

// ValidateNodeName validates a node name received from a request before it is
// used to locate files inside the kitchen.
//
// Node names are fully qualified host names in practice, so dots are allowed,
// but anything that could escape the nodes directory is rejected:
//   - No empty names
//   - No control characters or null bytes
//   - No path separators or traversal sequences
//   - Maximum length of 255 characters (DNS limit)
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "node name cannot be empty")
	}

	if len(name) > 255 {
		return New(ErrCodeInvalidInput, "node name too long (max 255 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "node name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateVirtRoles validates a comma-separated virtualization role filter.
// Only "host" and "guest" are meaningful; empty segments are ignored.
func ValidateVirtRoles(s string) error {
	for _, part := range strings.Split(s, ",") {
		switch strings.TrimSpace(part) {
		case "", "host", "guest":
		default:
			return New(ErrCodeInvalidInput, "invalid virtualization role: %q (must be host or guest)", part)
		}
	}
	return nil
}
