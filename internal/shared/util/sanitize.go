package util

import (
	"errors"
	"strings"
)

// ErrInvalidSegment is returned for identifiers that cannot be used as a storage path segment.
var ErrInvalidSegment = errors.New("invalid path segment")

// SanitizeSegment validates an identifier used as one storage key segment.
// Separators and traversal patterns are rejected rather than rewritten so two ids never collide.
func SanitizeSegment(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || s == "." || strings.Contains(s, "..") {
		return "", ErrInvalidSegment
	}
	if strings.ContainsAny(s, "/\\\x00") {
		return "", ErrInvalidSegment
	}
	return s, nil
}
