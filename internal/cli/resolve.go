// Package cli provides shared utilities for CLI commands.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

// MinPrefixLength is the shortest id prefix ResolveID accepts.
const MinPrefixLength = 4

var (
	// ErrNotFound means no id matches.
	ErrNotFound = errors.New("entry not found")
	// ErrAmbiguous means a prefix matches more than one id.
	ErrAmbiguous = errors.New("entry id is ambiguous")
)

// ResolveID resolves ref against ids. An exact match wins; otherwise ref
// must be a case-insensitive prefix of exactly one id.
func ResolveID(ref string, ids []string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", errors.New("entry id must not be empty")
	}

	for _, id := range ids {
		if id == ref {
			return id, nil
		}
	}

	if len(ref) < MinPrefixLength {
		return "", fmt.Errorf("%w: '%s' (use at least %d characters)", ErrNotFound, ref, MinPrefixLength)
	}

	lower := strings.ToLower(ref)
	var matches []string
	for _, id := range ids {
		if strings.HasPrefix(strings.ToLower(id), lower) {
			matches = append(matches, id)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: '%s'", ErrNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: '%s' matches %d entries", ErrAmbiguous, ref, len(matches))
	}
}
