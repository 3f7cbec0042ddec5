package domain

import (
	"strings"

	"github.com/gosimple/slug"
)

// NormalizeCommunity returns the canonical slug for a community name or slug.
func NormalizeCommunity(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrInvalidCommunity
	}
	normalized := slug.Make(raw)
	if normalized == "" || !slug.IsSlug(normalized) {
		return "", ErrInvalidCommunity
	}
	return normalized, nil
}
