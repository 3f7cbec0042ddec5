package server

import (
	"strconv"
	"strings"
)

func parseOptionalInt(value string) (*int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil || parsed < 0 {
		return nil, ErrInvalidRequest
	}
	return &parsed, nil
}
