// Package toolutil provides shared helpers for go_youtube MCP tool handlers.
package toolutil

import (
	"errors"
	"strings"
)

// ErrURLRequired is returned by handlers called without a url argument.
var ErrURLRequired = errors.New("url is required")

// IntOr returns v, or def when v is unset (zero or negative).
func IntOr(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// NormRegion normalises a region code: empty string → "US".
func NormRegion(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return "US"
	}
	return region
}

// RequireURL trims u and fails when nothing is left.
func RequireURL(u string) (string, error) {
	u = strings.TrimSpace(u)
	if u == "" {
		return "", ErrURLRequired
	}
	return u, nil
}
