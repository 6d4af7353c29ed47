package rewrite

import (
	"context"
	"strings"
)

const (
	simpleReferenceLimit = 2000
	simpleBodyLimit      = 5000
)

// Simple is the deterministic fallback: the title, then the first reference, the original
// body and the second reference, each truncated.
type Simple struct{}

// Name returns the provider name.
func (Simple) Name() string { return "simple" }

// Rewrite never fails.
func (Simple) Rewrite(_ context.Context, req Request) (string, error) {
	parts := []string{
		req.Title,
		"\n",
		truncate(req.reference(0), simpleReferenceLimit),
		"\n",
		truncate(strings.TrimSpace(req.Content), simpleBodyLimit),
		"\n",
		truncate(req.reference(1), simpleReferenceLimit),
	}
	return strings.Join(parts, "\n"), nil
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
