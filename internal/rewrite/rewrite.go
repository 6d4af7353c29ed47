// Package rewrite turns an original article and its references into an updated article.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"updater/internal/core"
	"updater/internal/logger"
)

var (
	// ErrRewriteFailed is returned when every provider, including the fallback, failed.
	ErrRewriteFailed = errors.New("rewrite failed")

	// ErrEmptyOutput is returned by providers that answered with no text.
	ErrEmptyOutput = errors.New("provider returned empty output")
)

// Request is the input of a rewrite.
type Request struct {
	Title      string
	Content    string
	References []core.Reference
}

// NewRequest builds a request from an article, using its excerpt when it has no content.
func NewRequest(article core.ArticleRecord, refs []core.Reference) Request {
	return Request{Title: article.Title, Content: article.Body(), References: refs}
}

// reference returns the text of the i-th reference, or "" when absent.
func (r Request) reference(i int) string {
	if i < len(r.References) {
		return r.References[i].Text
	}
	return ""
}

// Provider produces rewritten text.
type Provider interface {
	Name() string
	Rewrite(ctx context.Context, req Request) (string, error)
}

// Result is a finished rewrite with its citation block appended.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider"`
}

// Engine tries providers in order and falls back to Simple, so a rewrite always succeeds
// unless the context is done.
type Engine struct {
	providers []Provider
}

// NewEngine creates an Engine over providers, highest priority first. Simple is always
// appended as the last resort.
func NewEngine(providers ...Provider) *Engine {
	chain := make([]Provider, 0, len(providers)+1)
	for _, p := range providers {
		if p != nil {
			chain = append(chain, p)
		}
	}
	chain = append(chain, Simple{})
	return &Engine{providers: chain}
}

// ProviderNames lists the cascade in order.
func (e *Engine) ProviderNames() []string {
	names := make([]string, 0, len(e.providers))
	for _, p := range e.providers {
		names = append(names, p.Name())
	}
	return names
}

// Rewrite rewrites article using refs and appends a citation block for exactly those refs.
func (e *Engine) Rewrite(ctx context.Context, article core.ArticleRecord, refs []core.Reference) (Result, error) {
	req := NewRequest(article, refs)

	var errs []error
	for _, p := range e.providers {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		text, err := p.Rewrite(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = ErrEmptyOutput
		}
		if err != nil {
			logger.Warn("Rewrite provider failed", "provider", p.Name(), "article_id", article.ID, "error", err.Error())
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		logger.Info("Article rewritten", "provider", p.Name(), "article_id", article.ID, "length", len(text))
		return Result{Text: AppendCitations(text, refs), Provider: p.Name()}, nil
	}
	return Result{}, fmt.Errorf("%w: %w", ErrRewriteFailed, errors.Join(errs...))
}

// AppendCitations appends a numbered reference list of refs' URLs to text.
func AppendCitations(text string, refs []core.Reference) string {
	var b strings.Builder
	b.WriteString(text)
	b.WriteString("\n\nReferences:\n")
	for i, r := range refs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, r.URL)
	}
	return b.String()
}
