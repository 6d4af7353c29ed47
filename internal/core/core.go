package core

import (
	"strings"
	"time"
)

const (
	// OriginalSource is the source tag the ingestion job writes on every original article.
	OriginalSource = "BeyondChats"
	// UpdatedSource is the source tag written on rewritten articles.
	UpdatedSource = "BeyondChats-Updated"
	// UpdatedMarker marks the updated lineage; matched case-insensitively as a substring.
	UpdatedMarker = "updated"
)

// ArticleRecord is an article as exposed by the backing store.
type ArticleRecord struct {
	ID          int64      `json:"id,omitempty"`           // Store-assigned identifier
	Title       string     `json:"title"`                  // Article title
	Slug        string     `json:"slug,omitempty"`         // URL slug, derived by the store when absent
	URL         string     `json:"url"`                    // Canonical URL, unique in the store
	Author      string     `json:"author,omitempty"`       // Author name
	ImageURL    string     `json:"image_url,omitempty"`    // Hero image
	Excerpt     string     `json:"excerpt,omitempty"`      // Short teaser text
	Content     string     `json:"content,omitempty"`      // Full article body
	PublishedAt *time.Time `json:"published_at,omitempty"` // Publication time, nil when undated
	Source      string     `json:"source"`                 // Lineage tag (see OriginalSource, UpdatedSource)
}

// IsOriginal reports whether the record belongs to the ingested lineage.
func (a ArticleRecord) IsOriginal() bool {
	return strings.EqualFold(a.Source, OriginalSource)
}

// IsUpdated reports whether the record belongs to the rewritten lineage.
func (a ArticleRecord) IsUpdated() bool {
	return strings.Contains(strings.ToLower(a.Source), UpdatedMarker)
}

// PublishedMillis returns the publication time in unix milliseconds, 0 when undated.
func (a ArticleRecord) PublishedMillis() int64 {
	if a.PublishedAt == nil || a.PublishedAt.IsZero() {
		return 0
	}
	return a.PublishedAt.UnixMilli()
}

// Body returns the content, falling back to the excerpt.
func (a ArticleRecord) Body() string {
	if a.Content != "" {
		return a.Content
	}
	return a.Excerpt
}

// Reference is external content used to corroborate a rewrite.
type Reference struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

// RejectedURL is a candidate URL that did not make it into the reference set.
type RejectedURL struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// Rejection reasons
const (
	ReasonInvalidURL        = "invalid_url"
	ReasonDuplicateDomain   = "duplicate_domain"
	ReasonNotArticle        = "not_article_or_excluded_domain"
	ReasonExtractionFailed  = "extraction_failed"
	ReasonContentTooShort   = "content_too_short"
	ReasonInsufficientRefs  = "insufficient_refs"
	ReasonStoreFailure      = "store_failure"
	ReasonCandidateOverflow = "candidate_limit"
)

// SearchAnalysis is the outcome of validating one search response.
type SearchAnalysis struct {
	Query     string   `json:"query"`
	Mode      string   `json:"mode"`
	Issues    []string `json:"issues"`
	ValidURLs []string `json:"valid_urls"`
}

// ProviderAttempt records what a single search provider returned.
type ProviderAttempt struct {
	Provider string   `json:"provider"`
	URLs     []string `json:"urls"`
	Error    string   `json:"error,omitempty"`
}

// SearchDecision is the telemetry produced by one reference discovery attempt.
// It is returned to the caller for logging and never persisted.
type SearchDecision struct {
	Query        string            `json:"query"`
	Accepted     []string          `json:"accepted"`
	Rejected     []RejectedURL     `json:"rejected"`
	Providers    []ProviderAttempt `json:"providers,omitempty"`
	Analyses     []SearchAnalysis  `json:"analyses,omitempty"`
	LastAnalysis *SearchAnalysis   `json:"last_analysis,omitempty"`
}
