// Package references discovers and extracts the external articles a rewrite is based on.
package references

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"updater/internal/classify"
	"updater/internal/core"
	"updater/internal/fetch"
	"updater/internal/logger"
	"updater/internal/search"
)

// ErrInsufficientReferences is returned when fewer references than wanted qualified.
var ErrInsufficientReferences = errors.New("insufficient references")

// Defaults for Options.
const (
	DefaultMinContent           = 800
	DefaultMaxCandidates        = 6
	DefaultConcurrency          = 3
	DefaultWanted               = 2
	DefaultPrimaryMaxCandidates = 10
)

// Searcher finds candidate URLs for a topic.
type Searcher interface {
	Search(ctx context.Context, topic string) (search.Outcome, error)
	SearchPrimary(ctx context.Context, topic string, maxResults int) (search.Outcome, error)
}

// Extractor reduces a page to clean text.
type Extractor interface {
	Extract(ctx context.Context, url string) (*fetch.Content, error)
}

// Cache stores previously extracted references.
type Cache interface {
	Lookup(ctx context.Context, url string) (core.Reference, bool, error)
	Save(ctx context.Context, ref core.Reference) error
}

// Options tunes reference selection. Zero values fall back to the defaults.
type Options struct {
	MinContent           int // Texts must be strictly longer than this
	MaxCandidates        int // Accepted URLs extracted per run
	Concurrency          int // Extractions in flight
	Wanted               int // References returned
	PrimaryMaxCandidates int // Candidates considered by the relaxed primary-only run
}

func (o Options) withDefaults() Options {
	if o.MinContent <= 0 {
		o.MinContent = DefaultMinContent
	}
	if o.MaxCandidates <= 0 {
		o.MaxCandidates = DefaultMaxCandidates
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Wanted <= 0 {
		o.Wanted = DefaultWanted
	}
	if o.PrimaryMaxCandidates <= 0 {
		o.PrimaryMaxCandidates = DefaultPrimaryMaxCandidates
	}
	return o
}

// Selection is the result of one discovery run.
type Selection struct {
	References []core.Reference    `json:"references"`
	Decision   core.SearchDecision `json:"decision"`
}

// URLs returns the selected reference URLs in order.
func (s Selection) URLs() []string {
	urls := make([]string, 0, len(s.References))
	for _, r := range s.References {
		urls = append(urls, r.URL)
	}
	return urls
}

// Selector picks references for a topic.
type Selector struct {
	searcher   Searcher
	extractor  Extractor
	classifier *classify.Classifier
	cache      Cache
	opts       Options
}

// NewSelector creates a Selector. classifier and cache may be nil.
func NewSelector(searcher Searcher, extractor Extractor, classifier *classify.Classifier, cache Cache, opts Options) *Selector {
	if classifier == nil {
		classifier = classify.New()
	}
	return &Selector{
		searcher:   searcher,
		extractor:  extractor,
		classifier: classifier,
		cache:      cache,
		opts:       opts.withDefaults(),
	}
}

// Candidates are the eligible URLs one search produced, ready for extraction.
type Candidates struct {
	Topic    string
	Outcome  search.Outcome
	Accepted []string
	Rejected []core.RejectedURL
	Limit    int
}

// FindReferences searches for topic, keeps at most one eligible URL per host, extracts the
// first candidates concurrently and returns the first qualifying references in search order.
// It returns ErrInsufficientReferences, together with the full decision, when too few
// qualified.
func (s *Selector) FindReferences(ctx context.Context, topic string) (Selection, error) {
	candidates, err := s.Discover(ctx, topic)
	if err != nil {
		return Selection{}, err
	}
	return s.Select(ctx, candidates)
}

// FindReferencesPrimaryOnly is the relaxed variant: only the highest-priority provider is
// asked, for more candidates, and several URLs from one host may be used.
func (s *Selector) FindReferencesPrimaryOnly(ctx context.Context, topic string) (Selection, error) {
	candidates, err := s.DiscoverPrimary(ctx, topic)
	if err != nil {
		return Selection{}, err
	}
	return s.Select(ctx, candidates)
}

// Discover runs the search cascade and classifies its URLs, one per host.
func (s *Selector) Discover(ctx context.Context, topic string) (Candidates, error) {
	outcome, err := s.searcher.Search(ctx, topic)
	if err != nil {
		return Candidates{}, fmt.Errorf("failed to search for references: %w", err)
	}

	filtered := s.classifier.FilterWithReasons(outcome.URLs())
	return Candidates{
		Topic:    topic,
		Outcome:  outcome,
		Accepted: filtered.Accepted,
		Rejected: filtered.Rejected,
		Limit:    s.opts.MaxCandidates,
	}, nil
}

// DiscoverPrimary asks only the primary provider and allows several URLs per host.
func (s *Selector) DiscoverPrimary(ctx context.Context, topic string) (Candidates, error) {
	outcome, err := s.searcher.SearchPrimary(ctx, topic, s.opts.PrimaryMaxCandidates)
	if err != nil {
		return Candidates{}, fmt.Errorf("failed to search for references: %w", err)
	}

	var accepted []string
	var rejected []core.RejectedURL
	seen := make(map[string]bool)
	for _, u := range outcome.URLs() {
		if seen[u] {
			continue
		}
		seen[u] = true
		if !s.classifier.IsEligible(u) {
			rejected = append(rejected, core.RejectedURL{URL: u, Reason: core.ReasonNotArticle})
			continue
		}
		accepted = append(accepted, u)
	}
	return Candidates{
		Topic:    topic,
		Outcome:  outcome,
		Accepted: accepted,
		Rejected: rejected,
		Limit:    s.opts.PrimaryMaxCandidates,
	}, nil
}

// Select extracts the first Limit candidates and keeps the qualifying ones in search order.
func (s *Selector) Select(ctx context.Context, c Candidates) (Selection, error) {
	limit := c.Limit
	if limit <= 0 {
		limit = s.opts.MaxCandidates
	}
	return s.selectFrom(ctx, c.Outcome, c.Accepted, c.Rejected, limit)
}

type slot struct {
	ref    *core.Reference
	reason string
}

func (s *Selector) selectFrom(ctx context.Context, outcome search.Outcome, accepted []string, rejected []core.RejectedURL, limit int) (Selection, error) {
	decision := core.SearchDecision{
		Query:        outcome.Query,
		Accepted:     []string{},
		Rejected:     append([]core.RejectedURL{}, rejected...),
		Providers:    outcome.Attempts,
		Analyses:     outcome.Analyses,
		LastAnalysis: outcome.LastAnalysis(),
	}

	candidates := accepted
	if len(candidates) > limit {
		for _, u := range candidates[limit:] {
			decision.Rejected = append(decision.Rejected, core.RejectedURL{URL: u, Reason: core.ReasonCandidateOverflow})
		}
		candidates = candidates[:limit]
	}

	slots := s.extractAll(ctx, candidates)
	if err := ctx.Err(); err != nil {
		return Selection{Decision: decision}, err
	}

	var refs []core.Reference
	for i, sl := range slots {
		if sl.ref == nil {
			decision.Rejected = append(decision.Rejected, core.RejectedURL{URL: candidates[i], Reason: sl.reason})
			continue
		}
		decision.Accepted = append(decision.Accepted, sl.ref.URL)
		if len(refs) < s.opts.Wanted {
			refs = append(refs, *sl.ref)
		}
	}

	selection := Selection{References: refs, Decision: decision}
	logger.Info("Reference selection finished",
		"query", outcome.Query,
		"candidates", len(candidates),
		"qualifying", len(decision.Accepted),
		"selected", len(refs))

	if len(refs) < s.opts.Wanted {
		return selection, fmt.Errorf("%w: found %d of %d for %q", ErrInsufficientReferences, len(refs), s.opts.Wanted, outcome.Query)
	}
	return selection, nil
}

// extractAll extracts urls with bounded concurrency. Results keep the input order.
func (s *Selector) extractAll(ctx context.Context, urls []string) []slot {
	slots := make([]slot, len(urls))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			slots[i] = s.extractOne(gCtx, u)
			return nil
		})
	}
	_ = g.Wait()

	return slots
}

func (s *Selector) extractOne(ctx context.Context, url string) slot {
	if s.cache != nil {
		ref, ok, err := s.cache.Lookup(ctx, url)
		if err != nil {
			logger.Warn("Reference cache lookup failed", "url", url, "error", err.Error())
		} else if ok && len(ref.Text) > s.opts.MinContent {
			logger.Debug("Reference cache hit", "url", url)
			return slot{ref: &ref}
		}
	}

	content, err := s.extractor.Extract(ctx, url)
	if err != nil {
		logger.Debug("Reference extraction failed", "url", url, "error", err.Error())
		if errors.Is(err, fetch.ErrNoContent) {
			return slot{reason: core.ReasonContentTooShort}
		}
		return slot{reason: core.ReasonExtractionFailed}
	}
	if len(content.Text) <= s.opts.MinContent {
		logger.Debug("Reference too short", "url", url, "length", len(content.Text), "min", s.opts.MinContent)
		return slot{reason: core.ReasonContentTooShort}
	}

	ref := core.Reference{URL: url, Title: content.Title, Text: content.Text}
	if s.cache != nil {
		if err := s.cache.Save(ctx, ref); err != nil {
			logger.Warn("Reference cache save failed", "url", url, "error", err.Error())
		}
	}
	return slot{ref: &ref}
}
