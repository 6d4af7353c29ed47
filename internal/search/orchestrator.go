package search

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"updater/internal/classify"
	"updater/internal/core"
	"updater/internal/logger"
)

// Candidate is a URL together with the provider that produced it.
type Candidate struct {
	URL      string `json:"url"`
	Provider string `json:"provider"`
}

// Outcome is everything one cascade run produced.
type Outcome struct {
	Query      string                 `json:"query"`
	Candidates []Candidate            `json:"candidates"`
	Attempts   []core.ProviderAttempt `json:"attempts"`
	Analyses   []core.SearchAnalysis  `json:"analyses,omitempty"`
}

// URLs returns the candidate URLs in discovery order.
func (o Outcome) URLs() []string {
	urls := make([]string, 0, len(o.Candidates))
	for _, c := range o.Candidates {
		urls = append(urls, c.URL)
	}
	return urls
}

// LastAnalysis returns the most recent validator analysis, if any.
func (o Outcome) LastAnalysis() *core.SearchAnalysis {
	if len(o.Analyses) == 0 {
		return nil
	}
	last := o.Analyses[len(o.Analyses)-1]
	return &last
}

// analyzingProvider is implemented by providers whose responses pass through the payload
// validator.
type analyzingProvider interface {
	SearchWithAnalysis(ctx context.Context, query string, config Config) ([]Result, []core.SearchAnalysis, error)
}

// Orchestrator runs providers in priority order until enough eligible candidates exist.
type Orchestrator struct {
	providers  []Provider
	limiters   []*rate.Limiter
	classifier *classify.Classifier
	config     Config
}

// Option configures an Orchestrator.
type Option func(*orchestratorOptions)

type orchestratorOptions struct {
	interval   time.Duration
	classifier *classify.Classifier
}

// WithRateLimit spaces consecutive calls to the same provider by at least interval.
func WithRateLimit(interval time.Duration) Option {
	return func(o *orchestratorOptions) { o.interval = interval }
}

// WithClassifier sets the classifier used to count eligible candidates.
func WithClassifier(c *classify.Classifier) Option {
	return func(o *orchestratorOptions) { o.classifier = c }
}

// NewOrchestrator creates an orchestrator over providers, highest priority first.
func NewOrchestrator(providers []Provider, config Config, opts ...Option) *Orchestrator {
	options := orchestratorOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if options.classifier == nil {
		options.classifier = classify.New()
	}

	limit := rate.Inf
	if options.interval > 0 {
		limit = rate.Every(options.interval)
	}
	limiters := make([]*rate.Limiter, len(providers))
	for i := range providers {
		limiters[i] = rate.NewLimiter(limit, 1)
	}

	return &Orchestrator{
		providers:  providers,
		limiters:   limiters,
		classifier: options.classifier,
		config:     config,
	}
}

// ProviderNames lists the cascade in order.
func (o *Orchestrator) ProviderNames() []string {
	names := make([]string, 0, len(o.providers))
	for _, p := range o.providers {
		names = append(names, p.GetName())
	}
	return names
}

// Search queries providers in order, accumulating candidates, and stops once at least two
// distinct eligible hosts are known. Provider failures advance the cascade; only context
// cancellation is returned as an error.
func (o *Orchestrator) Search(ctx context.Context, topic string) (Outcome, error) {
	outcome := Outcome{Query: WithSiteExclusion(topic, o.config.ExcludeDomain)}

	for i := range o.providers {
		if err := o.run(ctx, i, o.config, &outcome); err != nil {
			return outcome, err
		}
		if eligible := o.classifier.CountEligible(outcome.URLs()); eligible >= minValidURLs {
			logger.Debug("Search cascade satisfied", "query", outcome.Query, "provider", o.providers[i].GetName(), "eligible", eligible)
			return outcome, nil
		}
	}

	logger.Warn("Search cascade exhausted", "query", outcome.Query, "candidates", len(outcome.Candidates))
	return outcome, nil
}

// SearchPrimary queries only the highest-priority provider for up to maxResults candidates.
func (o *Orchestrator) SearchPrimary(ctx context.Context, topic string, maxResults int) (Outcome, error) {
	outcome := Outcome{Query: WithSiteExclusion(topic, o.config.ExcludeDomain)}
	if len(o.providers) == 0 {
		return outcome, nil
	}
	config := o.config
	config.MaxResults = maxResults
	err := o.run(ctx, 0, config, &outcome)
	return outcome, err
}

func (o *Orchestrator) run(ctx context.Context, i int, config Config, outcome *Outcome) error {
	provider := o.providers[i]
	if err := o.limiters[i].Wait(ctx); err != nil {
		return err
	}

	var (
		results  []Result
		analyses []core.SearchAnalysis
		err      error
	)
	if ap, ok := provider.(analyzingProvider); ok {
		results, analyses, err = ap.SearchWithAnalysis(ctx, outcome.Query, config)
	} else {
		results, err = provider.Search(ctx, outcome.Query, config)
	}
	outcome.Analyses = append(outcome.Analyses, analyses...)

	attempt := core.ProviderAttempt{Provider: provider.GetName(), URLs: []string{}}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		logger.Debug("Search provider failed", "provider", provider.GetName(), "error", err.Error())
		attempt.Error = err.Error()
		outcome.Attempts = append(outcome.Attempts, attempt)
		return nil
	}

	for _, r := range results {
		if isExcluded(r.URL, config.ExcludeDomain) {
			continue
		}
		attempt.URLs = append(attempt.URLs, r.URL)
		outcome.Candidates = append(outcome.Candidates, Candidate{URL: r.URL, Provider: provider.GetName()})
	}
	outcome.Attempts = append(outcome.Attempts, attempt)
	return nil
}
