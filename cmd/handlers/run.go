package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"updater/internal/articles"
	"updater/internal/classify"
	"updater/internal/config"
	"updater/internal/fetch"
	"updater/internal/logger"
	"updater/internal/pipeline"
	"updater/internal/references"
	"updater/internal/rewrite"
	"updater/internal/search"
	"updater/internal/store"
)

type runFlags struct {
	mode  string
	limit int
	id    int64
	skip  int
}

func runUpdate(ctx context.Context, flags runFlags, out io.Writer) error {
	mode, err := pipeline.ParseMode(flags.mode)
	if err != nil {
		return err
	}

	cfg := config.Get()
	p, closeFn, err := buildPipeline(cfg, out, flags.limit)
	if err != nil {
		return err
	}
	defer closeFn()

	start := time.Now()
	err = p.Run(ctx, mode, pipeline.RunOptions{Limit: flags.limit, ID: flags.id, Skip: flags.skip})
	if err != nil {
		logger.Error("Run failed", err, "run_id", p.RunID(), "mode", string(mode))
		return err
	}
	logger.Info("Run finished", "run_id", p.RunID(), "mode", string(mode), "elapsed", time.Since(start).String())
	return nil
}

// buildPipeline wires every component from configuration. The returned func releases
// resources held by the components.
func buildPipeline(cfg *config.Config, out io.Writer, limit int) (*pipeline.Pipeline, func(), error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	classifier := classify.New(cfg.Classify.ExtraBlockedDomains...)

	searchClient := &http.Client{Timeout: config.Duration(cfg.Search.Timeout, 60*time.Second)}
	providers, err := search.NewProviderFactory(searchClient, classifier).BuildCascade(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build search providers: %w", err)
	}
	orchestrator := search.NewOrchestrator(providers, search.Config{
		MaxResults:    cfg.Search.MaxResults,
		Language:      cfg.Search.Language,
		ExcludeDomain: cfg.Search.ExcludeDomain,
	},
		search.WithRateLimit(config.Duration(cfg.Search.RateLimit, time.Second)),
		search.WithClassifier(classifier),
	)
	logger.Debug("Search cascade", "providers", orchestrator.ProviderNames())

	extractor := fetch.NewExtractor(fetch.Options{
		Timeout:        config.Duration(cfg.Fetch.Timeout, fetch.DefaultTimeout),
		UserAgent:      cfg.Fetch.UserAgent,
		AcceptLanguage: cfg.Fetch.AcceptLanguage,
		MinTextLength:  cfg.Fetch.MinTextLength,
	})

	var cache references.Cache
	if cfg.Cache.Enabled {
		s, err := store.NewStore(cfg.Cache.Directory, config.Duration(cfg.Cache.TTL, store.DefaultTTL))
		if err != nil {
			logger.Warn("Extraction cache unavailable, continuing without it", "error", err)
		} else {
			closers = append(closers, func() { _ = s.Close() })
			if removed, err := s.Prune(context.Background()); err == nil && removed > 0 {
				logger.Debug("Pruned extraction cache", "removed", removed)
			}
			cache = s
		}
	}

	selector := references.NewSelector(orchestrator, extractor, classifier, cache, references.Options{
		MinContent:    cfg.References.MinContent,
		MaxCandidates: cfg.References.MaxCandidates,
		Concurrency:   cfg.References.Concurrency,
		Wanted:        cfg.References.Wanted,
	})

	llms := rewrite.ProvidersFromConfig(cfg.AI)
	for _, p := range llms {
		if c, ok := p.(io.Closer); ok {
			closers = append(closers, func() { _ = c.Close() })
		}
	}
	engine := rewrite.NewEngine(llms...)
	logger.Debug("Rewrite cascade", "providers", engine.ProviderNames())

	client := articles.New(articles.Options{
		BaseURL:    cfg.Store.BaseURL,
		PathPrefix: cfg.Store.PathPrefix,
		PerPage:    cfg.Store.PerPage,
		MaxPages:   cfg.Store.MaxPages,
		Timeout:    config.Duration(cfg.Store.Timeout, articles.DefaultTimeout),
	})

	pipelineConfig := pipeline.DefaultConfig()
	if limit > 0 {
		pipelineConfig.Limit = limit
	}

	p, err := pipeline.NewBuilder().
		WithStore(client).
		WithReferenceFinder(selector).
		WithRewriter(engine).
		WithOutput(out).
		WithConfig(pipelineConfig).
		Build()
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return p, closeAll, nil
}
