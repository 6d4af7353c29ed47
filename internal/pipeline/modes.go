package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"updater/internal/core"
	"updater/internal/references"
	"updater/internal/versioning"
)

// Mode selects what a run processes.
type Mode string

const (
	ModeLatest     Mode = "latest"
	ModeAll        Mode = "all"
	ModeUpdateFive Mode = "update-five"
	ModeDedupe     Mode = "dedupe"
	ModeOne        Mode = "one"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeLatest, ModeAll, ModeUpdateFive, ModeDedupe, ModeOne}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// RunOptions are the per-run selectors.
type RunOptions struct {
	Limit int   // all mode
	ID    int64 // one mode, explicit article
	Skip  int   // one mode, offset into the oldest originals
}

// Run dispatches to the mode's handler.
func (p *Pipeline) Run(ctx context.Context, mode Mode, opts RunOptions) error {
	p.log.Info("Starting run", "mode", string(mode))
	switch mode {
	case ModeLatest:
		return p.RunLatest(ctx)
	case ModeAll:
		limit := opts.Limit
		if limit <= 0 {
			limit = p.config.Limit
		}
		return p.RunAll(ctx, limit)
	case ModeUpdateFive:
		return p.RunUpdateFive(ctx)
	case ModeDedupe:
		return p.RunDedupe(ctx)
	case ModeOne:
		return p.RunOne(ctx, opts.ID, opts.Skip)
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// RunLatest processes the newest article. Insufficient references trigger one retry with
// the primary provider; if that also fails the run fails.
func (p *Pipeline) RunLatest(ctx context.Context) error {
	latest, err := p.latestOriginal(ctx)
	if err != nil {
		return err
	}

	result, err := p.ProcessArticle(ctx, latest, nil)
	if errors.Is(err, references.ErrInsufficientReferences) {
		p.log.Warn("Insufficient reference articles, falling back", "article_id", latest.ID)
		result, err = p.fallback(ctx, latest)
	}
	if err != nil {
		if result.Status() == StatusFailed && result.Reason != "" {
			_ = p.emitter.Emit(result)
		}
		return err
	}
	return p.emitter.Emit(result)
}

// RunAll processes originals in store order until limit of them are published. Each
// article produces a record; a summary closes the stream.
func (p *Pipeline) RunAll(ctx context.Context, limit int) error {
	snapshot, err := p.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	summary := BatchSummary{RunID: p.runID}
	for _, article := range versioning.Originals(snapshot) {
		if summary.Processed >= limit {
			break
		}
		result, err := p.ProcessArticle(ctx, article, snapshot)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err := p.emitter.Emit(result); err != nil {
			return err
		}
		switch result.Status() {
		case StatusProcessed:
			summary.Processed++
		case StatusSkipped:
			summary.Skipped++
		default:
			summary.Failed++
			p.log.Warn("Article failed", "article_id", article.ID, "error", err)
		}
	}

	p.log.Info("Run complete", "processed", summary.Processed, "skipped", summary.Skipped, "failed", summary.Failed)
	return p.emitter.Emit(summary)
}

// RunUpdateFive removes duplicate updated records, then rewrites the oldest originals.
func (p *Pipeline) RunUpdateFive(ctx context.Context) error {
	snapshot, err := p.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}

	report := UpdateFiveReport{
		RunID:             p.runID,
		DeletedDuplicates: p.controller.Cleanup(ctx, snapshot),
		Processed:         []ArticleResult{},
	}
	for _, article := range versioning.OldestOriginals(snapshot, p.config.QueueSize) {
		result, _ := p.ProcessArticle(ctx, article, snapshot)
		if err := ctx.Err(); err != nil {
			return err
		}
		report.Processed = append(report.Processed, result)
	}
	return p.emitter.Emit(report)
}

// RunDedupe only removes duplicate updated records.
func (p *Pipeline) RunDedupe(ctx context.Context) error {
	snapshot, err := p.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list articles: %w", err)
	}
	return p.emitter.Emit(DedupeReport{RunID: p.runID, Deleted: p.controller.Cleanup(ctx, snapshot)})
}

// RunOne processes a single article: id when non-zero, else the skip-th oldest original,
// falling back to the oldest when skip is out of range.
func (p *Pipeline) RunOne(ctx context.Context, id int64, skip int) error {
	article, err := p.pickOne(ctx, id, skip)
	if err != nil {
		return err
	}

	result, err := p.ProcessArticle(ctx, article, nil)
	if err != nil && result.Status() != StatusSkipped {
		if result.Reason != "" {
			_ = p.emitter.Emit(result)
		}
		return err
	}
	return p.emitter.Emit(result)
}

// latestOriginal returns the newest article that is not itself a rewrite.
func (p *Pipeline) latestOriginal(ctx context.Context) (core.ArticleRecord, error) {
	latest, err := p.store.Latest(ctx)
	if err != nil {
		return core.ArticleRecord{}, fmt.Errorf("failed to fetch latest article: %w", err)
	}
	if !latest.IsUpdated() {
		return latest, nil
	}

	snapshot, err := p.store.ListAll(ctx)
	if err != nil {
		return core.ArticleRecord{}, fmt.Errorf("failed to list articles: %w", err)
	}
	for _, rec := range snapshot {
		if !rec.IsUpdated() {
			return rec, nil
		}
	}
	return core.ArticleRecord{}, ErrNoTarget
}

func (p *Pipeline) pickOne(ctx context.Context, id int64, skip int) (core.ArticleRecord, error) {
	if id > 0 {
		article, err := p.store.Get(ctx, id)
		if err != nil {
			return core.ArticleRecord{}, fmt.Errorf("failed to fetch article %d: %w", id, err)
		}
		return article, nil
	}

	snapshot, err := p.store.ListAll(ctx)
	if err != nil {
		return core.ArticleRecord{}, fmt.Errorf("failed to list articles: %w", err)
	}
	targets := versioning.OldestOriginals(snapshot, p.config.QueueSize)
	if len(targets) == 0 {
		return core.ArticleRecord{}, ErrNoTarget
	}
	if skip < 0 || skip >= len(targets) {
		skip = 0
	}
	return targets[skip], nil
}
