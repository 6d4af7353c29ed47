package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"updater/internal/core"
	"updater/internal/logger"
	"updater/internal/references"
	"updater/internal/versioning"
)

// ErrNoTarget is returned when one mode cannot find an article to process.
var ErrNoTarget = errors.New("no target article")

// Pipeline runs the search, extract, rewrite and publish workflow over store articles
type Pipeline struct {
	store      ArticleStore
	finder     ReferenceFinder
	rewriter   Rewriter
	controller *versioning.Controller
	emitter    *Emitter

	config *Config
	runID  string
	log    *slog.Logger
}

// Config holds pipeline configuration
type Config struct {
	// Limit caps how many articles all mode publishes
	Limit int

	// QueueSize is how many oldest originals update-five and one consider
	QueueSize int
}

// DefaultConfig returns the CLI defaults
func DefaultConfig() *Config {
	return &Config{
		Limit:     5,
		QueueSize: 5,
	}
}

// NewPipeline creates a new pipeline with all dependencies
func NewPipeline(store ArticleStore, finder ReferenceFinder, rewriter Rewriter, controller *versioning.Controller, emitter *Emitter, config *Config) *Pipeline {
	if config == nil {
		config = DefaultConfig()
	}
	if controller == nil {
		controller = versioning.NewController(store)
	}
	runID := uuid.NewString()
	return &Pipeline{
		store:      store,
		finder:     finder,
		rewriter:   rewriter,
		controller: controller,
		emitter:    emitter,
		config:     config,
		runID:      runID,
		log:        logger.With("run_id", runID),
	}
}

// RunID identifies this pipeline's run in logs and output.
func (p *Pipeline) RunID() string { return p.runID }

// ProcessArticle takes one original through the state machine. A nil snapshot makes the
// publish step read a fresh listing. The returned error is non-nil for insufficient
// references (wrapping references.ErrInsufficientReferences), store failures and
// cancellation; the result always describes the outcome and carries the final stage.
func (p *Pipeline) ProcessArticle(ctx context.Context, article core.ArticleRecord, snapshot []core.ArticleRecord) (ArticleResult, error) {
	tracker := versioning.NewTracker(article.ID)
	result := ArticleResult{ArticleID: article.ID, Title: article.Title, Stage: tracker.Stage()}

	p.advance(tracker, &result, versioning.StageSearching)
	p.log.Info("Processing article", "article_id", article.ID, "title", article.Title)

	candidates, err := p.finder.Discover(ctx, article.Title)
	if err != nil {
		p.advance(tracker, &result, versioning.StageFailed)
		result.Error = err.Error()
		return result, err
	}
	return p.selectAndPublish(ctx, tracker, article, candidates, snapshot, result)
}

func (p *Pipeline) selectAndPublish(ctx context.Context, tracker *versioning.Tracker, article core.ArticleRecord, candidates references.Candidates, snapshot []core.ArticleRecord, result ArticleResult) (ArticleResult, error) {
	p.advance(tracker, &result, versioning.StageExtracting)
	selection, err := p.finder.Select(ctx, candidates)
	result.Decision = &selection.Decision
	if err != nil {
		if errors.Is(err, references.ErrInsufficientReferences) {
			p.advance(tracker, &result, versioning.StageInsufficientReferences)
			result.Reason = core.ReasonInsufficientRefs
			p.log.Warn("Insufficient references", "article_id", article.ID, "accepted", len(selection.Decision.Accepted), "fallback", result.Fallback)
			return result, err
		}
		p.advance(tracker, &result, versioning.StageFailed)
		result.Decision = nil
		result.Error = err.Error()
		return result, err
	}

	p.advance(tracker, &result, versioning.StageRewriting)
	rewritten, err := p.rewriter.Rewrite(ctx, article, selection.References)
	if err != nil {
		p.advance(tracker, &result, versioning.StageFailed)
		result.Error = err.Error()
		return result, fmt.Errorf("rewrite article %d: %w", article.ID, err)
	}
	result.LLM = rewritten.Provider
	result.Refs = selection.URLs()

	p.advance(tracker, &result, versioning.StagePublishing)
	if snapshot == nil {
		snapshot, err = p.store.ListAll(ctx)
		if err != nil {
			return p.storeFailure(tracker, result, err)
		}
	}

	published, err := p.controller.Publish(ctx, article, rewritten.Text, snapshot)
	if err != nil {
		return p.storeFailure(tracker, result, err)
	}

	id := published.Record.ID
	if published.Action == versioning.ActionUpdated {
		result.UpdatedID = &id
	} else {
		result.CreatedID = &id
	}
	p.advance(tracker, &result, versioning.StageDone)
	p.log.Info("Published rewrite", "article_id", article.ID, "id", id, "action", string(published.Action), "llm", result.LLM)
	return result, nil
}

func (p *Pipeline) storeFailure(tracker *versioning.Tracker, result ArticleResult, err error) (ArticleResult, error) {
	p.advance(tracker, &result, versioning.StageFailed)
	result.Reason = core.ReasonStoreFailure
	result.Error = err.Error()
	result.LLM = ""
	result.Refs = nil
	result.Decision = nil
	p.log.Error("Failed to publish rewrite", "article_id", result.ArticleID, "error", err)
	return result, err
}

// advance moves the tracker to next and mirrors the stage onto result. A rejected
// transition leaves both unchanged.
func (p *Pipeline) advance(tracker *versioning.Tracker, result *ArticleResult, next versioning.Stage) {
	if err := tracker.Advance(next); err != nil {
		p.log.Error("Stage transition rejected", "article_id", tracker.ArticleID, "error", err)
		return
	}
	result.Stage = next
	if next.Terminal() {
		history := tracker.History()
		stages := make([]string, len(history))
		for i, st := range history {
			stages[i] = st.String()
		}
		p.log.Debug("Article finished", "article_id", tracker.ArticleID, "stage", next.String(), "stages", stages)
	}
}

// fallback retries an article with the primary provider only. It is used by latest mode
// after the full cascade came up short.
func (p *Pipeline) fallback(ctx context.Context, article core.ArticleRecord) (ArticleResult, error) {
	tracker := versioning.NewTracker(article.ID)
	result := ArticleResult{ArticleID: article.ID, Title: article.Title, Fallback: true, Stage: tracker.Stage()}

	p.advance(tracker, &result, versioning.StageSearching)
	p.log.Info("Retrying with primary provider", "article_id", article.ID)

	candidates, err := p.finder.DiscoverPrimary(ctx, article.Title)
	if err != nil {
		p.advance(tracker, &result, versioning.StageFailed)
		return result, fmt.Errorf("insufficient reference fallback: %w", err)
	}

	result, err = p.selectAndPublish(ctx, tracker, article, candidates, nil, result)
	if err != nil && result.Reason == core.ReasonInsufficientRefs {
		return result, fmt.Errorf("insufficient reference fallback: %w", err)
	}
	return result, err
}
