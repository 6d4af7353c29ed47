package pipeline

import (
	"fmt"
	"io"
	"os"

	"updater/internal/versioning"
)

// Builder helps construct a fully configured Pipeline
type Builder struct {
	store      ArticleStore
	finder     ReferenceFinder
	rewriter   Rewriter
	controller *versioning.Controller
	output     io.Writer
	config     *Config
}

// NewBuilder creates a new pipeline builder with default settings
func NewBuilder() *Builder {
	return &Builder{
		output: os.Stdout,
		config: DefaultConfig(),
	}
}

// WithStore sets the article store
func (b *Builder) WithStore(store ArticleStore) *Builder {
	b.store = store
	return b
}

// WithReferenceFinder sets the reference selector
func (b *Builder) WithReferenceFinder(finder ReferenceFinder) *Builder {
	b.finder = finder
	return b
}

// WithRewriter sets the rewrite engine
func (b *Builder) WithRewriter(rewriter Rewriter) *Builder {
	b.rewriter = rewriter
	return b
}

// WithController overrides the versioning controller built from the store
func (b *Builder) WithController(controller *versioning.Controller) *Builder {
	b.controller = controller
	return b
}

// WithOutput sets where result JSON is written
func (b *Builder) WithOutput(w io.Writer) *Builder {
	b.output = w
	return b
}

// WithConfig sets the pipeline configuration
func (b *Builder) WithConfig(config *Config) *Builder {
	b.config = config
	return b
}

// Build constructs a fully configured Pipeline
func (b *Builder) Build() (*Pipeline, error) {
	if b.store == nil {
		return nil, fmt.Errorf("article store is required")
	}
	if b.finder == nil {
		return nil, fmt.Errorf("reference finder is required")
	}
	if b.rewriter == nil {
		return nil, fmt.Errorf("rewriter is required")
	}
	if b.output == nil {
		return nil, fmt.Errorf("output writer is required")
	}

	return NewPipeline(b.store, b.finder, b.rewriter, b.controller, NewEmitter(b.output), b.config), nil
}
