package pipeline

import (
	"encoding/json"
	"io"
	"sync"

	"updater/internal/core"
	"updater/internal/versioning"
)

// Status classifies an ArticleResult.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// ArticleResult is the JSON record emitted for one article.
type ArticleResult struct {
	CreatedID *int64               `json:"created_id,omitempty"`
	UpdatedID *int64               `json:"updated_id,omitempty"`
	ArticleID int64                `json:"article_id"`
	Title     string               `json:"title"`
	Refs      []string             `json:"refs,omitempty"`
	Reason    string               `json:"reason,omitempty"`
	Error     string               `json:"error,omitempty"`
	Decision  *core.SearchDecision `json:"decision,omitempty"`
	LLM       string               `json:"llm,omitempty"`
	Fallback  bool                 `json:"fallback,omitempty"`

	// Stage is the last state the article reached. It is not part of the output record.
	Stage versioning.Stage `json:"-"`
}

// Status reports whether the article was processed, skipped or failed.
func (r ArticleResult) Status() Status {
	switch {
	case r.CreatedID != nil || r.UpdatedID != nil:
		return StatusProcessed
	case r.Reason == core.ReasonInsufficientRefs:
		return StatusSkipped
	default:
		return StatusFailed
	}
}

// UpdateFiveReport is the summary of update-five mode.
type UpdateFiveReport struct {
	RunID             string          `json:"run_id"`
	DeletedDuplicates []int64         `json:"deleted_duplicates"`
	Processed         []ArticleResult `json:"processed"`
}

// DedupeReport is the summary of dedupe mode.
type DedupeReport struct {
	RunID   string  `json:"run_id"`
	Deleted []int64 `json:"deleted"`
}

// BatchSummary closes the stream of all mode.
type BatchSummary struct {
	RunID     string `json:"run_id"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
	Failed    int    `json:"failed"`
}

// Emitter writes one JSON document per line.
type Emitter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewEmitter writes to w.
func NewEmitter(w io.Writer) *Emitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Emitter{enc: enc}
}

// Emit encodes v.
func (e *Emitter) Emit(v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enc.Encode(v)
}
