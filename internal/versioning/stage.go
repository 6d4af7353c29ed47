package versioning

import "fmt"

// Stage is the processing state of one original article.
type Stage int

const (
	StagePending Stage = iota
	StageSearching
	StageExtracting
	StageInsufficientReferences
	StageRewriting
	StagePublishing
	StageDone
	StageFailed
)

var stageNames = map[Stage]string{
	StagePending:                "pending",
	StageSearching:              "searching",
	StageExtracting:             "extracting",
	StageInsufficientReferences: "insufficient_references",
	StageRewriting:              "rewriting",
	StagePublishing:             "publishing",
	StageDone:                   "done",
	StageFailed:                 "failed",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageInsufficientReferences || s == StageDone || s == StageFailed
}

var transitions = map[Stage][]Stage{
	StagePending:    {StageSearching, StageFailed},
	StageSearching:  {StageExtracting, StageInsufficientReferences, StageFailed},
	StageExtracting: {StageInsufficientReferences, StageRewriting, StageFailed},
	StageRewriting:  {StagePublishing, StageFailed},
	StagePublishing: {StageDone, StageFailed},
}

// CanTransition reports whether moving from s to next is allowed.
func (s Stage) CanTransition(next Stage) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Tracker follows one article through the stages.
type Tracker struct {
	ArticleID int64
	stage     Stage
	history   []Stage
}

// NewTracker starts tracking articleID in StagePending.
func NewTracker(articleID int64) *Tracker {
	return &Tracker{ArticleID: articleID, stage: StagePending, history: []Stage{StagePending}}
}

// Stage returns the current stage.
func (t *Tracker) Stage() Stage { return t.stage }

// History returns every stage visited, in order.
func (t *Tracker) History() []Stage { return append([]Stage{}, t.history...) }

// Advance moves to next, rejecting transitions the state machine does not allow.
func (t *Tracker) Advance(next Stage) error {
	if !t.stage.CanTransition(next) {
		return fmt.Errorf("article %d: invalid stage transition %s -> %s", t.ArticleID, t.stage, next)
	}
	t.stage = next
	t.history = append(t.history, next)
	return nil
}
