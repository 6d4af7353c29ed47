// Package versioning links rewritten articles to their originals and keeps one updated
// record per source document.
package versioning

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"updater/internal/core"
	"updater/internal/logger"
)

// Store is the subset of the article store the controller writes to.
type Store interface {
	Create(ctx context.Context, rec core.ArticleRecord) (core.ArticleRecord, error)
	Update(ctx context.Context, id int64, rec core.ArticleRecord) (core.ArticleRecord, error)
	Delete(ctx context.Context, id int64) error
}

// Action says how a rewrite was published.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Published is the outcome of a Publish call.
type Published struct {
	Record core.ArticleRecord
	Action Action
}

// Controller publishes rewrites and cleans up duplicate updated records.
type Controller struct {
	store Store
	now   func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock overrides the clock used for URL disambiguation.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a controller writing to store.
func NewController(store Store, opts ...Option) *Controller {
	c := &Controller{store: store, now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseIdentity returns origin+path of u with the updated marker and fragment removed.
// Unparseable input falls back to everything before the first '?' or '#'.
func BaseIdentity(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		base, _, _ := strings.Cut(u, "?")
		base, _, _ = strings.Cut(base, "#")
		return base
	}
	path := parsed.EscapedPath()
	if path == "" {
		path = "/"
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host) + path
}

// LatestUpdated returns the updated record with the highest id sharing base.
func LatestUpdated(snapshot []core.ArticleRecord, base string) (core.ArticleRecord, bool) {
	var (
		best  core.ArticleRecord
		found bool
	)
	for _, rec := range snapshot {
		if !rec.IsUpdated() || BaseIdentity(rec.URL) != base {
			continue
		}
		if !found || rec.ID > best.ID {
			best, found = rec, true
		}
	}
	return best, found
}

// DisambiguatedURL sets the updated query parameter to now in unix milliseconds,
// replacing any previous value.
func DisambiguatedURL(u string, now time.Time) string {
	stamp := strconv.FormatInt(now.UnixMilli(), 10)
	parsed, err := url.Parse(u)
	if err != nil {
		return BaseIdentity(u) + "?updated=" + stamp
	}
	q := parsed.Query()
	q.Set(core.UpdatedMarker, stamp)
	parsed.RawQuery = q.Encode()
	parsed.Fragment = ""
	return parsed.String()
}

// Payload builds the updated record for original carrying content.
func Payload(original core.ArticleRecord, content string, now time.Time) core.ArticleRecord {
	return core.ArticleRecord{
		Title:       original.Title,
		URL:         DisambiguatedURL(original.URL, now),
		Author:      original.Author,
		ImageURL:    original.ImageURL,
		Excerpt:     original.Excerpt,
		Content:     content,
		PublishedAt: original.PublishedAt,
		Source:      core.UpdatedSource,
	}
}

// Publish writes content as the updated version of original. The latest updated record
// sharing the original's base identity is updated in place; otherwise a new one is created.
func (c *Controller) Publish(ctx context.Context, original core.ArticleRecord, content string, snapshot []core.ArticleRecord) (Published, error) {
	payload := Payload(original, content, c.now())
	base := BaseIdentity(original.URL)

	if existing, ok := LatestUpdated(snapshot, base); ok {
		rec, err := c.store.Update(ctx, existing.ID, payload)
		if err != nil {
			return Published{}, fmt.Errorf("update article %d: %w", existing.ID, err)
		}
		if rec.ID == 0 {
			rec.ID = existing.ID
		}
		logger.Info("Updated rewritten article", "article_id", original.ID, "updated_id", rec.ID, "base", base)
		return Published{Record: rec, Action: ActionUpdated}, nil
	}

	rec, err := c.store.Create(ctx, payload)
	if err != nil {
		return Published{}, fmt.Errorf("create rewritten article for %d: %w", original.ID, err)
	}
	logger.Info("Created rewritten article", "article_id", original.ID, "created_id", rec.ID, "base", base)
	return Published{Record: rec, Action: ActionCreated}, nil
}

// Cleanup deletes all but the highest-id updated record per base identity. Deletion
// failures are logged and skipped; only successfully deleted ids are returned.
func (c *Controller) Cleanup(ctx context.Context, snapshot []core.ArticleRecord) []int64 {
	groups := make(map[string][]core.ArticleRecord)
	var bases []string
	for _, rec := range snapshot {
		if !rec.IsUpdated() {
			continue
		}
		base := BaseIdentity(rec.URL)
		if _, ok := groups[base]; !ok {
			bases = append(bases, base)
		}
		groups[base] = append(groups[base], rec)
	}

	deleted := []int64{}
	for _, base := range bases {
		group := groups[base]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].ID > group[j].ID })
		for _, rec := range group[1:] {
			if ctx.Err() != nil {
				return deleted
			}
			if err := c.store.Delete(ctx, rec.ID); err != nil {
				logger.Warn("Failed to delete duplicate updated article", "id", rec.ID, "base", base, "error", err)
				continue
			}
			deleted = append(deleted, rec.ID)
		}
	}
	if len(deleted) > 0 {
		logger.Info("Removed duplicate updated articles", "count", len(deleted))
	}
	return deleted
}

// OldestOriginals returns the n oldest originals, undated first, ties broken by id.
// The snapshot is not modified.
func OldestOriginals(snapshot []core.ArticleRecord, n int) []core.ArticleRecord {
	originals := make([]core.ArticleRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.IsOriginal() {
			originals = append(originals, rec)
		}
	}
	sort.SliceStable(originals, func(i, j int) bool {
		a, b := originals[i].PublishedMillis(), originals[j].PublishedMillis()
		if a != b {
			return a < b
		}
		return originals[i].ID < originals[j].ID
	})
	if n >= 0 && len(originals) > n {
		originals = originals[:n]
	}
	return originals
}

// Originals returns the originals of snapshot in store order.
func Originals(snapshot []core.ArticleRecord) []core.ArticleRecord {
	out := make([]core.ArticleRecord, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.IsOriginal() {
			out = append(out, rec)
		}
	}
	return out
}
