package references

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"updater/internal/core"
	"updater/internal/fetch"
	"updater/internal/search"
)

type fakeSearcher struct {
	outcome        search.Outcome
	primaryOutcome search.Outcome
	primaryMax     int
}

func (f *fakeSearcher) Search(ctx context.Context, topic string) (search.Outcome, error) {
	if err := ctx.Err(); err != nil {
		return search.Outcome{}, err
	}
	return f.outcome, nil
}

func (f *fakeSearcher) SearchPrimary(_ context.Context, _ string, maxResults int) (search.Outcome, error) {
	f.primaryMax = maxResults
	return f.primaryOutcome, nil
}

func outcomeOf(urls ...string) search.Outcome {
	o := search.Outcome{Query: "topic -site:beyondchats.com"}
	for _, u := range urls {
		o.Candidates = append(o.Candidates, search.Candidate{URL: u, Provider: "mock"})
	}
	return o
}

// fakeExtractor serves text of a fixed length per URL and tracks concurrency.
type fakeExtractor struct {
	lengths  map[string]int
	failures map[string]error
	delay    time.Duration

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	mu          sync.Mutex
	calls       []string
}

func (f *fakeExtractor) Extract(ctx context.Context, url string) (*fetch.Content, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		cur := f.maxInFlight.Load()
		if n <= cur || f.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err := f.failures[url]; err != nil {
		return nil, err
	}
	return &fetch.Content{Title: "Title of " + url, Text: strings.Repeat("x", f.lengths[url])}, nil
}

func TestFindReferencesSelectsFirstTwoQualifying(t *testing.T) {
	searcher := &fakeSearcher{outcome: outcomeOf(
		"https://a.com/blog/short",
		"https://a.com/blog/dup",
		"https://b.com/news/long",
		"https://youtube.com/watch/v",
		"https://c.com/blog/broken",
		"https://d.com/blog/long",
		"https://e.com/blog/long",
	)}
	extractor := &fakeExtractor{
		lengths: map[string]int{
			"https://a.com/blog/short": 800,
			"https://b.com/news/long":  900,
			"https://d.com/blog/long":  801,
			"https://e.com/blog/long":  5000,
		},
		failures: map[string]error{"https://c.com/blog/broken": &fetch.FetchError{URL: "https://c.com/blog/broken", Status: 500}},
	}

	selection, err := NewSelector(searcher, extractor, nil, nil, Options{}).FindReferences(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, []string{"https://b.com/news/long", "https://d.com/blog/long"}, selection.URLs())
	for _, ref := range selection.References {
		assert.Greater(t, len(ref.Text), DefaultMinContent)
	}

	d := selection.Decision
	assert.Equal(t, "topic -site:beyondchats.com", d.Query)
	assert.Equal(t, []string{"https://b.com/news/long", "https://d.com/blog/long", "https://e.com/blog/long"}, d.Accepted)

	reasons := map[string]string{}
	for _, r := range d.Rejected {
		reasons[r.URL] = r.Reason
	}
	assert.Equal(t, map[string]string{
		"https://a.com/blog/dup":      core.ReasonDuplicateDomain,
		"https://youtube.com/watch/v": core.ReasonNotArticle,
		"https://a.com/blog/short":    core.ReasonContentTooShort,
		"https://c.com/blog/broken":   core.ReasonExtractionFailed,
	}, reasons)
}

func TestFindReferencesBoundsCandidatesAndConcurrency(t *testing.T) {
	var urls []string
	lengths := map[string]int{}
	for i := 0; i < 9; i++ {
		u := fmt.Sprintf("https://host%d.com/blog/post", i)
		urls = append(urls, u)
		lengths[u] = 1000
	}
	extractor := &fakeExtractor{lengths: lengths, delay: 20 * time.Millisecond}

	selection, err := NewSelector(&fakeSearcher{outcome: outcomeOf(urls...)}, extractor, nil, nil, Options{}).FindReferences(context.Background(), "topic")
	require.NoError(t, err)

	assert.Len(t, extractor.calls, DefaultMaxCandidates)
	assert.LessOrEqual(t, extractor.maxInFlight.Load(), int32(DefaultConcurrency))
	assert.Equal(t, urls[:2], selection.URLs())

	var overflow int
	for _, r := range selection.Decision.Rejected {
		if r.Reason == core.ReasonCandidateOverflow {
			overflow++
		}
	}
	assert.Equal(t, 3, overflow)
}

func TestFindReferencesInsufficient(t *testing.T) {
	searcher := &fakeSearcher{outcome: outcomeOf("https://a.com/blog/one", "https://b.com/blog/two")}
	extractor := &fakeExtractor{
		lengths:  map[string]int{"https://a.com/blog/one": 2000},
		failures: map[string]error{"https://b.com/blog/two": fmt.Errorf("%w from x", fetch.ErrNoContent)},
	}

	selection, err := NewSelector(searcher, extractor, nil, nil, Options{}).FindReferences(context.Background(), "topic")
	assert.ErrorIs(t, err, ErrInsufficientReferences)
	assert.Len(t, selection.References, 1)
	assert.Equal(t, []core.RejectedURL{{URL: "https://b.com/blog/two", Reason: core.ReasonContentTooShort}}, selection.Decision.Rejected)
}

func TestFindReferencesPrimaryOnlyAllowsSameHost(t *testing.T) {
	searcher := &fakeSearcher{primaryOutcome: outcomeOf(
		"https://a.com/blog/one",
		"https://a.com/blog/two",
		"https://a.com/blog/one",
		"https://a.com/",
	)}
	extractor := &fakeExtractor{lengths: map[string]int{
		"https://a.com/blog/one": 1000,
		"https://a.com/blog/two": 1000,
	}}

	selection, err := NewSelector(searcher, extractor, nil, nil, Options{}).FindReferencesPrimaryOnly(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, DefaultPrimaryMaxCandidates, searcher.primaryMax)
	assert.Equal(t, []string{"https://a.com/blog/one", "https://a.com/blog/two"}, selection.URLs())
	assert.Equal(t, []core.RejectedURL{{URL: "https://a.com/", Reason: core.ReasonNotArticle}}, selection.Decision.Rejected)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]core.Reference
	saves int
}

func (m *memoryCache) Lookup(_ context.Context, url string) (core.Reference, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ref, ok := m.items[url]
	return ref, ok, nil
}

func (m *memoryCache) Save(_ context.Context, ref core.Reference) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[ref.URL] = ref
	m.saves++
	return nil
}

func TestFindReferencesUsesCache(t *testing.T) {
	cache := &memoryCache{items: map[string]core.Reference{
		"https://a.com/blog/one": {URL: "https://a.com/blog/one", Title: "cached", Text: strings.Repeat("c", 1500)},
	}}
	searcher := &fakeSearcher{outcome: outcomeOf("https://a.com/blog/one", "https://b.com/blog/two")}
	extractor := &fakeExtractor{lengths: map[string]int{"https://b.com/blog/two": 1200}}

	selection, err := NewSelector(searcher, extractor, nil, cache, Options{}).FindReferences(context.Background(), "topic")
	require.NoError(t, err)

	assert.Equal(t, "cached", selection.References[0].Title)
	assert.Equal(t, []string{"https://b.com/blog/two"}, extractor.calls)
	assert.Equal(t, 1, cache.saves)
}

func TestFindReferencesCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewSelector(&fakeSearcher{}, &fakeExtractor{}, nil, nil, Options{}).FindReferences(ctx, "topic")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDiscoverDoesNotExtract(t *testing.T) {
	searcher := &fakeSearcher{outcome: outcomeOf(
		"https://a.com/blog/one",
		"https://a.com/blog/two",
		"https://b.com/news/three",
	)}
	extractor := &fakeExtractor{lengths: map[string]int{
		"https://a.com/blog/one":   900,
		"https://b.com/news/three": 900,
	}}
	selector := NewSelector(searcher, extractor, nil, nil, Options{})

	candidates, err := selector.Discover(context.Background(), "topic")
	require.NoError(t, err)
	assert.Empty(t, extractor.calls)
	assert.Equal(t, "topic", candidates.Topic)
	assert.Equal(t, DefaultMaxCandidates, candidates.Limit)
	assert.Equal(t, []string{"https://a.com/blog/one", "https://b.com/news/three"}, candidates.Accepted)
	require.Len(t, candidates.Rejected, 1)
	assert.Equal(t, core.ReasonDuplicateDomain, candidates.Rejected[0].Reason)

	selection, err := selector.Select(context.Background(), candidates)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/blog/one", "https://b.com/news/three"}, selection.URLs())
	assert.Len(t, extractor.calls, 2)
}
