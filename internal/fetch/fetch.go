package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"updater/internal/logger"
)

const (
	// DefaultTimeout bounds every page fetch.
	DefaultTimeout = 60 * time.Second
	// DefaultMinTextLength is the shortest extraction a tier may return.
	DefaultMinTextLength = 300
	// DefaultUserAgent mimics a desktop browser; many sites refuse unknown agents.
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	maxBodyBytes = 8 << 20
)

// ErrNoContent is returned when no extraction tier produced enough text.
var ErrNoContent = errors.New("no extractable content")

// FetchError reports a network, timeout or HTTP status failure.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("failed to fetch URL %s: status code %d", e.URL, e.Status)
	}
	return fmt.Sprintf("failed to fetch URL %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError reports HTML that could not be parsed into a DOM.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse HTML from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Content is the clean title/text pair extracted from a page.
type Content struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Tier  string `json:"tier"` // Extraction tier that produced the text
}

// Options configures an Extractor. Zero values fall back to defaults.
type Options struct {
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	MinTextLength  int
	Client         *http.Client
}

// Extractor fetches pages and reduces them to clean text.
type Extractor struct {
	client         *http.Client
	userAgent      string
	acceptLanguage string
	minTextLength  int
	tiers          []tier
	fallback       tier
}

// NewExtractor creates an Extractor.
func NewExtractor(opts Options) *Extractor {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.AcceptLanguage == "" {
		opts.AcceptLanguage = "en-US,en;q=0.9"
	}
	if opts.MinTextLength <= 0 {
		opts.MinTextLength = DefaultMinTextLength
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	return &Extractor{
		client:         client,
		userAgent:      opts.UserAgent,
		acceptLanguage: opts.AcceptLanguage,
		minTextLength:  opts.MinTextLength,
		tiers:          defaultTiers(),
		fallback:       parseFallback,
	}
}

// Extract fetches pageURL and returns its main content. It returns ErrNoContent when every
// tier produced text shorter than the minimum.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (*Content, error) {
	raw, err := e.FetchHTML(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return e.ExtractFromHTML(raw, pageURL)
}

// FetchHTML performs a single GET of pageURL. There are no retries.
func (e *Extractor) FetchHTML(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", e.acceptLanguage)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &FetchError{URL: pageURL, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", &FetchError{URL: pageURL, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	return string(body), nil
}

// ExtractFromHTML sanitizes raw markup and runs the DOM tiers in order, returning the
// first result meeting the minimum length. The regex paragraph tier is only consulted when
// DOM parsing fails.
func (e *Extractor) ExtractFromHTML(raw, pageURL string) (*Content, error) {
	clean := Sanitize(raw)

	for _, t := range e.tiers {
		content, err := t.run(clean)
		if err != nil {
			var perr *ParseError
			if !errors.As(err, &perr) {
				return nil, fmt.Errorf("%w from %s: %v", ErrNoContent, pageURL, err)
			}
			perr.URL = pageURL
			logger.Debug("DOM parsing failed, splitting paragraphs", "url", pageURL, "tier", t.name, "error", err.Error())
			return e.fromFallback(clean, pageURL, perr)
		}
		if len(content.Text) < e.minTextLength {
			logger.Debug("Extraction tier too short", "url", pageURL, "tier", t.name, "length", len(content.Text))
			continue
		}
		content.Tier = t.name
		return &content, nil
	}

	return nil, fmt.Errorf("%w from %s", ErrNoContent, pageURL)
}

func (e *Extractor) fromFallback(clean, pageURL string, cause error) (*Content, error) {
	content, err := e.fallback.run(clean)
	if err != nil || len(content.Text) < e.minTextLength {
		return nil, fmt.Errorf("%w from %s: %v", ErrNoContent, pageURL, cause)
	}
	content.Tier = e.fallback.name
	return &content, nil
}

// extractTitle tries to extract the title from a parsed document.
func extractTitle(doc *goquery.Document) string {
	title := doc.Find("head title").First().Text()
	if title = strings.TrimSpace(title); title != "" {
		return title
	}

	ogTitle, _ := doc.Find("meta[property='og:title']").Attr("content")
	if ogTitle = strings.TrimSpace(ogTitle); ogTitle != "" {
		return ogTitle
	}

	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// normalizeSpace collapses runs of whitespace into single spaces.
func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
