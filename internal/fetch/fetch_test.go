package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// longParagraph returns a sentence repeated until it exceeds n characters.
func longParagraph(seed string, n int) string {
	var b strings.Builder
	for b.Len() < n {
		b.WriteString(seed)
		b.WriteString(" ")
	}
	return strings.TrimSpace(b.String())
}

func TestExtract_Success(t *testing.T) {
	body := longParagraph("Chatbots answer routine questions, and live agents handle the rest.", 500)
	testHTML := `<!DOCTYPE html>
<html>
<head>
    <title>Chatbots vs Live Chat</title>
    <style>body { border: unset; }</style>
</head>
<body>
    <nav><a href="/">Home</a><a href="/blog">Blog</a></nav>
    <article class="post-content">
        <h1>Chatbots vs Live Chat</h1>
        <p>` + body + `</p>
        <p>Teams usually combine both, routing complex cases to humans.</p>
    </article>
    <footer><p>Copyright, all rights reserved, forever and ever.</p></footer>
</body>
</html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") == "" {
			t.Error("Expected a User-Agent header")
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(testHTML))
	}))
	defer server.Close()

	content, err := NewExtractor(Options{}).Extract(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if content.Title != "Chatbots vs Live Chat" {
		t.Errorf("Expected title 'Chatbots vs Live Chat', got '%s'", content.Title)
	}
	if content.Tier != TierReadability {
		t.Errorf("Expected readability tier, got %s", content.Tier)
	}
	if !strings.Contains(content.Text, "routing complex cases") {
		t.Errorf("Expected article text, got: %s", content.Text)
	}
	if strings.Contains(content.Text, "Copyright") {
		t.Error("Footer text should not be part of the extraction")
	}
	if len(content.Text) < DefaultMinTextLength {
		t.Errorf("Expected at least %d chars, got %d", DefaultMinTextLength, len(content.Text))
	}
}

func TestExtract_ShortPageReturnsErrNoContent(t *testing.T) {
	short := longParagraph("Tiny page.", 150)[:150]
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Short</title></head><body><p>` + short + `</p></body></html>`))
	}))
	defer server.Close()

	_, err := NewExtractor(Options{}).Extract(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for short page")
	}
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got: %v", err)
	}
}

func TestExtract_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewExtractor(Options{}).Extract(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for HTTP 404")
	}
	if !strings.Contains(err.Error(), "status code 404") {
		t.Errorf("Expected error to mention status code 404, got: %v", err)
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) || ferr.Status != http.StatusNotFound {
		t.Errorf("Expected *FetchError with status 404, got: %v", err)
	}
}

func TestExtract_InvalidURL(t *testing.T) {
	_, err := NewExtractor(Options{}).Extract(context.Background(), "invalid-url")
	if err == nil {
		t.Error("Expected error for invalid URL")
	}
	var ferr *FetchError
	if !errors.As(err, &ferr) {
		t.Errorf("Expected *FetchError, got: %T", err)
	}
}

func TestExtract_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewExtractor(Options{}).Extract(ctx, server.URL); err == nil {
		t.Error("Expected error for canceled context")
	}
}

func TestExtractTitle(t *testing.T) {
	testCases := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "Title tag",
			html:     `<html><head><title>Test Title</title></head><body></body></html>`,
			expected: "Test Title",
		},
		{
			name:     "OpenGraph title",
			html:     `<html><head><meta property="og:title" content="OG Title"></head><body></body></html>`,
			expected: "OG Title",
		},
		{
			name:     "H1 title",
			html:     `<html><head></head><body><h1>H1 Title</h1></body></html>`,
			expected: "H1 Title",
		},
		{
			name:     "No title",
			html:     `<html><head></head><body><p>No title here</p></body></html>`,
			expected: "",
		},
		{
			name:     "Title with whitespace",
			html:     `<html><head><title>  Spaced Title  </title></head><body></body></html>`,
			expected: "Spaced Title",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			doc, err := goquery.NewDocumentFromReader(strings.NewReader(tc.html))
			if err != nil {
				t.Fatalf("Failed to parse HTML: %v", err)
			}
			result := extractTitle(doc)
			if result != tc.expected {
				t.Errorf("Expected '%s', got '%s'", tc.expected, result)
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	testCases := []struct {
		name       string
		input      string
		absent     []string
		mustRemain []string
	}{
		{
			name:       "Style block",
			input:      `<style>.a{color:red}</style><p>keep</p>`,
			absent:     []string{"<style", "color:red"},
			mustRemain: []string{"<p>keep</p>"},
		},
		{
			name:       "Stylesheet link",
			input:      `<link rel="stylesheet" href="/a.css"><p>keep</p>`,
			absent:     []string{"a.css"},
			mustRemain: []string{"<p>keep</p>"},
		},
		{
			name:       "Inline style attribute",
			input:      `<div style="border: unset; color: red">keep</div>`,
			absent:     []string{"style=", "color: red"},
			mustRemain: []string{"<div>keep</div>"},
		},
		{
			name:       "Unset declarations",
			input:      `<p data-x="outline: unset; margin: unset">keep</p>`,
			absent:     []string{"outline", "unset"},
			mustRemain: []string{"margin: initial"},
		},
		{
			name:       "Scripts untouched",
			input:      `<script>var a = 1;</script>`,
			mustRemain: []string{"var a = 1;"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Sanitize(tc.input)
			for _, s := range tc.absent {
				if strings.Contains(got, s) {
					t.Errorf("Expected %q to be removed, got %s", s, got)
				}
			}
			for _, s := range tc.mustRemain {
				if !strings.Contains(got, s) {
					t.Errorf("Expected %q to remain, got %s", s, got)
				}
			}
		})
	}
}

func TestExtractFromHTML_ContainerTier(t *testing.T) {
	// Short paragraphs are below the scoring threshold, so only the container tier sees them.
	var paragraphs []string
	for i := 0; i < 30; i++ {
		paragraphs = append(paragraphs, "<p>Short line of text.</p>")
	}
	raw := `<html><head><title>Lines</title></head><body><main>` + strings.Join(paragraphs, "") + `</main></body></html>`

	content, err := NewExtractor(Options{}).ExtractFromHTML(raw, "https://example.com/a/b")
	if err != nil {
		t.Fatalf("ExtractFromHTML failed: %v", err)
	}
	if content.Tier != TierContainer {
		t.Errorf("Expected container tier, got %s", content.Tier)
	}
	if content.Title != "Lines" {
		t.Errorf("Expected title 'Lines', got '%s'", content.Title)
	}
	if got := strings.Count(content.Text, "\n"); got != 29 {
		t.Errorf("Expected 30 newline-joined paragraphs, got %d separators", got+1)
	}
}

func TestExtractFromHTML_ChromeDoesNotCountAsContent(t *testing.T) {
	menu := strings.Repeat("Home Pricing Blog Careers Contact Support ", 25)
	body := strings.Repeat("a", 150)
	raw := `<html><head><title>Short post</title></head><body>` +
		`<div class="sidebar">` + menu + `</div>` +
		`<article><p>` + body + `</p></article></body></html>`

	content, err := NewExtractor(Options{}).ExtractFromHTML(raw, "https://example.com/blog/short")
	if !errors.Is(err, ErrNoContent) {
		t.Fatalf("Expected ErrNoContent, got content %+v, err %v", content, err)
	}
}

func TestExtractFromHTML_ParseFailureUsesParagraphs(t *testing.T) {
	e := NewExtractor(Options{})
	e.tiers = []tier{{name: "broken", run: func(string) (Content, error) {
		return Content{}, &ParseError{Err: errors.New("unparseable")}
	}}}

	raw := `<p>` + strings.Repeat("Paragraph text survives. ", 20) + `</p>`
	content, err := e.ExtractFromHTML(raw, "https://example.com/a/b")
	if err != nil {
		t.Fatalf("ExtractFromHTML failed: %v", err)
	}
	if content.Tier != TierParagraphs {
		t.Errorf("Expected paragraph tier, got %s", content.Tier)
	}

	_, err = e.ExtractFromHTML(`<p>too short</p>`, "https://example.com/a/b")
	if !errors.Is(err, ErrNoContent) {
		t.Errorf("Expected ErrNoContent, got %v", err)
	}
}

func TestParagraphTier(t *testing.T) {
	raw := `<script>ignored()</script><p>First &amp; best</p><div><p class="x">Second <b>bold</b></p></div>`
	content, err := paragraphTier(raw)
	if err != nil {
		t.Fatalf("paragraphTier failed: %v", err)
	}
	if content.Title != "" {
		t.Errorf("Expected no title, got '%s'", content.Title)
	}
	if strings.Contains(content.Text, "ignored") {
		t.Error("Script content should be dropped")
	}
	if !strings.Contains(content.Text, "First & best") || !strings.Contains(content.Text, "Second bold") {
		t.Errorf("Unexpected paragraph text: %q", content.Text)
	}
}

func TestNewExtractorDefaults(t *testing.T) {
	e := NewExtractor(Options{MinTextLength: -1})
	if e.minTextLength != DefaultMinTextLength {
		t.Errorf("Expected default min text length, got %d", e.minTextLength)
	}
	if e.userAgent != DefaultUserAgent {
		t.Errorf("Expected default user agent, got %s", e.userAgent)
	}
	if len(e.tiers) != 2 {
		t.Errorf("Expected 2 DOM tiers, got %d", len(e.tiers))
	}
	if e.fallback.name != TierParagraphs {
		t.Errorf("Expected paragraph fallback, got %s", e.fallback.name)
	}
}
