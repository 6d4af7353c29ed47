package search

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"updater/internal/config"
)

func TestProviderTypeConstants(t *testing.T) {
	expectedTypes := map[ProviderType]string{
		ProviderTypeSearx:      "searx",
		ProviderTypeDuckDuckGo: "duckduckgo",
		ProviderTypeBing:       "bing",
		ProviderTypeGoogle:     "google",
		ProviderTypeSeeds:      "seeds",
		ProviderTypeMock:       "mock",
	}

	for providerType, expectedValue := range expectedTypes {
		if string(providerType) != expectedValue {
			t.Errorf("Expected %s to be %s, got %s", providerType, expectedValue, string(providerType))
		}
	}
}

func TestWithSiteExclusion(t *testing.T) {
	testCases := []struct {
		query, domain, expected string
	}{
		{"chatbots", "beyondchats.com", "chatbots -site:beyondchats.com"},
		{"chatbots -site:beyondchats.com", "beyondchats.com", "chatbots -site:beyondchats.com"},
		{"chatbots", "", "chatbots"},
	}
	for _, tc := range testCases {
		if got := WithSiteExclusion(tc.query, tc.domain); got != tc.expected {
			t.Errorf("WithSiteExclusion(%q, %q) = %q, want %q", tc.query, tc.domain, got, tc.expected)
		}
	}
}

func TestCreateProviderGoogleRequiresCredentials(t *testing.T) {
	factory := NewProviderFactory(nil, nil)

	_, err := factory.CreateProvider(ProviderTypeGoogle, map[string]string{"search_id": "cx"})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Expected ErrMissingAPIKey, got %v", err)
	}

	_, err = factory.CreateProvider(ProviderTypeGoogle, map[string]string{"api_key": "key"})
	if !errors.Is(err, ErrMissingSearchID) {
		t.Errorf("Expected ErrMissingSearchID, got %v", err)
	}

	provider, err := factory.CreateProvider(ProviderTypeGoogle, map[string]string{"api_key": "key", "search_id": "cx"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if provider.GetName() != "Google Custom Search" {
		t.Errorf("Unexpected provider name %s", provider.GetName())
	}
}

func TestCreateUnsupportedProvider(t *testing.T) {
	factory := NewProviderFactory(nil, nil)
	if _, err := factory.CreateProvider("altavista", nil); !errors.Is(err, ErrUnsupportedProvider) {
		t.Errorf("Expected ErrUnsupportedProvider, got %v", err)
	}
}

func TestBuildCascadeOrder(t *testing.T) {
	cfg := &config.Config{}
	cfg.Search.Providers.Searx.URL = "http://searx.test/search"
	cfg.Search.Providers.DuckDuckGo.Enabled = true
	cfg.Search.Providers.Bing.Enabled = true

	providers, err := NewProviderFactory(nil, nil).BuildCascade(cfg)
	if err != nil {
		t.Fatalf("BuildCascade failed: %v", err)
	}
	var names []string
	for _, p := range providers {
		names = append(names, p.GetName())
	}
	expected := "SearxNG,DuckDuckGo,Bing,TopicSeeds"
	if got := strings.Join(names, ","); got != expected {
		t.Errorf("Expected cascade %s, got %s", expected, got)
	}

	cfg.Search.Providers.Google.APIKey = "real-key"
	cfg.Search.Providers.Google.SearchID = "real-cx"
	cfg.Search.Providers.Bing.Enabled = false
	providers, err = NewProviderFactory(nil, nil).BuildCascade(cfg)
	if err != nil {
		t.Fatalf("BuildCascade failed: %v", err)
	}
	names = names[:0]
	for _, p := range providers {
		names = append(names, p.GetName())
	}
	expected = "SearxNG,DuckDuckGo,Google Custom Search,TopicSeeds"
	if got := strings.Join(names, ","); got != expected {
		t.Errorf("Expected cascade %s, got %s", expected, got)
	}
}

func TestDuckDuckGoSearch(t *testing.T) {
	page := `<html><body>
<div class="result results_links">
  <h2 class="result__title"><a class="result__a" href="//duckduckgo.com/l/?uddg=https%3A%2F%2Fwww.zendesk.com%2Fblog%2Fchatbots-vs-live-chat%2F&rut=abc">Chatbots vs live chat</a></h2>
  <a class="result__snippet" href="#">Compare the two.</a>
</div>
<div class="result">
  <a class="result__a" href="https://freshdesk.com/customer-engagement/chatbots-vs-live-chat-blog/">Freshdesk</a>
</div>
<div class="result">
  <a class="result__a" href="https://beyondchats.com/blogs/own-post/">Own post</a>
</div>
<div class="result">
  <a class="result__a" href="/relative/link">Relative</a>
</div>
</body></html>`

	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	provider := NewDuckDuckGoProvider(server.URL, server.Client())
	results, err := provider.Search(context.Background(), "chatbots -site:beyondchats.com", Config{ExcludeDomain: "beyondchats.com"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if gotQuery != "chatbots -site:beyondchats.com" {
		t.Errorf("Unexpected query sent: %q", gotQuery)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d: %+v", len(results), results)
	}
	if results[0].URL != "https://www.zendesk.com/blog/chatbots-vs-live-chat/" {
		t.Errorf("Expected decoded redirect URL, got %s", results[0].URL)
	}
	if results[0].Domain != "zendesk.com" || results[0].Rank != 1 {
		t.Errorf("Unexpected first result metadata: %+v", results[0])
	}
	if results[0].Snippet != "Compare the two." {
		t.Errorf("Expected snippet, got %q", results[0].Snippet)
	}
}

func TestDuckDuckGoCaptcha(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><form id="captcha">Please solve the CAPTCHA</form></body></html>`))
	}))
	defer server.Close()

	_, err := NewDuckDuckGoProvider(server.URL, server.Client()).Search(context.Background(), "q", Config{})
	if !errors.Is(err, ErrBlocked) {
		t.Errorf("Expected ErrBlocked, got %v", err)
	}
}

func TestDuckDuckGoExtractFinalURL(t *testing.T) {
	d := NewDuckDuckGoProvider("", nil)
	testCases := map[string]string{
		"/l/?uddg=https%3A%2F%2Fexample.com%2Fa%2Fb&rut=x":                 "https://example.com/a/b",
		"//duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fa%2Fb&rut=x": "https://example.com/a/b",
		"https://example.com/direct/link":                                  "https://example.com/direct/link",
		"/settings":                                                        "",
	}
	for input, expected := range testCases {
		if got := d.extractFinalURL(input); got != expected {
			t.Errorf("extractFinalURL(%q) = %q, want %q", input, got, expected)
		}
	}
}

func TestBingSearch(t *testing.T) {
	page := `<html><body><ol id="b_results">
<li class="b_algo"><h2><a href="https://www.helpscout.com/blog/customer-service-problems/">Help Scout</a></h2>
  <div class="b_caption"><p>Common problems.</p></div></li>
<li class="b_algo"><h2><a href="https://www.zendesk.com/blog/common-customer-service-problems/">Zendesk</a></h2></li>
<li class="b_ans"><h2><a href="https://www.zendesk.com/blog/common-customer-service-problems/">Duplicate</a></h2></li>
<li class="b_algo"><h2><a href="https://beyondchats.com/blogs/x/">Own</a></h2></li>
</ol></body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("count") != "20" {
			t.Errorf("Expected count=20, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(page))
	}))
	defer server.Close()

	results, err := NewBingProvider(server.URL, server.Client()).Search(context.Background(), "customer service issues", Config{ExcludeDomain: "beyondchats.com"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %+v", results)
	}
	if results[0].Snippet != "Common problems." {
		t.Errorf("Expected snippet from caption, got %q", results[0].Snippet)
	}
	if results[1].Source != "Bing" {
		t.Errorf("Expected source Bing, got %s", results[1].Source)
	}
}

func TestBingHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewBingProvider(server.URL, server.Client()).Search(context.Background(), "q", Config{})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("Expected status error, got %v", err)
	}
}

func TestGoogleSearch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "key" || q.Get("cx") != "cx" {
			t.Errorf("Missing credentials in %s", r.URL.RawQuery)
		}
		if q.Get("num") != "10" {
			t.Errorf("Expected num capped at 10, got %s", q.Get("num"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[
			{"title":"A","link":"https://a.com/blog/one","snippet":"s1"},
			{"title":"B","link":"https://b.org/news/two","snippet":"s2"}]}`))
	}))
	defer server.Close()

	provider := NewGoogleProvider("key", "cx").WithEndpoint(server.URL)
	results, err := provider.Search(context.Background(), "chatbots", Config{MaxResults: 25})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 || results[1].Domain != "b.org" {
		t.Errorf("Unexpected results: %+v", results)
	}
}

func TestGoogleAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota"}}`))
	}))
	defer server.Close()

	_, err := NewGoogleProvider("key", "cx").WithEndpoint(server.URL).Search(context.Background(), "q", Config{})
	if err == nil || !strings.Contains(err.Error(), "quota") {
		t.Errorf("Expected API error, got %v", err)
	}
}

func TestMockProvider(t *testing.T) {
	mock := NewMockProvider("Mock", "https://a.com/x/1", "https://b.com/x/2", "https://c.com/x/3")

	results, err := mock.Search(context.Background(), "topic", Config{MaxResults: 2})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results, got %d", len(results))
	}

	mock.SetError(ErrProviderUnavailable)
	if _, err := mock.Search(context.Background(), "again", Config{}); !errors.Is(err, ErrProviderUnavailable) {
		t.Errorf("Expected configured error, got %v", err)
	}
	if got := mock.Queries(); len(got) != 2 || got[1] != "again" {
		t.Errorf("Unexpected recorded queries %v", got)
	}
}
