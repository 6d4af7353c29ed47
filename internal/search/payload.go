package search

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"updater/internal/classify"
	"updater/internal/core"
)

// Response modes a search endpoint can be asked for.
const (
	ModeJSON = "json"
	ModeText = "text"
	ModeHTML = "html"
)

// Validator issues.
const (
	IssueTextReturnedHTML      = "text_format_returned_html"
	IssueJSONResultsEmpty      = "json_results_empty"
	IssueJSONDecodeFailed      = "json_decode_failed"
	IssueInsufficientValidURLs = "insufficient_valid_article_urls"
)

// minValidURLs is the number of eligible URLs a response needs to count as a success.
const minValidURLs = 2

// Payload is a search response classified by the shape it actually has, which is not always
// the shape that was requested. Each variant validates itself.
type Payload interface {
	Kind() string
	Validate(query, requested string, classifier *classify.Classifier) core.SearchAnalysis
}

// JSONPayload is a decoded SearxNG JSON response.
type JSONPayload struct {
	Results []struct {
		URL   string `json:"url"`
		Title string `json:"title"`
	} `json:"results"`
	DecodeErr error `json:"-"`
}

// TextPayload is a plain text response; URLs are found by pattern.
type TextPayload struct {
	Body string
}

// HTMLPayload is a markup response; URLs are taken from anchors.
type HTMLPayload struct {
	Body string
}

// ClassifyPayload wraps body in the variant matching its shape. A body containing an html
// element is HTML whatever was requested.
func ClassifyPayload(requested string, body []byte) Payload {
	if bytes.Contains(bytes.ToLower(body), []byte("<html")) || requested == ModeHTML {
		return HTMLPayload{Body: string(body)}
	}
	if requested == ModeJSON {
		var p JSONPayload
		if err := json.Unmarshal(body, &p); err != nil {
			p.DecodeErr = err
		}
		return p
	}
	return TextPayload{Body: string(body)}
}

func (JSONPayload) Kind() string { return ModeJSON }
func (TextPayload) Kind() string { return ModeText }
func (HTMLPayload) Kind() string { return ModeHTML }

// Validate collects eligible result URLs.
func (p JSONPayload) Validate(query, requested string, classifier *classify.Classifier) core.SearchAnalysis {
	var issues []string
	if p.DecodeErr != nil {
		issues = append(issues, IssueJSONDecodeFailed)
	}
	if len(p.Results) == 0 {
		issues = append(issues, IssueJSONResultsEmpty)
	}
	urls := make([]string, 0, len(p.Results))
	for _, r := range p.Results {
		urls = append(urls, r.URL)
	}
	return analyze(query, requested, issues, urls, classifier)
}

var textURLPattern = regexp.MustCompile(`https?://[^\s)"']+`)

// Validate collects eligible URLs appearing anywhere in the text.
func (p TextPayload) Validate(query, requested string, classifier *classify.Classifier) core.SearchAnalysis {
	return analyze(query, requested, nil, textURLPattern.FindAllString(p.Body, -1), classifier)
}

// Validate collects eligible anchor targets. Markup returned for a non-HTML request is
// flagged but still mined for URLs.
func (p HTMLPayload) Validate(query, requested string, classifier *classify.Classifier) core.SearchAnalysis {
	var issues []string
	if requested != ModeHTML {
		issues = append(issues, IssueTextReturnedHTML)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(p.Body))
	if err != nil {
		return analyze(query, requested, issues, textURLPattern.FindAllString(p.Body, -1), classifier)
	}
	var urls []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		urls = append(urls, strings.TrimSpace(href))
	})
	return analyze(query, requested, issues, urls, classifier)
}

func analyze(query, requested string, issues, urls []string, classifier *classify.Classifier) core.SearchAnalysis {
	valid := make([]string, 0, len(urls))
	seen := make(map[string]bool)
	for _, u := range urls {
		if u == "" || seen[u] || !classifier.IsEligible(u) {
			continue
		}
		seen[u] = true
		valid = append(valid, u)
	}
	if len(valid) < minValidURLs {
		issues = append(issues, IssueInsufficientValidURLs)
	}
	if issues == nil {
		issues = []string{}
	}
	return core.SearchAnalysis{Query: query, Mode: requested, Issues: issues, ValidURLs: valid}
}
