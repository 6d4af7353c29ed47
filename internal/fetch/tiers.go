package fetch

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Tier names, reported on Content.Tier.
const (
	TierReadability = "readability"
	TierContainer   = "container"
	TierParagraphs  = "paragraphs"
)

type tier struct {
	name string
	run  func(clean string) (Content, error)
}

// defaultTiers are the DOM tiers, tried in order while they return short text.
func defaultTiers() []tier {
	return []tier{
		{name: TierReadability, run: readabilityTier},
		{name: TierContainer, run: containerTier},
	}
}

// parseFallback runs only when the markup could not be parsed into a DOM. It is never
// used to lengthen short DOM results because it keeps text outside paragraphs.
var parseFallback = tier{name: TierParagraphs, run: paragraphTier}

func parseDocument(clean string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(clean))
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return doc, nil
}

var (
	unlikelyElements = "script, style, noscript, iframe, svg, form, nav, header, footer, aside, button"
	positiveHint     = regexp.MustCompile(`(?i)article|body|content|entry|main|post|text|blog|story`)
	negativeHint     = regexp.MustCompile(`(?i)comment|footer|sidebar|widget|share|social|related|promo|sponsor|banner|menu|nav|cookie|subscribe`)
)

const minScoredParagraph = 25

// readabilityTier scores block containers by the paragraphs they hold and returns the text
// of the best-scoring one.
func readabilityTier(clean string) (Content, error) {
	doc, err := parseDocument(clean)
	if err != nil {
		return Content{}, err
	}
	title := extractTitle(doc)
	doc.Find(unlikelyElements).Remove()

	scores := make(map[*html.Node]float64)
	var order []*html.Node

	addScore := func(n *html.Node, s float64) {
		if n == nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := scores[n]; !ok {
			scores[n] = classWeight(n)
			order = append(order, n)
		}
		scores[n] += s
	}

	doc.Find("p, pre, td").Each(func(_ int, p *goquery.Selection) {
		text := normalizeSpace(p.Text())
		if len(text) < minScoredParagraph {
			return
		}
		score := 1 + float64(strings.Count(text, ",")) + math.Min(float64(len(text))/100, 3)
		node := p.Nodes[0]
		addScore(node.Parent, score)
		if node.Parent != nil {
			addScore(node.Parent.Parent, score/2)
		}
	})

	if len(order) == 0 {
		return Content{Title: title}, nil
	}

	for _, n := range order {
		scores[n] *= 1 - linkDensity(goquery.NewDocumentFromNode(n).Selection)
	}
	sort.SliceStable(order, func(i, j int) bool { return scores[order[i]] > scores[order[j]] })

	top := goquery.NewDocumentFromNode(order[0]).Selection
	return Content{Title: title, Text: blockText(top)}, nil
}

func classWeight(n *html.Node) float64 {
	var weight float64
	for _, attr := range n.Attr {
		if attr.Key != "class" && attr.Key != "id" {
			continue
		}
		if negativeHint.MatchString(attr.Val) {
			weight -= 25
		}
		if positiveHint.MatchString(attr.Val) {
			weight += 25
		}
	}
	return weight
}

func linkDensity(s *goquery.Selection) float64 {
	total := len(normalizeSpace(s.Text()))
	if total == 0 {
		return 0
	}
	var linked int
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linked += len(normalizeSpace(a.Text()))
	})
	return float64(linked) / float64(total)
}

// blockText joins the readable blocks under s, one per line.
func blockText(s *goquery.Selection) string {
	var lines []string
	s.Find("h1, h2, h3, h4, p, li, blockquote, pre").Each(func(_ int, b *goquery.Selection) {
		// Nested blocks are emitted by their innermost element only.
		if b.Find("p, li, blockquote, pre").Length() > 0 {
			return
		}
		if text := normalizeSpace(b.Text()); text != "" {
			lines = append(lines, text)
		}
	})
	if len(lines) == 0 {
		return normalizeSpace(s.Text())
	}
	return strings.Join(lines, "\n")
}

// containerTier joins the paragraphs of the first of article, main, #content or body.
func containerTier(clean string) (Content, error) {
	doc, err := parseDocument(clean)
	if err != nil {
		return Content{}, err
	}
	title := strings.TrimSpace(doc.Find("head title").First().Text())

	target := doc.Find("body")
	for _, selector := range []string{"article", "main", "#content"} {
		if found := doc.Find(selector).First(); found.Length() > 0 {
			target = found
			break
		}
	}

	var paragraphs []string
	target.Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	})
	return Content{Title: title, Text: strings.Join(paragraphs, "\n")}, nil
}

var (
	scriptBlock  = regexp.MustCompile(`(?is)<script.*?</script>`)
	styleBlock   = regexp.MustCompile(`(?is)<style.*?</style>`)
	paragraphTag = regexp.MustCompile(`(?i)</?p[^>]*>`)
	anyTag       = regexp.MustCompile(`<[^>]+>`)
)

// paragraphTier splits raw markup on paragraph tags without building a DOM. It never fails
// and never reports a title.
func paragraphTier(clean string) (Content, error) {
	plain := styleBlock.ReplaceAllString(scriptBlock.ReplaceAllString(clean, ""), "")

	var paragraphs []string
	for _, chunk := range paragraphTag.Split(plain, -1) {
		if text := strings.TrimSpace(anyTag.ReplaceAllString(chunk, "")); text != "" {
			paragraphs = append(paragraphs, html.UnescapeString(text))
		}
	}
	return Content{Text: strings.Join(paragraphs, "\n")}, nil
}
