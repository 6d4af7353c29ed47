package search

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// SeedRule maps a set of keywords to curated reference URLs. A rule matches when the query
// contains every keyword, case-insensitively.
type SeedRule struct {
	Keywords []string `yaml:"keywords"`
	URLs     []string `yaml:"urls"`
}

// SeedLibrary is the curated fallback used when no live provider yields enough candidates.
type SeedLibrary struct {
	Rules   []SeedRule `yaml:"rules"`
	Default []string   `yaml:"default"`
}

// DefaultSeeds covers the recurring topics of the corpus.
var DefaultSeeds = SeedLibrary{
	Rules: []SeedRule{
		{
			Keywords: []string{"live chat", "chatbot"},
			URLs: []string{
				"https://freshdesk.com/customer-engagement/chatbots-vs-live-chat-blog/",
				"https://www.zendesk.com/blog/chatbots-vs-live-chat/",
			},
		},
		{
			Keywords: []string{"customer service", "issues"},
			URLs: []string{
				"https://www.zendesk.com/blog/common-customer-service-problems/",
				"https://www.helpscout.com/blog/customer-service-problems/",
			},
		},
		{
			Keywords: []string{"customer service", "platform"},
			URLs: []string{
				"https://www.zendesk.com/blog/customer-service-platform/",
				"https://freshdesk.com/customer-service/software/customer-service-platform-blog/",
			},
		},
		{
			Keywords: []string{"e-commerce", "chatbot"},
			URLs: []string{
				"https://www.shopify.com/blog/chatbots",
				"https://www.bigcommerce.com/blog/chatbots/",
			},
		},
		{
			Keywords: []string{"sales hero"},
			URLs: []string{
				"https://www.salesforcesearch.com/blog/httpwww-salesforcesearch-combid1826183-tips-to-transforming-yourself-from-a-sales-zero-to-hero/",
				"https://milkshakehairpro.com/blogs/news/how-to-use-a-hero-strategy-to-boost-retail-sales",
			},
		},
	},
	Default: []string{
		"https://en.wikipedia.org/wiki/Chatbot",
		"https://www.ibm.com/think/topics/chatbots",
	},
}

// LoadSeeds reads a YAML seed library from path. Its rules are consulted before the
// built-in ones; its default list, when present, replaces the built-in default.
func LoadSeeds(path string) (SeedLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedLibrary{}, fmt.Errorf("failed to read seeds file: %w", err)
	}
	var lib SeedLibrary
	if err := yaml.Unmarshal(data, &lib); err != nil {
		return SeedLibrary{}, fmt.Errorf("failed to parse seeds file %s: %w", path, err)
	}
	for i, rule := range lib.Rules {
		if len(rule.Keywords) == 0 || len(rule.URLs) == 0 {
			return SeedLibrary{}, fmt.Errorf("seeds file %s: rule %d needs keywords and urls", path, i)
		}
	}
	return lib.Merge(DefaultSeeds), nil
}

// Merge returns l followed by fallback's rules, keeping l's default when set.
func (l SeedLibrary) Merge(fallback SeedLibrary) SeedLibrary {
	merged := SeedLibrary{
		Rules:   append(append([]SeedRule{}, l.Rules...), fallback.Rules...),
		Default: l.Default,
	}
	if len(merged.Default) == 0 {
		merged.Default = fallback.Default
	}
	return merged
}

// Match returns the URLs of the first rule matching topic, or the default list.
func (l SeedLibrary) Match(topic string) []string {
	t := strings.ToLower(topic)
	for _, rule := range l.Rules {
		if rule.matches(t) {
			return append([]string{}, rule.URLs...)
		}
	}
	return append([]string{}, l.Default...)
}

func (r SeedRule) matches(lowerTopic string) bool {
	for _, k := range r.Keywords {
		if !strings.Contains(lowerTopic, strings.ToLower(k)) {
			return false
		}
	}
	return true
}

// SeedProvider serves curated URLs as a last-resort provider.
type SeedProvider struct {
	library SeedLibrary
}

// NewSeedProvider creates a provider over library.
func NewSeedProvider(library SeedLibrary) *SeedProvider {
	return &SeedProvider{library: library}
}

// GetName returns the name of this provider
func (s *SeedProvider) GetName() string {
	return "TopicSeeds"
}

// Search returns the curated URLs for query. It never fails.
func (s *SeedProvider) Search(_ context.Context, query string, config Config) ([]Result, error) {
	urls := s.library.Match(query)
	links := make([]link, 0, len(urls))
	for _, u := range urls {
		links = append(links, link{href: u})
	}
	return collectResults(links, s.GetName(), config), nil
}
