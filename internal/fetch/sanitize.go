package fetch

import "regexp"

var sanitizeRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)border-width\s*:\s*unset`), ""},
	{regexp.MustCompile(`(?i)border\s*:\s*unset`), ""},
	{regexp.MustCompile(`(?i)outline\s*:\s*unset`), ""},
	{regexp.MustCompile(`(?i):\s*unset`), ": initial"},
	{regexp.MustCompile(`(?is)<style.*?</style>`), ""},
	{regexp.MustCompile(`(?i)<link[^>]+rel=["']?stylesheet["']?[^>]*>`), ""},
	{regexp.MustCompile(`(?i)\sstyle="[^"]*"`), ""},
}

// Sanitize strips styling from raw HTML before parsing: unset declarations, style blocks,
// stylesheet links and inline style attributes. Scripts are left for the DOM tiers to drop.
func Sanitize(raw string) string {
	s := raw
	for _, rule := range sanitizeRules {
		s = rule.pattern.ReplaceAllString(s, rule.replacement)
	}
	return s
}
