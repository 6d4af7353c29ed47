// Package classify decides which candidate URLs can serve as independent article references.
package classify

import (
	"net/url"
	"strings"

	"updater/internal/core"
)

// DefaultBlockedDomains are domains that never yield usable articles: the ingestion
// source itself, the search aggregator, and video, social, archive, retail, code-hosting and
// search-engine sites.
var DefaultBlockedDomains = []string{
	"beyondchats.com",
	"searxng.matrixaiserver.com",
	"w3.org",
	"web.archive.org",
	"youtube.com",
	"youtu.be",
	"twitter.com",
	"x.com",
	"facebook.com",
	"instagram.com",
	"reddit.com",
	"linkedin.com",
	"amazon.",
	"github.com",
	"google.",
	"webcache.googleusercontent.com",
}

// minPathSegments filters out index and home pages.
const minPathSegments = 2

// Classifier filters candidate URLs.
type Classifier struct {
	blocked []string
}

// Filtered is the result of FilterWithReasons.
type Filtered struct {
	Accepted []string
	Rejected []core.RejectedURL
}

// New returns a Classifier blocking DefaultBlockedDomains plus extra.
func New(extra ...string) *Classifier {
	blocked := make([]string, 0, len(DefaultBlockedDomains)+len(extra))
	blocked = append(blocked, DefaultBlockedDomains...)
	for _, d := range extra {
		if d = strings.ToLower(strings.TrimSpace(d)); d != "" {
			blocked = append(blocked, d)
		}
	}
	return &Classifier{blocked: blocked}
}

var defaultClassifier = New()

// IsEligible reports whether u looks like an article on a non-blocked domain, using the default blocklist.
func IsEligible(u string) bool {
	return defaultClassifier.IsEligible(u)
}

// FilterWithReasons applies the default classifier to urls.
func FilterWithReasons(urls []string) Filtered {
	return defaultClassifier.FilterWithReasons(urls)
}

// IsEligible reports whether u is an http(s) URL on a non-blocked host whose path has at
// least two non-empty segments.
func (c *Classifier) IsEligible(u string) bool {
	parsed, ok := parse(u)
	if !ok {
		return false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false
	}
	if c.IsBlockedHost(parsed.Hostname()) {
		return false
	}
	return pathDepth(parsed.Path) >= minPathSegments
}

// IsBlockedHost reports whether host is, or is a subdomain of, a blocked domain. Entries
// ending in "." (e.g. "google.") block that label under any TLD.
func (c *Classifier) IsBlockedHost(host string) bool {
	host = strings.ToLower(host)
	for _, d := range c.blocked {
		if hostMatches(host, d) {
			return true
		}
	}
	return false
}

func hostMatches(host, domain string) bool {
	if strings.HasSuffix(domain, ".") {
		return strings.HasPrefix(host, domain) || strings.Contains(host, "."+domain)
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// FilterWithReasons splits urls into accepted and rejected, keeping at most one accepted URL
// per hostname. The first URL seen for a host wins.
func (c *Classifier) FilterWithReasons(urls []string) Filtered {
	var out Filtered
	seenHosts := make(map[string]bool)

	for _, u := range urls {
		parsed, ok := parse(u)
		if !ok {
			out.Rejected = append(out.Rejected, core.RejectedURL{URL: u, Reason: core.ReasonInvalidURL})
			continue
		}
		if !c.IsEligible(u) {
			out.Rejected = append(out.Rejected, core.RejectedURL{URL: u, Reason: core.ReasonNotArticle})
			continue
		}
		host := strings.ToLower(parsed.Hostname())
		if seenHosts[host] {
			out.Rejected = append(out.Rejected, core.RejectedURL{URL: u, Reason: core.ReasonDuplicateDomain})
			continue
		}
		seenHosts[host] = true
		out.Accepted = append(out.Accepted, u)
	}

	return out
}

// CountEligible returns how many distinct hosts among urls are eligible.
func (c *Classifier) CountEligible(urls []string) int {
	return len(c.FilterWithReasons(urls).Accepted)
}

func parse(u string) (*url.URL, bool) {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return nil, false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, false
	}
	return parsed, true
}

func pathDepth(p string) int {
	depth := 0
	for _, seg := range strings.Split(strings.ToLower(p), "/") {
		if seg != "" {
			depth++
		}
	}
	return depth
}
