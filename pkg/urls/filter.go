package urls

import (
	"context"
	"net/url"
	"strings"
)

// Filter decides whether a discovered URL should be kept.
type Filter interface {
	ShouldKeep(ctx context.Context, url string) (bool, error)
}

// KeepAll reports whether every filter keeps urlStr.
func KeepAll(ctx context.Context, urlStr string, filters ...Filter) (bool, error) {
	for _, filter := range filters {
		keep, err := filter.ShouldKeep(ctx, urlStr)
		if err != nil {
			return false, err
		}
		if !keep {
			return false, nil
		}
	}
	return true, nil
}

// SitePathFilter drops URLs without an article path, such as the site root.
type SitePathFilter struct{}

// NewSitePathFilter creates a new site path filter
func NewSitePathFilter() *SitePathFilter {
	return &SitePathFilter{}
}

// ShouldKeep returns false for unparsable URLs and URLs whose path is empty or "/"
func (f *SitePathFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false, nil
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return false, nil
	}
	return strings.Trim(parsed.Path, "/") != "", nil
}

// SeenFilter keeps the first occurrence of every URL and drops repeats.
// It is not safe for concurrent use; each crawl owns its own filter.
type SeenFilter struct {
	seen map[string]bool
}

// NewSeenFilter creates an empty seen filter
func NewSeenFilter() *SeenFilter {
	return &SeenFilter{seen: make(map[string]bool)}
}

// ShouldKeep records urlStr and returns false if it was already recorded
func (f *SeenFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	if f.seen[urlStr] {
		return false, nil
	}
	f.seen[urlStr] = true
	return true, nil
}

// Len returns the number of distinct URLs recorded so far
func (f *SeenFilter) Len() int {
	return len(f.seen)
}

// HostFilter keeps URLs served from one host
type HostFilter struct {
	host string
}

// NewHostFilter creates a filter for the host of origin, e.g. "https://vnexpress.net"
func NewHostFilter(origin string) *HostFilter {
	host := origin
	if parsed, err := url.Parse(origin); err == nil && parsed.Host != "" {
		host = parsed.Host
	}
	return &HostFilter{host: strings.TrimPrefix(host, "www.")}
}

// ShouldKeep returns true if urlStr is on the filter's host or one of its subdomains
func (f *HostFilter) ShouldKeep(ctx context.Context, urlStr string) (bool, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return false, nil
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	return host == f.host || strings.HasSuffix(host, "."+f.host), nil
}
