// Package feed discovers article stubs from a category's RSS feed instead of
// its HTML listing pages.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/registry"
	"news-crawler/pkg/urls"
)

var (
	// ErrNoFeed is returned for sources without an RSS feed.
	ErrNoFeed = errors.New("source has no feed")
	// ErrEmptyFeed is returned when a feed yields no usable items.
	ErrEmptyFeed = errors.New("feed contains no items")
)

// Fetcher downloads one page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Reader turns RSS/Atom feeds into article stubs.
type Reader struct {
	fetcher    Fetcher
	feedParser *gofeed.Parser
	logger     *zap.Logger
}

// NewReader creates a feed reader that downloads feeds with fetcher.
func NewReader(fetcher Fetcher, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		fetcher:    fetcher,
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

// Stubs reads the feed of a category. Items linking outside the source's
// host and repeated links are dropped.
func (r *Reader) Stubs(ctx context.Context, src *registry.Source, categoryKey string) ([]domain.ArticleStub, error) {
	cat, err := src.CategoryByKey(categoryKey)
	if err != nil {
		return nil, err
	}
	feedURL := src.FeedURL(categoryKey)
	if feedURL == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoFeed, src.Name)
	}

	body, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	parsed, err := r.feedParser.ParseString(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse RSS feed: %w", err)
	}

	host := urls.NewHostFilter(src.Origin)
	seen := urls.NewSeenFilter()

	stubs := make([]domain.ArticleStub, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		link := urls.Resolve(strings.TrimSpace(item.Link), src.Origin)
		if link == "" {
			continue
		}
		if keep, err := urls.KeepAll(ctx, link, host, seen); err != nil || !keep {
			continue
		}
		description, thumbnail := describe(item)
		stubs = append(stubs, domain.ArticleStub{
			Title:        strings.TrimSpace(item.Title),
			URL:          link,
			Description:  description,
			ThumbnailURL: urls.Resolve(thumbnail, src.Origin),
			CategoryID:   cat.ID,
		})
	}

	r.logger.Debug("Parsed feed",
		zap.String("url", feedURL),
		zap.Int("items", len(parsed.Items)),
		zap.Int("stubs", len(stubs)))

	if len(stubs) == 0 {
		return nil, ErrEmptyFeed
	}
	return stubs, nil
}

// describe splits an item description that may embed a thumbnail link into
// plain text and the image URL.
func describe(item *gofeed.Item) (text, image string) {
	if item.Image != nil {
		image = item.Image.URL
	}
	if image == "" {
		for _, enc := range item.Enclosures {
			if strings.HasPrefix(enc.Type, "image/") {
				image = enc.URL
				break
			}
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(item.Description))
	if err != nil {
		return strings.TrimSpace(item.Description), image
	}
	if image == "" {
		image, _ = doc.Find("img").First().Attr("src")
	}
	return strings.TrimSpace(doc.Text()), image
}
