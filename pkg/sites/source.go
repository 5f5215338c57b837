// Package sites holds one adapter per news source. Every adapter builds
// listing URLs, turns listing pages into article stubs and turns detail
// pages into sanitized articles.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"news-crawler/pkg/content"
	"news-crawler/pkg/domain"
	"news-crawler/pkg/registry"
	"news-crawler/pkg/sanitize"
	"news-crawler/pkg/urls"
)

// ErrBodyNotFound is returned by ParseDetail when no body container matches.
var ErrBodyNotFound = errors.New("article body not found")

// Source is the contract every news source adapter satisfies.
type Source interface {
	Name() string
	Config() *registry.Source
	CategoryListURL(categoryKey string, page int) string
	ParseListing(html string, categoryID int) ([]domain.ArticleStub, error)
	ParseDetail(html string, categoryID int) (*domain.Article, error)
}

// Option configures an adapter.
type Option func(*base)

// WithFallback sets the extractor used when every title or excerpt selector
// misses. nil disables the fallback.
func WithFallback(e content.Extractor) Option {
	return func(b *base) {
		b.fallback = e
	}
}

// WithLogger sets the adapter's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New returns the adapter registered under name.
func New(reg *registry.Registry, name string, opts ...Option) (Source, error) {
	cfg, err := reg.Source(name)
	if err != nil {
		return nil, err
	}
	switch name {
	case "vnexpress":
		return NewVnExpress(cfg, opts...), nil
	case "vietnamnet":
		return NewVietnamNet(cfg, opts...), nil
	default:
		return nil, fmt.Errorf("%w %q: no adapter", registry.ErrUnknownSource, name)
	}
}

// base carries what all adapters share.
type base struct {
	cfg      *registry.Source
	fallback content.Extractor
	logger   *zap.Logger
}

func newBase(cfg *registry.Source, opts []Option) base {
	b := base{
		cfg:      cfg,
		fallback: content.NewReadabilityExtractor(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With(zap.String("source", cfg.Name))
	return b
}

func (b *base) Name() string {
	return b.cfg.Name
}

func (b *base) Config() *registry.Source {
	return b.cfg
}

func (b *base) CategoryListURL(categoryKey string, page int) string {
	return b.cfg.ListURL(categoryKey, page)
}

// layout describes where a source keeps the fields of a detail page.
// Each list is tried in order.
type layout struct {
	title     []Field
	excerpt   []Field
	image     []Field
	body      []string
	sanitizer *sanitize.Sanitizer
}

func (b *base) parseDetail(html string, categoryID int, l *layout) (*domain.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	root := doc.Selection

	body := findContainer(root, l.body)
	if body == nil {
		return nil, ErrBodyNotFound
	}

	// read everything outside the body before sanitizing rewrites it
	title := FirstNonEmpty(root, l.title...)
	excerpt := FirstNonEmpty(root, l.excerpt...)
	image := urls.Resolve(FirstNonEmpty(root, l.image...), b.cfg.Origin)

	l.sanitizer.Sanitize(body, b.cfg.Origin)
	contentHTML := l.sanitizer.Serialize(body)

	if title == "" && b.fallback != nil {
		title, _ = b.fallback.ExtractTitle(html)
	}
	if excerpt == "" {
		excerpt = Text("p")(body)
	}
	if excerpt == "" && b.fallback != nil {
		excerpt, _ = b.fallback.ExtractExcerpt(html)
	}

	b.logger.Debug("Parsed article",
		zap.String("title", title),
		zap.Int("content_length", len(contentHTML)),
		zap.Bool("has_image", image != ""))

	return &domain.Article{
		Title:      title,
		Content:    contentHTML,
		Excerpt:    excerpt,
		Image:      image,
		CategoryID: categoryID,
		Status:     domain.StatusPublished,
	}, nil
}

// findContainer returns the first candidate container holding any text or image.
func findContainer(root *goquery.Selection, selectors []string) *goquery.Selection {
	for _, selector := range selectors {
		var found *goquery.Selection
		root.Find(selector).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.TrimSpace(s.Text()) != "" || s.Find("img").Length() > 0 {
				found = s
				return false
			}
			return true
		})
		if found != nil {
			return found
		}
	}
	return nil
}

// listingURL resolves an anchor href into a stub URL and reports whether
// the URL passes the filters.
func (b *base) listingURL(href string, filters ...urls.Filter) (string, bool) {
	u := urls.Resolve(strings.TrimSpace(href), b.cfg.Origin)
	if u == "" {
		return "", false
	}
	keep, err := urls.KeepAll(context.Background(), u, filters...)
	return u, err == nil && keep
}
