package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

var (
	ErrTitleNotFound   = errors.New("title not found in HTML")
	ErrExcerptNotFound = errors.New("excerpt not found in HTML")
)

// Extractor is the last resort for article fields the site selectors missed.
type Extractor interface {
	ExtractTitle(htmlContent string) (string, error)
	ExtractExcerpt(htmlContent string) (string, error)
}

// ReadabilityExtractor implements Extractor with go-readability, falling back
// to the document's meta tags.
type ReadabilityExtractor struct{}

// NewReadabilityExtractor creates a new readability based extractor
func NewReadabilityExtractor() *ReadabilityExtractor {
	return &ReadabilityExtractor{}
}

// ExtractTitle extracts the article title
func (e *ReadabilityExtractor) ExtractTitle(htmlContent string) (string, error) {
	return ExtractTitle(htmlContent)
}

// ExtractExcerpt extracts a short summary of the article
func (e *ReadabilityExtractor) ExtractExcerpt(htmlContent string) (string, error) {
	return ExtractExcerpt(htmlContent)
}

// ExtractTitle extracts the article title from HTML content with fallback mechanisms
func ExtractTitle(htmlContent string) (string, error) {
	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err == nil {
		if title := strings.TrimSpace(article.Title); title != "" {
			return title, nil
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	if title := metaContent(doc, "meta[property='og:title']", "meta[name='title']"); title != "" {
		return title, nil
	}
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title, nil
	}
	return "", ErrTitleNotFound
}

// ExtractExcerpt extracts the article summary from HTML content
func ExtractExcerpt(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}
	if excerpt := metaContent(doc, "meta[property='og:description']", "meta[name='description']"); excerpt != "" {
		return excerpt, nil
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract excerpt: %w", err)
	}
	if excerpt := strings.TrimSpace(article.Excerpt); excerpt != "" {
		return excerpt, nil
	}
	return "", ErrExcerptNotFound
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, selector := range selectors {
		if v, ok := doc.Find(selector).First().Attr("content"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
