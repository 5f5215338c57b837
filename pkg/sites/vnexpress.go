package sites

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/registry"
	"news-crawler/pkg/sanitize"
	"news-crawler/pkg/urls"
)

var vnexpressSanitizer = sanitize.New(
	sanitize.BaseRules().With("figure", sanitize.Rule{Rewrite: sanitize.Hoist}),
	sanitize.WithRemoved(".fig-picture"),
	sanitize.WithTopLevel("p", "picture", "img"),
)

var vnexpressLayout = &layout{
	title:   []Field{Text("h1.title-detail"), Text("h1")},
	excerpt: []Field{Text("p.description")},
	image: []Field{
		Image(".fig-picture img", "data-src", "src"),
		Image(".fck_detail picture img", "data-src", "src"),
		Meta(`meta[property="og:image"]`),
		Image(".fck_detail img", "data-src", "src"),
	},
	body:      []string{".fck_detail"},
	sanitizer: vnexpressSanitizer,
}

// VnExpress is the adapter for vnexpress.net. Listing pages are made of
// .item-news blocks and article bodies are CKEditor .fck_detail containers.
type VnExpress struct {
	base
}

// NewVnExpress creates the vnexpress.net adapter
func NewVnExpress(cfg *registry.Source, opts ...Option) *VnExpress {
	return &VnExpress{base: newBase(cfg, opts)}
}

// ParseListing extracts article stubs from a category page
func (v *VnExpress) ParseListing(html string, categoryID int) ([]domain.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var stubs []domain.ArticleStub
	sitePath := urls.NewSitePathFilter()
	seen := urls.NewSeenFilter()

	items := doc.Find(".item-news")
	items.Each(func(_ int, item *goquery.Selection) {
		link := item.Find(".title-news a").First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		if !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "http") {
			return
		}
		stubURL, ok := v.listingURL(href, sitePath, seen)
		if !ok {
			return
		}

		stubs = append(stubs, domain.ArticleStub{
			Title:        strings.TrimSpace(link.Text()),
			URL:          stubURL,
			Description:  FirstNonEmpty(item, Text(".description")),
			ThumbnailURL: urls.Resolve(FirstNonEmpty(item, Image(".thumb-art img", "data-src", "src")), v.cfg.Origin),
			CategoryID:   categoryID,
		})
	})

	v.logger.Debug("Parsed listing", zap.Int("items", items.Length()), zap.Int("stubs", len(stubs)))
	return stubs, nil
}

// ParseDetail extracts the article from a detail page
func (v *VnExpress) ParseDetail(html string, categoryID int) (*domain.Article, error) {
	return v.parseDetail(html, categoryID, vnexpressLayout)
}
