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

const vietnamnetAnchors = "h1 a, h2 a, h3 a, a.title, .title a, a.cms-link, a.link-title"

var (
	vietnamnetThumbAttrs = []string{"data-src", "src", "data-original"}
	vietnamnetImageAttrs = []string{"data-src", "data-original", "src"}
)

var vietnamnetBodies = []string{
	"div.maincontent",
	"div#maincontent",
	".content-detail__content",
	".ArticleContent",
	".cms-body",
	".detail-content",
	".article-body",
}

func vietnamnetSanitizer() *sanitize.Sanitizer {
	rules := sanitize.BaseRules()
	img := rules["img"]
	img.Overrides = map[string][]string{"src": {"data-src", "data-original"}}
	return sanitize.New(
		rules.With("img", img),
		sanitize.WithRemoved(
			".VnnAdsBox", ".ImageBox", ".article__ads", ".box-banner", ".ads",
			".insert-wiki-content", ".ck-cms-insert-neww-group",
		),
		sanitize.WithTopLevel("p", "figure", "picture", "img"),
	)
}

var vietnamnetLayout = &layout{
	title: []Field{
		Text("h1.title"),
		Text("h1.cms-title"),
		Text("h1.ArticleDetail"),
		Text(".detail-title h1"),
		Text(".content-detail h1"),
		Text("h1"),
	},
	excerpt: []Field{
		Text(".article-relate__summary"),
		Text(".content-detail__summary"),
		Text(".ArticleLead"),
		Text(".cms-desc"),
		Text(".article-body .sapo"),
		Text(".detail-article .sapo"),
	},
	image: []Field{
		Image(bodyScoped("figure img"), vietnamnetImageAttrs...),
		Image(bodyScoped("picture img"), vietnamnetImageAttrs...),
		Meta(`meta[property="og:image"]`),
		Image(bodyScoped("img"), vietnamnetImageAttrs...),
	},
	body:      vietnamnetBodies,
	sanitizer: vietnamnetSanitizer(),
}

// bodyScoped restricts a selector to the body containers.
func bodyScoped(selector string) string {
	scoped := make([]string, len(vietnamnetBodies))
	for i, body := range vietnamnetBodies {
		scoped[i] = body + " " + selector
	}
	return strings.Join(scoped, ", ")
}

// VietnamNet is the adapter for vietnamnet.vn. Its listing pages have no
// stable item wrapper, so stubs are discovered from title anchors and their
// description and thumbnail are searched in the surrounding markup.
type VietnamNet struct {
	base
}

// NewVietnamNet creates the vietnamnet.vn adapter
func NewVietnamNet(cfg *registry.Source, opts ...Option) *VietnamNet {
	return &VietnamNet{base: newBase(cfg, opts)}
}

// ParseListing extracts article stubs from a category page
func (v *VietnamNet) ParseListing(html string, categoryID int) ([]domain.ArticleStub, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var stubs []domain.ArticleStub
	sitePath := urls.NewSitePathFilter()
	seen := urls.NewSeenFilter()

	links := doc.Find(vietnamnetAnchors)
	links.Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		// site-relative article links only
		if !strings.HasPrefix(href, "/") || strings.HasPrefix(href, "//") {
			return
		}
		title := strings.TrimSpace(link.Text())
		if title == "" {
			return
		}
		stubURL, ok := v.listingURL(href, sitePath, seen)
		if !ok {
			return
		}

		stubs = append(stubs, domain.ArticleStub{
			Title:        title,
			URL:          stubURL,
			Description:  climb(link, 3, nil, Text(".sapo, .lead, .description, .des")),
			ThumbnailURL: urls.Resolve(climb(link, 3, nil, Image("img", vietnamnetThumbAttrs...)), v.cfg.Origin),
			CategoryID:   categoryID,
		})
	})

	v.logger.Debug("Parsed listing", zap.Int("anchors", links.Length()), zap.Int("stubs", len(stubs)))
	return stubs, nil
}

// ParseDetail extracts the article from a detail page
func (v *VietnamNet) ParseDetail(html string, categoryID int) (*domain.Article, error) {
	return v.parseDetail(html, categoryID, vietnamnetLayout)
}
