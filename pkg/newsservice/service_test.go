package newsservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/feed"
	"news-crawler/pkg/pipeline"
	"news-crawler/pkg/registry"
)

const testSources = `
sources:
  - name: vnexpress
    display_name: Example
    origin: https://site.example
    page_suffix: "-p%d"
    feed: "/rss/%s.rss"
    categories:
      - {key: the-thao, id: 5, name: "Thể thao"}
  - name: vietnamnet
    display_name: Other
    origin: https://other.example
    page_suffix: "-page%d"
    categories:
      - {key: the-thao, id: 5, name: "Thể thao"}
`

type fakeFetcher struct {
	mu    sync.Mutex
	pages map[string]string
	calls int
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	body, ok := f.pages[url]
	if !ok {
		return "", errors.New("unexpected status code: 404")
	}
	return body, nil
}

type memorySaver struct {
	saved []*domain.Snapshot
	err   error
}

func (m *memorySaver) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.saved = append(m.saved, snap)
	return "mem://" + snap.ID, nil
}

func site(n int) map[string]string {
	var listing strings.Builder
	pages := map[string]string{}
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&listing, `<div class="item-news"><h3 class="title-news"><a href="/a/%d">T%d</a></h3></div>`, i, i)
		pages[fmt.Sprintf("https://site.example/a/%d", i)] = fmt.Sprintf(
			`<html><body><h1 class="title-detail">Article %d</h1><div class="fck_detail"><p>Body %d</p></div></body></html>`, i, i)
	}
	pages["https://site.example/the-thao"] = "<html><body>" + listing.String() + "</body></html>"
	pages["https://site.example/the-thao-p2"] = "<html><body></body></html>"
	return pages
}

func newService(t *testing.T, f pipeline.Fetcher, saver SnapshotSaver) *Service {
	t.Helper()
	reg, err := registry.Load([]byte(testSources))
	require.NoError(t, err)
	return NewService(Config{
		Registry: reg,
		Fetcher:  f,
		Saver:    saver,
		Now:      func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestCrawl_SavesSnapshot(t *testing.T) {
	saver := &memorySaver{}
	svc := newService(t, &fakeFetcher{pages: site(3)}, saver)

	var messages []string
	res, err := svc.Crawl(context.Background(), Request{
		Source:   "vnexpress",
		Category: "5",
		Pages:    3,
		Articles: 2,
		Progress: func(m string) { messages = append(messages, m) },
	})
	require.NoError(t, err)

	assert.Equal(t, "the-thao", res.Category.Key)
	assert.Equal(t, 3, res.Stubs)
	require.Len(t, res.Articles, 2)
	assert.Equal(t, "Article 1", res.Articles[0].Title)
	assert.Equal(t, pipeline.Done, res.State)

	require.Len(t, saver.saved, 1)
	assert.Equal(t, "vnexpress", saver.saved[0].Source)
	assert.Equal(t, "the-thao", saver.saved[0].CategoryKey)
	assert.Equal(t, "mem://"+saver.saved[0].ID, res.Location)
	assert.Contains(t, messages, "Found 3 articles")
}

func TestCrawl_RejectsBadInputBeforeFetching(t *testing.T) {
	f := &fakeFetcher{pages: site(1)}
	svc := newService(t, f, nil)

	_, err := svc.Crawl(context.Background(), Request{Source: "tuoitre", Category: "the-thao"})
	assert.ErrorIs(t, err, registry.ErrUnknownSource)

	_, err = svc.Crawl(context.Background(), Request{Source: "vnexpress", Category: "99"})
	assert.ErrorIs(t, err, registry.ErrUnknownCategory)

	assert.Zero(t, f.calls)
}

func TestCrawl_NothingFoundIsNotSaved(t *testing.T) {
	saver := &memorySaver{}
	svc := newService(t, &fakeFetcher{pages: map[string]string{}}, saver)

	res, err := svc.Crawl(context.Background(), Request{Source: "vnexpress", Category: "the-thao"})
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Empty(t, saver.saved)
	assert.Empty(t, res.Location)
	assert.Equal(t, pipeline.Done, res.State)
}

func TestCrawl_EmptyListingFinishes(t *testing.T) {
	pages := map[string]string{"https://site.example/the-thao": "<html><body></body></html>"}
	svc := newService(t, &fakeFetcher{pages: pages}, nil)

	var messages []string
	res, err := svc.Crawl(context.Background(), Request{
		Source:   "vnexpress",
		Category: "the-thao",
		Progress: func(m string) { messages = append(messages, m) },
	})
	require.NoError(t, err)
	assert.Zero(t, res.Stubs)
	assert.Equal(t, pipeline.Done, res.State)
	assert.Contains(t, messages, "Found 0 articles")
	assert.Contains(t, messages, "No articles to export")
}

func TestCrawl_SaveError(t *testing.T) {
	boom := errors.New("disk full")
	svc := newService(t, &fakeFetcher{pages: site(1)}, &memorySaver{err: boom})

	res, err := svc.Crawl(context.Background(), Request{Source: "vnexpress", Category: "the-thao"})
	assert.ErrorIs(t, err, boom)
	require.NotNil(t, res)
	assert.Len(t, res.Articles, 1)
}

func TestCrawl_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	saver := &memorySaver{}
	f := &fakeFetcher{pages: site(2)}
	svc := newService(t, f, saver)

	res, err := svc.Crawl(ctx, Request{Source: "vnexpress", Category: "the-thao"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, pipeline.Cancelled, res.State)
	assert.Zero(t, f.calls)
	assert.Empty(t, saver.saved)
}

func TestCrawl_FromFeed(t *testing.T) {
	pages := site(2)
	pages["https://site.example/rss/the-thao.rss"] = `<rss version="2.0"><channel><title>x</title>
<item><title>T2</title><link>https://site.example/a/2</link></item>
</channel></rss>`
	svc := newService(t, &fakeFetcher{pages: pages}, nil)

	res, err := svc.Crawl(context.Background(), Request{Source: "vnexpress", Category: "the-thao", FromFeed: true})
	require.NoError(t, err)
	require.Len(t, res.Articles, 1)
	assert.Equal(t, "Article 2", res.Articles[0].Title)
	assert.Equal(t, 1, res.Stubs)
	assert.Equal(t, pipeline.Done, res.State)
}

func TestCrawl_FromFeedUnavailable(t *testing.T) {
	f := &fakeFetcher{pages: site(2)}
	svc := newService(t, f, nil)

	res, err := svc.Crawl(context.Background(), Request{Source: "vnexpress", Category: "the-thao", FromFeed: true})
	require.NoError(t, err)
	assert.Empty(t, res.Articles)
	assert.Equal(t, pipeline.Done, res.State)
	assert.Equal(t, 1, f.calls)
}

func TestCrawl_FromFeedWithoutFeed(t *testing.T) {
	svc := newService(t, &fakeFetcher{}, nil)

	_, err := svc.Crawl(context.Background(), Request{Source: "vietnamnet", Category: "the-thao", FromFeed: true})
	assert.ErrorIs(t, err, feed.ErrNoFeed)
}
