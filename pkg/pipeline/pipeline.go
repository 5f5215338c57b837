// Package pipeline drives one crawl request: it paginates a category
// listing, then fetches and parses article detail pages one at a time,
// pausing between requests and tolerating per-page and per-item failures.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/sites"
	"news-crawler/pkg/urls"
)

// DefaultDelay is the pause after every page and detail fetch.
const DefaultDelay = time.Second

// Fetcher downloads one page. Any failure is reported as an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ProgressFunc receives human-readable progress messages.
type ProgressFunc func(message string)

// StubSource discovers the stubs of a category in place of the listing
// pager, e.g. from an RSS feed.
type StubSource func(ctx context.Context, categoryKey string) ([]domain.ArticleStub, error)

// Recorder observes crawl counters.
type Recorder interface {
	PageFetched(source string, ok bool)
	StubsFound(source string, n int)
	ArticleExtracted(source string)
	ArticleSkipped(source string, reason SkipReason)
}

// Crawler runs a single crawl request against one source.
// A Crawler is not reusable across concurrent requests.
type Crawler struct {
	source   sites.Source
	fetcher  Fetcher
	delay    time.Duration
	progress ProgressFunc
	recorder Recorder
	stubs    StubSource
	logger   *zap.Logger
	wait     func(ctx context.Context, d time.Duration) bool

	state atomic.Int32
	found atomic.Int32

	mu       sync.Mutex
	outcomes []Outcome
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithDelay overrides the pause after each fetch.
func WithDelay(d time.Duration) Option {
	return func(c *Crawler) {
		if d >= 0 {
			c.delay = d
		}
	}
}

// WithProgress sets the progress sink.
func WithProgress(fn ProgressFunc) Option {
	return func(c *Crawler) {
		c.progress = fn
	}
}

// WithRecorder sets the metrics sink.
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		c.recorder = r
	}
}

// WithStubSource makes Run discover stubs with fn instead of paginating
// the category listing.
func WithStubSource(fn StubSource) Option {
	return func(c *Crawler) {
		c.stubs = fn
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCrawler creates a crawler for source that downloads pages with fetcher.
func NewCrawler(source sites.Source, fetcher Fetcher, opts ...Option) *Crawler {
	c := &Crawler{
		source:  source,
		fetcher: fetcher,
		delay:   DefaultDelay,
		logger:  zap.NewNop(),
		wait:    sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("source", source.Name()))
	return c
}

// State returns the current state of the crawl.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

func (c *Crawler) setState(s State) {
	c.state.Store(int32(s))
}

// Found returns the number of stubs the last Run discovered.
func (c *Crawler) Found() int {
	return int(c.found.Load())
}

// Outcomes returns the per-item results of the last CrawlDetails call.
func (c *Crawler) Outcomes() []Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Outcome, len(c.outcomes))
	copy(out, c.outcomes)
	return out
}

// Run crawls up to maxPages listing pages of a category, or asks the stub
// source when one is set, and extracts up to limit articles. It returns an
// error for an unknown category or a failing stub source; cancellation
// returns the articles collected so far. Every run that is not cancelled
// ends in Done.
func (c *Crawler) Run(ctx context.Context, categoryKey string, maxPages, limit int) ([]domain.Article, error) {
	cat, err := c.source.Config().CategoryByKey(categoryKey)
	if err != nil {
		return nil, err
	}
	c.found.Store(0)
	c.notify("Crawling %s, category %s", c.source.Config().DisplayName, cat.Name)

	stubs, err := c.discover(ctx, categoryKey, maxPages)
	if err != nil {
		c.setState(Done)
		return nil, err
	}
	if c.State() == Cancelled {
		return nil, nil
	}
	c.found.Store(int32(len(stubs)))
	c.notify("Found %d articles", len(stubs))
	if len(stubs) == 0 {
		c.setState(Done)
		return nil, nil
	}

	return c.CrawlDetails(ctx, stubs, limit), nil
}

func (c *Crawler) discover(ctx context.Context, categoryKey string, maxPages int) ([]domain.ArticleStub, error) {
	if c.stubs == nil {
		return c.CrawlListing(ctx, categoryKey, maxPages), nil
	}

	c.setState(ListingInProgress)
	if ctx.Err() != nil {
		c.cancel()
		return nil, nil
	}
	stubs, err := c.stubs(ctx, categoryKey)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		c.cancel()
		return nil, nil
	}
	c.record(func(r Recorder) { r.StubsFound(c.source.Name(), len(stubs)) })
	return stubs, nil
}

// CrawlListing collects article stubs from pages 1..maxPages of a category.
// A page that fails to download or parse contributes nothing; a page that
// parses to zero new stubs ends the listing.
func (c *Crawler) CrawlListing(ctx context.Context, categoryKey string, maxPages int) []domain.ArticleStub {
	c.setState(ListingInProgress)

	cat, err := c.source.Config().CategoryByKey(categoryKey)
	if err != nil {
		c.logger.Error("Unknown category", zap.String("category", categoryKey), zap.Error(err))
		c.setState(Done)
		return nil
	}

	seen := urls.NewSeenFilter()
	var stubs []domain.ArticleStub

	for page := 1; page <= maxPages; page++ {
		if ctx.Err() != nil {
			c.cancel()
			return stubs
		}

		pageURL := c.source.CategoryListURL(categoryKey, page)
		c.notify("Crawling page %d of category %s...", page, cat.Name)

		found, err := c.listingPage(ctx, pageURL, cat.ID)
		if err != nil {
			c.logger.Warn("Listing page failed", zap.String("url", pageURL), zap.Error(err))
			if !c.pause(ctx) {
				c.cancel()
				return stubs
			}
			continue
		}

		fresh := 0
		for _, stub := range found {
			if keep, _ := seen.ShouldKeep(ctx, stub.URL); keep {
				stubs = append(stubs, stub)
				fresh++
			}
		}
		c.record(func(r Recorder) { r.StubsFound(c.source.Name(), fresh) })
		c.logger.Debug("Listing page parsed",
			zap.String("url", pageURL),
			zap.Int("stubs", len(found)),
			zap.Int("new", fresh))

		if fresh == 0 {
			c.notify("No more articles after page %d", page-1)
			break
		}
		if !c.pause(ctx) {
			c.cancel()
			return stubs
		}
	}

	return stubs
}

func (c *Crawler) listingPage(ctx context.Context, pageURL string, categoryID int) (stubs []domain.ArticleStub, err error) {
	html, err := c.fetcher.Fetch(ctx, pageURL)
	c.record(func(r Recorder) { r.PageFetched(c.source.Name(), err == nil) })
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			stubs, err = nil, fmt.Errorf("%w: %v", errParsePanic, p)
		}
	}()
	return c.source.ParseListing(html, categoryID)
}

// CrawlDetails fetches and parses the first limit stubs in order. A
// negative limit is treated as zero. Items that fail are recorded as
// skipped outcomes and never stop the loop.
func (c *Crawler) CrawlDetails(ctx context.Context, stubs []domain.ArticleStub, limit int) []domain.Article {
	c.setState(DetailInProgress)

	c.mu.Lock()
	c.outcomes = nil
	c.mu.Unlock()

	limit = max(limit, 0)
	if limit < len(stubs) {
		stubs = stubs[:limit]
	}

	var articles []domain.Article
	for i, stub := range stubs {
		if ctx.Err() != nil {
			c.cancel()
			return articles
		}

		c.notify("Crawling article %d/%d: %s", i+1, len(stubs), stub.Title)
		outcome := c.detail(ctx, stub)
		c.addOutcome(outcome)

		if outcome.Article != nil {
			articles = append(articles, *outcome.Article)
			c.record(func(r Recorder) { r.ArticleExtracted(c.source.Name()) })
		} else {
			c.logger.Warn("Article skipped",
				zap.String("url", stub.URL),
				zap.String("reason", string(outcome.Reason)),
				zap.Error(outcome.Err))
			c.record(func(r Recorder) { r.ArticleSkipped(c.source.Name(), outcome.Reason) })
		}

		if !c.pause(ctx) {
			c.cancel()
			return articles
		}
	}

	c.notify("Extracted %d of %d articles", len(articles), len(stubs))
	c.setState(Done)
	return articles
}

var errParsePanic = errors.New("parser panicked")

func (c *Crawler) detail(ctx context.Context, stub domain.ArticleStub) (outcome Outcome) {
	outcome.Stub = stub

	html, err := c.fetcher.Fetch(ctx, stub.URL)
	if err != nil {
		return outcome.skip(SkipFetchFailed, err)
	}

	defer func() {
		if p := recover(); p != nil {
			outcome = Outcome{Stub: stub}.skip(SkipParsePanic, fmt.Errorf("%w: %v", errParsePanic, p))
		}
	}()

	article, err := c.source.ParseDetail(html, stub.CategoryID)
	switch {
	case errors.Is(err, sites.ErrBodyNotFound):
		return outcome.skip(SkipBodyNotFound, err)
	case err != nil:
		return outcome.skip(SkipParseFailed, err)
	case article == nil:
		return outcome.skip(SkipBodyNotFound, sites.ErrBodyNotFound)
	}
	outcome.Article = article
	return outcome
}

func (c *Crawler) addOutcome(o Outcome) {
	c.mu.Lock()
	c.outcomes = append(c.outcomes, o)
	c.mu.Unlock()
}

// pause waits for the configured delay and reports false if ctx ended first.
func (c *Crawler) pause(ctx context.Context) bool {
	if c.delay <= 0 {
		return ctx.Err() == nil
	}
	return c.wait(ctx, c.delay)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Crawler) cancel() {
	c.setState(Cancelled)
	c.notify("Crawl cancelled")
}

func (c *Crawler) notify(format string, args ...any) {
	if c.progress != nil {
		c.progress(fmt.Sprintf(format, args...))
	}
}

func (c *Crawler) record(fn func(Recorder)) {
	if c.recorder != nil {
		fn(c.recorder)
	}
}
