// Package newsservice runs complete crawl requests: it validates the source
// and category, drives a pipeline.Crawler and archives the snapshot.
package newsservice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/feed"
	"news-crawler/pkg/pipeline"
	"news-crawler/pkg/registry"
	"news-crawler/pkg/sites"
)

// Defaults applied to zero request fields.
const (
	DefaultPages    = 1
	DefaultArticles = 10
)

// SnapshotSaver archives one crawl result and returns where it went.
type SnapshotSaver interface {
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error)
}

// Request describes one crawl.
type Request struct {
	Source   string
	Category string // key or numeric id
	Pages    int
	Articles int
	// FromFeed discovers stubs from the category's RSS feed instead of
	// paginating the HTML listing.
	FromFeed bool
	Progress pipeline.ProgressFunc
}

// Result is the outcome of a crawl.
type Result struct {
	Source   string
	Category registry.Category
	Stubs    int
	Articles []domain.Article
	Outcomes []pipeline.Outcome
	State    pipeline.State
	// Location is the file path or record id of the saved snapshot, empty
	// when nothing was saved.
	Location string
}

// Config holds the collaborators of a Service.
type Config struct {
	Registry *registry.Registry
	Fetcher  pipeline.Fetcher
	Saver    SnapshotSaver
	Recorder pipeline.Recorder
	// Delay is the pause after every fetch; zero disables it.
	Delay  time.Duration
	Logger *zap.Logger
	Now    func() time.Time
}

// Service runs crawl requests. It is safe for concurrent use; every request
// gets its own Crawler.
type Service struct {
	registry *registry.Registry
	fetcher  pipeline.Fetcher
	saver    SnapshotSaver
	recorder pipeline.Recorder
	feeds    *feed.Reader
	delay    time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	s := &Service{
		registry: cfg.Registry,
		fetcher:  cfg.Fetcher,
		saver:    cfg.Saver,
		recorder: cfg.Recorder,
		delay:    cfg.Delay,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.registry == nil {
		s.registry = registry.Default()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.feeds = feed.NewReader(s.fetcher, s.logger)
	return s
}

// Registry returns the source tables the service validates against.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Resolve validates a source name and category key or id without touching
// the network.
func (s *Service) Resolve(sourceName, category string) (sites.Source, registry.Category, error) {
	adapter, err := sites.New(s.registry, sourceName, sites.WithLogger(s.logger))
	if err != nil {
		return nil, registry.Category{}, err
	}
	cat, err := adapter.Config().Category(category)
	if err != nil {
		return nil, registry.Category{}, err
	}
	return adapter, cat, nil
}

// Crawl runs one request. Configuration errors are returned before any
// fetch. A cancelled crawl returns the partial result with ctx's error and
// is not saved.
func (s *Service) Crawl(ctx context.Context, req Request) (*Result, error) {
	adapter, cat, err := s.Resolve(req.Source, req.Category)
	if err != nil {
		return nil, err
	}
	pages, limit := req.Pages, req.Articles
	if pages <= 0 {
		pages = DefaultPages
	}
	if limit <= 0 {
		limit = DefaultArticles
	}

	logger := s.logger.With(zap.String("source", req.Source), zap.String("category", cat.Key))
	opts := []pipeline.Option{
		pipeline.WithDelay(s.delay),
		pipeline.WithLogger(s.logger),
		pipeline.WithProgress(req.Progress),
	}
	if s.recorder != nil {
		opts = append(opts, pipeline.WithRecorder(s.recorder))
	}
	if req.FromFeed {
		if adapter.Config().FeedURL(cat.Key) == "" {
			return nil, fmt.Errorf("%w: %s", feed.ErrNoFeed, adapter.Name())
		}
		opts = append(opts, pipeline.WithStubSource(s.feedStubs(adapter, logger)))
	}
	crawler := pipeline.NewCrawler(adapter, s.fetcher, opts...)

	start := s.now()
	articles, err := crawler.Run(ctx, cat.Key, pages, limit)
	if err != nil {
		return nil, err
	}
	result := &Result{
		Source:   req.Source,
		Category: cat,
		Stubs:    crawler.Found(),
		Articles: articles,
		Outcomes: crawler.Outcomes(),
		State:    crawler.State(),
	}

	if obs, ok := s.recorder.(interface {
		ObserveCrawl(string, time.Duration)
	}); ok {
		obs.ObserveCrawl(req.Source, s.now().Sub(start))
	}

	if err := ctx.Err(); err != nil {
		logger.Info("Crawl cancelled", zap.Int("articles", len(result.Articles)))
		return result, err
	}

	logger.Info("Crawl finished",
		zap.Int("stubs", result.Stubs),
		zap.Int("articles", len(result.Articles)))

	if len(result.Articles) == 0 {
		notify(req.Progress, "No articles to export")
		return result, nil
	}
	if s.saver == nil {
		return result, nil
	}

	snap := domain.NewSnapshot(req.Source, cat.Key, s.now(), result.Articles)
	location, err := s.saver.SaveSnapshot(ctx, snap)
	if err != nil {
		return result, fmt.Errorf("save snapshot: %w", err)
	}
	result.Location = location
	notify(req.Progress, "Saved %d articles to %s", len(result.Articles), location)
	return result, nil
}

// feedStubs reads stubs from the category feed. A feed that cannot be read
// or parsed yields no stubs, like a failed listing page.
func (s *Service) feedStubs(adapter sites.Source, logger *zap.Logger) pipeline.StubSource {
	return func(ctx context.Context, categoryKey string) ([]domain.ArticleStub, error) {
		stubs, err := s.feeds.Stubs(ctx, adapter.Config(), categoryKey)
		if err != nil {
			logger.Warn("Feed discovery failed", zap.Error(err))
			return nil, nil
		}
		return stubs, nil
	}
}

func notify(fn pipeline.ProgressFunc, format string, args ...any) {
	if fn != nil {
		fn(fmt.Sprintf(format, args...))
	}
}
