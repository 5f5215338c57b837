package cmd

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"news-crawler/pkg/config"
	"news-crawler/pkg/db"
	"news-crawler/pkg/export"
	"news-crawler/pkg/httpclient"
	"news-crawler/pkg/logger"
	"news-crawler/pkg/metrics"
	"news-crawler/pkg/newsservice"
	"news-crawler/pkg/pagecache"
	"news-crawler/pkg/pipeline"
	"news-crawler/pkg/registry"
)

// app is the wired object graph behind every long-running command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	service *newsservice.Service
	closers []func(context.Context) error
}

// newApp loads configuration, applies override and connects the fetcher
// and snapshot store.
func newApp(ctx context.Context, opts *rootOptions, override func(*config.Config)) (*app, error) {
	cfg, err := config.Load(opts.cfgFile)
	if err != nil {
		return nil, err
	}
	if opts.debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if override != nil {
		override(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: log, metrics: metrics.New()}

	fetcher, err := a.fetcher(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}
	saver, err := a.saver(ctx)
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.service = newsservice.NewService(newsservice.Config{
		Registry: registry.Default(),
		Fetcher:  fetcher,
		Saver:    saver,
		Recorder: a.metrics,
		Delay:    cfg.Crawl.Delay,
		Logger:   log,
	})
	return a, nil
}

func (a *app) fetcher(ctx context.Context) (pipeline.Fetcher, error) {
	client := httpclient.NewClient(httpclient.ClientType(a.cfg.HTTP.Client), httpclient.WithTimeout(a.cfg.HTTP.Timeout))
	if a.cfg.Cache.Addr == "" {
		return client, nil
	}

	rdb, err := pagecache.NewRedisClient(ctx, a.cfg.Cache.Addr, a.cfg.Cache.Password, a.cfg.Cache.DB)
	if err != nil {
		a.logger.Warn("Page cache unavailable, fetching uncached", zap.Error(err))
		return client, nil
	}
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })
	return pagecache.New(client, rdb, a.cfg.Cache.TTL, a.logger), nil
}

func (a *app) saver(ctx context.Context) (newsservice.SnapshotSaver, error) {
	switch a.cfg.Export.Store {
	case config.StoreMongo:
		client, err := db.NewClient(a.cfg.Mongo.URI, a.cfg.Mongo.Database, a.cfg.Mongo.Collection)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		return client, nil

	case config.StorePostgres:
		pg := db.NewPostgresClient(db.PostgresConfig{DSN: a.cfg.Postgres.DSN})
		if err := pg.Connect(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return pg.Close() })
		return a.snapshotTable(ctx, pg, a.cfg.Postgres.Table)

	case config.StoreSupabase:
		sb := db.NewSupabaseClient(db.SupabaseConfig{
			ConnectionString: a.cfg.Supabase.ConnectionString,
			SupabaseURL:      a.cfg.Supabase.URL,
			SupabaseKey:      a.cfg.Supabase.Key,
			Password:         a.cfg.Supabase.Password,
		})
		if err := sb.Connect(ctx); err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return sb.Close() })
		return a.snapshotTable(ctx, sb, a.cfg.Supabase.Table)

	default:
		return export.NewFileSaver(a.cfg.Export.Dir, a.logger), nil
	}
}

func (a *app) snapshotTable(ctx context.Context, provider db.DBProvider, table string) (*db.SnapshotTable, error) {
	t, err := db.NewSnapshotTable(provider, table)
	if err != nil {
		return nil, err
	}
	if err := t.EnsureSchema(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// close releases connections in reverse order of creation.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	_ = a.logger.Sync()
	if len(errs) > 0 {
		return fmt.Errorf("close: %w", errors.Join(errs...))
	}
	return nil
}
