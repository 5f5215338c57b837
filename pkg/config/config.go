// Package config loads crawler settings from an optional YAML file,
// NEWSCRAWLER_* environment variables and built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. NEWSCRAWLER_CRAWL_DELAY.
const EnvPrefix = "NEWSCRAWLER"

// Store names accepted by export.store.
const (
	StoreFile     = "file"
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
)

// Validation errors.
var (
	ErrInvalidStore    = errors.New("export.store must be file, mongo, postgres or supabase")
	ErrInvalidDelay    = errors.New("crawl.delay must not be negative")
	ErrInvalidLimits   = errors.New("crawl.max_pages and crawl.max_articles must be positive")
	ErrInvalidClient   = errors.New("http.client must be browser or cloudflare")
	ErrMissingMongoURI = errors.New("mongo.uri is required for the mongo store")
	ErrMissingDSN      = errors.New("postgres.dsn is required for the postgres store")
	ErrInvalidSchedule = errors.New("schedule entries need spec, source and category")
)

// Config is the complete application configuration.
type Config struct {
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Export   ExportConfig   `mapstructure:"export"`
	Mongo    MongoConfig    `mapstructure:"mongo"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Schedule []ScheduleJob  `mapstructure:"schedule"`
}

type CrawlConfig struct {
	Delay       time.Duration `mapstructure:"delay"`
	MaxPages    int           `mapstructure:"max_pages"`
	MaxArticles int           `mapstructure:"max_articles"`
}

type HTTPConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Client  string        `mapstructure:"client"`
}

type ExportConfig struct {
	Dir   string `mapstructure:"dir"`
	Store string `mapstructure:"store"`
}

type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

type PostgresConfig struct {
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

type SupabaseConfig struct {
	URL              string `mapstructure:"url"`
	Key              string `mapstructure:"key"`
	Password         string `mapstructure:"password"`
	ConnectionString string `mapstructure:"connection_string"`
	Table            string `mapstructure:"table"`
}

// CacheConfig configures the Redis page cache. An empty Addr disables it.
type CacheConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ScheduleJob is one cron-driven crawl.
type ScheduleJob struct {
	Spec     string `mapstructure:"spec"`
	Source   string `mapstructure:"source"`
	Category string `mapstructure:"category"`
	Pages    int    `mapstructure:"pages"`
	Articles int    `mapstructure:"articles"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawl.delay", time.Second)
	v.SetDefault("crawl.max_pages", 1)
	v.SetDefault("crawl.max_articles", 10)
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.client", "browser")
	v.SetDefault("export.dir", "news_data")
	v.SetDefault("export.store", StoreFile)
	v.SetDefault("mongo.uri", "")
	v.SetDefault("mongo.database", "news")
	v.SetDefault("mongo.collection", "snapshots")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "news_snapshots")
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.password", "")
	v.SetDefault("supabase.connection_string", "")
	v.SetDefault("supabase.table", "news_snapshots")
	v.SetDefault("cache.addr", "")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 10*time.Minute)
	v.SetDefault("server.addr", ":8000")
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load reads path (or ./config.yaml when path is empty and the file exists)
// and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Crawl.Delay < 0 {
		return ErrInvalidDelay
	}
	if c.Crawl.MaxPages < 1 || c.Crawl.MaxArticles < 1 {
		return ErrInvalidLimits
	}
	switch c.HTTP.Client {
	case "browser", "cloudflare":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidClient, c.HTTP.Client)
	}

	switch c.Export.Store {
	case StoreFile, StoreSupabase:
	case StoreMongo:
		if c.Mongo.URI == "" {
			return ErrMissingMongoURI
		}
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return ErrMissingDSN
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidStore, c.Export.Store)
	}

	for i, job := range c.Schedule {
		if job.Spec == "" || job.Source == "" || job.Category == "" {
			return fmt.Errorf("schedule[%d]: %w", i, ErrInvalidSchedule)
		}
	}
	return nil
}
