package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Crawl.Delay)
	assert.Equal(t, 1, cfg.Crawl.MaxPages)
	assert.Equal(t, 10, cfg.Crawl.MaxArticles)
	assert.Equal(t, 30*time.Second, cfg.HTTP.Timeout)
	assert.Equal(t, "news_data", cfg.Export.Dir)
	assert.Equal(t, StoreFile, cfg.Export.Store)
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 10*time.Minute, cfg.Cache.TTL)
	assert.Empty(t, cfg.Cache.Addr)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := writeConfig(t, `
crawl:
  delay: 2s
  max_pages: 4
export:
  store: mongo
mongo:
  uri: mongodb://localhost:27017
schedule:
  - spec: "@hourly"
    source: vnexpress
    category: the-thao
    articles: 5
`)
	t.Setenv("NEWSCRAWLER_CRAWL_MAX_PAGES", "6")
	t.Setenv("NEWSCRAWLER_SERVER_ADDR", ":9000")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Crawl.Delay)
	assert.Equal(t, 6, cfg.Crawl.MaxPages)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, StoreMongo, cfg.Export.Store)
	require.Len(t, cfg.Schedule, 1)
	assert.Equal(t, "@hourly", cfg.Schedule[0].Spec)
	assert.Equal(t, 5, cfg.Schedule[0].Articles)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Crawl:  CrawlConfig{Delay: time.Second, MaxPages: 1, MaxArticles: 1},
			HTTP:   HTTPConfig{Client: "browser"},
			Export: ExportConfig{Store: StoreFile},
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"negative delay", func(c *Config) { c.Crawl.Delay = -time.Second }, ErrInvalidDelay},
		{"zero pages", func(c *Config) { c.Crawl.MaxPages = 0 }, ErrInvalidLimits},
		{"bad client", func(c *Config) { c.HTTP.Client = "curl" }, ErrInvalidClient},
		{"bad store", func(c *Config) { c.Export.Store = "s3" }, ErrInvalidStore},
		{"mongo without uri", func(c *Config) { c.Export.Store = StoreMongo }, ErrMissingMongoURI},
		{"postgres without dsn", func(c *Config) { c.Export.Store = StorePostgres }, ErrMissingDSN},
		{"incomplete job", func(c *Config) { c.Schedule = []ScheduleJob{{Spec: "@daily"}} }, ErrInvalidSchedule},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
