package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	supabase "github.com/supabase-community/supabase-go"
)

// ErrSupabaseConfig is returned when neither a database connection nor the
// REST API can be configured.
var ErrSupabaseConfig = errors.New("supabase needs a connection string, a password or URL+key")

// SupabaseConfig holds configuration required to connect to Supabase.
type SupabaseConfig struct {
	// ConnectionString is the Postgres connection string. When empty it is
	// built from SupabaseURL and Password.
	ConnectionString string

	// SupabaseURL is the project URL, e.g. "https://[project-ref].supabase.co".
	SupabaseURL string

	// SupabaseKey is the API key used for REST inserts.
	SupabaseKey string

	// Password is the database password, not the API key.
	Password string

	Pool PoolConfig
}

// SupabaseClient talks to Supabase through Postgres when possible and falls
// back to the REST API when only URL and key are known.
type SupabaseClient struct {
	db          *sql.DB
	supabaseSDK *supabase.Client
	cfg         SupabaseConfig
}

// NewSupabaseClient constructs a Supabase client.
func NewSupabaseClient(cfg SupabaseConfig) *SupabaseClient {
	return &SupabaseClient{cfg: cfg}
}

// Connect initializes the REST client and, when credentials allow, a
// direct database handle. A failing direct connection is tolerated while
// the REST client is available.
func (c *SupabaseClient) Connect(ctx context.Context) error {
	if c.cfg.SupabaseURL != "" && c.cfg.SupabaseKey != "" {
		sdkClient, err := supabase.NewClient(c.cfg.SupabaseURL, c.cfg.SupabaseKey, nil)
		if err != nil {
			return fmt.Errorf("initialize supabase SDK: %w", err)
		}
		c.supabaseSDK = sdkClient
	}

	connStr := c.cfg.ConnectionString
	if connStr == "" && c.cfg.Password != "" {
		built, err := buildConnectionString(c.cfg.SupabaseURL, c.cfg.Password)
		if err != nil && c.supabaseSDK == nil {
			return fmt.Errorf("build connection string: %w", err)
		}
		connStr = built
	}

	if connStr != "" {
		// pgbouncer in transaction mode rejects cached prepared statements
		connStr = addConnectionParam(connStr, "statement_cache_capacity", "0")
		connStr = addConnectionParam(connStr, "default_query_exec_mode", "simple_protocol")

		db, err := openPostgres(ctx, connStr, c.cfg.Pool)
		switch {
		case err == nil:
			c.db = db
		case c.supabaseSDK == nil:
			return fmt.Errorf("supabase: %w", err)
		}
	}

	if c.db == nil && c.supabaseSDK == nil {
		return ErrSupabaseConfig
	}
	return nil
}

// Close closes the database connection.
func (c *SupabaseClient) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// DB returns the direct handle, or nil in REST-only mode.
func (c *SupabaseClient) DB() *sql.DB {
	return c.db
}

// HasDirectDB reports whether a direct database connection is available.
func (c *SupabaseClient) HasDirectDB() bool {
	return c.db != nil
}

// SDK returns the Supabase REST client, or nil when not configured.
func (c *SupabaseClient) SDK() *supabase.Client {
	return c.supabaseSDK
}

func (c *SupabaseClient) insertREST(table string, row any) error {
	if c.supabaseSDK == nil {
		return ErrNotConnected
	}
	if _, _, err := c.supabaseSDK.From(table).Insert(row, false, "", "", "").Execute(); err != nil {
		return fmt.Errorf("supabase insert into %s: %w", table, err)
	}
	return nil
}

// buildConnectionString derives the direct Postgres URL of a project from
// its API URL, e.g. https://ref.supabase.co -> db.ref.supabase.co.
func buildConnectionString(projectURL, password string) (string, error) {
	if projectURL == "" {
		return "", errors.New("supabase URL is required when connection string is not provided")
	}
	parsed, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("parse supabase URL: %w", err)
	}
	parts := strings.Split(parsed.Host, ".")
	if len(parts) < 2 || parts[0] == "" {
		return "", fmt.Errorf("invalid supabase URL %q: expected [project-ref].supabase.co", projectURL)
	}

	return fmt.Sprintf("postgresql://postgres:%s@db.%s.supabase.co:5432/postgres?sslmode=require",
		url.QueryEscape(password), parts[0]), nil
}

// addConnectionParam appends key=value unless the connection string already sets key.
func addConnectionParam(connStr, key, value string) string {
	if strings.Contains(connStr, key+"=") {
		return connStr
	}
	separator := "?"
	if strings.Contains(connStr, "?") {
		separator = "&"
	}
	return connStr + separator + key + "=" + value
}
