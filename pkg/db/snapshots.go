package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"news-crawler/pkg/domain"
)

// DefaultSnapshotTable is the table used when none is configured.
const DefaultSnapshotTable = "news_snapshots"

// ErrInvalidTable is returned for table names that are not plain identifiers.
var ErrInvalidTable = errors.New("invalid table name")

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// restInserter is implemented by providers that can insert without a
// direct database handle.
type restInserter interface {
	insertREST(table string, row any) error
}

// snapshotRow is the relational form of a snapshot: metadata columns plus
// the article array as JSON.
type snapshotRow struct {
	ID          string          `json:"id"`
	Source      string          `json:"source"`
	CategoryKey string          `json:"category_key"`
	CreatedAt   time.Time       `json:"created_at"`
	ArticleCnt  int             `json:"article_count"`
	Articles    json.RawMessage `json:"articles"`
}

func newSnapshotRow(snap *domain.Snapshot) (snapshotRow, error) {
	payload, err := json.Marshal(snap.Articles)
	if err != nil {
		return snapshotRow{}, fmt.Errorf("encode articles: %w", err)
	}
	return snapshotRow{
		ID:          snap.ID,
		Source:      snap.Source,
		CategoryKey: snap.CategoryKey,
		CreatedAt:   snap.CreatedAt.UTC(),
		ArticleCnt:  len(snap.Articles),
		Articles:    payload,
	}, nil
}

// SnapshotTable stores snapshots as rows of a Postgres table.
type SnapshotTable struct {
	provider DBProvider
	table    string
}

// NewSnapshotTable returns a store over provider writing into table.
func NewSnapshotTable(provider DBProvider, table string) (*SnapshotTable, error) {
	if table == "" {
		table = DefaultSnapshotTable
	}
	if !identifier.MatchString(table) {
		return nil, fmt.Errorf("%w %q", ErrInvalidTable, table)
	}
	return &SnapshotTable{provider: provider, table: table}, nil
}

// EnsureSchema creates the table when it does not exist. It is a no-op in
// REST-only mode, where the table must be created beforehand.
func (t *SnapshotTable) EnsureSchema(ctx context.Context) error {
	db := t.provider.DB()
	if db == nil {
		if _, ok := t.provider.(restInserter); ok {
			return nil
		}
		return ErrNotConnected
	}
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+t.table+` (
	id            uuid PRIMARY KEY,
	source        text NOT NULL,
	category_key  text NOT NULL,
	created_at    timestamptz NOT NULL,
	article_count integer NOT NULL,
	articles      jsonb NOT NULL
)`)
	if err != nil {
		return fmt.Errorf("create table %s: %w", t.table, err)
	}
	return nil
}

// SaveSnapshot inserts the snapshot and returns its id. Saving an id that
// already exists is a no-op.
func (t *SnapshotTable) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	if len(snap.Articles) == 0 {
		return "", ErrEmptySnapshot
	}
	row, err := newSnapshotRow(snap)
	if err != nil {
		return "", err
	}

	db := t.provider.DB()
	if db == nil {
		rest, ok := t.provider.(restInserter)
		if !ok {
			return "", ErrNotConnected
		}
		if err := rest.insertREST(t.table, row); err != nil {
			return "", err
		}
		return row.ID, nil
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO `+t.table+` (id, source, category_key, created_at, article_count, articles)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`,
		row.ID, row.Source, row.CategoryKey, row.CreatedAt, row.ArticleCnt, string(row.Articles))
	if err != nil {
		return "", fmt.Errorf("insert snapshot %s: %w", row.ID, err)
	}
	return row.ID, nil
}

// ExistingIDs reports which of ids are already stored. It needs a direct
// database connection.
func (t *SnapshotTable) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}
	db := t.provider.DB()
	if db == nil {
		return nil, ErrNotConnected
	}

	var b strings.Builder
	b.WriteString(`SELECT id::text FROM ` + t.table + ` WHERE id::text IN (`)
	args := make([]any, len(ids))
	for i, id := range ids {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
		args[i] = id
	}
	b.WriteString(")")

	rows, err := db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("query existing snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan snapshot id: %w", err)
		}
		found[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return found, nil
}
