// Package export writes crawl snapshots as JSON article arrays.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"news-crawler/pkg/domain"
)

// ErrNoArticles is returned when there is nothing to export.
var ErrNoArticles = errors.New("no articles to export")

const timestampLayout = "20060102_150405"

// Marshal renders articles as a 4-space indented JSON array with raw UTF-8
// and unescaped HTML, without a trailing newline. U+2028 and U+2029 are
// written raw as well.
func Marshal(articles []domain.Article) ([]byte, error) {
	if len(articles) == 0 {
		return nil, ErrNoArticles
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(articles); err != nil {
		return nil, fmt.Errorf("encode articles: %w", err)
	}
	return rawLineSeparators(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// rawLineSeparators turns the \u2028 and \u2029 escapes encoding/json always
// emits back into the characters. Escaped backslashes are skipped as pairs
// so a literal "\\u2028" in the text is left alone.
func rawLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] != '\\' || i+1 >= len(data) {
			out = append(out, data[i])
			continue
		}
		if esc := data[i+1:]; len(esc) >= 5 && string(esc[:4]) == "u202" && (esc[4] == '8' || esc[4] == '9') {
			if esc[4] == '8' {
				out = append(out, "\u2028"...)
			} else {
				out = append(out, "\u2029"...)
			}
			i += 5
			continue
		}
		out = append(out, data[i], data[i+1])
		i++
	}
	return out
}

// Write writes the JSON form of articles to w.
func Write(w io.Writer, articles []domain.Article) error {
	data, err := Marshal(articles)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Filename returns the snapshot file name for a crawl finished at t.
func Filename(source, categoryKey string, t time.Time) string {
	return fmt.Sprintf("%s_%s_%s.json", source, categoryKey, t.Format(timestampLayout))
}

// FileSaver stores snapshots as files in one directory.
type FileSaver struct {
	dir    string
	logger *zap.Logger
}

// NewFileSaver creates a saver writing into dir. The directory is created
// on first save.
func NewFileSaver(dir string, logger *zap.Logger) *FileSaver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSaver{dir: dir, logger: logger}
}

// SaveSnapshot writes the snapshot's articles and returns the file path.
func (s *FileSaver) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	data, err := Marshal(snap.Articles)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(s.dir, Filename(snap.Source, snap.CategoryKey, snap.CreatedAt))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	s.logger.Info("Snapshot written",
		zap.String("path", path),
		zap.Int("articles", len(snap.Articles)))
	return path, nil
}
