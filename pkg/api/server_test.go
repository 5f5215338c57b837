package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-crawler/pkg/domain"
	"news-crawler/pkg/metrics"
	"news-crawler/pkg/newsservice"
	"news-crawler/pkg/registry"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(ctx context.Context, url string) (string, error) {
	body, ok := m[url]
	if !ok {
		return "", errors.New("unexpected status code: 404")
	}
	return body, nil
}

type memorySaver struct{ saved int }

func (m *memorySaver) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	m.saved++
	return snap.ID, nil
}

type failingSaver struct{}

func (failingSaver) SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error) {
	return "", errors.New("disk full")
}

var pages = mapFetcher{
	"https://vnexpress.net/the-thao": `<html><body>
<div class="item-news"><h3 class="title-news"><a href="/bong-da-1.html">Bóng đá</a></h3></div>
</body></html>`,
	"https://vnexpress.net/bong-da-1.html": `<html><body><h1 class="title-detail">Bóng đá</h1>
<p class="description">Tóm tắt</p><div class="fck_detail"><p>Nội dung <b>chính</b></p></div></body></html>`,
}

func newTestServer(t *testing.T, saver newsservice.SnapshotSaver) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	svc := newsservice.NewService(newsservice.Config{
		Registry: registry.Default(),
		Fetcher:  pages,
		Saver:    saver,
		Recorder: m,
	})
	srv := httptest.NewServer(NewServer(":0", time.Minute, svc, m, nil).Handler())
	t.Cleanup(srv.Close)
	return srv, m
}

func getJSON(t *testing.T, url string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func TestNews_ReturnsArticles(t *testing.T) {
	saver := &memorySaver{}
	srv, _ := newTestServer(t, saver)

	var articles []domain.Article
	resp := getJSON(t, srv.URL+"/api/news?source=vnexpress&category_id=5&num_articles=3", &articles)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Len(t, articles, 1)
	assert.Equal(t, "Bóng đá", articles[0].Title)
	assert.Equal(t, "Tóm tắt", articles[0].Excerpt)
	assert.Equal(t, "<p>Nội dung chính</p>", articles[0].Content)
	assert.Equal(t, 5, articles[0].CategoryID)
	assert.Equal(t, 1, saver.saved)
}

func TestNews_EmptyCrawlReturnsEmptyArray(t *testing.T) {
	srv, _ := newTestServer(t, &memorySaver{})

	resp, err := http.Get(srv.URL + "/api/news?category_id=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "[]", string(raw))
}

func TestNews_Validation(t *testing.T) {
	srv, _ := newTestServer(t, &memorySaver{})

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"unknown source", "source=tuoitre&category_id=1", "Invalid source. Must be either vnexpress or vietnamnet"},
		{"missing category", "source=vietnamnet", "Invalid category ID for vietnamnet"},
		{"non numeric category", "source=vnexpress&category_id=abc", "Invalid category ID for vnexpress"},
		{"unknown category", "source=vietnamnet&category_id=6", "Invalid category ID for vietnamnet"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]string
			resp := getJSON(t, srv.URL+"/api/news?"+tt.query, &body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.want, body["error"])
		})
	}
}

func TestNews_SaveFailure(t *testing.T) {
	srv, _ := newTestServer(t, failingSaver{})

	var body map[string]string
	resp := getJSON(t, srv.URL+"/api/news?category_id=5", &body)

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, body["error"], "disk full")
}

func TestCategories(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	var body struct {
		Categories    map[string]int    `json:"categories"`
		CategoryNames map[string]string `json:"category_names"`
	}
	resp := getJSON(t, srv.URL+"/api/categories?source=vietnamnet", &body)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 11, body.Categories["cong-nghe"])
	assert.Equal(t, "Công nghệ", body.CategoryNames["11"])

	var errBody map[string]string
	resp = getJSON(t, srv.URL+"/api/categories?source=nope", &errBody)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPreflightAndHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/news", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	var health map[string]string
	resp = getJSON(t, srv.URL+"/healthz", &health)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", health["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, &memorySaver{})
	getJSON(t, srv.URL+"/api/news?category_id=5", nil).Body.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := new(bytes.Buffer)
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), `newscrawler_articles_total{source="vnexpress"} 1`)
}
