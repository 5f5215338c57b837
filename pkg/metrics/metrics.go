// Package metrics exposes crawl and HTTP counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"news-crawler/pkg/pipeline"
)

// Metrics holds the collectors of one process. It implements
// pipeline.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	PagesTotal          *prometheus.CounterVec
	StubsTotal          *prometheus.CounterVec
	ArticlesTotal       *prometheus.CounterVec
	SkipsTotal          *prometheus.CounterVec
	CrawlDuration       *prometheus.HistogramVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		PagesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_listing_pages_total",
				Help: "Listing pages fetched.",
			},
			[]string{"source", "status"},
		),
		StubsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_stubs_total",
				Help: "Article stubs discovered on listing pages.",
			},
			[]string{"source"},
		),
		ArticlesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_articles_total",
				Help: "Articles extracted from detail pages.",
			},
			[]string{"source"},
		),
		SkipsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_skipped_articles_total",
				Help: "Article stubs that produced no article.",
			},
			[]string{"source", "reason"},
		),
		CrawlDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newscrawler_crawl_duration_seconds",
				Help:    "Duration of complete crawl requests.",
				Buckets: []float64{1, 5, 10, 15, 30, 60, 120, 300},
			},
			[]string{"source"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "newscrawler_http_requests_total",
				Help: "API requests served.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "newscrawler_http_request_duration_seconds",
				Help:    "Duration of API requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
	}
}

var _ pipeline.Recorder = (*Metrics)(nil)

func (m *Metrics) PageFetched(source string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	m.PagesTotal.WithLabelValues(source, status).Inc()
}

func (m *Metrics) StubsFound(source string, n int) {
	m.StubsTotal.WithLabelValues(source).Add(float64(n))
}

func (m *Metrics) ArticleExtracted(source string) {
	m.ArticlesTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) ArticleSkipped(source string, reason pipeline.SkipReason) {
	m.SkipsTotal.WithLabelValues(source, string(reason)).Inc()
}

// ObserveCrawl records the duration of a finished crawl.
func (m *Metrics) ObserveCrawl(source string, d time.Duration) {
	m.CrawlDuration.WithLabelValues(source).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and their latency by status code.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		labels := []string{r.Method, r.URL.Path, strconv.Itoa(rw.statusCode)}
		m.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
		m.HTTPRequestsTotal.WithLabelValues(labels...).Inc()
	})
}
