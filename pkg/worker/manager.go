// Package worker runs many crawl requests with a bounded set of workers.
// Requests for the same source always run on one worker, one after the
// other, so a site never sees concurrent crawls from this process.
package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"news-crawler/pkg/newsservice"
)

// Runner executes one crawl request.
type Runner interface {
	Crawl(ctx context.Context, req newsservice.Request) (*newsservice.Result, error)
}

// Report is the outcome of one request of a batch.
type Report struct {
	Request newsservice.Request
	Result  *newsservice.Result
	Err     error
}

// Manager distributes crawl requests to workers.
type Manager struct {
	workerCount int
	runner      Runner
	logger      *zap.Logger
}

// NewManager creates a manager with at most workerCount concurrent crawls.
func NewManager(workerCount int, runner Runner, logger *zap.Logger) *Manager {
	if workerCount < 1 {
		workerCount = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{workerCount: workerCount, runner: runner, logger: logger}
}

// Process runs every request and returns one report per request in input
// order. It fails only when every request failed.
func (m *Manager) Process(ctx context.Context, reqs []newsservice.Request) ([]Report, error) {
	groups := groupBySource(reqs)

	jobs := make(chan []int, len(groups))
	for _, g := range groups {
		jobs <- g
	}
	close(jobs)

	type result struct {
		index    int
		workerID int
		report   Report
	}
	results := make(chan result, len(reqs))

	var wg sync.WaitGroup
	for i := 0; i < min(m.workerCount, len(groups)); i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for group := range jobs {
				for _, idx := range group {
					if ctx.Err() != nil {
						results <- result{index: idx, workerID: workerID, report: Report{Request: reqs[idx], Err: ctx.Err()}}
						continue
					}
					res, err := m.runner.Crawl(ctx, reqs[idx])
					results <- result{index: idx, workerID: workerID, report: Report{Request: reqs[idx], Result: res, Err: err}}
				}
			}
		}(i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	reports := make([]Report, len(reqs))
	var successCount, errorCount int
	for res := range results {
		reports[res.index] = res.report
		if res.report.Err != nil {
			errorCount++
			m.logger.Warn("Crawl failed",
				zap.Int("worker", res.workerID),
				zap.String("source", res.report.Request.Source),
				zap.String("category", res.report.Request.Category),
				zap.Error(res.report.Err))
			continue
		}
		successCount++
	}

	m.logger.Info("Batch completed",
		zap.Int("successful", successCount),
		zap.Int("errors", errorCount),
		zap.Int("total", len(reqs)))

	if errorCount > 0 && successCount == 0 {
		return reports, fmt.Errorf("all %d crawls failed", errorCount)
	}
	return reports, nil
}

// groupBySource returns request indexes grouped by source, in order of
// first appearance.
func groupBySource(reqs []newsservice.Request) [][]int {
	pos := map[string]int{}
	var groups [][]int
	for i, r := range reqs {
		g, ok := pos[r.Source]
		if !ok {
			g = len(groups)
			pos[r.Source] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
