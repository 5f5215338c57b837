package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news-crawler/pkg/newsservice"
)

// trackingRunner records the highest number of concurrent crawls per source.
type trackingRunner struct {
	mu      sync.Mutex
	active  map[string]int
	maxSeen map[string]int
	fail    map[string]bool
}

func newTrackingRunner() *trackingRunner {
	return &trackingRunner{active: map[string]int{}, maxSeen: map[string]int{}, fail: map[string]bool{}}
}

func (r *trackingRunner) Crawl(_ context.Context, req newsservice.Request) (*newsservice.Result, error) {
	r.mu.Lock()
	r.active[req.Source]++
	r.maxSeen[req.Source] = max(r.maxSeen[req.Source], r.active[req.Source])
	r.mu.Unlock()

	time.Sleep(5 * time.Millisecond)

	r.mu.Lock()
	r.active[req.Source]--
	r.mu.Unlock()

	if r.fail[req.Category] {
		return nil, errors.New("listing unavailable")
	}
	return &newsservice.Result{Source: req.Source}, nil
}

func requests() []newsservice.Request {
	return []newsservice.Request{
		{Source: "vnexpress", Category: "thoi-su"},
		{Source: "vietnamnet", Category: "thoi-su"},
		{Source: "vnexpress", Category: "the-thao"},
		{Source: "vietnamnet", Category: "the-thao"},
		{Source: "vnexpress", Category: "giai-tri"},
	}
}

func TestProcess_OneCrawlPerSourceAtATime(t *testing.T) {
	runner := newTrackingRunner()
	m := NewManager(4, runner, nil)

	reports, err := m.Process(context.Background(), requests())

	require.NoError(t, err)
	require.Len(t, reports, 5)
	for i, rep := range reports {
		assert.Equal(t, requests()[i], rep.Request)
		assert.NoError(t, rep.Err)
		assert.NotNil(t, rep.Result)
	}
	assert.Equal(t, 1, runner.maxSeen["vnexpress"])
	assert.Equal(t, 1, runner.maxSeen["vietnamnet"])
}

func TestProcess_PartialFailure(t *testing.T) {
	runner := newTrackingRunner()
	runner.fail["the-thao"] = true
	m := NewManager(2, runner, nil)

	reports, err := m.Process(context.Background(), requests())

	require.NoError(t, err)
	assert.Error(t, reports[2].Err)
	assert.Error(t, reports[3].Err)
	assert.NoError(t, reports[0].Err)
}

func TestProcess_AllFailed(t *testing.T) {
	runner := newTrackingRunner()
	runner.fail["thoi-su"] = true
	m := NewManager(2, runner, nil)

	_, err := m.Process(context.Background(), []newsservice.Request{
		{Source: "vnexpress", Category: "thoi-su"},
		{Source: "vietnamnet", Category: "thoi-su"},
	})
	assert.Error(t, err)
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports, err := NewManager(2, newTrackingRunner(), nil).Process(ctx, requests())

	assert.Error(t, err)
	for _, rep := range reports {
		assert.ErrorIs(t, rep.Err, context.Canceled)
	}
}

func TestGroupBySource(t *testing.T) {
	assert.Equal(t, [][]int{{0, 2, 4}, {1, 3}}, groupBySource(requests()))
	assert.Empty(t, groupBySource(nil))
}
