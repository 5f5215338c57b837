// Package scheduler runs configured crawls on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"news-crawler/pkg/config"
	"news-crawler/pkg/newsservice"
)

// Runner executes one crawl request.
type Runner interface {
	Crawl(ctx context.Context, req newsservice.Request) (*newsservice.Result, error)
}

// Scheduler triggers crawls. A job whose previous run is still going is
// skipped rather than stacked.
type Scheduler struct {
	cron   *cron.Cron
	parser cron.Parser
	runner Runner
	logger *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler that runs jobs with runner.
func New(runner Runner, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		parser: parser,
		runner: runner,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Add registers a job and returns its next run time.
func (s *Scheduler) Add(job config.ScheduleJob) (time.Time, error) {
	schedule, err := s.parser.Parse(job.Spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse schedule %q: %w", job.Spec, err)
	}
	s.cron.Schedule(schedule, cron.FuncJob(func() { s.run(job) }))

	next := schedule.Next(time.Now())
	s.logger.Info("Crawl scheduled",
		zap.String("spec", job.Spec),
		zap.String("source", job.Source),
		zap.String("category", job.Category),
		zap.Time("next_run", next))
	return next, nil
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return len(s.cron.Entries())
}

// Start begins triggering jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs, cancels running crawls and waits for them.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
}

func (s *Scheduler) run(job config.ScheduleJob) {
	logger := s.logger.With(zap.String("source", job.Source), zap.String("category", job.Category))
	logger.Info("Scheduled crawl started")

	res, err := s.runner.Crawl(s.ctx, newsservice.Request{
		Source:   job.Source,
		Category: job.Category,
		Pages:    job.Pages,
		Articles: job.Articles,
		Progress: func(msg string) { logger.Debug(msg) },
	})
	if err != nil {
		logger.Error("Scheduled crawl failed", zap.Error(err))
		return
	}
	logger.Info("Scheduled crawl finished",
		zap.Int("articles", len(res.Articles)),
		zap.String("location", res.Location))
}
