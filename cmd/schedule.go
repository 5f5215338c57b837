package cmd

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"news-crawler/pkg/scheduler"
)

var errNoJobs = errors.New("no schedule entries configured")

func newScheduleCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Run the crawls listed under schedule in the config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, nil)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			if len(a.cfg.Schedule) == 0 {
				return errNoJobs
			}

			s := scheduler.New(a.service, a.logger)
			for _, job := range a.cfg.Schedule {
				if _, err := a.service.Registry().Source(job.Source); err != nil {
					return err
				}
				if _, err := s.Add(job); err != nil {
					return err
				}
			}

			s.Start()
			<-ctx.Done()
			a.logger.Info("Stopping scheduler")
			s.Stop()
			return nil
		},
	}
}
