// Package cmd implements the news-crawler command line.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	debug   bool
}

// Execute runs the root command; the context is cancelled on SIGINT/SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "news-crawler",
		Short:         "Crawl Vietnamese news sites into JSON snapshots",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default ./config.yaml when present)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newCrawlCmd(opts),
		newCategoriesCmd(),
		newServeCmd(opts),
		newScheduleCmd(opts),
		newBatchCmd(opts),
		newReplicateCmd(opts),
	)
	return root
}
