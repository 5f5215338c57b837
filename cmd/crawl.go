package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"news-crawler/pkg/config"
	"news-crawler/pkg/newsservice"
	"news-crawler/pkg/pipeline"
)

const defaultLineWidth = 100

type crawlOptions struct {
	source   string
	category string
	pages    int
	articles int
	delay    time.Duration
	fromFeed bool
	out      string
}

func newCrawlCmd(root *rootOptions) *cobra.Command {
	opts := &crawlOptions{}

	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl one category and save a snapshot",
		Example: `  news-crawler crawl --source vnexpress --category the-thao --pages 2 --articles 20
  news-crawler crawl --source vietnamnet --category 11 --out ./data`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCrawl(cmd, root, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.source, "source", "vnexpress", "news source (vnexpress or vietnamnet)")
	f.StringVar(&opts.category, "category", "", "category key or numeric id")
	f.IntVar(&opts.pages, "pages", 0, "listing pages to crawl (default from config)")
	f.IntVar(&opts.articles, "articles", 0, "maximum articles to extract (default from config)")
	f.DurationVar(&opts.delay, "delay", pipeline.DefaultDelay, "pause after every fetch")
	f.BoolVar(&opts.fromFeed, "from-feed", false, "discover articles from the category RSS feed")
	f.StringVar(&opts.out, "out", "", "write the snapshot file into this directory")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func runCrawl(cmd *cobra.Command, root *rootOptions, opts *crawlOptions) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, root, func(cfg *config.Config) {
		if cmd.Flags().Changed("delay") {
			cfg.Crawl.Delay = opts.delay
		}
		if opts.out != "" {
			cfg.Export.Store = config.StoreFile
			cfg.Export.Dir = opts.out
		}
	})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	out := cmd.OutOrStdout()
	res, err := a.service.Crawl(ctx, newsservice.Request{
		Source:   opts.source,
		Category: opts.category,
		Pages:    orDefault(opts.pages, a.cfg.Crawl.MaxPages),
		Articles: orDefault(opts.articles, a.cfg.Crawl.MaxArticles),
		FromFeed: opts.fromFeed,
		Progress: progressPrinter(out, lineWidth()),
	})
	if errors.Is(err, context.Canceled) {
		fmt.Fprintln(out, "Crawl stopped on request")
		return nil
	}
	if err != nil {
		return err
	}

	skipped := 0
	for _, o := range res.Outcomes {
		if o.Skipped() {
			skipped++
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Crawl finished!")
	fmt.Fprintf(out, "Articles crawled: %d (skipped %d)\n", len(res.Articles), skipped)
	if res.Location != "" {
		fmt.Fprintf(out, "Saved to: %s\n", res.Location)
	}
	return nil
}

func orDefault(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// progressPrinter writes timestamped progress lines cut to width terminal
// cells.
func progressPrinter(w io.Writer, width int) pipeline.ProgressFunc {
	return func(msg string) {
		line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)
		fmt.Fprintln(w, runewidth.Truncate(line, width, "…"))
	}
}

func lineWidth() int {
	if n, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && n > 20 {
		return n
	}
	return defaultLineWidth
}
