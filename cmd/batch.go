package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"news-crawler/pkg/newsservice"
	"news-crawler/pkg/worker"
)

type batchOptions struct {
	sources    []string
	categories []string
	pages      int
	articles   int
	workers    int
}

func newBatchCmd(root *rootOptions) *cobra.Command {
	opts := &batchOptions{}

	cmd := &cobra.Command{
		Use:     "batch",
		Short:   "Crawl several categories, one crawl per source at a time",
		Example: `  news-crawler batch --sources vnexpress,vietnamnet --categories thoi-su,the-thao`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, root, nil)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			sources := opts.sources
			if len(sources) == 0 {
				sources = a.service.Registry().Names()
			}

			out := cmd.OutOrStdout()
			var mu sync.Mutex
			printLine := progressPrinter(out, lineWidth())

			var reqs []newsservice.Request
			for _, src := range sources {
				for _, cat := range opts.categories {
					prefix := fmt.Sprintf("%s/%s: ", src, cat)
					reqs = append(reqs, newsservice.Request{
						Source:   src,
						Category: cat,
						Pages:    orDefault(opts.pages, a.cfg.Crawl.MaxPages),
						Articles: orDefault(opts.articles, a.cfg.Crawl.MaxArticles),
						Progress: func(msg string) {
							mu.Lock()
							defer mu.Unlock()
							printLine(prefix + msg)
						},
					})
				}
			}

			reports, err := worker.NewManager(opts.workers, a.service, a.logger).Process(ctx, reqs)

			t := table.NewWriter()
			t.SetOutputMirror(out)
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Source", "Category", "Articles", "Saved to / Error"})
			for _, rep := range reports {
				switch {
				case rep.Err != nil:
					t.AppendRow(table.Row{rep.Request.Source, rep.Request.Category, 0, rep.Err.Error()})
				case rep.Result != nil:
					t.AppendRow(table.Row{rep.Request.Source, rep.Request.Category, len(rep.Result.Articles), rep.Result.Location})
				}
			}
			t.Render()
			return err
		},
	}

	f := cmd.Flags()
	f.StringSliceVar(&opts.sources, "sources", nil, "sources to crawl (default all)")
	f.StringSliceVar(&opts.categories, "categories", nil, "category keys or ids")
	f.IntVar(&opts.pages, "pages", 0, "listing pages per category (default from config)")
	f.IntVar(&opts.articles, "articles", 0, "articles per category (default from config)")
	f.IntVar(&opts.workers, "workers", 2, "concurrent crawls across sources")
	_ = cmd.MarkFlagRequired("categories")

	return cmd
}
