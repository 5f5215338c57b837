package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"news-crawler/pkg/config"
	"news-crawler/pkg/db"
	"news-crawler/pkg/logger"
	"news-crawler/pkg/replication"
)

var errReplicateConfig = errors.New("replicate needs mongo.uri and postgres.dsn")

func newReplicateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "replicate",
		Short: "Copy snapshots archived in MongoDB into the Postgres snapshot table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := config.Load(root.cfgFile)
			if err != nil {
				return err
			}
			if cfg.Mongo.URI == "" || cfg.Postgres.DSN == "" {
				return errReplicateConfig
			}
			if root.debug {
				cfg.Log.Level = "debug"
			}
			log, err := logger.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			mongoClient, err := db.NewClient(cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
			if err != nil {
				return err
			}
			defer mongoClient.Close(context.Background())
			if err := mongoClient.Connect(ctx); err != nil {
				return err
			}

			pg := db.NewPostgresClient(db.PostgresConfig{DSN: cfg.Postgres.DSN})
			if err := pg.Connect(ctx); err != nil {
				return err
			}
			defer pg.Close()

			table, err := db.NewSnapshotTable(pg, cfg.Postgres.Table)
			if err != nil {
				return err
			}
			if err := table.EnsureSchema(ctx); err != nil {
				return err
			}

			r, err := replication.NewReplicator(mongoClient, table, log)
			if err != nil {
				return err
			}
			stats, err := r.Run(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Replicated %d snapshots (%d new)\n", stats.Processed, stats.Inserted)
			return nil
		},
	}
}
