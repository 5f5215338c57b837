// Package replication copies archived snapshots from MongoDB into a SQL
// snapshot table.
package replication

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"news-crawler/pkg/domain"
)

const (
	batchSize  = 100
	numWorkers = 5
)

// Source lists the snapshots to copy.
type Source interface {
	ListSnapshots(ctx context.Context) ([]domain.Snapshot, error)
}

// Target receives the snapshots it does not already hold.
type Target interface {
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)
	SaveSnapshot(ctx context.Context, snap *domain.Snapshot) (string, error)
}

// Stats summarizes one replication run.
type Stats struct {
	Processed int
	Inserted  int
}

// Replicator copies snapshots from a Source to a Target.
type Replicator struct {
	from   Source
	to     Target
	logger *zap.Logger
}

// NewReplicator returns a replicator; both ends are required.
func NewReplicator(from Source, to Target, logger *zap.Logger) (*Replicator, error) {
	if from == nil || to == nil {
		return nil, errors.New("replication needs a source and a target")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replicator{from: from, to: to, logger: logger}, nil
}

// Run copies every snapshot missing from the target. Batches run in
// parallel and the first batch error stops the run.
func (r *Replicator) Run(ctx context.Context) (Stats, error) {
	snaps, err := r.from.ListSnapshots(ctx)
	if err != nil {
		return Stats{}, err
	}
	r.logger.Info("Loaded snapshots", zap.Int("count", len(snaps)))

	type result struct {
		processed int
		inserted  int
		err       error
	}

	jobs := make(chan []domain.Snapshot)
	results := make(chan result)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				inserted, err := r.copyBatch(ctx, batch)
				results <- result{processed: len(batch), inserted: inserted, err: err}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for start := 0; start < len(snaps); start += batchSize {
			end := min(start+batchSize, len(snaps))
			select {
			case jobs <- snaps[start:end]:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var stats Stats
	var firstErr error
	for res := range results {
		if res.err != nil {
			if firstErr == nil {
				firstErr = res.err
				cancel()
			}
			continue
		}
		stats.Processed += res.processed
		stats.Inserted += res.inserted
	}
	if firstErr != nil {
		return stats, firstErr
	}

	r.logger.Info("Replication complete",
		zap.Int("processed", stats.Processed),
		zap.Int("inserted", stats.Inserted))
	return stats, nil
}

func (r *Replicator) copyBatch(ctx context.Context, batch []domain.Snapshot) (int, error) {
	ids := make([]string, len(batch))
	for i, s := range batch {
		ids[i] = s.ID
	}
	existing, err := r.to.ExistingIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("check existing snapshots: %w", err)
	}

	inserted := 0
	for i := range batch {
		snap := &batch[i]
		if existing[snap.ID] || len(snap.Articles) == 0 {
			continue
		}
		if _, err := r.to.SaveSnapshot(ctx, snap); err != nil {
			return inserted, fmt.Errorf("copy snapshot %s: %w", snap.ID, err)
		}
		inserted++
	}
	r.logger.Debug("Batch copied", zap.Int("size", len(batch)), zap.Int("inserted", inserted))
	return inserted, nil
}
