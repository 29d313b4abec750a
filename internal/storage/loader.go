package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"orderdocs/internal/document"
	"orderdocs/internal/metrics"
)

// Inserter is the write half of Repository.
type Inserter interface {
	InsertMany(ctx context.Context, docs []document.Document) (InsertResult, error)
}

// InsertBatches writes docs in batches of batchSize and logs progress after
// each batch. Documents rejected by the store are counted in the result and
// do not stop the run; an error from InsertMany does, and the result then
// covers the batches written so far.
func InsertBatches(ctx context.Context, job string, repo Inserter, docs []document.Document, batchSize int) (InsertResult, error) {
	if batchSize <= 0 {
		return InsertResult{}, fmt.Errorf("batchSize must be > 0")
	}
	if repo == nil {
		return InsertResult{}, fmt.Errorf("repo must not be nil")
	}

	var (
		total       InsertResult
		batches     int64
		start       = time.Now()
		lastFlushTS = start
		lastTotal   int64
	)
	for lo := 0; lo < len(docs); lo += batchSize {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		hi := min(lo+batchSize, len(docs))

		res, err := repo.InsertMany(ctx, docs[lo:hi])
		total.Add(res)
		if err != nil {
			log.Printf("loader: insert failed batch=%d docs=%d total_inserted=%d err=%v", batches+1, hi-lo, total.Inserted, err)
			return total, err
		}

		batches++
		metrics.RecordBatches(job, 1)
		metrics.RecordRow(job, "inserted", res.Inserted)
		if res.Failed > 0 {
			metrics.RecordRow(job, "insert_failed", res.Failed)
		}

		now := time.Now()
		sinceLast := now.Sub(lastFlushTS)
		rps := float64(0)
		if sinceLast > 0 {
			rps = float64(total.Inserted-lastTotal) / sinceLast.Seconds()
		}
		log.Printf(
			"batch #%d: rps=%.0f inserted=%d failed=%d total_inserted=%d elapsed=%s since_last=%s",
			batches,
			rps,
			res.Inserted,
			res.Failed,
			total.Inserted,
			now.Sub(start).Truncate(time.Millisecond),
			sinceLast.Truncate(time.Millisecond),
		)
		lastFlushTS = now
		lastTotal = total.Inserted
	}
	log.Printf("loader: done batches=%d total_inserted=%d total_failed=%d", batches, total.Inserted, total.Failed)
	return total, nil
}
