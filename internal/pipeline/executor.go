package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"
)

// StageStat records the document counts around one executed stage.
type StageStat struct {
	Stage   string
	In      int
	Out     int
	Elapsed time.Duration
}

// Executor runs pipelines. The zero value is ready to use.
type Executor struct {
	// Verbose logs one line per stage.
	Verbose bool

	// Stats holds the per-stage counts of the most recent Run.
	Stats []StageStat
}

// Run feeds docs through stages in order. The input slice is not modified.
// Cancellation is checked between stages.
func (e *Executor) Run(ctx context.Context, stages []Stage, docs []Doc) ([]Doc, error) {
	e.Stats = e.Stats[:0]
	cur := docs
	for i, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		start := time.Now()
		next, err := st.apply(cur)
		if err != nil {
			return nil, fmt.Errorf("stage %d (%s): %w", i, st.Kind(), err)
		}
		stat := StageStat{Stage: st.Kind(), In: len(cur), Out: len(next), Elapsed: time.Since(start)}
		e.Stats = append(e.Stats, stat)
		if e.Verbose {
			log.Printf("pipeline: stage=%d kind=%s in=%d out=%d elapsed=%s",
				i, stat.Stage, stat.In, stat.Out, stat.Elapsed.Truncate(time.Microsecond))
		}
		cur = next
	}
	return cur, nil
}

// Run executes stages with a throwaway Executor.
func Run(ctx context.Context, stages []Stage, docs []Doc) ([]Doc, error) {
	var e Executor
	return e.Run(ctx, stages, docs)
}
