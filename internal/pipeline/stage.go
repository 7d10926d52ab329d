package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/telemetry"
)

// Processor transforms one function record into zero or more downstream
// records. Stage 1/2 return at most one (pass or drop); Stage 3 can return
// zero, one (high-confidence, routed by the caller), or be split across two
// downstream queues — handled by syntaxStage, not this generic runner.
type Processor func(ctx context.Context, fn model.Function) []model.Function

// runStage drains in, dispatches each non-sentinel item to a bounded
// worker pool, forwards every Processor result to out, and — on receiving
// the sentinel — waits for all dispatched work to finish before forwarding
// exactly one sentinel downstream and closing it. This satisfies §5's
// end-of-stream contract: the sentinel is the last record any stage reads
// or writes.
func runStage(ctx context.Context, in <-chan model.Function, out chan<- model.Function, workers int, stage telemetry.Stage, agg *telemetry.Aggregator, proc Processor) {
	p := pool.New().WithMaxGoroutines(workers)

	for fn := range in {
		if fn.IsSentinel() {
			p.Wait()
			out <- model.Sentinel()
			close(out)
			return
		}

		fn := fn
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			agg.RecordIn(stage)
			results := proc(ctx, fn)
			for _, r := range results {
				out <- r
			}
			agg.RecordOut(stage, len(results) > 0)
		})
	}

	// The input channel closed without a sentinel: every producer in this
	// codebase terminates its stream with model.Sentinel(), so this is a
	// bug in an upstream stage, not a data problem (§7 kind 5).
	panic("pipeline: stage input channel closed without a sentinel")
}
