package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/syntaxfilter"
	"github.com/clonewatch/clonewatch/internal/telemetry"
)

// runSyntaxStage wraps Stage 3, the one stage with two downstream sinks: a
// function can be emitted immediately to the high-confidence sink, forwarded
// to Stage 4 with only its low-confidence candidates, both, or neither.
// Sentinel handling follows the same drain-then-forward-once rule as
// runStage, but a sentinel is additionally forwarded to highConfidence so
// that a report writer listening on both channels can detect completion
// from either one.
func runSyntaxStage(ctx context.Context, in <-chan model.Function, out chan<- model.Function, highConfidence chan<- model.Detection, workers int, agg *telemetry.Aggregator, filter *syntaxfilter.Filter) {
	p := pool.New().WithMaxGoroutines(workers)

	for fn := range in {
		if fn.IsSentinel() {
			p.Wait()
			out <- model.Sentinel()
			close(out)
			highConfidence <- model.Detection{Path: model.SentinelPath}
			close(highConfidence)
			return
		}

		fn := fn
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			agg.RecordIn(telemetry.StageSyntax)
			eval := filter.Evaluate(fn)
			if len(eval.HighConfidence) > 0 {
				highConfidence <- model.Detection{Path: fn.Path, Matches: eval.HighConfidence}
			}
			if eval.Trace != nil {
				out <- *eval.Trace
			}
			agg.RecordOut(telemetry.StageSyntax, !eval.Dropped())
		})
	}

	panic("pipeline: syntax stage input channel closed without a sentinel")
}
