package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/report"
	"github.com/clonewatch/clonewatch/internal/telemetry"
	"github.com/clonewatch/clonewatch/internal/trace"
)

// runTraceStage wraps Stage 4: the terminal stage, opaque and assumed to be
// the slowest (§4.5). It shares the same end-of-stream contract, but has no
// downstream queue — only the sink. traceLog may be nil to skip the
// trace-of-every-attempt CSV.
func runTraceStage(ctx context.Context, in <-chan model.Function, sink chan<- model.Detection, workers int, agg *telemetry.Aggregator, confirmer trace.Confirmer, traceLog *report.CSVTraceWriter) {
	p := pool.New().WithMaxGoroutines(workers)

	for fn := range in {
		if fn.IsSentinel() {
			p.Wait()
			sink <- model.Detection{Path: model.SentinelPath}
			close(sink)
			return
		}

		fn := fn
		p.Go(func() {
			if ctx.Err() != nil {
				return
			}
			agg.RecordIn(telemetry.StageTrace)
			req := trace.Request{Code: fn.Code, Path: fn.Path, Candidates: toCandidates(fn.Candidates)}
			result, err := confirmer.Confirm(ctx, req)
			forwarded := err == nil && len(result.Confirmed) > 0
			if forwarded {
				sink <- model.Detection{Path: fn.Path, Matches: candidateIDs(result.Confirmed)}
			}
			if traceLog != nil && err == nil {
				for _, a := range result.Attempts {
					_ = traceLog.WriteRow(report.TraceRow{
						TargetFile: fn.Path,
						VulnFile:   a.VulnID,
						PatchFile:  a.PatchID,
						Detail:     a.Detail,
						Predict:    a.Predicted,
					})
				}
			}
			agg.RecordOut(telemetry.StageTrace, forwarded)
		})
	}

	panic("pipeline: trace stage input channel closed without a sentinel")
}

func toCandidates(vulnIDs []string) []trace.Candidate {
	out := make([]trace.Candidate, len(vulnIDs))
	for i, id := range vulnIDs {
		out[i] = trace.Candidate{VulnID: id}
	}
	return out
}

func candidateIDs(cands []trace.Candidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.VulnID
	}
	return out
}
