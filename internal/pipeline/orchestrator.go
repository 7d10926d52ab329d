package pipeline

import (
	"context"

	"github.com/clonewatch/clonewatch/internal/bloomfilter"
	"github.com/clonewatch/clonewatch/internal/feature"
	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/report"
	"github.com/clonewatch/clonewatch/internal/syntaxfilter"
	"github.com/clonewatch/clonewatch/internal/telemetry"
	"github.com/clonewatch/clonewatch/internal/tokenfilter"
	"github.com/clonewatch/clonewatch/internal/trace"
)

// Orchestrator wires the bounded queues and per-stage worker pools
// described in §4.6: it owns the single cancellation signal, constructs
// one queue per stage boundary, and starts every stage's goroutine.
type Orchestrator struct {
	extractor     *feature.Extractor
	sfbl          *bloomfilter.SFBL
	tokenFilter   *tokenfilter.Filter
	syntaxFilter  *syntaxfilter.Filter
	confirmer     trace.Confirmer
	workers       DefaultWorkers
	telemetry     *telemetry.Aggregator
	traceLog      *report.CSVTraceWriter
}

// New constructs an Orchestrator from the fully-initialised stage
// components. confirmer may be trace.NoopConfirmer{} when Stage 4 has no
// real backend configured. traceLog may be nil to skip the CSV
// trace-of-every-attempt log.
func New(extractor *feature.Extractor, sfbl *bloomfilter.SFBL, tokenFilter *tokenfilter.Filter, syntaxFilter *syntaxfilter.Filter, confirmer trace.Confirmer, workers DefaultWorkers, agg *telemetry.Aggregator, traceLog *report.CSVTraceWriter) *Orchestrator {
	return &Orchestrator{
		extractor:    extractor,
		sfbl:         sfbl,
		tokenFilter:  tokenFilter,
		syntaxFilter: syntaxFilter,
		confirmer:    confirmer,
		workers:      workers,
		telemetry:    agg,
		traceLog:     traceLog,
	}
}

// Run starts every stage in its own goroutine, reading the producer's
// functions as Q0, and returns at once a channel of Detections (both the
// high-confidence sink and Stage 4's confirmations are merged onto it).
// That channel receives one final sentinel Detection once every sentinel
// has propagated through to the merged sink, and is then closed.
//
// produce must emit every carved function followed by exactly one
// model.Sentinel() and then close its channel.
func (o *Orchestrator) Run(ctx context.Context, produce <-chan model.Function) <-chan model.Detection {
	q1 := make(chan model.Function, QueueCapacityBloom)
	q2 := make(chan model.Function, QueueCapacityToken)
	q3 := make(chan model.Function, QueueCapacitySyntax)

	highConfidence := make(chan model.Detection, QueueCapacitySyntax)
	traceSink := make(chan model.Detection, QueueCapacitySyntax)
	merged := make(chan model.Detection, QueueCapacitySyntax)

	go runStage(ctx, produce, q1, o.workers.Bloom, telemetry.StageBloomFilter, o.telemetry, bloomProcessor(o.extractor, o.sfbl))
	go runStage(ctx, q1, q2, o.workers.Token, telemetry.StageToken, o.telemetry, tokenProcessor(o.tokenFilter))
	go runSyntaxStage(ctx, q2, q3, highConfidence, o.workers.Syntax, o.telemetry, o.syntaxFilter)
	go runTraceStage(ctx, q3, traceSink, o.workers.Trace, o.telemetry, o.confirmer, o.traceLog)

	go mergeDetections(merged, highConfidence, traceSink)

	return merged
}

// mergeDetections fans two Detection streams into one, each terminated by
// its own sentinel Detection; the merged stream forwards exactly one
// sentinel, once both inputs have delivered theirs, then closes.
func mergeDetections(out chan<- model.Detection, a, b <-chan model.Detection) {
	defer close(out)

	aDone, bDone := false, false
	for !aDone || !bDone {
		select {
		case d, ok := <-a:
			if !ok {
				aDone = true
				a = nil
				continue
			}
			if d.Path == model.SentinelPath {
				aDone = true
				a = nil
				continue
			}
			out <- d
		case d, ok := <-b:
			if !ok {
				bDone = true
				b = nil
				continue
			}
			if d.Path == model.SentinelPath {
				bDone = true
				b = nil
				continue
			}
			out <- d
		}
	}
	out <- model.Detection{Path: model.SentinelPath}
}
