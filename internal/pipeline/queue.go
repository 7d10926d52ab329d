// Package pipeline wires the four cascading filter stages together:
// bounded inter-stage queues, one worker pool per stage, end-of-stream
// sentinel propagation, and telemetry instrumentation.
package pipeline

// Queue capacities are normative: they reflect the expected bloom/token/
// syntax/trace throughput ratios and are not meant to be retuned per
// deployment.
const (
	QueueCapacityDataset = 100
	QueueCapacityBloom   = 2000
	QueueCapacityToken   = 1000
	QueueCapacitySyntax  = 100
)

// DefaultWorkers holds the per-stage worker pool widths.
type DefaultWorkers struct {
	Bloom  int
	Token  int
	Syntax int
	Trace  int
}

// DefaultWorkerWidths returns the default per-stage worker counts.
func DefaultWorkerWidths() DefaultWorkers {
	return DefaultWorkers{Bloom: 5, Token: 15, Syntax: 6, Trace: 32}
}
