// Package telemetry aggregates per-stage throughput counters for a detect
// run: stage-keyed in/out counts, pass-through rate, and extrapolated
// hourly throughput, snapshotted for the live view and the final report.
package telemetry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// Stage identifies one of the four cascading pipeline stages.
type Stage string

const (
	StageBloomFilter Stage = "bloom_filter"
	StageToken       Stage = "token"
	StageSyntax      Stage = "syntax"
	StageTrace       Stage = "trace"
)

var allStages = []Stage{StageBloomFilter, StageToken, StageSyntax, StageTrace}

type stageCounters struct {
	input    uint64
	output   uint64
	occupied time.Duration // accumulated wall time with at least one in-flight item
	openedAt time.Time     // zero when no item is currently occupying the timer
	active   int           // number of in-flight items
}

// Aggregator receives one event per stage-completion and keeps running
// per-stage counters, elapsed occupancy time, and derived rates.
type Aggregator struct {
	mu      sync.Mutex
	runID   string
	started time.Time
	stages  map[Stage]*stageCounters

	inputTotal  *prometheus.CounterVec
	outputTotal *prometheus.CounterVec
	occupancy   *prometheus.GaugeVec
}

// New creates an Aggregator registered against reg. Pass
// prometheus.NewRegistry() in production, or nil to skip Prometheus
// registration entirely (useful in tests).
func New(reg prometheus.Registerer) *Aggregator {
	a := &Aggregator{
		runID:   uuid.NewString(),
		started: time.Now(),
		stages:  make(map[Stage]*stageCounters, len(allStages)),
		inputTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clonewatch_stage_input_total",
			Help: "Items a pipeline stage has read, labelled by stage.",
		}, []string{"stage"}),
		outputTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clonewatch_stage_output_total",
			Help: "Items a pipeline stage has forwarded downstream, labelled by stage.",
		}, []string{"stage"}),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clonewatch_stage_in_flight",
			Help: "Items currently in flight within a pipeline stage, labelled by stage.",
		}, []string{"stage"}),
	}
	for _, s := range allStages {
		a.stages[s] = &stageCounters{}
	}
	if reg != nil {
		reg.MustRegister(a.inputTotal, a.outputTotal, a.occupancy)
	}
	return a
}

// RecordIn marks one item entering a stage; it starts the stage's
// queue-occupancy timer if this is the first in-flight item.
func (a *Aggregator) RecordIn(stage Stage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.stages[stage]
	c.input++
	if c.active == 0 {
		c.openedAt = time.Now()
	}
	c.active++
	a.inputTotal.WithLabelValues(string(stage)).Inc()
	a.occupancy.WithLabelValues(string(stage)).Set(float64(c.active))
}

// RecordOut marks one item leaving a stage (successfully forwarded or
// dropped); it stops the occupancy timer once no item remains in flight.
func (a *Aggregator) RecordOut(stage Stage, forwarded bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c := a.stages[stage]
	if forwarded {
		c.output++
		a.outputTotal.WithLabelValues(string(stage)).Inc()
	}
	if c.active > 0 {
		c.active--
	}
	if c.active == 0 && !c.openedAt.IsZero() {
		c.occupied += time.Since(c.openedAt)
		c.openedAt = time.Time{}
	}
	a.occupancy.WithLabelValues(string(stage)).Set(float64(c.active))
}

// StageSnapshot is one stage's counters at the moment Snapshot was taken.
type StageSnapshot struct {
	Stage             Stage         `json:"stage"`
	Input             uint64        `json:"input"`
	Output            uint64        `json:"output"`
	Occupied          time.Duration `json:"occupied_ns"`
	PassThroughRate   float64       `json:"pass_through_rate"`
	ProjectedHourly   float64       `json:"projected_hourly_throughput"`
}

// Snapshot is the full telemetry JSON payload persisted at end-of-run
// (§4.6).
type Snapshot struct {
	RunID     string          `json:"run_id"`
	StartedAt time.Time       `json:"started_at"`
	Elapsed   time.Duration   `json:"elapsed_ns"`
	Stages    []StageSnapshot `json:"stages"`
}

// Snapshot computes the current rolling rates and projected throughput for
// every stage.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := Snapshot{
		RunID:     a.runID,
		StartedAt: a.started,
		Elapsed:   time.Since(a.started),
	}
	for _, s := range allStages {
		c := a.stages[s]
		occupied := c.occupied
		if !c.openedAt.IsZero() {
			occupied += time.Since(c.openedAt)
		}

		var rate float64
		if c.input > 0 {
			rate = float64(c.output) / float64(c.input)
		}

		var hourly float64
		if occupied > 0 {
			hourly = float64(c.output) / occupied.Hours()
		}

		snap.Stages = append(snap.Stages, StageSnapshot{
			Stage:           s,
			Input:           c.input,
			Output:          c.output,
			Occupied:        occupied,
			PassThroughRate: rate,
			ProjectedHourly: hourly,
		})
	}
	return snap
}

// Persist writes the current Snapshot as indented JSON to
// <dir>/telemetry.json.
func (a *Aggregator) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("telemetry: creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(a.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("telemetry: marshalling snapshot: %w", err)
	}
	path := filepath.Join(dir, "telemetry.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("telemetry: writing %s: %w", path, err)
	}
	return nil
}

// RunID returns this aggregator's stable per-run identifier.
func (a *Aggregator) RunID() string {
	return a.runID
}
