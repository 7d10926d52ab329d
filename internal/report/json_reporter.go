package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/goccy/go-json"

	"github.com/clonewatch/clonewatch/internal/model"
)

type vulEntry struct {
	ID  int      `json:"id"`
	Dst string   `json:"dst"`
	Sim []string `json:"sim"`
}

type vulReport struct {
	Cnt int        `json:"cnt"`
	All int        `json:"all"`
	Vul []vulEntry `json:"vul"`
}

// JSONReporter accumulates detections and rewrites the full JSON report
// file after every Save — a live-updating snapshot rather than a single
// end-of-run write, so a killed run still leaves a usable partial report.
type JSONReporter struct {
	mu     sync.Mutex
	path   string
	report vulReport
}

// NewJSONReporter creates a JSONReporter writing to
// <outputDir>/vuls.json.
func NewJSONReporter(outputDir string) *JSONReporter {
	return &JSONReporter{path: filepath.Join(outputDir, "vuls.json")}
}

// Save appends one detection and rewrites the report file.
func (r *JSONReporter) Save(d model.Detection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.report.Cnt++
	r.report.All += len(d.Matches)
	r.report.Vul = append(r.report.Vul, vulEntry{ID: r.report.Cnt, Dst: d.Path, Sim: d.Matches})

	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("report: creating %s: %w", filepath.Dir(r.path), err)
	}
	data, err := json.MarshalIndent(r.report, "", "    ")
	if err != nil {
		return fmt.Errorf("report: marshalling vulnerability report: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("report: writing %s: %w", r.path, err)
	}
	return nil
}

// Close flushes a zero-detection report if Save was never called, so a
// run with no detections still leaves a (possibly empty) report file.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.report.Cnt > 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("report: creating %s: %w", filepath.Dir(r.path), err)
	}
	data, err := json.MarshalIndent(r.report, "", "    ")
	if err != nil {
		return fmt.Errorf("report: marshalling vulnerability report: %w", err)
	}
	return os.WriteFile(r.path, data, 0o644)
}
