package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// TraceRow is one attempted (target, vuln, patch, detail, predict) tuple.
// The "datail" header spelling is kept verbatim as an established external
// column name, not a naming choice made here.
type TraceRow struct {
	TargetFile string
	VulnFile   string
	PatchFile  string
	Detail     string
	Predict    bool
}

var traceCSVHeader = []string{"target_file", "vuln_file", "patch_file", "datail", "predict"}

// CSVTraceWriter appends TraceRows to a CSV file, writing the header once
// on construction.
type CSVTraceWriter struct {
	mu   sync.Mutex
	path string
	f    *os.File
	w    *csv.Writer
}

// NewCSVTraceWriter creates (or truncates) <outputDir>/trace.csv and writes
// its header row.
func NewCSVTraceWriter(outputDir string) (*CSVTraceWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("report: creating %s: %w", outputDir, err)
	}
	path := filepath.Join(outputDir, "trace.csv")
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("report: creating %s: %w", path, err)
	}
	w := csv.NewWriter(f)
	if err := w.Write(traceCSVHeader); err != nil {
		f.Close()
		return nil, fmt.Errorf("report: writing trace header: %w", err)
	}
	w.Flush()
	return &CSVTraceWriter{path: path, f: f, w: w}, nil
}

// WriteRow appends one attempt row and flushes, so the file reflects every
// attempt durably even if the process is interrupted mid-run.
func (c *CSVTraceWriter) WriteRow(row TraceRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	record := []string{row.TargetFile, row.VulnFile, row.PatchFile, row.Detail, strconv.FormatBool(row.Predict)}
	if err := c.w.Write(record); err != nil {
		return fmt.Errorf("report: writing trace row: %w", err)
	}
	c.w.Flush()
	return c.w.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVTraceWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.w.Flush()
	return c.f.Close()
}
