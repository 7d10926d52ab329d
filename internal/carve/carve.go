// Package carve abstracts the external tag extractor used to split a
// target project's C/C++ source files into individual function bodies,
// replacing the source's ad-hoc subprocess invocation with an explicit
// Carver capability (§9): directory in, slice of (path, source) out.
package carve

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/clonewatch/clonewatch/internal/exec"
)

// Extracted is one carved function: its stable path identifier and its
// (not yet purified) source text.
type Extracted struct {
	Path   string
	Source string
}

// Carver extracts function bodies from a directory of C/C++ source.
type Carver interface {
	Carve(dir string) ([]Extracted, error)
}

// Thresholds controls the minimum size a carved function must have to be
// kept; anything smaller is discarded as noise (§6: "functions shorter
// than a threshold... are discarded").
type Thresholds struct {
	MinSemicolons     int
	MinNonTrivialLines int
}

// DefaultThresholds matches §6: "≤ 3 semicolons or ≤ 5 non-trivial lines".
func DefaultThresholds() Thresholds {
	return Thresholds{MinSemicolons: 3, MinNonTrivialLines: 5}
}

// CtagsCarver invokes universal-ctags, parses its NDJSON tag stream, and
// slices each tagged function's source lines out of the source file.
type CtagsCarver struct {
	executor   exec.Executor
	binary     string
	thresholds Thresholds
}

// NewCtagsCarver creates a CtagsCarver. executor is the subprocess runner
// (use exec.NewCommandExecutor() in production; tests inject a fake).
func NewCtagsCarver(executor exec.Executor, thresholds Thresholds) *CtagsCarver {
	return &CtagsCarver{executor: executor, binary: "ctags", thresholds: thresholds}
}

type ctagsTag struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Line int    `json:"line"`
	End  int    `json:"end"`
	Kind string `json:"kind"`
}

// Carve runs ctags over dir and returns every function it finds whose body
// clears the size thresholds.
func (c *CtagsCarver) Carve(dir string) ([]Extracted, error) {
	result, err := c.executor.Run(c.binary,
		"-R", "--kinds-C++=f", "-u", "--fields=-fP+ne",
		"--language-force=c", "--language-force=c++",
		"--output-format=json", dir,
	)
	if err != nil {
		return nil, fmt.Errorf("carve: invoking %s: %w", c.binary, err)
	}

	fileCache := make(map[string][]string)
	var out []Extracted

	scanner := bufio.NewScanner(strings.NewReader(result.Stdout))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var tag ctagsTag
		if err := json.Unmarshal(line, &tag); err != nil {
			continue // per §7 kind 3: malformed tag record, skip it
		}
		if tag.Kind != "" && tag.Kind != "function" {
			continue
		}
		lines, ok := fileCache[tag.Path]
		if !ok {
			lines, err = readLines(tag.Path)
			if err != nil {
				continue
			}
			fileCache[tag.Path] = lines
		}
		source, ok := sliceFunction(lines, tag.Line, tag.End)
		if !ok {
			continue
		}
		if !meetsThresholds(source, c.thresholds) {
			continue
		}
		out = append(out, Extracted{Path: fmt.Sprintf("%s@@@%s", tag.Name, tag.Path), Source: source})
	}
	return out, nil
}

func meetsThresholds(source string, t Thresholds) bool {
	semicolons := strings.Count(source, ";")
	nonTrivial := 0
	for _, line := range strings.Split(source, "\n") {
		if len(strings.TrimSpace(line)) > 0 {
			nonTrivial++
		}
	}
	return semicolons > t.MinSemicolons && nonTrivial > t.MinNonTrivialLines
}

func sliceFunction(lines []string, start, end int) (string, bool) {
	if start < 1 || end < start || end > len(lines) {
		return "", false
	}
	return strings.Join(lines[start-1:end], "\n"), true
}
