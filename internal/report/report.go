// Package report writes the two output artefacts a detect run produces:
// the JSON vulnerability report and the CSV trace-of-every-attempt log.
package report

import "github.com/clonewatch/clonewatch/internal/model"

// Reporter persists one detection to whatever sink backs it.
type Reporter interface {
	Save(d model.Detection) error
	Close() error
}
