package pipeline

import (
	"context"

	"github.com/clonewatch/clonewatch/internal/bloomfilter"
	"github.com/clonewatch/clonewatch/internal/feature"
	"github.com/clonewatch/clonewatch/internal/model"
)

// bloomProcessor wraps Stage 1: the SFBL is a single shared membership
// structure over every known vulnerable function's vector, so it never populates
// fn.Candidates — it only decides whether a function is plausible enough
// to reach the (per-vulnerability) Token filter at all.
func bloomProcessor(extractor *feature.Extractor, sfbl *bloomfilter.SFBL) Processor {
	return func(_ context.Context, fn model.Function) []model.Function {
		v := extractor.Extract(fn.Code)
		if !sfbl.Detect(v) {
			return nil
		}
		return []model.Function{fn}
	}
}
