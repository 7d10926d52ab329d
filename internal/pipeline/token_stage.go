package pipeline

import (
	"context"

	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/tokenfilter"
)

// tokenProcessor wraps Stage 2: it is the first stage to populate
// fn.Candidates, from the empty slice the dataset/carve producer emits.
func tokenProcessor(filter *tokenfilter.Filter) Processor {
	return func(_ context.Context, fn model.Function) []model.Function {
		out, ok := filter.Evaluate(fn)
		if !ok {
			return nil
		}
		return []model.Function{out}
	}
}
