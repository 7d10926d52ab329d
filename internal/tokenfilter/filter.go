package tokenfilter

import "github.com/clonewatch/clonewatch/internal/model"

// Filter is Stage 2: it tokenises a candidate function, queries the
// length-bucket index, and attaches the surviving vulnerability IDs to the
// function's candidate list.
type Filter struct {
	index     *Index
	threshold float64
}

// NewFilter builds a Stage 2 filter over the given per-vulnerability token
// sequences.
func NewFilter(vulnTokens map[string][]string, threshold float64) *Filter {
	idx := NewIndex()
	for vulnID, tokens := range vulnTokens {
		idx.Add(vulnID, tokens)
	}
	return &Filter{index: idx, threshold: threshold}
}

// Evaluate tokenises fn.Code and returns (survivingFunction, ok). ok is
// false when no vulnerability survives — the function is dropped here per
// §4.3's "promoted downstream iff at least one candidate survives" rule.
func (f *Filter) Evaluate(fn model.Function) (model.Function, bool) {
	tokens := Tokenize(fn.Code)
	candidates := f.index.Query(tokens, f.threshold)
	if len(candidates) == 0 {
		return fn, false
	}
	fn.Candidates = candidates
	return fn, true
}
