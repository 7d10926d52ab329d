// Package syntaxfilter implements Stage 3: the AST- and line-hash-based
// syntax filter.
package syntaxfilter

import (
	"sort"

	"github.com/clonewatch/clonewatch/internal/model"
	"github.com/clonewatch/clonewatch/internal/tokenfilter"
)

// VulnArtifacts holds one (vuln, patch) pair's precomputed, memoised
// derivations, as read from the side-store. They never change after
// initial computation.
type VulnArtifacts struct {
	VulnID            string
	CVEID             string
	DelLineHashes     []string
	AddLineHashes     []string
	VulnLineHashMset  map[string]int
	PatchLineHashMset map[string]int
	VulnASTNodes      []string
	PatchASTNodes     []string
}

// Options parameterises Stage 3's thresholds.
type Options struct {
	ASTMin float64 // ast_min, default 0.7
	ASTMax float64 // ast_max, default 0.9
}

// DefaultOptions returns the default AST-similarity band.
func DefaultOptions() Options {
	return Options{ASTMin: 0.7, ASTMax: 0.9}
}

// Evaluation is the outcome of evaluating one function against its
// surviving Stage 2 candidates. A single function can produce both kinds
// of output at once: high-confidence winners are reported immediately,
// while any remaining low-confidence winners still need Stage 4.
type Evaluation struct {
	// HighConfidence lists vulnerability IDs that cleared ast_max without
	// being tagged near-patch: report these directly, bypassing Stage 4.
	HighConfidence []string
	// Trace is the function carrying only the low-confidence winners, or
	// nil if every winner was high-confidence (or there were none).
	Trace *model.Function
}

// Dropped reports whether no candidate survived at all.
func (e Evaluation) Dropped() bool {
	return len(e.HighConfidence) == 0 && e.Trace == nil
}

// Filter is Stage 3.
type Filter struct {
	artifacts map[string]VulnArtifacts
	opts      Options
}

// NewFilter builds a Stage 3 filter over the given per-vulnerability
// artefacts.
func NewFilter(artifacts map[string]VulnArtifacts, opts Options) *Filter {
	return &Filter{artifacts: artifacts, opts: opts}
}

type survivor struct {
	vulnID    string
	cveID     string
	jv        float64
	nearPatch bool
}

// Evaluate runs the three-boolean screen for every surviving Stage 2
// candidate, dedups by CVE, and decides the function's route.
func (f *Filter) Evaluate(fn model.Function) Evaluation {
	dstLineHashes := LineHashMultiset(fn.Code, DefaultFilterStrings)
	dstAST := ASTNodes(fn.Code)

	var survivors []survivor
	for _, vulnID := range fn.Candidates {
		art, ok := f.artifacts[vulnID]
		if !ok {
			continue // per §7 kind 3: missing artefact, drop this candidate
		}
		jv, jp, ok := f.passesThreeBooleans(dstLineHashes, dstAST, art)
		if !ok {
			continue
		}
		survivors = append(survivors, survivor{
			vulnID:    vulnID,
			cveID:     art.CVEID,
			jv:        jv,
			nearPatch: jp-jv > 0.15,
		})
	}

	winners := dedupByCVE(survivors)
	if len(winners) == 0 {
		return Evaluation{}
	}

	var highConfidence, lowConfidence []string
	for _, w := range winners {
		if w.jv > f.opts.ASTMax && !w.nearPatch {
			highConfidence = append(highConfidence, w.vulnID)
		} else {
			lowConfidence = append(lowConfidence, w.vulnID)
		}
	}

	eval := Evaluation{HighConfidence: highConfidence}
	if len(lowConfidence) > 0 {
		traceFn := fn
		traceFn.Candidates = lowConfidence
		eval.Trace = &traceFn
	}
	return eval
}

// passesThreeBooleans evaluates del-line, add-line, and AST-Jaccard in
// order, short-circuiting on the first failure.
func (f *Filter) passesThreeBooleans(dstLineHashes map[string]int, dstAST []string, art VulnArtifacts) (jv, jp float64, ok bool) {
	if !delLineCheck(art.DelLineHashes, art.VulnLineHashMset, art.PatchLineHashMset, dstLineHashes) {
		return 0, 0, false
	}
	if !addLineCheck(art.AddLineHashes, art.VulnLineHashMset, art.PatchLineHashMset, dstLineHashes) {
		return 0, 0, false
	}
	jv = tokenfilter.JaccardSimilarity(dstAST, art.VulnASTNodes)
	jp = tokenfilter.JaccardSimilarity(dstAST, art.PatchASTNodes)
	if jv < f.opts.ASTMin {
		return jv, jp, false
	}
	if !(jv >= jp || jp-jv > 0.15) {
		return jv, jp, false
	}
	return jv, jp, true
}

// delLineCheck: every line the patch removed is either a no-op in the
// diff (equal multiplicity in vuln and patch) or still present in the
// target with the same multiplicity as in the vulnerable version.
func delLineCheck(delHashes []string, vuln, patch, dst map[string]int) bool {
	for _, h := range delHashes {
		if vuln[h] == patch[h] {
			continue
		}
		if dst[h] == vuln[h] {
			continue
		}
		return false
	}
	return true
}

// addLineCheck: every line the patch added is either a no-op, or present in
// the target with the same multiplicity as in the vulnerable version (the
// target has not picked up the patch's addition).
func addLineCheck(addHashes []string, vuln, patch, dst map[string]int) bool {
	for _, h := range addHashes {
		if vuln[h] == patch[h] {
			continue
		}
		if dst[h] == vuln[h] {
			continue
		}
		return false
	}
	return true
}

// dedupByCVE collapses duplicate survivors by CVE, keeping only the one
// with the highest Jv per CVE, ties broken lexicographically on vuln ID.
func dedupByCVE(survivors []survivor) []survivor {
	best := make(map[string]survivor, len(survivors))
	for _, s := range survivors {
		cur, ok := best[s.cveID]
		if !ok || s.jv > cur.jv || (s.jv == cur.jv && s.vulnID < cur.vulnID) {
			best[s.cveID] = s
		}
	}
	out := make([]survivor, 0, len(best))
	for _, s := range best {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].vulnID < out[j].vulnID })
	return out
}
