// Package trace defines Stage 4's interface contract only. Stage 4
// ("Trace") depends on external, heavy collaborators — a code-property-graph
// extractor and a learned code/NL embedding model — that are out of scope
// for this system; the orchestrator must be able to plug any implementation
// behind this interface without touching Stage 3.
package trace

import "context"

// Candidate is one low-confidence vulnerability still under consideration
// for a function after Stage 3.
type Candidate struct {
	VulnID string
}

// Request is what Stage 3 hands to Stage 4.
type Request struct {
	Code       string
	Path       string
	Candidates []Candidate
}

// Attempt records one candidate Stage 4 evaluated, whether or not it was
// ultimately confirmed — the unit the trace-of-every-attempt log records.
type Attempt struct {
	VulnID    string
	PatchID   string
	Detail    string // free-form similarity summary (e.g. embedding/fuzzy-hash score)
	Predicted bool
}

// Result is at most one record per Request: the path, the full list of
// attempted candidates (for the trace log), plus whichever candidates
// Stage 4 confirmed (may be empty — "not vulnerable").
type Result struct {
	Path      string
	Attempts  []Attempt
	Confirmed []Candidate
}

// Confirmer is Stage 4's contract. The orchestrator treats it as opaque and
// assumes it is the slowest stage (per-element budget measured in
// seconds); it may impose its own timeouts on the external tools it calls.
type Confirmer interface {
	Confirm(ctx context.Context, req Request) (Result, error)
}

// NoopConfirmer is a pass-through Confirmer that confirms nothing. It lets
// the pipeline run end-to-end (Stage 1-3 fully exercised) without a real
// graph-extraction/embedding backend wired in; a production deployment
// swaps this for a Confirmer that shells out to the external CPG tool and
// embedding model described in the data model, via the same interface.
type NoopConfirmer struct{}

// Confirm implements Confirmer by confirming none of the candidates,
// recording each as an unconfirmed attempt.
func (NoopConfirmer) Confirm(ctx context.Context, req Request) (Result, error) {
	attempts := make([]Attempt, len(req.Candidates))
	for i, c := range req.Candidates {
		attempts[i] = Attempt{VulnID: c.VulnID, Detail: "no-op confirmer: not evaluated"}
	}
	return Result{Path: req.Path, Attempts: attempts}, nil
}
