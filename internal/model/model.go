// Package model defines the record types that flow through the detection
// pipeline and the vulnerability corpus that seeds it.
package model

// SentinelPath is the reserved path value that marks an end-of-stream
// record. A real function path never collides with this by construction
// (function carving never emits the literal string).
const SentinelPath = "__end_of_detection__"

// Function is one candidate function travelling through the pipeline.
//
// Candidates is monotonically non-increasing as a set across stages: each
// stage only prunes it, never adds to it, except Stage 2 which populates it
// for the first time from the empty slice FunctionCarver produces.
type Function struct {
	Code       string
	Path       string
	Candidates []string
}

// IsSentinel reports whether f is the reserved end-of-stream record.
func (f Function) IsSentinel() bool {
	return f.Path == SentinelPath
}

// Sentinel constructs the reserved end-of-stream Function record.
func Sentinel() Function {
	return Function{Path: SentinelPath}
}

// Vulnerability is a single known-vulnerable/patched function pair, built
// once at initialisation from the OLD/NEW corpus and never mutated
// afterwards. Its derived fields (line hashes, multisets, tokens, AST
// nodes) are not stored here: the artifact package computes them and
// memoises in the side-store those that have a namespace there.
type Vulnerability struct {
	VulnID    string
	CVEID     string
	VulnCode  string
	PatchCode string
	// PatchID is the filename of the NEW/patched counterpart, if paired.
	PatchID string
}

// Detection is one function the pipeline has flagged as a clone of a
// known vulnerability: either routed directly by Stage 3's high-confidence
// sink, or confirmed by Stage 4. Matches lists the matching vulnerability
// IDs; Stage 3's high-confidence matches come sorted by vulnerability ID.
type Detection struct {
	Path    string
	Matches []string
}
