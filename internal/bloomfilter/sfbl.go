// Package bloomfilter implements the Shuffle-and-Feature-Dropout Bloom
// Filter (SFBL): Stage 1 of the detection pipeline.
package bloomfilter

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/clonewatch/clonewatch/internal/feature"
)

// Options parameterises an SFBL instance.
type Options struct {
	VectorLength int     // N
	Tries        int     // K, default 100
	DropoutRate  float64 // d, default 0.17
	Seed         int64   // s
	Capacity     uint    // M, per-filter capacity, default 1e4
	ErrorRate    float64 // ε, default 1e-5
}

// DefaultOptions returns the default SFBL tuning for the given vector
// length.
func DefaultOptions(vectorLength int, seed int64) Options {
	return Options{
		VectorLength: vectorLength,
		Tries:        100,
		DropoutRate:  0.17,
		Seed:         seed,
		Capacity:     10000,
		ErrorRate:    1e-5,
	}
}

// Status distinguishes a freshly opened, ready-to-query handle from one
// that still needs to be built, replacing the source's "not initialised"
// exception with an explicit result.
type Status int

const (
	// Initialised means Handle is a ready-to-query SFBL.
	Initialised Status = iota
	// NeedsBuild means the cache was absent or failed its integrity
	// check; call Build before querying.
	NeedsBuild
)

// OpenResult is returned by Open.
type OpenResult struct {
	Status Status
	Handle *SFBL
	Reason string
}

// SFBL is a constructed, immutable-after-build handle for the K classical
// Bloom filters, their shared parameters, and the detection threshold. It
// is safe for concurrent read-only use by many stage workers.
type SFBL struct {
	opts      Options
	dropout   int
	filters   []*classical
	mapped    []*mappedFilter
	threshold int
	dir       string
	readOnly  bool
}

func (s *SFBL) dropoutCount() int {
	return int(math.Round(float64(s.opts.VectorLength) * s.opts.DropoutRate))
}

// Open inspects dir for a cache satisfying the §4.2 integrity rule (exactly
// K filter files present, plus a readable threshold file) and either
// returns an Initialised handle memory-mapped read-only, or NeedsBuild with
// the reason (missing cache, file-count mismatch, or corrupt threshold).
func Open(dir string, opts Options) (OpenResult, error) {
	count, err := cacheFileCount(dir)
	if err != nil {
		return OpenResult{}, fmt.Errorf("bloomfilter: inspect cache dir: %w", err)
	}
	if count != opts.Tries {
		return OpenResult{Status: NeedsBuild, Reason: fmt.Sprintf("cache has %d filter files, want %d", count, opts.Tries)}, nil
	}
	tau, err := readThreshold(dir)
	if err != nil {
		return OpenResult{Status: NeedsBuild, Reason: "threshold cache unreadable"}, nil
	}

	mapped := make([]*mappedFilter, opts.Tries)
	for i := 0; i < opts.Tries; i++ {
		mf, err := openFilter(dir, i)
		if err != nil {
			for _, prev := range mapped[:i] {
				if prev != nil {
					prev.close()
				}
			}
			return OpenResult{Status: NeedsBuild, Reason: "filter file unreadable"}, nil
		}
		mapped[i] = mf
	}

	s := &SFBL{opts: opts, mapped: mapped, threshold: tau, dir: dir, readOnly: true}
	s.dropout = s.dropoutCount()
	return OpenResult{Status: Initialised, Handle: s}, nil
}

// Build constructs a fresh in-memory SFBL holding constructVectors and
// returns a ready-to-query handle bound to dir. It writes nothing to dir;
// call Persist for that. It does not by itself determine the threshold;
// call SetThreshold (from FindThreshold, or the default shortcut) before
// Persist.
func Build(dir string, opts Options, constructVectors []feature.Vector) (*SFBL, error) {
	s := &SFBL{opts: opts, dir: dir}
	s.dropout = s.dropoutCount()
	s.filters = make([]*classical, opts.Tries)
	for i := range s.filters {
		s.filters[i] = newClassical(opts.Capacity, opts.ErrorRate)
	}
	for _, v := range constructVectors {
		s.insertLive(v)
	}
	return s, nil
}

// SetThreshold fixes τ on a freshly built (not yet persisted) handle.
func (s *SFBL) SetThreshold(tau int) {
	s.threshold = tau
}

// Persist writes the K filter files and bloomFilter.json to the cache
// directory. Call this once after Build and SetThreshold.
func (s *SFBL) Persist() error {
	if s.filters == nil {
		return fmt.Errorf("bloomfilter: Persist called on a handle with no in-memory filters")
	}
	for i, f := range s.filters {
		if err := writeFilter(s.dir, i, f); err != nil {
			return err
		}
	}
	return writeThreshold(s.dir, s.threshold)
}

// permuteAndDrop applies the filter-i permutation (seeded s+i) to v, then
// drops the first D positions, and bit-packs the remainder into bytes.
func (s *SFBL) permuteAndDrop(v feature.Vector, i int) []byte {
	rng := rand.New(rand.NewSource(s.opts.Seed + int64(i)))
	perm := rng.Perm(len(v))
	shuffled := make([]bool, len(v))
	for j, p := range perm {
		shuffled[j] = v[p]
	}
	truncated := shuffled[s.dropout:]
	return packBits(truncated)
}

func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

// insertLive inserts v into the in-memory filters built by Build. Not
// usable on a handle opened read-only via Open.
func (s *SFBL) insertLive(v feature.Vector) {
	for i := 0; i < s.opts.Tries; i++ {
		key := s.permuteAndDrop(v, i)
		s.filters[i].add(key)
	}
}

// Query returns the SFBL similarity score for v: the negated index of the
// first shuffled-and-dropout projection that collides with a filter, or
// -K if none collide.
func (s *SFBL) Query(v feature.Vector) int {
	for i := 0; i < s.opts.Tries; i++ {
		key := s.permuteAndDrop(v, i)
		var hit bool
		if s.mapped != nil {
			hit = s.mapped[i].filt.test(key)
		} else {
			hit = s.filters[i].test(key)
		}
		if hit {
			return -i
		}
	}
	return -s.opts.Tries
}

// Detect reports whether v's score exceeds the configured threshold.
func (s *SFBL) Detect(v feature.Vector) bool {
	if s.threshold == NeverDetect {
		return false
	}
	return s.Query(v) > s.threshold
}

// Threshold returns the configured τ.
func (s *SFBL) Threshold() int {
	return s.threshold
}

// Close releases any memory-mapped filter files.
func (s *SFBL) Close() error {
	var firstErr error
	for _, mf := range s.mapped {
		if mf == nil {
			continue
		}
		if err := mf.close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
