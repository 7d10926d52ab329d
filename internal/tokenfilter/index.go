package tokenfilter

import "math"

// entry is one vulnerability's precomputed token sequence.
type entry struct {
	VulnID string
	Tokens []string
}

// Index maps token-sequence length to the vulnerabilities whose token
// sequence has that length, so a query of length L only ever needs to scan
// the bucket window implied by the Jaccard threshold.
type Index struct {
	buckets map[int][]entry
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{buckets: make(map[int][]entry)}
}

// Add records one vulnerability's token sequence under its length bucket.
func (idx *Index) Add(vulnID string, tokens []string) {
	l := len(tokens)
	idx.buckets[l] = append(idx.buckets[l], entry{VulnID: vulnID, Tokens: tokens})
}

// Window returns the inclusive length-bucket bound [⌈L·θ⌉, ⌊L/θ⌋] for a
// query sequence of length L and threshold θ. Any vulnerability whose
// token length falls outside this bound cannot reach Jaccard ≥ θ against a
// length-L query, so it is safe to skip scanning it.
func Window(l int, theta float64) (lo, hi int) {
	lo = int(math.Ceil(float64(l) * theta))
	hi = int(math.Floor(float64(l) / theta))
	return lo, hi
}

// Query returns the vulnerability IDs whose token sequence achieves
// Jaccard ≥ theta against tokens, scanning only the length-bucket window.
func (idx *Index) Query(tokens []string, theta float64) []string {
	l := len(tokens)
	lo, hi := Window(l, theta)

	var candidates []string
	for bucketLen := lo; bucketLen <= hi; bucketLen++ {
		for _, e := range idx.buckets[bucketLen] {
			if JaccardSimilarity(tokens, e.Tokens) >= theta {
				candidates = append(candidates, e.VulnID)
			}
		}
	}
	return candidates
}
