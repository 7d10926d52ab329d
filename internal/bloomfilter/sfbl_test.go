package bloomfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clonewatch/clonewatch/internal/feature"
)

func randomVector(n int, seed int, density float64) feature.Vector {
	v := feature.NewVector()
	// deterministic pseudo-random fill without math/rand dependence on
	// global state, so tests are reproducible.
	x := uint32(seed*2654435761 + 1)
	for i := range v {
		x ^= x << 13
		x ^= x >> 17
		x ^= x << 5
		if float64(x%1000)/1000.0 < density {
			v[i] = true
		}
	}
	return v
}

func TestSFBLScoreRange(t *testing.T) {
	dir := t.TempDir()
	n := feature.VectorLength
	opts := DefaultOptions(n, 20231031)
	opts.Tries = 10

	construct := []feature.Vector{randomVector(n, 1, 0.3), randomVector(n, 2, 0.3)}
	s, err := Build(dir, opts, construct)
	require.NoError(t, err)
	s.SetThreshold(-5)

	for i := 0; i < 20; i++ {
		v := randomVector(n, 100+i, 0.3)
		score := s.Query(v)
		assert.LessOrEqual(t, score, 0)
		assert.GreaterOrEqual(t, score, -opts.Tries)
	}
}

func TestSFBLQueryZeroAfterInsert(t *testing.T) {
	dir := t.TempDir()
	n := feature.VectorLength
	opts := DefaultOptions(n, 42)
	opts.Tries = 8

	v := randomVector(n, 7, 0.4)
	s, err := Build(dir, opts, []feature.Vector{v})
	require.NoError(t, err)
	assert.Equal(t, 0, s.Query(v))
}

func TestSFBLRoundTripPersistence(t *testing.T) {
	dir := t.TempDir()
	n := feature.VectorLength
	opts := DefaultOptions(n, 9)
	opts.Tries = 6

	construct := []feature.Vector{randomVector(n, 1, 0.3), randomVector(n, 2, 0.3)}
	built, err := Build(dir, opts, construct)
	require.NoError(t, err)
	built.SetThreshold(-3)
	require.NoError(t, built.Persist())

	queries := make([]feature.Vector, 5)
	wantScores := make([]int, 5)
	for i := range queries {
		queries[i] = randomVector(n, 50+i, 0.3)
		wantScores[i] = built.Query(queries[i])
	}

	res, err := Open(dir, opts)
	require.NoError(t, err)
	require.Equal(t, Initialised, res.Status)
	defer res.Handle.Close()

	require.Equal(t, -3, res.Handle.Threshold())
	for i, v := range queries {
		assert.Equal(t, wantScores[i], res.Handle.Query(v))
	}
}

func TestSFBLOpenNeedsBuildWhenCacheMissing(t *testing.T) {
	dir := t.TempDir()
	opts := DefaultOptions(feature.VectorLength, 1)
	res, err := Open(dir, opts)
	require.NoError(t, err)
	assert.Equal(t, NeedsBuild, res.Status)
}

func TestFindThresholdDegenerateWhenNoPositives(t *testing.T) {
	tau, ok := FindThreshold([]LabeledScore{{Score: -1, Label: 0}}, 100, 0.96)
	assert.False(t, ok)
	assert.Equal(t, NeverDetect, tau)
}

func TestFindThresholdPicksLargestMeetingRecall(t *testing.T) {
	scored := []LabeledScore{
		{Score: 0, Label: 1},
		{Score: -1, Label: 1},
		{Score: -2, Label: 1},
		{Score: -50, Label: 0},
	}
	tau, ok := FindThreshold(scored, 5, 1.0)
	require.True(t, ok)
	assert.Equal(t, -2, tau)
}
