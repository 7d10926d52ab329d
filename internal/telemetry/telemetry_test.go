package telemetry

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordInOutUpdatesCounters(t *testing.T) {
	a := New(nil)
	a.RecordIn(StageToken)
	a.RecordIn(StageToken)
	a.RecordOut(StageToken, true)
	a.RecordOut(StageToken, false)

	snap := a.Snapshot()
	var tok StageSnapshot
	for _, s := range snap.Stages {
		if s.Stage == StageToken {
			tok = s
		}
	}
	assert.Equal(t, uint64(2), tok.Input)
	assert.Equal(t, uint64(1), tok.Output)
	assert.InDelta(t, 0.5, tok.PassThroughRate, 1e-9)
}

func TestPassThroughRateZeroWhenNoInput(t *testing.T) {
	a := New(nil)
	snap := a.Snapshot()
	for _, s := range snap.Stages {
		assert.Equal(t, 0.0, s.PassThroughRate)
	}
}

func TestPersistWritesJSONFile(t *testing.T) {
	dir := t.TempDir()
	a := New(nil)
	a.RecordIn(StageBloomFilter)
	a.RecordOut(StageBloomFilter, true)

	require.NoError(t, a.Persist(dir))
	data, err := os.ReadFile(dir + "/telemetry.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), a.RunID())
}
