package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopConfirmerConfirmsNothing(t *testing.T) {
	c := NoopConfirmer{}
	req := Request{
		Path:       "target.c",
		Code:       "int f() {}",
		Candidates: []Candidate{{VulnID: "v1"}, {VulnID: "v2"}},
	}

	result, err := c.Confirm(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "target.c", result.Path)
	assert.Empty(t, result.Confirmed)
	require.Len(t, result.Attempts, 2)
	for _, a := range result.Attempts {
		assert.False(t, a.Predicted)
	}
}
