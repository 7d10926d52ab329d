package sidestore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStoreGetSetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()

	_, ok, err := s.Get(ctx, NamespaceFuzzyHash, "cve-1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, NamespaceFuzzyHash, "cve-1", []byte("abc")))
	v, ok, err := s.Get(ctx, NamespaceFuzzyHash, "cve-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("abc"), v)
}

func TestMemStoreNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.Set(ctx, NamespaceErrorFunc, "k", []byte("1")))

	_, ok, err := s.Get(ctx, NamespaceFuzzyHash, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
