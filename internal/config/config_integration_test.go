//go:build integration

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Integration(t *testing.T) {
	configPaths := []string{
		"configs/config.yaml",
		"../configs/config.yaml",
		"../../configs/config.yaml",
	}

	found := false
	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			found = true
			break
		}
	}
	if !found {
		t.Skip("skipping integration test: config files not found")
	}

	cfg, err := Load("")
	require.NoError(t, err, "Load should succeed with real config files")

	assert.NotZero(t, cfg.Workers.BloomFilter)
	assert.NotZero(t, cfg.Workers.Token)
	assert.NotZero(t, cfg.Workers.Syntax)
	assert.NotZero(t, cfg.Workers.Trace)
	assert.NotEmpty(t, cfg.Dataset.OldNewFuncDatasetPath)
}
