package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestConfigs creates a temporary directory with a "configs"
// subdirectory and chdirs into the parent, matching Load's search path.
func setupTestConfigs(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	configDir := filepath.Join(root, "configs")
	require.NoError(t, os.Mkdir(configDir, 0o755))

	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(oldWd) })

	return configDir
}

func TestLoad_Success(t *testing.T) {
	configDir := setupTestConfigs(t)

	content := `
workers:
  bloom_filter: 8
  token: 20
trace:
  redis_host: "cache.internal"
  redis_port: 6380
dataset:
  old_new_func_dataset_path: "/data/vulns"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Workers.BloomFilter)
	assert.Equal(t, 20, cfg.Workers.Token)
	assert.Equal(t, "cache.internal", cfg.Trace.RedisHost)
	assert.Equal(t, 6380, cfg.Trace.RedisPort)
	assert.Equal(t, "/data/vulns", cfg.Dataset.OldNewFuncDatasetPath)
}

func TestLoad_AppliesDefaultsForUnsetFields(t *testing.T) {
	configDir := setupTestConfigs(t)

	content := `
dataset:
  old_new_func_dataset_path: "/data/vulns"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers.BloomFilter)
	assert.Equal(t, 15, cfg.Workers.Token)
	assert.Equal(t, 6, cfg.Workers.Syntax)
	assert.Equal(t, 32, cfg.Workers.Trace)
	assert.Equal(t, 0.7, cfg.TokenFilter.JaccardSimThreshold)
	assert.Equal(t, 0.7, cfg.Trace.ASTSimThresholdMin)
	assert.Equal(t, 0.9, cfg.Trace.ASTSimThresholdMax)
}

func TestLoad_FileNotExists(t *testing.T) {
	setupTestConfigs(t)

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	configDir := setupTestConfigs(t)

	malformed := "workers: test\n  bloom_filter: oops"
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(malformed), 0o644))

	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvVarInterpolation(t *testing.T) {
	configDir := setupTestConfigs(t)

	os.Setenv("CLONEWATCH_JOERN_PATH", "/opt/joern/joern-parse")
	defer os.Unsetenv("CLONEWATCH_JOERN_PATH")

	content := `
trace:
  joern_path: "${CLONEWATCH_JOERN_PATH}"
`
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/joern/joern-parse", cfg.Trace.JoernPath)
}

func TestResolveEnvVars(t *testing.T) {
	os.Setenv("TEST_API_KEY", "secret123")
	os.Setenv("TEST_ENDPOINT", "https://api.test.com")
	defer os.Unsetenv("TEST_API_KEY")
	defer os.Unsetenv("TEST_ENDPOINT")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"braced", "${TEST_API_KEY}", "secret123"},
		{"bare", "$TEST_API_KEY", "secret123"},
		{"mixed text", "Bearer ${TEST_API_KEY}", "Bearer secret123"},
		{"multiple", "${TEST_API_KEY} at ${TEST_ENDPOINT}", "secret123 at https://api.test.com"},
		{"unset stays as-is", "${NONEXISTENT_VAR}", "${NONEXISTENT_VAR}"},
		{"bare unset stays as-is", "$NONEXISTENT_VAR", "$NONEXISTENT_VAR"},
		{"plain text", "plain text", "plain text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolveEnvVars(tt.input))
		})
	}
}

func TestLoadEnvFromDotEnv(t *testing.T) {
	tempDir := t.TempDir()

	envContent := `# comment
TEST_API_KEY=secret_key_123
TEST_ENDPOINT=https://api.test.com/v1
EMPTY_VAR=
QUOTED_VAR="value with spaces"
SINGLE_QUOTED_VAR='single quoted'
`
	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".env"), []byte(envContent), 0o644))

	require.NoError(t, LoadEnvFromDotEnv(tempDir))
	defer func() {
		os.Unsetenv("TEST_API_KEY")
		os.Unsetenv("TEST_ENDPOINT")
		os.Unsetenv("EMPTY_VAR")
		os.Unsetenv("QUOTED_VAR")
		os.Unsetenv("SINGLE_QUOTED_VAR")
	}()

	assert.Equal(t, "secret_key_123", os.Getenv("TEST_API_KEY"))
	assert.Equal(t, "https://api.test.com/v1", os.Getenv("TEST_ENDPOINT"))
	assert.Equal(t, "", os.Getenv("EMPTY_VAR"))
	assert.Equal(t, "value with spaces", os.Getenv("QUOTED_VAR"))
	assert.Equal(t, "single quoted", os.Getenv("SINGLE_QUOTED_VAR"))
}

func TestLoadEnvFromDotEnv_NotExists(t *testing.T) {
	tempDir := t.TempDir()
	assert.NoError(t, LoadEnvFromDotEnv(tempDir))
}

func TestLoadEnvFromDotEnv_OverrideProtection(t *testing.T) {
	tempDir := t.TempDir()

	os.Setenv("PREEXISTING_VAR", "original_value")
	defer os.Unsetenv("PREEXISTING_VAR")

	require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".env"), []byte("PREEXISTING_VAR=new_value\n"), 0o644))

	require.NoError(t, LoadEnvFromDotEnv(tempDir))
	assert.Equal(t, "original_value", os.Getenv("PREEXISTING_VAR"))
}

func TestResolveInMap(t *testing.T) {
	os.Setenv("TEST_KEY", "resolved_value")
	defer os.Unsetenv("TEST_KEY")

	testMap := map[string]interface{}{
		"api_key":  "${TEST_KEY}",
		"endpoint": "https://api.example.com",
		"nested": map[string]interface{}{
			"inner_key": "$TEST_KEY",
		},
		"array": []interface{}{
			"$TEST_KEY",
			"static_value",
		},
	}

	resolveInMap(testMap)

	assert.Equal(t, "resolved_value", testMap["api_key"])
	assert.Equal(t, "https://api.example.com", testMap["endpoint"])
	nested := testMap["nested"].(map[string]interface{})
	assert.Equal(t, "resolved_value", nested["inner_key"])
	array := testMap["array"].([]interface{})
	assert.Equal(t, "resolved_value", array[0])
	assert.Equal(t, "static_value", array[1])
}
