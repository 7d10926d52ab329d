// Package config loads clonewatch's configuration: the closed option set
// named in the external-interfaces contract, resolved through viper with
// env-var interpolation and a multi-path search over likely config
// directories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// WorkersConfig sets each stage's worker pool width.
type WorkersConfig struct {
	BloomFilter int `mapstructure:"bloom_filter"`
	Token       int `mapstructure:"token"`
	Syntax      int `mapstructure:"syntax"`
	Trace       int `mapstructure:"trace"`
}

// TokenFilterConfig configures Stage 2.
type TokenFilterConfig struct {
	JaccardSimThreshold float64 `mapstructure:"jaccard_sim_threshold"`
}

// TraceConfig configures Stage 4 and the side-store endpoint it shares
// with Stage 3's precomputation.
type TraceConfig struct {
	ASTSimThresholdMin float64 `mapstructure:"ast_sim_threshold_min"`
	ASTSimThresholdMax float64 `mapstructure:"ast_sim_threshold_max"`
	CodeBERTModelPath  string  `mapstructure:"codebert_model_path"`
	JoernPath          string  `mapstructure:"joern_path"`
	RedisHost          string  `mapstructure:"redis_host"`
	RedisPort          int     `mapstructure:"redis_port"`
}

// DatasetConfig locates the vulnerability and normal-sample corpora.
type DatasetConfig struct {
	OldNewFuncDatasetPath    string `mapstructure:"old_new_func_dataset_path"`
	NormalSampleDatasetPath string `mapstructure:"normal_sample_dataset_path"`
}

// Config is the full closed set of recognised options (§6).
type Config struct {
	Workers     WorkersConfig     `mapstructure:"workers"`
	TokenFilter TokenFilterConfig `mapstructure:"token_filter"`
	Trace       TraceConfig       `mapstructure:"trace"`
	Dataset     DatasetConfig     `mapstructure:"dataset"`
	CacheDir    string            `mapstructure:"cache_dir"`
	OutputDir   string            `mapstructure:"output_dir"`
	LogLevel    string            `mapstructure:"log_level"`
	LogDir      string            `mapstructure:"log_dir"`
}

// Defaults returns the documented defaults for every optional
// field, so a config.yaml only needs to set what it wants to override.
func Defaults() Config {
	return Config{
		Workers: WorkersConfig{BloomFilter: 5, Token: 15, Syntax: 6, Trace: 32},
		TokenFilter: TokenFilterConfig{
			JaccardSimThreshold: 0.7,
		},
		Trace: TraceConfig{
			ASTSimThresholdMin: 0.7,
			ASTSimThresholdMax: 0.9,
			RedisPort:          6379,
		},
		CacheDir:  "cache",
		OutputDir: ".",
		LogLevel:  "INFO",
	}
}

// envVarPattern matches environment variable placeholders: ${VAR_NAME} or $VAR_NAME
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// resolveEnvVars replaces environment variable placeholders in a string
// with their values. Unset variables are left as-is.
func resolveEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match
		if strings.HasPrefix(match, "${") && strings.HasSuffix(match, "}") {
			varName = match[2 : len(match)-1]
		} else if strings.HasPrefix(match, "$") {
			varName = match[1:]
		}
		if value, ok := os.LookupEnv(varName); ok {
			return value
		}
		return match
	})
}

// LoadEnvFromDotEnv loads KEY=value pairs from a .env file in dir, without
// overriding variables already set in the environment.
func LoadEnvFromDotEnv(dir string) error {
	envPath := filepath.Join(dir, ".env")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(envPath)
	if err != nil {
		return fmt.Errorf("config: reading .env file: %w", err)
	}

	for lineNum, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			return fmt.Errorf("config: .env line %d: missing '='", lineNum+1)
		}
		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])
		value = strings.Trim(value, `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			os.Setenv(key, value)
		}
	}
	return nil
}

// LoadEnvFromDotEnvRecursive searches startDir and its parents for a .env
// file; it is not an error if none is found.
func LoadEnvFromDotEnvRecursive(startDir string) error {
	dir := startDir
	for i := 0; i < 5; i++ {
		if _, err := os.Stat(filepath.Join(dir, ".env")); err == nil {
			return LoadEnvFromDotEnv(dir)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return nil
}

// applyEnvResolution resolves ${VAR}/$VAR placeholders across every string
// value v currently holds, in place.
func applyEnvResolution(v *viper.Viper) {
	settings := v.AllSettings()
	resolveInMap(settings)
	for key, value := range settings {
		v.Set(key, value)
	}
}

func resolveInMap(m map[string]interface{}) {
	for k, val := range m {
		switch t := val.(type) {
		case string:
			if resolved := resolveEnvVars(t); resolved != t {
				m[k] = resolved
			}
		case map[string]interface{}:
			resolveInMap(t)
		case []interface{}:
			resolveInSlice(t)
		}
	}
}

func resolveInSlice(s []interface{}) {
	for i, val := range s {
		switch t := val.(type) {
		case string:
			s[i] = resolveEnvVars(t)
		case map[string]interface{}:
			resolveInMap(t)
		}
	}
}

// searchPaths are the candidate directories viper looks for config.yaml in,
// so `detect` can run from the repo root or from a package test directory.
var searchPaths = []string{"configs", "../configs", "../../configs"}

// Load reads configs/config.yaml (searched per searchPaths) into a Config
// seeded with Defaults(), applying ${VAR}/$VAR environment interpolation
// to every string value.
func Load(overridePath string) (*Config, error) {
	if err := LoadEnvFromDotEnvRecursive("."); err != nil {
		return nil, fmt.Errorf("config: loading .env: %w", err)
	}

	cfg := Defaults()

	v := viper.New()
	if overridePath != "" {
		v.SetConfigFile(overridePath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, p := range searchPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading config file: %w", err)
	}

	applyEnvResolution(v)

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshalling: %w", err)
	}

	return &cfg, nil
}
