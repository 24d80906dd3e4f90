// Package config resolves engine configuration from a YAML file,
// RELEVANCE_* environment variables and CLI flags, tracking where each
// value came from. Precedence: CLI flag > environment > config file >
// built-in default.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceDefault ValueSource = "default"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
)

// ResolvedValue is a configuration value plus its provenance.
type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ResolveOptions carries the CLI-provided overrides.
type ResolveOptions struct {
	ConfigPath    string
	CLIDBPath     string
	CLIRulesPath  string
	CLICacheSize  string
	CLIMaxResults string
}

// ResolvedConfig is the fully resolved engine configuration.
type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	DBPath       ResolvedValue `json:"db_path"`
	RulesPath    ResolvedValue `json:"rules_path"`
	CacheSize    ResolvedValue `json:"cache_size"`
	MaxResults   ResolvedValue `json:"max_results"`
	LegacyScorer ResolvedValue `json:"legacy_scorer"`
}

type fileConfig struct {
	DBPath string `yaml:"db_path"`
	Search struct {
		RulesPath    string `yaml:"rules_path"`
		CacheSize    int    `yaml:"cache_size"`
		MaxResults   int    `yaml:"max_results"`
		LegacyScorer bool   `yaml:"legacy_scorer"`
	} `yaml:"search"`
}

// DefaultConfigPath returns ~/.relevance/config.yaml.
func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".relevance", "config.yaml")
}

// Resolve loads and merges configuration from all sources.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{ConfigPath: path}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.RulesPath, cfg.Search.RulesPath, SourceConfig, path)
		if cfg.Search.CacheSize > 0 {
			apply(&out.CacheSize, strconv.Itoa(cfg.Search.CacheSize), SourceConfig, path)
		}
		if cfg.Search.MaxResults > 0 {
			apply(&out.MaxResults, strconv.Itoa(cfg.Search.MaxResults), SourceConfig, path)
		}
		if cfg.Search.LegacyScorer {
			apply(&out.LegacyScorer, "true", SourceConfig, path)
		}
	}

	applyEnv(&out.DBPath, "RELEVANCE_DB")
	applyEnv(&out.RulesPath, "RELEVANCE_RULES")
	applyEnv(&out.CacheSize, "RELEVANCE_CACHE_SIZE")
	applyEnv(&out.MaxResults, "RELEVANCE_MAX_RESULTS")
	applyEnv(&out.LegacyScorer, "RELEVANCE_LEGACY_SCORER")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.RulesPath, opts.CLIRulesPath, SourceCLI, "--rules")
	apply(&out.CacheSize, opts.CLICacheSize, SourceCLI, "--cache-size")
	apply(&out.MaxResults, opts.CLIMaxResults, SourceCLI, "--max-results")

	if out.DBPath.Value != "" {
		out.DBPath.Value = expandUserPath(out.DBPath.Value)
	}
	return out, nil
}

// CacheSizeOrDefault parses the resolved cache size, falling back to def.
func (r ResolvedConfig) CacheSizeOrDefault(def int) int {
	return intOrDefault(r.CacheSize, def)
}

// MaxResultsOrDefault parses the resolved max result count.
func (r ResolvedConfig) MaxResultsOrDefault(def int) int {
	return intOrDefault(r.MaxResults, def)
}

// UseLegacyScorer reports whether the plain legacy scorer was requested.
func (r ResolvedConfig) UseLegacyScorer() bool {
	v := strings.ToLower(strings.TrimSpace(r.LegacyScorer.Value))
	return v == "true" || v == "1" || v == "yes"
}

func intOrDefault(v ResolvedValue, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(v.Value))
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
