// Package config resolves engine and store settings from, in increasing
// precedence: built-in defaults, the YAML config file, environment
// variables, and CLI flags. Every resolved value remembers where it came
// from, so `canon` surfaces can explain their own configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

// ScanTuning carries the tunable heuristic tables and caps fed into the
// scan engine. The extra-word lists extend the built-in tables; they exist
// so product can tune noise/role/alias behavior without a code change.
type ScanTuning struct {
	CandidateCap         int      `yaml:"candidate_cap" json:"candidate_cap,omitempty"`
	CategoryCap          int      `yaml:"category_cap" json:"category_cap,omitempty"`
	ExtraStopWords       []string `yaml:"extra_stop_words" json:"extra_stop_words,omitempty"`
	ExtraCommonWords     []string `yaml:"extra_common_words" json:"extra_common_words,omitempty"`
	ExtraRoleWords       []string `yaml:"extra_role_words" json:"extra_role_words,omitempty"`
	ExtraAliasProneRoles []string `yaml:"extra_alias_prone_roles" json:"extra_alias_prone_roles,omitempty"`
}

type ResolveOptions struct {
	ConfigPath string
	CLIDBPath  string
	CLIProject string
}

type ResolvedConfig struct {
	ConfigPath string        `json:"config_path"`
	DBPath     ResolvedValue `json:"db_path"`
	Project    ResolvedValue `json:"project"`
	Scan       ScanTuning    `json:"scan"`
}

type fileConfig struct {
	DBPath  string     `yaml:"db_path"`
	Project string     `yaml:"project"`
	Scan    ScanTuning `yaml:"scan"`
}

// DefaultDBPath is the default registry location.
const DefaultDBPath = "~/.canon/canon.db"

// DefaultProject names the project used when the caller supplies none.
const DefaultProject = "default"

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".canon", "config.yaml")
}

// Resolve merges file, environment, and CLI settings. A missing config
// file is not an error; a malformed one is.
func Resolve(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv("CANON_CONFIG"))
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		DBPath:     ResolvedValue{Value: DefaultDBPath, Source: SourceDefault, From: "built-in default"},
		Project:    ResolvedValue{Value: DefaultProject, Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadFile(path)
	if err != nil {
		return out, err
	}
	if cfg != nil {
		apply(&out.DBPath, cfg.DBPath, SourceConfig, path)
		apply(&out.Project, cfg.Project, SourceConfig, path)
		out.Scan = cfg.Scan
	}

	applyEnv(&out.DBPath, "CANON_DB")
	applyEnv(&out.Project, "CANON_PROJECT")

	apply(&out.DBPath, opts.CLIDBPath, SourceCLI, "--db")
	apply(&out.Project, opts.CLIProject, SourceCLI, "--project")

	out.DBPath.Value = expandUserPath(out.DBPath.Value)
	return out, nil
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

func loadFile(path string) (*fileConfig, error) {
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
