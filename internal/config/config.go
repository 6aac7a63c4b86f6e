package config

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/tidwall/jsonc"
)

// Load reads and merges configuration from user-level and project-level
// JSONC files. Resolution order: user config (~/.config/lit-critic/config.jsonc)
// deep-merged with project config (<projectDir>/.lit-critic/config.jsonc),
// then environment variable overrides.
//
// USER_CONFIG_PATH overrides the user config path outright, for tests.
func Load(projectDir string) (*Config, error) {
	cfg := DefaultConfig()

	userPath := os.Getenv("USER_CONFIG_PATH")
	if userPath == "" {
		if userDir, err := os.UserConfigDir(); err == nil {
			userPath = filepath.Join(userDir, "lit-critic", "config.jsonc")
		}
	}
	if userPath != "" {
		if userMap, err := loadJSONC(userPath); err == nil {
			if err := mergeIntoConfig(&cfg, userMap); err != nil {
				return nil, fmt.Errorf("merging user config: %w", err)
			}
		}
	}

	if projectDir != "" {
		projectPath := filepath.Join(projectDir, ".lit-critic", "config.jsonc")
		if projectMap, err := loadJSONC(projectPath); err == nil {
			if err := mergeIntoConfig(&cfg, projectMap); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// loadJSONC reads a JSONC file and returns it as a map.
func loadJSONC(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	jsonData := jsonc.ToJSON(data)
	var m map[string]any
	if err := json.Unmarshal(jsonData, &m); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return m, nil
}

// mergeIntoConfig marshals the config to a map, deep-merges the source map
// over it, then unmarshals back to the Config struct.
func mergeIntoConfig(cfg *Config, src map[string]any) error {
	cfgBytes, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	var dst map[string]any
	if err := json.Unmarshal(cfgBytes, &dst); err != nil {
		return err
	}

	if err := mergo.Merge(&dst, src, mergo.WithOverride); err != nil {
		return err
	}

	merged, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	return json.Unmarshal(merged, cfg)
}

// findRepoRoot finds the git repository root via git rev-parse.
func findRepoRoot() string {
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// applyEnvOverrides applies the environment variables spec.md §6 names.
func applyEnvOverrides(cfg *Config) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		cfg.APIKeys["anthropic"] = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.APIKeys["openai"] = key
	}
	if v := os.Getenv("MODEL_DISCOVERY_ENABLED"); v != "" {
		cfg.Discovery.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("MODEL_DISCOVERY_TTL_SECONDS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Discovery.TTLSeconds = n
		}
	}
	if v := os.Getenv("MODEL_DISCOVERY_TIMEOUT_SECONDS"); v != "" {
		if n, err := parsePositiveInt(v); err == nil {
			cfg.Discovery.TimeoutSeconds = n
		}
	}
	if v := os.Getenv("MODEL_CACHE_PATH"); v != "" {
		cfg.Discovery.CachePath = v
	}
}

func parsePositiveInt(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value: %s", s)
	}
	return n, nil
}

// RepoRoot returns the detected git repository root, or empty string if not
// in a repo. Kept for callers that want to default --project to the repo root.
func RepoRoot() string {
	return findRepoRoot()
}

// ExpandCachePath resolves a leading "~" in a config path to the user's home
// directory, matching the on-disk cache convention registry.Options expects.
func ExpandCachePath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
