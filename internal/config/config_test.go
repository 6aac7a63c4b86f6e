package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Models.AnalysisModel != "sonnet" {
		t.Errorf("expected analysis_model sonnet, got %s", cfg.Models.AnalysisModel)
	}
	if cfg.Models.DiscussionModel != "sonnet" {
		t.Errorf("expected discussion_model sonnet, got %s", cfg.Models.DiscussionModel)
	}
	if cfg.Timeouts.LensSeconds != 60 {
		t.Errorf("expected lens timeout 60s, got %d", cfg.Timeouts.LensSeconds)
	}
	if cfg.Timeouts.CoordinatorSeconds != 120 {
		t.Errorf("expected coordinator timeout 120s, got %d", cfg.Timeouts.CoordinatorSeconds)
	}
	if cfg.Database.Filename != ".lit-critic.db" {
		t.Errorf("expected database filename .lit-critic.db, got %s", cfg.Database.Filename)
	}
	if cfg.Lenses.Preset != "auto" {
		t.Errorf("expected lens preset auto, got %s", cfg.Lenses.Preset)
	}
}

func TestLoadJSONC(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.jsonc")

	content := []byte(`{
  // This is a JSONC comment
  "models": {
    "analysis_model": "opus"
  },
  "timeouts": {
    "lens_seconds": 30
  }
}`)

	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	m, err := loadJSONC(path)
	if err != nil {
		t.Fatalf("loadJSONC failed: %v", err)
	}

	models, ok := m["models"].(map[string]any)
	if !ok {
		t.Fatal("expected models to be a map")
	}
	if models["analysis_model"] != "opus" {
		t.Errorf("expected analysis_model=opus, got %v", models["analysis_model"])
	}

	timeouts, ok := m["timeouts"].(map[string]any)
	if !ok {
		t.Fatal("expected timeouts to be a map")
	}
	if timeouts["lens_seconds"] != float64(30) {
		t.Errorf("expected lens_seconds=30, got %v", timeouts["lens_seconds"])
	}
}

func TestLoadJSONC_FileNotFound(t *testing.T) {
	_, err := loadJSONC("/nonexistent/path/config.jsonc")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestMergeIntoConfig(t *testing.T) {
	cfg := DefaultConfig()

	src := map[string]any{
		"models": map[string]any{
			"analysis_model": "override-model",
		},
		"timeouts": map[string]any{
			"lens_seconds": json.Number("45"),
		},
	}

	if err := mergeIntoConfig(&cfg, src); err != nil {
		t.Fatalf("mergeIntoConfig failed: %v", err)
	}

	if cfg.Models.AnalysisModel != "override-model" {
		t.Errorf("expected analysis_model=override-model, got %s", cfg.Models.AnalysisModel)
	}
	if cfg.Models.DiscussionModel != "sonnet" {
		t.Errorf("expected discussion_model to remain sonnet, got %s", cfg.Models.DiscussionModel)
	}
}

func TestLoadMergesUserAndProject(t *testing.T) {
	userConfigDir := t.TempDir()
	userPath := filepath.Join(userConfigDir, "config.jsonc")
	t.Setenv("USER_CONFIG_PATH", userPath)

	if err := os.WriteFile(userPath, []byte(`{"models":{"analysis_model":"user-model"},"timeouts":{"lens_seconds":45}}`), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	projectDir := t.TempDir()
	lcDir := filepath.Join(projectDir, ".lit-critic")
	if err := os.MkdirAll(lcDir, 0755); err != nil {
		t.Fatalf("failed to create .lit-critic dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(lcDir, "config.jsonc"), []byte(`{"models":{"analysis_model":"project-model"}}`), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}

	cfg, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Models.AnalysisModel != "project-model" {
		t.Errorf("expected project config to win for analysis_model, got %s", cfg.Models.AnalysisModel)
	}
	if cfg.Timeouts.LensSeconds != 45 {
		t.Errorf("expected user config's lens_seconds=45 to survive, got %d", cfg.Timeouts.LensSeconds)
	}
	if cfg.Models.DiscussionModel != "sonnet" {
		t.Errorf("expected default discussion_model to survive both merges, got %s", cfg.Models.DiscussionModel)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "sk-oai-test")
	t.Setenv("MODEL_DISCOVERY_ENABLED", "true")
	t.Setenv("MODEL_DISCOVERY_TTL_SECONDS", "120")

	cfg := DefaultConfig()
	applyEnvOverrides(&cfg)

	if cfg.APIKeys["anthropic"] != "sk-ant-test" {
		t.Errorf("expected anthropic api key from env, got %q", cfg.APIKeys["anthropic"])
	}
	if cfg.APIKeys["openai"] != "sk-oai-test" {
		t.Errorf("expected openai api key from env, got %q", cfg.APIKeys["openai"])
	}
	if !cfg.Discovery.Enabled {
		t.Error("expected discovery enabled from env override")
	}
	if cfg.Discovery.TTLSeconds != 120 {
		t.Errorf("expected ttl_seconds=120, got %d", cfg.Discovery.TTLSeconds)
	}
}

func TestExpandCachePath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := ExpandCachePath("~/.cache/lit-critic/models.json")
	want := filepath.Join(home, ".cache/lit-critic/models.json")
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}
