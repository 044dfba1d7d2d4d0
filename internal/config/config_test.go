package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "ollama" {
		t.Fatalf("Provider = %q, want %q", cfg.Provider, "ollama")
	}
	if cfg.Model != "gemma3:27b" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "gemma3:27b")
	}
}

func TestLoad_OverridesFromFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	content := `
provider = "openai"
model = "gpt-4o"
timeout_seconds = 60
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Provider != "openai" {
		t.Fatalf("Provider = %q, want %q", cfg.Provider, "openai")
	}
	if cfg.Model != "gpt-4o" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "gpt-4o")
	}
	if cfg.TimeoutSeconds != 60 {
		t.Fatalf("TimeoutSeconds = %d, want 60", cfg.TimeoutSeconds)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	if err := os.WriteFile(configPath, []byte(`provider = [not toml`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Load(tmpDir); err == nil {
		t.Fatalf("Load() expected error, got nil")
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	if err := os.WriteFile(configPath, []byte(`model = "llava:13b"`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Model != "llava:13b" {
		t.Fatalf("Model = %q, want %q", cfg.Model, "llava:13b")
	}
	// Untouched scalar falls back to the default
	if cfg.Provider != "ollama" {
		t.Fatalf("Provider = %q, want %q", cfg.Provider, "ollama")
	}
}

func TestMerge_OverlayWins(t *testing.T) {
	base := &Config{Provider: "ollama", Model: "gemma3:27b", TimeoutSeconds: 120}
	overlay := &Config{Provider: "openai", Model: "gpt-4o"}

	merged := Merge(base, overlay)
	if merged.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", merged.Provider, "openai")
	}
	if merged.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", merged.Model, "gpt-4o")
	}
	if merged.TimeoutSeconds != 120 {
		t.Errorf("TimeoutSeconds = %d, want 120 (base preserved)", merged.TimeoutSeconds)
	}
}

func TestMerge_BooleansAndArrays(t *testing.T) {
	base := &Config{Recursive: true, DisabledTools: []string{"image_assess"}}
	overlay := &Config{DisabledTools: []string{"image_assess", " refs_find "}}

	merged := Merge(base, overlay)
	if !merged.Recursive {
		t.Error("Recursive = false, want true (base true survives overlay false)")
	}
	if len(merged.DisabledTools) != 2 {
		t.Fatalf("DisabledTools = %v, want 2 deduplicated entries", merged.DisabledTools)
	}
	if merged.DisabledTools[1] != "refs_find" {
		t.Errorf("DisabledTools[1] = %q, want trimmed %q", merged.DisabledTools[1], "refs_find")
	}
}

func TestLoadWithRepo_RepoPrecedence(t *testing.T) {
	globalDir := t.TempDir()
	repoRoot := t.TempDir()

	globalContent := `
provider = "openai"
model = "gpt-4o"
recursive = true
`
	if err := os.WriteFile(filepath.Join(globalDir, "config.toml"), []byte(globalContent), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	repoConfigDir := filepath.Join(repoRoot, ".namelens")
	if err := os.MkdirAll(repoConfigDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(repoConfigDir, "config.toml"), []byte(`model = "gpt-4o-mini"`), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	// Start from a nested directory so the upward walk is exercised
	startDir := filepath.Join(repoRoot, "docs", "images")
	if err := os.MkdirAll(startDir, 0755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	cfg, err := LoadWithRepo(globalDir, startDir)
	if err != nil {
		t.Fatalf("LoadWithRepo() error = %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("Model = %q, want repo override %q", cfg.Model, "gpt-4o-mini")
	}
	if cfg.Provider != "openai" {
		t.Errorf("Provider = %q, want global %q", cfg.Provider, "openai")
	}
	if !cfg.Recursive {
		t.Error("Recursive = false, want true from global")
	}
}

func TestFindRepoConfig_NotFound(t *testing.T) {
	if got := FindRepoConfig(t.TempDir()); got != "" {
		t.Errorf("FindRepoConfig() = %q, want empty", got)
	}
}
