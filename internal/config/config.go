package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config holds application configuration.
type Config struct {
	// Provider selects the vision backend: "ollama" or "openai".
	Provider string `toml:"provider"`

	// Model is the vision model identifier passed to the provider.
	Model string `toml:"model"`

	// OllamaBaseURL overrides the local Ollama endpoint.
	OllamaBaseURL string `toml:"ollama_base_url,omitempty"`

	// OpenAIBaseURL overrides the OpenAI-compatible endpoint.
	OpenAIBaseURL string `toml:"openai_base_url,omitempty"`

	// TimeoutSeconds bounds a single vision request. 0 means the
	// provider default.
	TimeoutSeconds int `toml:"timeout_seconds,omitempty"`

	// RefsRoot is the directory scanned for markdown references when
	// --update-refs is active. Empty means the rename root itself.
	RefsRoot string `toml:"refs_root,omitempty"`

	// Recursive makes reference scans walk subdirectories.
	Recursive bool `toml:"recursive,omitempty"`

	// CacheDir overrides the cache location. Empty means .namelens
	// inside the directory being processed.
	CacheDir string `toml:"cache_dir,omitempty"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are ignored.
	DisabledTools []string `toml:"disabled_tools,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Provider: "ollama",
		Model:    "gemma3:27b",
	}
}

// Load loads configuration from baseDir/config.toml.
// Returns default config if the file doesn't exist.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.namelens.
func Load(baseDir string) (*Config, error) {
	cfg, err := loadFileRaw(filepath.Join(baseDir, "config.toml"))
	if err != nil {
		return nil, err
	}
	return Merge(DefaultConfig(), cfg), nil
}

// LoadWithRepo loads configuration from both global (~/.namelens) and repo
// (.namelens) directories. Repo config is found by walking upward from
// startDir to the nearest .namelens/config.toml. Repo config takes
// precedence for scalar values; arrays are merged and deduplicated.
// Either or both configs may be missing.
func LoadWithRepo(globalDir, startDir string) (*Config, error) {
	global, err := loadFileRaw(filepath.Join(globalDir, "config.toml"))
	if err != nil {
		return nil, err
	}

	repo, err := loadFileRaw(FindRepoConfig(startDir))
	if err != nil {
		return nil, err
	}

	// Apply defaults, then global, then repo
	return Merge(Merge(DefaultConfig(), global), repo), nil
}

// FindRepoConfig walks upward from startDir to find the nearest
// .namelens/config.toml. Returns the path if found, or empty string.
func FindRepoConfig(startDir string) string {
	dir := startDir
	for {
		configPath := filepath.Join(dir, ".namelens", "config.toml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, not found
			return ""
		}
		dir = parent
	}
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the file doesn't exist (not defaults).
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	result.Provider = overlay.Provider
	if result.Provider == "" {
		result.Provider = base.Provider
	}

	result.Model = overlay.Model
	if result.Model == "" {
		result.Model = base.Model
	}

	result.OllamaBaseURL = overlay.OllamaBaseURL
	if result.OllamaBaseURL == "" {
		result.OllamaBaseURL = base.OllamaBaseURL
	}

	result.OpenAIBaseURL = overlay.OpenAIBaseURL
	if result.OpenAIBaseURL == "" {
		result.OpenAIBaseURL = base.OpenAIBaseURL
	}

	result.TimeoutSeconds = overlay.TimeoutSeconds
	if result.TimeoutSeconds == 0 {
		result.TimeoutSeconds = base.TimeoutSeconds
	}

	result.RefsRoot = overlay.RefsRoot
	if result.RefsRoot == "" {
		result.RefsRoot = base.RefsRoot
	}

	result.CacheDir = overlay.CacheDir
	if result.CacheDir == "" {
		result.CacheDir = base.CacheDir
	}

	// Booleans: overlay wins if true, else base
	result.Recursive = base.Recursive || overlay.Recursive

	// Arrays: merge and deduplicate
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)

	return result
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range a {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	for _, s := range b {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
