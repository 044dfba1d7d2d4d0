package ops

import (
	"path/filepath"
	"time"

	"github.com/kmordal/namelens/internal/cache"
	"github.com/kmordal/namelens/internal/config"
	"github.com/kmordal/namelens/internal/oracle/factory"
	"github.com/kmordal/namelens/internal/planner"
)

// NewPlanner wires a planner from config: a real vision oracle plus a
// cache store rooted at cfg.CacheDir, or .namelens inside the processed
// directory when unset. Empty provider and model fall back to config.
func NewPlanner(cfg *config.Config, dir, provider, model string) (*planner.Planner, error) {
	if provider == "" {
		provider = cfg.Provider
	}
	if model == "" {
		model = cfg.Model
	}

	o, err := factory.New(provider, model, factory.Options{
		BaseURL: baseURLFor(cfg, provider),
		Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	cacheRoot := cfg.CacheDir
	if cacheRoot == "" {
		cacheRoot = filepath.Join(dir, ".namelens")
	}
	store, err := cache.Open(cacheRoot)
	if err != nil {
		return nil, err
	}

	return planner.New(store, o), nil
}

func baseURLFor(cfg *config.Config, provider string) string {
	switch provider {
	case "ollama":
		return cfg.OllamaBaseURL
	case "openai":
		return cfg.OpenAIBaseURL
	}
	return ""
}
