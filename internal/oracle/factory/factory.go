// Package factory creates oracle instances from provider identifiers.
package factory

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/kmordal/namelens/internal/errors"
	"github.com/kmordal/namelens/internal/oracle"
	"github.com/kmordal/namelens/internal/oracle/ollama"
	"github.com/kmordal/namelens/internal/oracle/openai"
)

// SupportedProviders lists the valid provider identifiers.
var SupportedProviders = map[string]bool{
	"ollama": true,
	"openai": true,
}

// Options carries optional provider settings.
type Options struct {
	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout overrides the provider's default request timeout.
	Timeout time.Duration
}

// New creates an oracle for the given provider and model.
// An unknown provider, or a missing OPENAI_API_KEY for the openai provider,
// is a configuration error: it aborts before any asset is touched.
func New(provider, model string, opts Options) (oracle.Oracle, error) {
	switch provider {
	case "ollama":
		return ollama.New(ollama.Config{
			BaseURL: opts.BaseURL,
			Model:   model,
			Timeout: opts.Timeout,
		}), nil
	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, errors.NewInvalidRequest("OPENAI_API_KEY environment variable not set")
		}
		o, err := openai.New(openai.Config{
			APIKey:  apiKey,
			BaseURL: opts.BaseURL,
			Model:   model,
			Timeout: opts.Timeout,
		})
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		return o, nil
	default:
		return nil, errors.NewInvalidRequest(
			fmt.Sprintf("invalid provider %q (supported: %s)", provider, providerList()))
	}
}

func providerList() string {
	names := make([]string, 0, len(SupportedProviders))
	for name := range SupportedProviders {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
