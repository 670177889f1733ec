package ai

import (
	"context"
	"encoding/json"

	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// AIProvider is the interface for AI providers. Both operations are opaque to
// the orchestration core: patterns go in and out as raw JSON, and the core
// only governs when the calls happen and what is done with the results.
type AIProvider interface {
	// PolishScript rewrites rawScript in the voice described by patterns and
	// returns the polished draft
	PolishScript(ctx context.Context, rawScript string, patterns json.RawMessage) (string, error)

	// ExtractPatterns derives a new pattern artifact from the given example corpus
	ExtractPatterns(ctx context.Context, examples []*models.StyleExample) (json.RawMessage, error)
}

// ProviderFactory creates an AI provider based on the provider type
type ProviderFactory func(config map[string]string) (AIProvider, error)

// ProviderRegistry stores available AI providers
type ProviderRegistry struct {
	providers map[string]ProviderFactory
}

// NewProviderRegistry creates a new provider registry
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		providers: make(map[string]ProviderFactory),
	}
}

// Register registers a provider factory
func (r *ProviderRegistry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// GetProvider gets a provider by name
func (r *ProviderRegistry) GetProvider(name string, config map[string]string) (AIProvider, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}

	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not found
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "AI provider not found: " + e.Name
}
