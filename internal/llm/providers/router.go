package providers

import (
	"fmt"

	"github.com/ahrav/go-resilient/internal/llm/configuration"
	llmerrors "github.com/ahrav/go-resilient/internal/llm/errors"
	"github.com/ahrav/go-resilient/internal/llm/transport"
)

// NewRouter creates a router with an adapter per configured provider.
// The provider's kind selects the adapter.
func NewRouter(configs map[string]configuration.ProviderConfig) (transport.Router, error) {
	adapters := make(map[string]transport.ProviderAdapter, len(configs))

	for name, cfg := range configs {
		switch cfg.Kind {
		case configuration.KindChat:
			adapters[name] = NewChatAdapter(name, cfg)
		case configuration.KindInference:
			adapters[name] = NewInferenceAdapter(name, cfg)
		default:
			return nil, fmt.Errorf("%w: %s has kind %q", llmerrors.ErrUnknownProvider, name, cfg.Kind)
		}
	}

	return &router{adapters: adapters}, nil
}

// router implements transport.Router with a provider adapter registry.
type router struct {
	adapters map[string]transport.ProviderAdapter
}

// Pick selects the adapter for the given provider name.
func (r *router) Pick(provider string) (transport.ProviderAdapter, error) {
	adapter, ok := r.adapters[provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", llmerrors.ErrUnknownProvider, provider)
	}
	return adapter, nil
}
