package connectors

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ledgercrm/backend/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

type registryEntry struct {
	config  integration.ProviderConfig
	factory integration.ConnectorFactory
}

// Registry maps provider codes to connector factories. Registration
// happens at startup; lookups are concurrent.
type Registry struct {
	mu      sync.RWMutex
	entries map[integration.ProviderCode]registryEntry
}

var _ integration.ConnectorRegistry = (*Registry)(nil)

func NewRegistry() *Registry {
	return &Registry{entries: make(map[integration.ProviderCode]registryEntry)}
}

// Register binds a provider config to its connector factory, replacing
// any prior registration for the same code.
func (r *Registry) Register(config integration.ProviderConfig, factory integration.ConnectorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[config.Code] = registryEntry{config: config, factory: factory}
}

func (r *Registry) Connector(integ *integration.Integration) (integration.Connector, error) {
	r.mu.RLock()
	entry, ok := r.entries[integ.Provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrInvalidProvider, integ.Provider)
	}
	return entry.factory(integ)
}

func (r *Registry) ProviderConfig(code integration.ProviderCode) (*integration.ProviderConfig, error) {
	r.mu.RLock()
	entry, ok := r.entries[code]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", integration.ErrInvalidProvider, code)
	}
	config := entry.config
	return &config, nil
}

func (r *Registry) Providers() []integration.ProviderCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	codes := make([]integration.ProviderCode, 0, len(r.entries))
	for code := range r.entries {
		codes = append(codes, code)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// RegistryOption configures the default registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client shared by REST-based connectors,
// typically to apply the configured provider request timeout.
func WithHTTPClient(client *http.Client) RegistryOption {
	return func(o *registryOptions) {
		o.httpClient = client
	}
}

// NewDefaultRegistry wires the built-in provider catalog: Stripe through
// its SDK connector, everything else through the generic REST connector.
func NewDefaultRegistry(logger *zap.Logger, opts ...RegistryOption) *Registry {
	var options registryOptions
	for _, opt := range opts {
		opt(&options)
	}

	registry := NewRegistry()
	for _, config := range DefaultProviderConfigs() {
		config := config
		switch config.Code {
		case integration.ProviderStripe:
			registry.Register(config, func(integ *integration.Integration) (integration.Connector, error) {
				return NewStripeConnector(integ, config, logger), nil
			})
		default:
			registry.Register(config, func(integ *integration.Integration) (integration.Connector, error) {
				return NewRESTConnector(integ, config, options.httpClient, defaultSchemas), nil
			})
		}
	}
	return registry
}
