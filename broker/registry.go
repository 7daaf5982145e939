// Package broker holds the provider factory registry and the configuration
// surface shared by every plugin. It is the only place that maps a provider
// name to a concrete backend; nothing outside this package inspects which
// backend is active.
package broker

import (
	"sync"

	"github.com/streamkit/eventstream/core"
)

// Factory creates an Adapter from the given Config.
type Factory func(cfg Config) (core.Adapter, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register adds a named provider factory. Plugins call this from init().
func Register(name string, factory Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

// Create instantiates an adapter by provider name. An unregistered name is a
// configuration error: the plugin package was not imported or the provider
// setting is wrong, both fatal at startup.
func Create(name string, cfg Config) (core.Adapter, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, &core.ConfigurationError{Provider: name, Reason: "no such provider registered"}
	}
	return f(cfg)
}

// Providers lists registered provider names, for diagnostics.
func Providers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	return out
}
