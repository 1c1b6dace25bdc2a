package adapters

import (
	pkgerrors "github.com/zedexpress/zedexpress-backend/pkg/errors"
)

// Registry maps payment method keys to adapters. It is built once during
// process startup and treated as read-only afterwards, so concurrent lookups
// need no locking.
type Registry struct {
	byMethodKey map[string]Adapter
}

// NewRegistry builds a frozen registry from the provided bindings.
func NewRegistry(bindings map[string]Adapter) (*Registry, error) {
	byKey := make(map[string]Adapter, len(bindings))
	for key, adapter := range bindings {
		if key == "" {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "adapter binding requires a method key")
		}
		if adapter == nil {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "adapter binding requires an adapter")
		}
		byKey[key] = adapter
	}
	return &Registry{byMethodKey: byKey}, nil
}

// Lookup resolves the adapter registered for a method key.
func (r *Registry) Lookup(methodKey string) (Adapter, bool) {
	if r == nil {
		return nil, false
	}
	adapter, ok := r.byMethodKey[methodKey]
	return adapter, ok
}

// Keys lists the registered method keys.
func (r *Registry) Keys() []string {
	if r == nil {
		return nil
	}
	keys := make([]string, 0, len(r.byMethodKey))
	for key := range r.byMethodKey {
		keys = append(keys, key)
	}
	return keys
}
