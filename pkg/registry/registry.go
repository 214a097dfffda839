// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: FSL-1.1-ALv2

package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/platform-engineering-labs/formae/pkg/model"
	"github.com/platform-engineering-labs/formae/pkg/plugin"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/client"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/config"
	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/prov"
)

// Factory builds a provisioner bound to a client and its configuration
type Factory func(*client.Client, *config.Config) prov.Provisioner

type entry struct {
	factory    Factory
	descriptor plugin.ResourceDescriptor
	schema     model.Schema
}

// Registry holds the resource types known to the plugin
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

var registry = &Registry{entries: make(map[string]entry)}

// Register adds a resource type to the registry
// Called by resource packages in their init() functions
func Register(name string, descriptor plugin.ResourceDescriptor, schema model.Schema, factory Factory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	registry.entries[name] = entry{factory: factory, descriptor: descriptor, schema: schema}
}

// Get returns a provisioner for the given resource type
func Get(name string, c *client.Client, cfg *config.Config) (prov.Provisioner, error) {
	registry.mu.RLock()
	e, ok := registry.entries[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported resource type: %s", name)
	}
	return e.factory(c, cfg), nil
}

// HasProvisioner checks if a provisioner is registered for the given resource type
func HasProvisioner(name string) bool {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	_, ok := registry.entries[name]
	return ok
}

// GetSchema retrieves the schema for a given resource type
func GetSchema(name string) (model.Schema, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	e, ok := registry.entries[name]
	return e.schema, ok
}

// GetDescriptor retrieves the resource descriptor for a given resource type
func GetDescriptor(name string) (plugin.ResourceDescriptor, bool) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	e, ok := registry.entries[name]
	return e.descriptor, ok
}

// ResourceTypes returns the registered resource types, sorted
func ResourceTypes() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	types := make([]string, 0, len(registry.entries))
	for name := range registry.entries {
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
