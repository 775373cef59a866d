package modules

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// exportKeyOverrides maps lookup field keys whose export column does not
// follow the "<stem>Name" convention.
var exportKeyOverrides = map[string]string{
	"storageTypeID": "storageType",
	"uomID":         "UOMName",
}

// DeriveExportKey returns the export key for a lookup field key.
func DeriveExportKey(key string) string {
	if v, ok := exportKeyOverrides[key]; ok {
		return v
	}
	return strings.TrimSuffix(key, "ID") + "Name"
}

// Registry maps module keys to their configuration.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]*ModuleConfig
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]*ModuleConfig)}
}

// Register adds a module configuration.
// Panics if the key is taken or the field list is inconsistent.
func (r *Registry) Register(cfg *ModuleConfig) {
	if err := validate(cfg); err != nil {
		panic(err.Error())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.modules[cfg.Key]; exists {
		panic(fmt.Sprintf("module already registered: %s", cfg.Key))
	}
	r.modules[cfg.Key] = cfg
}

// Get returns the configuration registered under key with its columns derived.
// The same pointer is returned on every call.
func (r *Registry) Get(key string) (*ModuleConfig, error) {
	r.mu.RLock()
	cfg, ok := r.modules[key]
	r.mu.RUnlock()

	if !ok {
		return nil, &ConfigurationError{Module: key, Reason: ReasonUnregistered}
	}
	cfg.derive.Do(cfg.deriveColumns)
	return cfg, nil
}

// Keys returns every registered module key, sorted.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.modules))
	for k := range r.modules {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// All returns every registered configuration sorted by key.
func (r *Registry) All() []*ModuleConfig {
	keys := r.Keys()
	out := make([]*ModuleConfig, 0, len(keys))
	for _, k := range keys {
		cfg, err := r.Get(k)
		if err == nil {
			out = append(out, cfg)
		}
	}
	return out
}

func (m *ModuleConfig) deriveColumns() {
	cols := make([]FieldSpec, len(m.Fields))
	for i, f := range m.Fields {
		if f.ExportKey == "" && f.ResolvesTo != nil && strings.HasSuffix(f.Key, "ID") {
			f.ExportKey = DeriveExportKey(f.Key)
		}
		cols[i] = f
	}
	m.Columns = cols
}

func validate(cfg *ModuleConfig) error {
	if cfg.Key == "" {
		return fmt.Errorf("module registered without a key")
	}

	seen := make(map[string]bool, len(cfg.Fields))
	resolved := make(map[string]bool)
	for _, f := range cfg.Fields {
		if seen[f.Key] {
			return fmt.Errorf("module %s: duplicate field %s", cfg.Key, f.Key)
		}
		seen[f.Key] = true

		if f.Required && f.IsOptional {
			return fmt.Errorf("module %s: field %s is both required and optional", cfg.Key, f.Key)
		}
		if f.Parent != "" {
			if f.ResolvesTo == nil {
				return fmt.Errorf("module %s: field %s has a parent but no lookup", cfg.Key, f.Key)
			}
			if !resolved[f.Parent] {
				return fmt.Errorf("module %s: field %s is scoped by %s, which must resolve earlier", cfg.Key, f.Key, f.Parent)
			}
		}
		if f.ResolvesTo != nil {
			resolved[f.ResolvesTo.Key] = true
		}
	}
	return nil
}

// Default is the process-wide registry populated by the catalog package.
var Default = NewRegistry()

// Register adds cfg to the default registry.
func Register(cfg *ModuleConfig) { Default.Register(cfg) }

// Get returns a module from the default registry.
func Get(key string) (*ModuleConfig, error) { return Default.Get(key) }

// Keys returns the default registry's module keys.
func Keys() []string { return Default.Keys() }
