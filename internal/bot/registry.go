package bot

import "sync"

// Registry collects modules before the bot starts.
type Registry struct {
	mu      sync.RWMutex
	modules []Module
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a module. Registration order is preserved and becomes
// the init and shutdown order.
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules = append(r.modules, m)
}

// Modules returns a copy of the registered modules.
func (r *Registry) Modules() []Module {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Module, len(r.modules))
	copy(result, r.modules)
	return result
}

// The global registry lets modules register from init, keyed off blank
// imports in main.
var globalRegistry = NewRegistry()

// Register adds a module to the global registry.
func Register(m Module) {
	globalRegistry.Register(m)
}

// Modules returns the global registry's modules.
func Modules() []Module {
	return globalRegistry.Modules()
}

// ResetGlobalRegistry replaces the global registry. Tests only.
func ResetGlobalRegistry() {
	globalRegistry = NewRegistry()
}
