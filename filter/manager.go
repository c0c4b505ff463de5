package filter

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Manager holds named filters, typically loaded from the config file.
type Manager struct {
	compiler *Compiler
	filters  map[string]*Filter
	mu       sync.RWMutex
}

// NewManager creates a manager backed by a caching compiler.
func NewManager() *Manager {
	return &Manager{
		compiler: NewCompiler(WithCache(100)),
		filters:  make(map[string]*Filter),
	}
}

// Register compiles expression and stores it under name, replacing any
// previous filter with that name.
func (m *Manager) Register(name, expression string) error {
	f, err := m.compiler.Compile(expression)
	if err != nil {
		return fmt.Errorf("failed to compile filter '%s': %w", name, err)
	}

	m.mu.Lock()
	m.filters[name] = f
	m.mu.Unlock()
	return nil
}

// RegisterAll registers every entry, stopping at the first invalid one.
func (m *Manager) RegisterAll(filters map[string]string) error {
	for _, name := range slices.Sorted(maps.Keys(filters)) {
		if err := m.Register(name, filters[name]); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the filter registered under name.
func (m *Manager) Get(name string) (*Filter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.filters[name]
	return f, ok
}

// Names lists registered filters in sorted order.
func (m *Manager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.filters))
}

// Resolve turns a command-line filter into a Filter. "@name" refers to a
// registered filter; anything else is compiled as an expression.
func (m *Manager) Resolve(ref string) (*Filter, error) {
	ref = strings.TrimSpace(ref)
	if name, ok := strings.CutPrefix(ref, "@"); ok {
		f, found := m.Get(name)
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
		return f, nil
	}
	return m.compiler.Compile(ref)
}
