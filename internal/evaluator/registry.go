package evaluator

import (
	"fmt"
	"sort"
	"sync"

	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Registry maps evaluator names to evaluation functions. Registration
// happens during startup; lookups afterwards are read-only.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds an evaluation function under a name. Registering the
// same name twice is a configuration defect.
func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return fmt.Errorf("%w: evaluator name", fcerrors.ErrEmptyValue)
	}
	if fn == nil {
		return fmt.Errorf("%w: evaluator func", fcerrors.ErrEmptyValue)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.funcs[name]; exists {
		return fmt.Errorf("%w: evaluator %q registered twice", fcerrors.ErrConfiguration, name)
	}
	r.funcs[name] = fn
	return nil
}

// Get returns the evaluation function registered under name.
func (r *Registry) Get(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", fcerrors.ErrUnknownEvaluator, name)
	}
	return fn, nil
}

// Names returns the registered evaluator names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
