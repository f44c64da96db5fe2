// Package engine implements the task dependency and scoring engine:
// task-tree construction, default-status derivation, cascading status
// propagation, aggregate scoring, and the per-session locking
// discipline guarding session mutation.
package engine

import (
	"fmt"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Dependency resolves whether a task whose indicator declares
// prerequisites should be auto-failed or auto-disabled, given the
// current outcomes of the prerequisite tasks.
//
// Under OR (the default) a task only makes sense once every
// prerequisite is settled and none failed: any failed prerequisite
// auto-fails it, any unsettled prerequisite auto-disables it. AND is
// the weaker gating: the task fails only when every prerequisite
// failed and is disabled only while every prerequisite is unsettled.
type Dependency struct {
	combinator constants.Combinator
	names      []string
	set        map[string]struct{}
}

// NewDependency builds a resolver over the given prerequisite names.
// An empty combinator defaults to OR. Duplicate names are rejected at
// construction with ErrDuplicateDependency.
func NewDependency(combinator constants.Combinator, names []string) (*Dependency, error) {
	if combinator == "" {
		combinator = constants.CombinatorOR
	}
	if !combinator.Valid() {
		return nil, fmt.Errorf("%w: unknown combinator %q",
			fcerrors.ErrConfiguration, combinator)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: dependency names", fcerrors.ErrEmptyValue)
	}

	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, dup := set[name]; dup {
			return nil, fmt.Errorf("%w: %q", fcerrors.ErrDuplicateDependency, name)
		}
		set[name] = struct{}{}
	}

	return &Dependency{
		combinator: combinator,
		names:      append([]string(nil), names...),
		set:        set,
	}, nil
}

// NewDependencyFromDeclaration builds a resolver from a catalogue
// declaration.
func NewDependencyFromDeclaration(decl *domain.DependencyDeclaration) (*Dependency, error) {
	if decl == nil {
		return nil, fmt.Errorf("%w: dependency declaration", fcerrors.ErrEmptyValue)
	}
	return NewDependency(decl.Combinator, decl.DependsOn)
}

// Names returns the prerequisite indicator names in declaration order.
func (d *Dependency) Names() []string {
	return append([]string(nil), d.names...)
}

// Combinator returns the configured combinator.
func (d *Dependency) Combinator() constants.Combinator {
	return d.combinator
}

// AutomaticallyFailed reports whether the dependent task must be forced
// to failed. Under OR any failed prerequisite suffices; under AND every
// prerequisite must have failed.
//
// The supplied tasks must exactly match the declared dependency set;
// a mismatch is a consistency defect, not a filter, and returns
// ErrDependencyMismatch.
func (d *Dependency) AutomaticallyFailed(tasks []*domain.Task) (bool, error) {
	if err := d.match(tasks); err != nil {
		return false, err
	}

	failed := 0
	for _, t := range tasks {
		if t.Status == constants.TaskStatusFailed {
			failed++
		}
	}
	if d.combinator == constants.CombinatorAND {
		return failed == len(tasks), nil
	}
	return failed > 0, nil
}

// AutomaticallyDisabled reports whether the dependent task must be kept
// disabled because its prerequisites are not yet settled. Under OR any
// unsettled prerequisite suffices; under AND every prerequisite must be
// unsettled.
//
// Like AutomaticallyFailed, the supplied tasks must exactly match the
// declared dependency set.
func (d *Dependency) AutomaticallyDisabled(tasks []*domain.Task) (bool, error) {
	if err := d.match(tasks); err != nil {
		return false, err
	}

	blocking := 0
	for _, t := range tasks {
		if !t.Status.Settled() {
			blocking++
		}
	}
	if d.combinator == constants.CombinatorAND {
		return blocking == len(tasks), nil
	}
	return blocking > 0, nil
}

// match verifies that the indicator-name set of the supplied tasks is
// exactly the declared dependency set.
func (d *Dependency) match(tasks []*domain.Task) error {
	if len(tasks) != len(d.set) {
		return fmt.Errorf("%w: got %d tasks, declared %d dependencies",
			fcerrors.ErrDependencyMismatch, len(tasks), len(d.set))
	}
	seen := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if _, declared := d.set[t.Name]; !declared {
			return fmt.Errorf("%w: task %q is not a declared dependency",
				fcerrors.ErrDependencyMismatch, t.Name)
		}
		if _, dup := seen[t.Name]; dup {
			return fmt.Errorf("%w: task %q supplied twice",
				fcerrors.ErrDependencyMismatch, t.Name)
		}
		seen[t.Name] = struct{}{}
	}
	return nil
}
