// Package domain provides shared domain types for the FAIR Combine
// assessment service. These types are used across all internal packages
// to ensure consistent data structures.
//
// This package follows strict import rules:
//   - CAN import: internal/constants, internal/errors, standard library
//   - MUST NOT import: any other internal packages
//
// All JSON field names use snake_case so session documents serialize
// unchanged into the backing store and API payloads.
package domain

import (
	"fmt"
	"sort"

	"github.com/faircombine/faircombine/internal/constants"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Task is the per-session, mutable instantiation of an indicator's
// evaluation. Tasks own the child tasks that are gated by them; a child
// is reachable only through its parent, never from the session's
// top-level map.
//
// Example JSON representation:
//
//	{
//	    "id": "39cd1a09-...",
//	    "name": "CA-RDA-F1-01MA",
//	    "session_id": "b8232a41-...",
//	    "priority": "essential",
//	    "status": "queued",
//	    "disabled": false,
//	    "automated": true,
//	    "evaluator": "metadata_persistent_identifier",
//	    "score": 0,
//	    "children": {...}
//	}
type Task struct {
	// ID is the unique identifier for the task within its session.
	ID string `json:"id"`

	// Name is the indicator this task evaluates. It must reference a
	// catalogue entry and is unique within a session's full tree.
	Name string `json:"name"`

	// SessionID links this task to its owning session.
	SessionID string `json:"session_id"`

	// Children holds the tasks gated by this task, keyed by task id.
	// The tree shape is fixed at construction and never restructured.
	Children map[string]*Task `json:"children,omitempty"`

	// Priority is copied from the indicator at creation time.
	Priority constants.TaskPriority `json:"priority"`

	// Status is the current outcome. Mutate through SetStatus so the
	// derived score stays consistent.
	Status constants.TaskStatus `json:"status"`

	// Comment is free text attached by the user or an evaluator.
	Comment string `json:"comment,omitempty"`

	// Disabled marks the status as system-controlled; user edits are
	// rejected while it is set.
	Disabled bool `json:"disabled"`

	// Automated marks tasks whose status is expected to be supplied by
	// an external automated evaluator.
	Automated bool `json:"automated"`

	// Evaluator names the registered evaluator for automated tasks.
	Evaluator string `json:"evaluator,omitempty"`

	// Score is derived from Status on every assignment and is never
	// trusted from external input.
	Score float64 `json:"score"`
}

// SetStatus assigns the outcome and recomputes the derived score.
// The score is a pure function of the outcome, so the assignment is
// idempotent and independent of any previous score value.
func (t *Task) SetStatus(status constants.TaskStatus) {
	t.Status = status
	t.Score = status.Score()
}

// AddChild wires child under t. The child becomes reachable only
// through this task.
func (t *Task) AddChild(child *Task) {
	if t.Children == nil {
		t.Children = make(map[string]*Task)
	}
	t.Children[child.ID] = child
}

// Walk visits t and every descendant in depth-first order. Children are
// visited in a deterministic order (sorted by indicator name) so walks
// are reproducible across rehydrations. The walk stops at the first
// error, which is returned.
func (t *Task) Walk(fn func(*Task) error) error {
	if err := fn(t); err != nil {
		return err
	}
	children := make([]*Task, 0, len(t.Children))
	for _, c := range t.Children {
		children = append(children, c)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	for _, c := range children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the task without its children, suitable
// for handing to an evaluator or serializing into a dispatch payload.
func (t *Task) Snapshot() Task {
	snap := *t
	snap.Children = nil
	return snap
}

// FlattenTasks walks every tree in roots and returns all tasks keyed by
// indicator name. Two tasks claiming the same indicator are a
// construction defect and return ErrConstruction.
func FlattenTasks(roots map[string]*Task) (map[string]*Task, error) {
	flat := make(map[string]*Task)
	for _, root := range roots {
		err := root.Walk(func(t *Task) error {
			if _, exists := flat[t.Name]; exists {
				return fmt.Errorf("%w: duplicate indicator %q in task tree",
					fcerrors.ErrConstruction, t.Name)
			}
			flat[t.Name] = t
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return flat, nil
}
