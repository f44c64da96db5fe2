package engine

import (
	"fmt"
	"sort"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// TaskPatch describes one externally supplied status change.
type TaskPatch struct {
	// Status is the new outcome for the task.
	Status constants.TaskStatus

	// Comment optionally replaces the task's free-text comment.
	Comment string

	// Privileged marks the automated-evaluator callback path, which may
	// write to disabled tasks.
	Privileged bool
}

// UpdateTask applies an externally supplied status change to exactly
// one task and keeps the rest of the tree consistent: the change is
// authorized, applied, cascaded through the task's descendants, and the
// session aggregates are recomputed.
//
// Authorization: a disabled task rejects non-privileged writes with
// ErrAuthorization. A privileged write to a task that is both automated
// and disabled also clears the disabled flag (the automated result is
// what un-gates it). A non-privileged write demotes the task from
// automated to manual.
func (h *Handler) UpdateTask(taskID string, patch TaskPatch) error {
	task, err := h.Task(taskID)
	if err != nil {
		return err
	}

	if !patch.Status.Valid() {
		return fmt.Errorf("%w: %q", fcerrors.ErrInvalidStatus, patch.Status)
	}

	if task.Disabled && !patch.Privileged {
		return fmt.Errorf("%w: task %s is disabled", fcerrors.ErrAuthorization, taskID)
	}

	if patch.Privileged {
		if task.Automated && task.Disabled {
			task.Disabled = false
		}
	} else {
		task.Automated = false
	}

	task.SetStatus(patch.Status)
	if patch.Comment != "" {
		task.Comment = patch.Comment
	}

	h.log.Debug().
		Str("task_id", taskID).
		Str("indicator", task.Name).
		Str("status", patch.Status.String()).
		Bool("privileged", patch.Privileged).
		Msg("task status updated")

	h.UpdateTaskChildren(task)
	h.RecalculateScores()
	return nil
}

// UpdateTaskChildren recomputes the default outcome/disabled pair for
// every descendant of the given task, in tree order, against the
// current state of each descendant's dependencies.
//
// The cascade is transitive: grandchildren are recomputed in the same
// pass once their parents have settled, so a single edit leaves the
// whole subtree consistent without relying on callers to edit
// bottom-up.
func (h *Handler) UpdateTaskChildren(task *domain.Task) {
	for _, child := range sortedChildren(task) {
		ind, ok := h.catalog.Get(child.Name)
		if !ok || ind.Dependency == nil {
			// Rehydration validates indicator names and children only
			// exist under declared dependencies; either condition
			// failing means the catalogue changed under a live session.
			h.log.Warn().
				Str("indicator", child.Name).
				Msg("skipping cascade for task without a known dependency declaration")
			continue
		}

		status, disabled, err := h.dependencyDefault(ind)
		if err != nil {
			h.log.Error().Err(err).
				Str("indicator", child.Name).
				Msg("cascade default derivation failed")
			continue
		}

		child.SetStatus(status)
		child.Disabled = disabled
		h.UpdateTaskChildren(child)
	}
}

// sortedChildren returns a task's children ordered by indicator name
// so cascades are deterministic.
func sortedChildren(task *domain.Task) []*domain.Task {
	children := make([]*domain.Task, 0, len(task.Children))
	for _, c := range task.Children {
		children = append(children, c)
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Name < children[j].Name })
	return children
}
