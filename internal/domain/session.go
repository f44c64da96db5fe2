package domain

import (
	"time"

	"github.com/faircombine/faircombine/internal/constants"
)

// Session is one assessment run over a subject. It owns the task tree
// through Tasks (top-level, parentless tasks only; children hang off
// their parents) and carries the aggregate score fields recomputed by
// the engine after every status change.
//
// A session is mutated only through the engine's session handler, under
// the per-session lock.
type Session struct {
	// ID is the unique session identifier.
	ID string `json:"id"`

	// Subject is the original user input describing what is assessed.
	Subject Subject `json:"subject"`

	// Tasks maps task id → task for tasks with no parent. Gated tasks
	// are reachable only by walking the tree.
	Tasks map[string]*Task `json:"tasks"`

	// Status is the session lifecycle state.
	Status constants.SessionStatus `json:"status"`

	// ScoreAll is the mean task score over every task.
	ScoreAll float64 `json:"score_all"`

	// ScoreAllEssential is the mean score over essential tasks.
	ScoreAllEssential float64 `json:"score_all_essential"`

	// ScoreAllNonEssential is the mean score over non-essential tasks.
	ScoreAllNonEssential float64 `json:"score_all_nonessential"`

	// ScoreApplicable is the mean score over applicable tasks, i.e.
	// tasks not resolved as not_applicable or not_answered.
	ScoreApplicable float64 `json:"score_applicable"`

	// ScoreApplicableEssential is the applicable variant of the
	// essential partition.
	ScoreApplicableEssential float64 `json:"score_applicable_essential"`

	// ScoreApplicableNonEssential is the applicable variant of the
	// non-essential partition.
	ScoreApplicableNonEssential float64 `json:"score_applicable_nonessential"`

	// RatioNotApplicable is the share of tasks resolved as exempt.
	RatioNotApplicable float64 `json:"ratio_not_applicable"`

	// CreatedAt is when the session was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the session was last modified.
	UpdatedAt time.Time `json:"updated_at"`

	// SchemaVersion indicates the version of the session document schema.
	SchemaVersion int `json:"schema_version"`
}

// AddTask inserts a parentless task at the session's top level.
func (s *Session) AddTask(task *Task) {
	if s.Tasks == nil {
		s.Tasks = make(map[string]*Task)
	}
	s.Tasks[task.ID] = task
}
