package constants

// TaskStatus represents the outcome of a single FAIR assessment task.
// Status values use snake_case for JSON serialization compatibility.
type TaskStatus string

// Task status constants define the valid outcomes a task can hold.
//
// The values fall into three groups:
//
//	queued, started                          → not yet resolved
//	success, failed, warnings, error         → resolved with a verdict
//	not_applicable, not_answered             → resolved as exempt
const (
	// TaskStatusQueued indicates the assessment has not been started yet.
	TaskStatusQueued TaskStatus = "queued"

	// TaskStatusStarted indicates the assessment is being evaluated,
	// typically by an automated evaluator that has not reported back.
	TaskStatusStarted TaskStatus = "started"

	// TaskStatusSuccess indicates the assessed resource passed the check.
	TaskStatusSuccess TaskStatus = "success"

	// TaskStatusFailed indicates the assessed resource failed the check.
	TaskStatusFailed TaskStatus = "failed"

	// TaskStatusWarnings indicates the check passed with reservations.
	// It contributes half credit to the session scores.
	TaskStatusWarnings TaskStatus = "warnings"

	// TaskStatusError indicates the evaluation itself broke down.
	// It scores like a failure but still blocks dependent tasks,
	// the same way an unresolved task does.
	TaskStatusError TaskStatus = "error"

	// TaskStatusNotApplicable indicates the check does not apply to
	// the assessed resource.
	TaskStatusNotApplicable TaskStatus = "not_applicable"

	// TaskStatusNotAnswered indicates the user declined to answer a
	// manual assessment question.
	TaskStatusNotAnswered TaskStatus = "not_answered"
)

// String returns the string representation of the TaskStatus.
// This implements fmt.Stringer for convenient logging and debugging.
func (s TaskStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the defined task statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusQueued, TaskStatusStarted, TaskStatusSuccess,
		TaskStatusFailed, TaskStatusWarnings, TaskStatusError,
		TaskStatusNotApplicable, TaskStatusNotAnswered:
		return true
	default:
		return false
	}
}

// Score returns the numeric contribution of the status to session scores.
// success → 1, warnings → 0.5, everything else → 0.
func (s TaskStatus) Score() float64 {
	switch s {
	case TaskStatusSuccess:
		return 1
	case TaskStatusWarnings:
		return 0.5
	default:
		return 0
	}
}

// Settled reports whether the status no longer blocks dependent tasks.
// Only success, warnings, not_applicable and not_answered are settled;
// queued, started, failed and error all count as not-yet-clear for
// dependency gating. The asymmetry for failed/error is intentional:
// they score zero like resolved failures but keep children disabled.
func (s TaskStatus) Settled() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusWarnings,
		TaskStatusNotApplicable, TaskStatusNotAnswered:
		return true
	default:
		return false
	}
}

// Exempt reports whether the status removes the task from the
// "applicable" score variants and counts it toward the NA ratio.
func (s TaskStatus) Exempt() bool {
	return s == TaskStatusNotApplicable || s == TaskStatusNotAnswered
}

// Unresolved reports whether the task still awaits a first verdict.
// A session is finished once no task is unresolved.
func (s TaskStatus) Unresolved() bool {
	return s == TaskStatusQueued || s == TaskStatusStarted
}

// TaskPriority represents the importance weighting of an indicator.
type TaskPriority string

// Task priority constants, ordered from most to least important.
const (
	// TaskPriorityEssential marks indicators that are required for a
	// resource to be considered FAIR.
	TaskPriorityEssential TaskPriority = "essential"

	// TaskPriorityImportant marks indicators that are strongly
	// recommended but not required.
	TaskPriorityImportant TaskPriority = "important"

	// TaskPriorityUseful marks nice-to-have indicators.
	TaskPriorityUseful TaskPriority = "useful"
)

// String returns the string representation of the TaskPriority.
func (p TaskPriority) String() string {
	return string(p)
}

// Valid reports whether p is one of the defined priorities.
func (p TaskPriority) Valid() bool {
	switch p {
	case TaskPriorityEssential, TaskPriorityImportant, TaskPriorityUseful:
		return true
	default:
		return false
	}
}

// Essential reports whether the priority belongs to the essential
// partition of the session scores. Important and useful indicators
// together form the non-essential partition.
func (p TaskPriority) Essential() bool {
	return p == TaskPriorityEssential
}

// SessionStatus represents the lifecycle state of an assessment session.
type SessionStatus string

// Session status constants follow the pipeline
// queued → preprocessing → running → postprocessing → finished,
// with error reachable from any stage.
const (
	// SessionStatusQueued indicates the session was created but the
	// task tree has not been built yet.
	SessionStatusQueued SessionStatus = "queued"

	// SessionStatusPreprocessing indicates subject metadata is being
	// retrieved and parsed.
	SessionStatusPreprocessing SessionStatus = "preprocessing"

	// SessionStatusRunning indicates at least one task is still
	// queued or started.
	SessionStatusRunning SessionStatus = "running"

	// SessionStatusPostprocessing indicates final statistics are
	// being computed.
	SessionStatusPostprocessing SessionStatus = "postprocessing"

	// SessionStatusFinished indicates every task has been resolved.
	SessionStatusFinished SessionStatus = "finished"

	// SessionStatusError indicates the session pipeline broke down.
	SessionStatusError SessionStatus = "error"
)

// String returns the string representation of the SessionStatus.
func (s SessionStatus) String() string {
	return string(s)
}

// Combinator describes how multiple dependency outcomes jointly gate a
// dependent task.
type Combinator string

// Combinator constants.
const (
	// CombinatorOR gates a task until every prerequisite is settled and
	// fails it as soon as any prerequisite failed.
	CombinatorOR Combinator = "or"

	// CombinatorAND gates a task only while every prerequisite is
	// unresolved and fails it only when every prerequisite failed.
	CombinatorAND Combinator = "and"
)

// String returns the string representation of the Combinator.
func (c Combinator) String() string {
	return string(c)
}

// Valid reports whether c is a defined combinator.
func (c Combinator) Valid() bool {
	return c == CombinatorOR || c == CombinatorAND
}

// SubjectType describes how an assessment subject was submitted.
type SubjectType string

// Subject type constants.
const (
	// SubjectTypeManual marks a self-assessment answered by the user.
	SubjectTypeManual SubjectType = "manual"

	// SubjectTypeURL marks a resource referenced by URL.
	SubjectTypeURL SubjectType = "url"

	// SubjectTypeFile marks an uploaded file or archive.
	SubjectTypeFile SubjectType = "file"
)

// String returns the string representation of the SubjectType.
func (t SubjectType) String() string {
	return string(t)
}

// Valid reports whether t is a defined subject type.
func (t SubjectType) Valid() bool {
	switch t {
	case SubjectTypeManual, SubjectTypeURL, SubjectTypeFile:
		return true
	default:
		return false
	}
}

// Manual reports whether the subject is a manual self-assessment.
// Automated evaluators are only dispatched for non-manual subjects.
func (t SubjectType) Manual() bool {
	return t == SubjectTypeManual
}
