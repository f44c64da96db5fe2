package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/faircombine/faircombine/internal/catalog"
	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Dispatcher triggers an automated evaluator for a task. The call must
// be fire-and-forget: implementations hand the work to a background
// goroutine and return immediately, so handler construction never
// blocks on evaluator results.
type Dispatcher interface {
	Dispatch(ctx context.Context, task domain.Task, metadata map[string]any)
}

// Handler mediates every read and write of one session. It owns the
// name→id index over the full task tree (indicatorTasks) that makes
// forward references during construction and task lookups after
// rehydration cheap.
//
// A Handler is built either over a fresh subject (New) or over a
// session document loaded from the store (FromSession). It is not safe
// for concurrent use; callers serialize access through the per-session
// lock registry.
type Handler struct {
	session  *domain.Session
	catalog  *catalog.Catalog
	cfg      *config.Config
	metadata map[string]any

	// indicatorTasks maps indicator name → task id for every task in
	// the tree, children included.
	indicatorTasks map[string]string
	tasksByID      map[string]*domain.Task

	// building marks indicators currently under recursive construction
	// to detect cyclic catalogues explicitly.
	building map[string]bool

	// pending collects the automated tasks to evaluate. Construction
	// only queues them; DispatchPending fires the batch once the caller
	// has persisted the session, so no result can arrive for a document
	// the store has never seen.
	pending []domain.Task

	dispatcher Dispatcher
	log        zerolog.Logger
}

// Params carries the collaborators needed to build a Handler.
type Params struct {
	// Subject describes what is being assessed.
	Subject domain.Subject

	// Catalog is the loaded indicator table.
	Catalog *catalog.Catalog

	// Config supplies the default-status rule tables.
	Config *config.Config

	// Metadata is the opaque payload the retriever produced for the
	// subject. It is handed unmodified to automated evaluators.
	Metadata map[string]any

	// Dispatcher triggers automated evaluators. Optional; when nil no
	// evaluation is dispatched.
	Dispatcher Dispatcher
}

// New builds a session and its full task tree from a subject. It
// iterates the catalogue in definition order, creates one task per
// indicator nested under its declared parents, derives each default
// status, queues automated evaluations for enabled automated tasks,
// and computes the initial aggregate scores.
func New(ctx context.Context, p Params) (*Handler, error) {
	if err := p.Subject.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &domain.Session{
		ID:            uuid.NewString(),
		Subject:       p.Subject,
		Tasks:         make(map[string]*domain.Task),
		Status:        constants.SessionStatusQueued,
		CreatedAt:     now,
		UpdatedAt:     now,
		SchemaVersion: constants.SessionSchemaVersion,
	}

	h := &Handler{
		session:        session,
		catalog:        p.Catalog,
		cfg:            p.Config,
		metadata:       p.Metadata,
		indicatorTasks: make(map[string]string, p.Catalog.Len()),
		tasksByID:      make(map[string]*domain.Task, p.Catalog.Len()),
		building:       make(map[string]bool),
		dispatcher:     p.Dispatcher,
		log: zerolog.Ctx(ctx).With().
			Str("component", "engine").
			Str("session_id", session.ID).
			Logger(),
	}

	for _, name := range p.Catalog.Names() {
		if _, err := h.createTask(ctx, name); err != nil {
			return nil, err
		}
	}

	h.RecalculateScores()
	h.log.Info().
		Int("tasks", len(h.tasksByID)).
		Str("status", session.Status.String()).
		Msg("session task tree built")
	return h, nil
}

// FromSession rehydrates a Handler over a session document loaded from
// the store. The name→id index is rebuilt by walking the tree; a
// duplicate indicator name anywhere in the tree is a construction
// defect and returns ErrConstruction.
func FromSession(ctx context.Context, session *domain.Session, cat *catalog.Catalog, cfg *config.Config) (*Handler, error) {
	if session == nil {
		return nil, fmt.Errorf("%w: session", fcerrors.ErrEmptyValue)
	}

	flat, err := domain.FlattenTasks(session.Tasks)
	if err != nil {
		return nil, err
	}

	h := &Handler{
		session:        session,
		catalog:        cat,
		cfg:            cfg,
		indicatorTasks: make(map[string]string, len(flat)),
		tasksByID:      make(map[string]*domain.Task, len(flat)),
		log: zerolog.Ctx(ctx).With().
			Str("component", "engine").
			Str("session_id", session.ID).
			Logger(),
	}
	for name, task := range flat {
		if _, known := cat.Get(name); !known {
			return nil, fmt.Errorf("%w: task %s references unknown indicator %q",
				fcerrors.ErrConstruction, task.ID, name)
		}
		// Scores are a pure function of the outcome; never trust the
		// value carried by the document.
		task.SetStatus(task.Status)
		h.indicatorTasks[name] = task.ID
		h.tasksByID[task.ID] = task
	}
	return h, nil
}

// Session returns the session owned by this handler.
func (h *Handler) Session() *domain.Session {
	return h.session
}

// Task returns the task with the given id anywhere in the tree.
func (h *Handler) Task(taskID string) (*domain.Task, error) {
	task, ok := h.tasksByID[taskID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", fcerrors.ErrTaskNotFound, taskID)
	}
	return task, nil
}

// TaskByName returns the task evaluating the named indicator.
func (h *Handler) TaskByName(name string) (*domain.Task, bool) {
	id, ok := h.indicatorTasks[name]
	if !ok {
		return nil, false
	}
	return h.tasksByID[id], true
}

// IndicatorTasks returns a copy of the indicator name → task id index.
func (h *Handler) IndicatorTasks() map[string]string {
	out := make(map[string]string, len(h.indicatorTasks))
	for k, v := range h.indicatorTasks {
		out[k] = v
	}
	return out
}

// createTask builds the task for one indicator, recursively
// constructing any not-yet-built dependency first so the new task can
// be attached as its child. Re-entrant calls for an already-built
// indicator return the existing task, which is what makes forward
// references in the catalogue safe.
func (h *Handler) createTask(ctx context.Context, name string) (*domain.Task, error) {
	if id, done := h.indicatorTasks[name]; done {
		return h.tasksByID[id], nil
	}
	if h.building[name] {
		return nil, fmt.Errorf("%w: through indicator %q", fcerrors.ErrDependencyCycle, name)
	}
	h.building[name] = true
	defer delete(h.building, name)

	ind, ok := h.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", fcerrors.ErrIndicatorNotFound, name)
	}

	task := &domain.Task{
		ID:        uuid.NewString(),
		Name:      ind.Name,
		SessionID: h.session.ID,
		Priority:  ind.Priority,
		Status:    constants.TaskStatusQueued,
	}

	// Automation only applies to non-manual subjects with a mapped
	// evaluator; manual sessions answer everything by hand.
	if !h.session.Subject.AssessmentType.Manual() {
		if evaluator, mapped := h.cfg.AutomatedEvaluator(ind.Name); mapped {
			task.Automated = true
			task.Evaluator = evaluator
		}
	}

	if ind.Dependency != nil {
		for _, depName := range ind.Dependency.DependsOn {
			parent, err := h.createTask(ctx, depName)
			if err != nil {
				return nil, err
			}
			parent.AddChild(task)
		}
	} else {
		h.session.AddTask(task)
	}

	h.indicatorTasks[ind.Name] = task.ID
	h.tasksByID[task.ID] = task

	status, disabled, err := h.defaultTaskStatus(ind)
	if err != nil {
		return nil, err
	}
	task.SetStatus(status)
	task.Disabled = disabled

	if task.Automated && !task.Disabled && h.dispatcher != nil {
		h.pending = append(h.pending, task.Snapshot())
	}
	return task, nil
}

// DispatchPending fires the automated evaluations queued during
// construction. Callers invoke it once the session document has been
// persisted.
func (h *Handler) DispatchPending(ctx context.Context) {
	for _, snap := range h.pending {
		h.dispatcher.Dispatch(ctx, snap, h.metadata)
	}
	h.pending = nil
}

// defaultTaskStatus derives the default outcome/disabled pair for an
// indicator. Precedence, first match wins:
//
//	(a) archive-only indicator and the subject lacks an archive
//	    → failed, disabled
//	(b) the subject's source repository has a pre-agreed outcome
//	    → that outcome, disabled
//	(c) declared dependencies → resolver verdict, auto-fail before
//	    auto-disable
//	(d) queued, enabled
func (h *Handler) defaultTaskStatus(ind *domain.Indicator) (constants.TaskStatus, bool, error) {
	if h.cfg.IsArchiveIndicator(ind.Name) && !h.session.Subject.HasArchive {
		return constants.TaskStatusFailed, true, nil
	}

	if forced, ok := h.cfg.ForcedOutcome(h.session.Subject.SourceRepository, ind.Name); ok {
		return forced, true, nil
	}

	if ind.Dependency != nil {
		return h.dependencyDefault(ind)
	}

	return constants.TaskStatusQueued, false, nil
}

// dependencyDefault resolves rules (c)/(d) against the current
// outcomes of the already-built dependency tasks.
func (h *Handler) dependencyDefault(ind *domain.Indicator) (constants.TaskStatus, bool, error) {
	resolver, err := NewDependencyFromDeclaration(ind.Dependency)
	if err != nil {
		return "", false, err
	}

	depTasks := make([]*domain.Task, 0, len(ind.Dependency.DependsOn))
	for _, depName := range ind.Dependency.DependsOn {
		dep, ok := h.TaskByName(depName)
		if !ok {
			return "", false, fmt.Errorf("%w: dependency task for %q not built",
				fcerrors.ErrConstruction, depName)
		}
		depTasks = append(depTasks, dep)
	}

	failed, err := resolver.AutomaticallyFailed(depTasks)
	if err != nil {
		return "", false, err
	}
	if failed {
		return constants.TaskStatusFailed, true, nil
	}

	disabled, err := resolver.AutomaticallyDisabled(depTasks)
	if err != nil {
		return "", false, err
	}
	if disabled {
		return constants.TaskStatusQueued, true, nil
	}

	return constants.TaskStatusQueued, false, nil
}
