// Package service implements the session lifecycle operations exposed
// over the API: creating and resuming sessions, reading and updating
// tasks, and receiving automated-evaluator results. Every write runs a
// full load-mutate-persist sequence under the per-session lock.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/faircombine/faircombine/internal/catalog"
	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	"github.com/faircombine/faircombine/internal/engine"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
	"github.com/faircombine/faircombine/internal/evaluator"
	"github.com/faircombine/faircombine/internal/store"
)

// Service wires the engine to its collaborators and exposes the
// operations the transport layer calls.
type Service struct {
	catalog    *catalog.Catalog
	cfg        *config.Config
	store      store.Store
	locks      *engine.LockRegistry
	retriever  evaluator.Retriever
	dispatcher engine.Dispatcher
	log        zerolog.Logger
}

// Params carries the collaborators needed to build a Service.
type Params struct {
	Catalog    *catalog.Catalog
	Config     *config.Config
	Store      store.Store
	Locks      *engine.LockRegistry
	Retriever  evaluator.Retriever
	Dispatcher engine.Dispatcher
	Log        zerolog.Logger
}

// New creates a Service. The dispatcher's reporter must be pointed back
// at the returned service by the caller, since the dispatcher is
// constructed first.
func New(p Params) *Service {
	return &Service{
		catalog:    p.Catalog,
		cfg:        p.Config,
		store:      p.Store,
		locks:      p.Locks,
		retriever:  p.Retriever,
		dispatcher: p.Dispatcher,
		log:        p.Log.With().Str("component", "service").Logger(),
	}
}

// UpdateTaskRequest is one externally supplied task status change.
type UpdateTaskRequest struct {
	// Status is the new outcome.
	Status constants.TaskStatus

	// Comment optionally replaces the task comment.
	Comment string

	// ForceUpdate carries the privileged credential presented by the
	// automated-evaluator callback. When it matches the configured key,
	// the write may target disabled tasks.
	ForceUpdate string
}

// CreateSession builds a new session for a subject: the subject's
// metadata is retrieved, the full task tree is constructed, the
// document is persisted, and only then are the queued automated
// evaluations fired.
func (s *Service) CreateSession(ctx context.Context, subject domain.Subject) (*domain.Session, error) {
	if err := subject.Validate(); err != nil {
		return nil, err
	}

	metadata, err := s.retriever.Retrieve(ctx, subject)
	if err != nil {
		return nil, err
	}

	h, err := engine.New(ctx, engine.Params{
		Subject:    subject,
		Catalog:    s.catalog,
		Config:     s.cfg,
		Metadata:   metadata,
		Dispatcher: s.dispatcher,
	})
	if err != nil {
		return nil, err
	}
	session := h.Session()

	release, err := s.locks.Acquire(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.store.Set(ctx, session); err != nil {
		return nil, err
	}

	// Fire the automated evaluations only after the document landed;
	// their callbacks serialize on the session lock we still hold.
	h.DispatchPending(ctx)

	s.log.Info().
		Str("session_id", session.ID).
		Str("assessment_type", subject.AssessmentType.String()).
		Msg("session created")
	return session, nil
}

// ResumeSession restores a previously exported session document. When a
// session with the same id is already stored, the stored one wins if the
// subjects match, and the restore is rejected with ErrSessionExists if
// they differ. An absent session is validated against the current
// catalogue before it is written back.
func (s *Service) ResumeSession(ctx context.Context, session *domain.Session) (*domain.Session, error) {
	if session == nil || session.ID == "" {
		return nil, fmt.Errorf("%w: session", fcerrors.ErrEmptyValue)
	}

	release, err := s.locks.Acquire(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	defer release()

	stored, err := s.store.Get(ctx, session.ID)
	switch {
	case err == nil:
		if !stored.Subject.Equal(session.Subject) {
			return nil, fmt.Errorf("%w: session %s exists with a different subject",
				fcerrors.ErrSessionExists, session.ID)
		}
		return stored, nil
	case !errors.Is(err, fcerrors.ErrSessionNotFound):
		return nil, err
	}

	h, err := engine.FromSession(ctx, session, s.catalog, s.cfg)
	if err != nil {
		return nil, err
	}
	h.RecalculateScores()

	if err := s.store.Set(ctx, session); err != nil {
		return nil, err
	}
	s.log.Info().Str("session_id", session.ID).Msg("session resumed")
	return session, nil
}

// Session loads one session document.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session id", fcerrors.ErrEmptyValue)
	}
	return s.store.Get(ctx, sessionID)
}

// Task returns one task of a session, located anywhere in the tree.
func (s *Service) Task(ctx context.Context, sessionID, taskID string) (*domain.Task, error) {
	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h, err := engine.FromSession(ctx, session, s.catalog, s.cfg)
	if err != nil {
		return nil, err
	}
	return h.Task(taskID)
}

// UpdateTask applies a status change to one task and persists the
// re-derived session. The change is privileged when the request's
// ForceUpdate credential matches the configured evaluator key.
func (s *Service) UpdateTask(ctx context.Context, sessionID, taskID string, req UpdateTaskRequest) (*domain.Session, error) {
	patch := engine.TaskPatch{
		Status:     req.Status,
		Comment:    req.Comment,
		Privileged: req.ForceUpdate != "" && req.ForceUpdate == s.cfg.Evaluator.Key,
	}

	release, err := s.locks.Acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	h, err := engine.FromSession(ctx, session, s.catalog, s.cfg)
	if err != nil {
		return nil, err
	}
	if err := h.UpdateTask(taskID, patch); err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// DeleteSession removes a session document and its lock.
func (s *Service) DeleteSession(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: session id", fcerrors.ErrEmptyValue)
	}

	release, err := s.locks.Acquire(ctx, sessionID)
	if err != nil {
		return err
	}

	err = s.store.Delete(ctx, sessionID)
	release()
	if err != nil {
		return err
	}

	// Forget after release; a racing Acquire for the same id just
	// recreates the lock and then fails on the missing document.
	s.locks.Forget(sessionID)
	s.log.Info().Str("session_id", sessionID).Msg("session deleted")
	return nil
}

// Indicators returns the catalogued indicator definitions in definition
// order.
func (s *Service) Indicators() []*domain.Indicator {
	return s.catalog.All()
}

// Indicator returns one catalogued indicator definition.
func (s *Service) Indicator(name string) (*domain.Indicator, error) {
	ind, ok := s.catalog.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", fcerrors.ErrIndicatorNotFound, name)
	}
	return ind, nil
}

// ReportResult implements evaluator.Reporter: an evaluation outcome is
// applied as a privileged status update, which lets it land on tasks
// that are still disabled and re-enables automated ones.
func (s *Service) ReportResult(ctx context.Context, sessionID, taskID string, status constants.TaskStatus) error {
	_, err := s.UpdateTask(ctx, sessionID, taskID, UpdateTaskRequest{
		Status:      status,
		ForceUpdate: s.cfg.Evaluator.Key,
	})
	return err
}
