package evaluator

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
)

// Reporter receives evaluation outcomes. The service layer implements
// it by applying a privileged status update, which is what lets the
// result land on a task that is still disabled.
type Reporter interface {
	ReportResult(ctx context.Context, sessionID, taskID string, status constants.TaskStatus) error
}

// Dispatcher runs automated evaluations in background goroutines and
// reports each outcome through the Reporter. Dispatch never blocks the
// caller; handler construction fires evaluations and moves on.
type Dispatcher struct {
	registry *Registry
	log      zerolog.Logger

	mu       sync.RWMutex
	reporter Reporter

	// wg tracks in-flight evaluations so tests and shutdown can wait
	// for them.
	wg sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given registry. The
// reporter is attached later with SetReporter because the service that
// implements it is constructed after the dispatcher.
func NewDispatcher(registry *Registry, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// SetReporter attaches the outcome reporter.
func (d *Dispatcher) SetReporter(r Reporter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reporter = r
}

// Dispatch fires one evaluation for a task snapshot. The call returns
// immediately; the outcome arrives later through the reporter. An
// evaluation that errors reports TaskStatusError so the task does not
// stay queued forever.
func (d *Dispatcher) Dispatch(ctx context.Context, task domain.Task, metadata map[string]any) {
	log := d.log.With().
		Str("session_id", task.SessionID).
		Str("task_id", task.ID).
		Str("indicator", task.Name).
		Str("evaluator", task.Evaluator).
		Logger()

	fn, err := d.registry.Get(task.Evaluator)
	if err != nil {
		log.Error().Err(err).Msg("cannot dispatch evaluation")
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		// Detach from the request context: the evaluation outlives the
		// request that created the session.
		runCtx := log.WithContext(context.WithoutCancel(ctx))

		status, err := fn(runCtx, task, metadata)
		if err != nil {
			log.Warn().Err(err).Msg("evaluation failed")
			status = constants.TaskStatusError
		}

		d.mu.RLock()
		reporter := d.reporter
		d.mu.RUnlock()
		if reporter == nil {
			log.Error().Msg("no reporter attached, dropping evaluation result")
			return
		}
		if err := reporter.ReportResult(runCtx, task.SessionID, task.ID, status); err != nil {
			log.Error().Err(err).Str("status", status.String()).
				Msg("failed to report evaluation result")
			return
		}
		log.Debug().Str("status", status.String()).Msg("evaluation result reported")
	}()
}

// Wait blocks until every in-flight evaluation has reported.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
