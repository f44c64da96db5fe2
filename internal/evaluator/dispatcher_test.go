package evaluator

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
)

type mockReporter struct {
	mu      sync.Mutex
	results []constants.TaskStatus
}

func (m *mockReporter) ReportResult(_ context.Context, _, _ string, status constants.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, status)
	return nil
}

func (m *mockReporter) reported() []constants.TaskStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]constants.TaskStatus(nil), m.results...)
}

func autoTask(evaluator string) domain.Task {
	return domain.Task{
		ID:        "t1",
		Name:      "A",
		SessionID: "s1",
		Automated: true,
		Evaluator: evaluator,
	}
}

func TestDispatcherReportsOutcome(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ok",
		func(context.Context, domain.Task, map[string]any) (constants.TaskStatus, error) {
			return constants.TaskStatusSuccess, nil
		}))

	d := NewDispatcher(r, zerolog.Nop())
	reporter := &mockReporter{}
	d.SetReporter(reporter)

	d.Dispatch(context.Background(), autoTask("ok"), nil)
	d.Wait()

	assert.Equal(t, []constants.TaskStatus{constants.TaskStatusSuccess}, reporter.reported())
}

func TestDispatcherEvaluationErrorBecomesErrorStatus(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("broken",
		func(context.Context, domain.Task, map[string]any) (constants.TaskStatus, error) {
			return "", errors.New("parser exploded")
		}))

	d := NewDispatcher(r, zerolog.Nop())
	reporter := &mockReporter{}
	d.SetReporter(reporter)

	d.Dispatch(context.Background(), autoTask("broken"), nil)
	d.Wait()

	assert.Equal(t, []constants.TaskStatus{constants.TaskStatusError}, reporter.reported())
}

func TestDispatcherUnknownEvaluator(t *testing.T) {
	d := NewDispatcher(NewRegistry(), zerolog.Nop())
	reporter := &mockReporter{}
	d.SetReporter(reporter)

	d.Dispatch(context.Background(), autoTask("nope"), nil)
	d.Wait()

	assert.Empty(t, reporter.reported())
}

func TestDispatcherSurvivesCanceledRequestContext(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("ctx-check",
		func(ctx context.Context, _ domain.Task, _ map[string]any) (constants.TaskStatus, error) {
			if err := ctx.Err(); err != nil {
				return constants.TaskStatusError, err
			}
			return constants.TaskStatusSuccess, nil
		}))

	d := NewDispatcher(r, zerolog.Nop())
	reporter := &mockReporter{}
	d.SetReporter(reporter)

	// The request context is canceled before the evaluation runs; the
	// evaluation must be detached from it.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Dispatch(ctx, autoTask("ctx-check"), nil)
	d.Wait()

	assert.Equal(t, []constants.TaskStatus{constants.TaskStatusSuccess}, reporter.reported())
}
