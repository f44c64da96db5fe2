package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faircombine/faircombine/internal/catalog"
	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	"github.com/faircombine/faircombine/internal/engine"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
	"github.com/faircombine/faircombine/internal/evaluator"
	"github.com/faircombine/faircombine/internal/store"
)

const testCSV = `TaskName,TaskGroup,TaskSubGroup,TaskPriority,TaskQuestion,TaskShortDescription,TaskDetails
A,F,F1,essential,q,s,d
B,F,F1,essential,q,s,d
C,A,A1,useful,q,s,d
`

type fixture struct {
	svc        *Service
	store      *store.RedisStore
	dispatcher *evaluator.Dispatcher
	cfg        *config.Config
}

// newFixture assembles a service over miniredis with indicator B gated
// on A. The mutate callback can adjust the configuration before wiring.
func newFixture(t *testing.T, mutate func(*config.Config)) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Evaluator.Key = "secret"
	cfg.Lock.Timeout = 2 * time.Second
	cfg.Catalog.Dependencies = map[string]config.DependencyConfig{
		"B": {DependsOn: []string{"A"}},
	}
	if mutate != nil {
		mutate(cfg)
	}

	cat, err := catalog.Parse(strings.NewReader(testCSV), cfg.Catalog.Dependencies)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	st, err := store.NewRedisStore(context.Background(), store.Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	registry := evaluator.NewRegistry()
	require.NoError(t, registry.Register("always_success",
		func(context.Context, domain.Task, map[string]any) (constants.TaskStatus, error) {
			return constants.TaskStatusSuccess, nil
		}))
	dispatcher := evaluator.NewDispatcher(registry, zerolog.Nop())

	svc := New(Params{
		Catalog:    cat,
		Config:     cfg,
		Store:      st,
		Locks:      engine.NewLockRegistry(cfg.Lock.Timeout),
		Retriever:  evaluator.SubjectRetriever{},
		Dispatcher: dispatcher,
		Log:        zerolog.Nop(),
	})
	dispatcher.SetReporter(svc)

	return &fixture{svc: svc, store: st, dispatcher: dispatcher, cfg: cfg}
}

func urlSubject() domain.Subject {
	return domain.Subject{
		AssessmentType: constants.SubjectTypeURL,
		Path:           "https://example.org/model",
	}
}

func TestCreateSession(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)
	assert.Equal(t, constants.SessionStatusRunning, session.Status)

	// The document landed in the store.
	stored, err := f.svc.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, stored.ID)
	assert.Len(t, stored.Tasks, 2, "A and C are top-level, B hangs under A")
}

func TestCreateSessionInvalidSubject(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.CreateSession(context.Background(), domain.Subject{
		AssessmentType: constants.SubjectTypeURL, // missing path
	})
	require.ErrorIs(t, err, fcerrors.ErrInvalidSubject)
}

func TestAutomatedEvaluationReportsBack(t *testing.T) {
	f := newFixture(t, func(cfg *config.Config) {
		cfg.Assessment.AutomatedEvaluators = map[string]string{"A": "always_success"}
	})

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)
	f.dispatcher.Wait()

	stored, err := f.svc.Session(context.Background(), session.ID)
	require.NoError(t, err)

	flat, err := domain.FlattenTasks(stored.Tasks)
	require.NoError(t, err)
	require.Contains(t, flat, "A")
	assert.Equal(t, constants.TaskStatusSuccess, flat["A"].Status)
	assert.False(t, flat["B"].Disabled, "cascade released the gated task")
}

func TestUpdateTaskAuthorization(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	flat, err := domain.FlattenTasks(session.Tasks)
	require.NoError(t, err)
	gated := flat["B"]
	require.True(t, gated.Disabled)

	t.Run("without credential", func(t *testing.T) {
		_, err := f.svc.UpdateTask(context.Background(), session.ID, gated.ID,
			UpdateTaskRequest{Status: constants.TaskStatusSuccess})
		require.ErrorIs(t, err, fcerrors.ErrAuthorization)
	})

	t.Run("wrong credential", func(t *testing.T) {
		_, err := f.svc.UpdateTask(context.Background(), session.ID, gated.ID,
			UpdateTaskRequest{Status: constants.TaskStatusSuccess, ForceUpdate: "guess"})
		require.ErrorIs(t, err, fcerrors.ErrAuthorization)
	})

	t.Run("with credential", func(t *testing.T) {
		updated, err := f.svc.UpdateTask(context.Background(), session.ID, gated.ID,
			UpdateTaskRequest{Status: constants.TaskStatusSuccess, ForceUpdate: "secret"})
		require.NoError(t, err)

		flat, err := domain.FlattenTasks(updated.Tasks)
		require.NoError(t, err)
		assert.Equal(t, constants.TaskStatusSuccess, flat["B"].Status)
	})
}

func TestUpdateTaskCascadePersists(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	flat, err := domain.FlattenTasks(session.Tasks)
	require.NoError(t, err)

	updated, err := f.svc.UpdateTask(context.Background(), session.ID, flat["A"].ID,
		UpdateTaskRequest{Status: constants.TaskStatusFailed, Comment: "no identifier"})
	require.NoError(t, err)

	stored, err := f.svc.Session(context.Background(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, updated.UpdatedAt.Unix(), stored.UpdatedAt.Unix())

	flat, err = domain.FlattenTasks(stored.Tasks)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusFailed, flat["A"].Status)
	assert.Equal(t, "no identifier", flat["A"].Comment)
	assert.Equal(t, constants.TaskStatusFailed, flat["B"].Status)
	assert.True(t, flat["B"].Disabled)
}

func TestTaskLookup(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	flat, err := domain.FlattenTasks(session.Tasks)
	require.NoError(t, err)

	// B is nested under A but still addressable by id.
	task, err := f.svc.Task(context.Background(), session.ID, flat["B"].ID)
	require.NoError(t, err)
	assert.Equal(t, "B", task.Name)

	_, err = f.svc.Task(context.Background(), session.ID, "nope")
	require.ErrorIs(t, err, fcerrors.ErrTaskNotFound)
}

func TestResumeSession(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	t.Run("existing session with same subject", func(t *testing.T) {
		restored, err := f.svc.ResumeSession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, session.ID, restored.ID)
	})

	t.Run("existing session with different subject", func(t *testing.T) {
		conflicting := *session
		conflicting.Subject = domain.Subject{
			AssessmentType: constants.SubjectTypeURL,
			Path:           "https://example.org/other",
		}
		_, err := f.svc.ResumeSession(context.Background(), &conflicting)
		require.ErrorIs(t, err, fcerrors.ErrSessionExists)
	})

	t.Run("restored document cannot smuggle scores", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteSession(context.Background(), session.ID))

		tampered := *session
		flat, err := domain.FlattenTasks(tampered.Tasks)
		require.NoError(t, err)
		flat["A"].Status = constants.TaskStatusFailed
		flat["A"].Score = 1.0

		restored, err := f.svc.ResumeSession(context.Background(), &tampered)
		require.NoError(t, err)

		flat, err = domain.FlattenTasks(restored.Tasks)
		require.NoError(t, err)
		assert.Zero(t, flat["A"].Score)
		assert.Zero(t, restored.ScoreAll)
	})

	t.Run("deleted session is restored", func(t *testing.T) {
		require.NoError(t, f.svc.DeleteSession(context.Background(), session.ID))

		restored, err := f.svc.ResumeSession(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, session.ID, restored.ID)

		stored, err := f.svc.Session(context.Background(), session.ID)
		require.NoError(t, err)
		assert.Equal(t, session.ID, stored.ID)
	})
}

func TestDeleteSession(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteSession(context.Background(), session.ID))

	_, err = f.svc.Session(context.Background(), session.ID)
	require.ErrorIs(t, err, fcerrors.ErrSessionNotFound)

	err = f.svc.DeleteSession(context.Background(), session.ID)
	require.ErrorIs(t, err, fcerrors.ErrSessionNotFound)
}

func TestIndicators(t *testing.T) {
	f := newFixture(t, nil)

	all := f.svc.Indicators()
	require.Len(t, all, 3)
	assert.Equal(t, "A", all[0].Name)

	ind, err := f.svc.Indicator("C")
	require.NoError(t, err)
	assert.Equal(t, constants.TaskPriorityUseful, ind.Priority)

	_, err = f.svc.Indicator("nope")
	require.ErrorIs(t, err, fcerrors.ErrIndicatorNotFound)
}

func TestReportResultIsPrivileged(t *testing.T) {
	f := newFixture(t, nil)

	session, err := f.svc.CreateSession(context.Background(), urlSubject())
	require.NoError(t, err)

	flat, err := domain.FlattenTasks(session.Tasks)
	require.NoError(t, err)
	gated := flat["B"]
	require.True(t, gated.Disabled)

	require.NoError(t, f.svc.ReportResult(context.Background(), session.ID, gated.ID,
		constants.TaskStatusWarnings))

	stored, err := f.svc.Session(context.Background(), session.ID)
	require.NoError(t, err)
	flat, err = domain.FlattenTasks(stored.Tasks)
	require.NoError(t, err)
	assert.Equal(t, constants.TaskStatusWarnings, flat["B"].Status)
}
