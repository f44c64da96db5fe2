package engine

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faircombine/faircombine/internal/catalog"
	"github.com/faircombine/faircombine/internal/config"
	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// mockDispatcher records dispatched task snapshots.
type mockDispatcher struct {
	mu    sync.Mutex
	tasks []domain.Task
}

func (m *mockDispatcher) Dispatch(_ context.Context, task domain.Task, _ map[string]any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = append(m.tasks, task)
}

func (m *mockDispatcher) dispatched() []domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Task(nil), m.tasks...)
}

// testCatalog parses an inline catalogue of essential indicators with
// the given dependency declarations.
func testCatalog(t *testing.T, names []string, deps map[string]config.DependencyConfig) *catalog.Catalog {
	t.Helper()
	var b strings.Builder
	b.WriteString("TaskName,TaskGroup,TaskSubGroup,TaskPriority,TaskQuestion,TaskShortDescription,TaskDetails\n")
	for _, name := range names {
		b.WriteString(name + ",F,F1,essential,q,s,d\n")
	}
	cat, err := catalog.Parse(strings.NewReader(b.String()), deps)
	require.NoError(t, err)
	return cat
}

func testConfig() *config.Config {
	return &config.Config{}
}

func urlSubject() domain.Subject {
	return domain.Subject{
		AssessmentType: constants.SubjectTypeURL,
		Path:           "https://example.org/model",
	}
}

func TestNewBuildsTree(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B"}, map[string]config.DependencyConfig{
		"B": {DependsOn: []string{"A"}},
	})

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  testConfig(),
	})
	require.NoError(t, err)

	session := h.Session()
	require.Len(t, session.Tasks, 1, "only the parentless task is top-level")
	assert.Len(t, h.IndicatorTasks(), 2)
	assert.Equal(t, constants.SessionStatusRunning, session.Status)

	a, ok := h.TaskByName("A")
	require.True(t, ok)
	assert.False(t, a.Disabled)
	assert.Equal(t, constants.TaskStatusQueued, a.Status)

	b, ok := h.TaskByName("B")
	require.True(t, ok)
	assert.True(t, b.Disabled, "dependent task starts gated behind queued parent")
	assert.Equal(t, constants.TaskStatusQueued, b.Status)
	assert.Contains(t, a.Children, b.ID)
}

func TestNewForwardReference(t *testing.T) {
	// Z appears before its dependency A in the catalogue; recursion must
	// build A first and attach Z under it.
	cat := testCatalog(t, []string{"Z", "A"}, map[string]config.DependencyConfig{
		"Z": {DependsOn: []string{"A"}},
	})

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  testConfig(),
	})
	require.NoError(t, err)

	a, ok := h.TaskByName("A")
	require.True(t, ok)
	z, ok := h.TaskByName("Z")
	require.True(t, ok)
	assert.Contains(t, a.Children, z.ID)
	assert.Len(t, h.Session().Tasks, 1)
}

func TestNewDetectsCycle(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B"}, map[string]config.DependencyConfig{
		"A": {DependsOn: []string{"B"}},
		"B": {DependsOn: []string{"A"}},
	})

	_, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  testConfig(),
	})
	require.ErrorIs(t, err, fcerrors.ErrDependencyCycle)
}

func TestDefaultStatusArchiveIndicator(t *testing.T) {
	cat := testCatalog(t, []string{"ARCH"}, nil)
	cfg := testConfig()
	cfg.Assessment.ArchiveIndicators = []string{"ARCH"}

	h, err := New(context.Background(), Params{
		Subject: urlSubject(), // HasArchive false
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	task, ok := h.TaskByName("ARCH")
	require.True(t, ok)
	assert.Equal(t, constants.TaskStatusFailed, task.Status)
	assert.True(t, task.Disabled)
	assert.Zero(t, task.Score)
}

func TestDefaultStatusForcedOutcome(t *testing.T) {
	cat := testCatalog(t, []string{"A"}, nil)
	cfg := testConfig()
	cfg.Assessment.ForcedOutcomes = map[string]map[string]string{
		"biomodels": {"A": "success"},
	}

	subject := urlSubject()
	subject.SourceRepository = "biomodels"

	h, err := New(context.Background(), Params{
		Subject: subject,
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	task, ok := h.TaskByName("A")
	require.True(t, ok)
	assert.Equal(t, constants.TaskStatusSuccess, task.Status)
	assert.True(t, task.Disabled)
	assert.InDelta(t, 1.0, task.Score, 0.0001)
}

func TestArchiveRuleBeatsForcedOutcome(t *testing.T) {
	cat := testCatalog(t, []string{"A"}, nil)
	cfg := testConfig()
	cfg.Assessment.ArchiveIndicators = []string{"A"}
	cfg.Assessment.ForcedOutcomes = map[string]map[string]string{
		"biomodels": {"A": "success"},
	}

	subject := urlSubject()
	subject.SourceRepository = "biomodels"

	h, err := New(context.Background(), Params{
		Subject: subject,
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	task, ok := h.TaskByName("A")
	require.True(t, ok)
	assert.Equal(t, constants.TaskStatusFailed, task.Status)
	assert.True(t, task.Disabled)
}

func TestAutomatedDispatch(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B"}, nil)
	cfg := testConfig()
	cfg.Assessment.AutomatedEvaluators = map[string]string{"A": "check_a"}

	t.Run("queued and fired for url subject", func(t *testing.T) {
		d := &mockDispatcher{}
		h, err := New(context.Background(), Params{
			Subject:    urlSubject(),
			Catalog:    cat,
			Config:     cfg,
			Dispatcher: d,
		})
		require.NoError(t, err)

		a, ok := h.TaskByName("A")
		require.True(t, ok)
		assert.True(t, a.Automated)
		assert.Equal(t, "check_a", a.Evaluator)

		// Construction queues; nothing fires until DispatchPending.
		assert.Empty(t, d.dispatched())
		h.DispatchPending(context.Background())
		require.Len(t, d.dispatched(), 1)
		assert.Equal(t, "A", d.dispatched()[0].Name)

		// The queue drains on dispatch.
		h.DispatchPending(context.Background())
		assert.Len(t, d.dispatched(), 1)
	})

	t.Run("manual subjects never automate", func(t *testing.T) {
		d := &mockDispatcher{}
		h, err := New(context.Background(), Params{
			Subject:    domain.Subject{AssessmentType: constants.SubjectTypeManual},
			Catalog:    cat,
			Config:     cfg,
			Dispatcher: d,
		})
		require.NoError(t, err)

		a, ok := h.TaskByName("A")
		require.True(t, ok)
		assert.False(t, a.Automated)
		h.DispatchPending(context.Background())
		assert.Empty(t, d.dispatched())
	})
}

func TestUpdateTaskCascade(t *testing.T) {
	newHandler := func(t *testing.T) *Handler {
		cat := testCatalog(t, []string{"A", "B"}, map[string]config.DependencyConfig{
			"B": {DependsOn: []string{"A"}},
		})
		h, err := New(context.Background(), Params{
			Subject: urlSubject(),
			Catalog: cat,
			Config:  testConfig(),
		})
		require.NoError(t, err)
		return h
	}

	t.Run("parent success releases child", func(t *testing.T) {
		h := newHandler(t)
		a, _ := h.TaskByName("A")
		b, _ := h.TaskByName("B")
		require.True(t, b.Disabled)

		require.NoError(t, h.UpdateTask(a.ID, TaskPatch{Status: constants.TaskStatusSuccess}))
		assert.False(t, b.Disabled)
		assert.Equal(t, constants.TaskStatusQueued, b.Status)
	})

	t.Run("parent failure fails child", func(t *testing.T) {
		h := newHandler(t)
		a, _ := h.TaskByName("A")
		b, _ := h.TaskByName("B")

		require.NoError(t, h.UpdateTask(a.ID, TaskPatch{Status: constants.TaskStatusFailed}))
		assert.True(t, b.Disabled)
		assert.Equal(t, constants.TaskStatusFailed, b.Status)
		assert.Equal(t, constants.SessionStatusFinished, h.Session().Status)
	})
}

func TestUpdateTaskTransitiveCascade(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B", "C"}, map[string]config.DependencyConfig{
		"B": {DependsOn: []string{"A"}},
		"C": {DependsOn: []string{"B"}},
	})
	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  testConfig(),
	})
	require.NoError(t, err)

	a, _ := h.TaskByName("A")
	c, _ := h.TaskByName("C")
	require.True(t, c.Disabled)

	// One edit at the root reaches the grandchild.
	require.NoError(t, h.UpdateTask(a.ID, TaskPatch{Status: constants.TaskStatusFailed}))
	assert.Equal(t, constants.TaskStatusFailed, c.Status)
	assert.True(t, c.Disabled)
}

func TestUpdateTaskAuthorization(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B"}, map[string]config.DependencyConfig{
		"B": {DependsOn: []string{"A"}},
	})
	cfg := testConfig()
	cfg.Assessment.AutomatedEvaluators = map[string]string{"B": "check_b"}

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	b, _ := h.TaskByName("B")
	require.True(t, b.Disabled)
	require.True(t, b.Automated)

	t.Run("unprivileged write rejected", func(t *testing.T) {
		err := h.UpdateTask(b.ID, TaskPatch{Status: constants.TaskStatusSuccess})
		require.ErrorIs(t, err, fcerrors.ErrAuthorization)
	})

	t.Run("privileged write accepted and clears disabled", func(t *testing.T) {
		err := h.UpdateTask(b.ID, TaskPatch{
			Status:     constants.TaskStatusSuccess,
			Privileged: true,
		})
		require.NoError(t, err)
		assert.False(t, b.Disabled)
		assert.Equal(t, constants.TaskStatusSuccess, b.Status)
	})
}

func TestUpdateTaskDemotesAutomated(t *testing.T) {
	cat := testCatalog(t, []string{"A"}, nil)
	cfg := testConfig()
	cfg.Assessment.AutomatedEvaluators = map[string]string{"A": "check_a"}

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	a, _ := h.TaskByName("A")
	require.True(t, a.Automated)
	require.False(t, a.Disabled)

	require.NoError(t, h.UpdateTask(a.ID, TaskPatch{Status: constants.TaskStatusNotApplicable}))
	assert.False(t, a.Automated, "manual override takes the task away from the evaluator")
}

func TestUpdateTaskInvalidStatus(t *testing.T) {
	cat := testCatalog(t, []string{"A"}, nil)
	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  testConfig(),
	})
	require.NoError(t, err)

	a, _ := h.TaskByName("A")
	err = h.UpdateTask(a.ID, TaskPatch{Status: "done"})
	require.ErrorIs(t, err, fcerrors.ErrInvalidStatus)

	err = h.UpdateTask("no-such-task", TaskPatch{Status: constants.TaskStatusSuccess})
	require.ErrorIs(t, err, fcerrors.ErrTaskNotFound)
}

func TestFromSessionRoundTrip(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B", "C"}, map[string]config.DependencyConfig{
		"B": {DependsOn: []string{"A"}},
	})
	cfg := testConfig()

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	rehydrated, err := FromSession(context.Background(), h.Session(), cat, cfg)
	require.NoError(t, err)
	assert.Equal(t, h.IndicatorTasks(), rehydrated.IndicatorTasks())
}

func TestFromSessionRederivesScores(t *testing.T) {
	cat := testCatalog(t, []string{"A", "B"}, nil)
	cfg := testConfig()

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)
	session := h.Session()

	// A submitted document may carry any score value; rehydration must
	// derive it from the status instead.
	for _, task := range session.Tasks {
		task.Status = constants.TaskStatusFailed
		task.Score = 1.0
	}

	rehydrated, err := FromSession(context.Background(), session, cat, cfg)
	require.NoError(t, err)
	rehydrated.RecalculateScores()

	for name := range map[string]bool{"A": true, "B": true} {
		task, ok := rehydrated.TaskByName(name)
		require.True(t, ok)
		assert.Zero(t, task.Score, "failed tasks always score 0")
	}
	assert.Zero(t, session.ScoreAll)
	assert.Zero(t, session.ScoreApplicable)
}

func TestFromSessionRejectsUnknownIndicator(t *testing.T) {
	cat := testCatalog(t, []string{"A"}, nil)
	cfg := testConfig()

	h, err := New(context.Background(), Params{
		Subject: urlSubject(),
		Catalog: cat,
		Config:  cfg,
	})
	require.NoError(t, err)

	smaller := testCatalog(t, []string{"X"}, nil)
	_, err = FromSession(context.Background(), h.Session(), smaller, cfg)
	require.ErrorIs(t, err, fcerrors.ErrConstruction)
}
