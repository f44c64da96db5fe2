package evaluator

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

func TestSubjectRetrieverManual(t *testing.T) {
	payload, err := SubjectRetriever{}.Retrieve(context.Background(), domain.Subject{
		AssessmentType: constants.SubjectTypeManual,
		Answers:        map[string]string{"A": "success"},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"A": "success"}, payload)
}

func TestSubjectRetrieverFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subject.json")
	require.NoError(t, os.WriteFile(path,
		[]byte(`{"resource": {"resource_identifier": "10.1234/abc"}}`), 0o600))

	payload, err := SubjectRetriever{}.Retrieve(context.Background(), domain.Subject{
		AssessmentType: constants.SubjectTypeFile,
		Path:           path,
	})
	require.NoError(t, err)
	resource, ok := payload["resource"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "10.1234/abc", resource["resource_identifier"])
}

func TestSubjectRetrieverFileErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := SubjectRetriever{}.Retrieve(context.Background(), domain.Subject{
			AssessmentType: constants.SubjectTypeFile,
			Path:           filepath.Join(t.TempDir(), "absent.json"),
		})
		require.ErrorIs(t, err, fcerrors.ErrInvalidSubject)
	})

	t.Run("not json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "subject.xml")
		require.NoError(t, os.WriteFile(path, []byte("<model/>"), 0o600))

		_, err := SubjectRetriever{}.Retrieve(context.Background(), domain.Subject{
			AssessmentType: constants.SubjectTypeFile,
			Path:           path,
		})
		require.ErrorIs(t, err, fcerrors.ErrInvalidSubject)
	})
}

func TestSubjectRetrieverURL(t *testing.T) {
	payload, err := SubjectRetriever{}.Retrieve(context.Background(), domain.Subject{
		AssessmentType: constants.SubjectTypeURL,
		Path:           "https://example.org/model",
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"url": "https://example.org/model"}, payload)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	fn := func(context.Context, domain.Task, map[string]any) (constants.TaskStatus, error) {
		return constants.TaskStatusSuccess, nil
	}

	require.NoError(t, r.Register("check", fn))
	assert.Equal(t, []string{"check"}, r.Names())

	t.Run("duplicate registration", func(t *testing.T) {
		err := r.Register("check", fn)
		require.ErrorIs(t, err, fcerrors.ErrConfiguration)
	})

	t.Run("empty name", func(t *testing.T) {
		err := r.Register("", fn)
		require.ErrorIs(t, err, fcerrors.ErrEmptyValue)
	})

	t.Run("lookup", func(t *testing.T) {
		got, err := r.Get("check")
		require.NoError(t, err)
		status, err := got(context.Background(), domain.Task{}, nil)
		require.NoError(t, err)
		assert.Equal(t, constants.TaskStatusSuccess, status)
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := r.Get("nope")
		require.ErrorIs(t, err, fcerrors.ErrUnknownEvaluator)
	})
}
