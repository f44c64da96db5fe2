// Package evaluator provides the automated-evaluation boundary: the
// metadata retriever that turns a subject into an opaque payload, a
// registry of evaluation functions keyed by name, and the dispatcher
// that runs them in the background and reports outcomes back through
// the privileged update path.
//
// The engine never interprets the metadata payload; it is produced
// here and handed to evaluation functions unmodified.
package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Func evaluates one task against the subject's metadata payload and
// produces a single outcome. Implementations must be side-effect free;
// reporting the outcome is the dispatcher's job.
type Func func(ctx context.Context, task domain.Task, metadata map[string]any) (constants.TaskStatus, error)

// Retriever turns a subject into the opaque metadata payload handed to
// evaluation functions. Domain-format parsing (SBML, CellML, RDF, OMEX)
// lives behind this boundary.
type Retriever interface {
	Retrieve(ctx context.Context, subject domain.Subject) (map[string]any, error)
}

// SubjectRetriever is the default Retriever. Manual subjects become a
// payload of their self-assessment answers; file subjects are read as a
// JSON document; URL subjects carry only their reference, since remote
// harvesting belongs to an external parser service.
type SubjectRetriever struct{}

// Retrieve implements Retriever.
func (SubjectRetriever) Retrieve(_ context.Context, subject domain.Subject) (map[string]any, error) {
	switch subject.AssessmentType {
	case constants.SubjectTypeManual:
		payload := make(map[string]any, len(subject.Answers))
		for k, v := range subject.Answers {
			payload[k] = v
		}
		return payload, nil

	case constants.SubjectTypeFile:
		data, err := os.ReadFile(subject.Path) //#nosec G304 -- path is the user-submitted subject
		if err != nil {
			return nil, fmt.Errorf("%w: cannot read subject %s: %s",
				fcerrors.ErrInvalidSubject, subject.Path, err)
		}
		var payload map[string]any
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("%w: subject %s is not a JSON document: %s",
				fcerrors.ErrInvalidSubject, subject.Path, err)
		}
		return payload, nil

	case constants.SubjectTypeURL:
		return map[string]any{"url": subject.Path}, nil

	default:
		return nil, fmt.Errorf("%w: %q", fcerrors.ErrInvalidSubject, subject.AssessmentType)
	}
}
