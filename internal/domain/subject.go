package domain

import (
	"fmt"

	"github.com/faircombine/faircombine/internal/constants"
	fcerrors "github.com/faircombine/faircombine/internal/errors"
)

// Subject is the user-supplied description of what is being assessed:
// a path or URL to a resource, or a set of manual self-assessment
// answers. The core never parses the resource itself; domain-format
// parsing happens behind the metadata retriever boundary.
type Subject struct {
	// AssessmentType says how the subject was submitted.
	AssessmentType constants.SubjectType `json:"assessment_type"`

	// Path is the resource path or URL for non-manual subjects.
	Path string `json:"path,omitempty"`

	// HasArchive reports whether the subject includes a model archive.
	// Archive-only indicators auto-fail when it is false.
	HasArchive bool `json:"has_archive"`

	// SourceRepository optionally names a known external repository the
	// subject originates from. Known repositories carry pre-agreed
	// forced outcomes for some indicators.
	SourceRepository string `json:"source_repository,omitempty"`

	// Answers holds the self-assessment answers for manual subjects,
	// keyed by indicator name.
	Answers map[string]string `json:"answers,omitempty"`
}

// Validate checks the subject descriptor for internal consistency.
func (s Subject) Validate() error {
	if !s.AssessmentType.Valid() {
		return fmt.Errorf("%w: unknown assessment type %q",
			fcerrors.ErrInvalidSubject, s.AssessmentType)
	}
	if !s.AssessmentType.Manual() && s.Path == "" {
		return fmt.Errorf("%w: %s subject requires a path",
			fcerrors.ErrInvalidSubject, s.AssessmentType)
	}
	return nil
}

// Equal reports whether two subjects describe the same assessment
// input. Used to decide whether a resumed session matches the stored
// one.
func (s Subject) Equal(other Subject) bool {
	if s.AssessmentType != other.AssessmentType ||
		s.Path != other.Path ||
		s.HasArchive != other.HasArchive ||
		s.SourceRepository != other.SourceRepository {
		return false
	}
	if len(s.Answers) != len(other.Answers) {
		return false
	}
	for k, v := range s.Answers {
		if other.Answers[k] != v {
			return false
		}
	}
	return true
}
