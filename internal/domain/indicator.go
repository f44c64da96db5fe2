package domain

import "github.com/faircombine/faircombine/internal/constants"

// Indicator is a catalogued FAIR assessment check definition. The
// catalogue is loaded once at startup and indicators are never mutated
// afterwards; every session instantiates one task per indicator.
type Indicator struct {
	// Name is the unique indicator key, e.g. "CA-RDA-F1-01MA".
	Name string `json:"name"`

	// Group is the FAIR principle group (F, A, I, R).
	Group string `json:"group"`

	// SubGroup is the sub-principle, e.g. "F1".
	SubGroup string `json:"sub_group"`

	// Priority is the importance weighting applied to tasks created
	// from this indicator.
	Priority constants.TaskPriority `json:"priority"`

	// Question is the user-facing assessment question.
	Question string `json:"question"`

	// Short is a one-line description of the check.
	Short string `json:"short"`

	// Description is the full documentation of the check.
	Description string `json:"description"`

	// Dependency optionally declares the indicators whose outcomes gate
	// tasks created from this one.
	Dependency *DependencyDeclaration `json:"dependency,omitempty"`
}

// DependencyDeclaration describes how an indicator depends on others.
// The combinator says how the prerequisite outcomes are combined; see
// constants.CombinatorOR and constants.CombinatorAND.
type DependencyDeclaration struct {
	// Combinator is "or" (default) or "and".
	Combinator constants.Combinator `json:"combinator"`

	// DependsOn lists the prerequisite indicator names, in declaration
	// order, without duplicates.
	DependsOn []string `json:"depends_on"`
}
