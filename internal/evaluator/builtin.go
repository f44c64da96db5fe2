package evaluator

import (
	"context"
	"regexp"
	"strings"

	"github.com/faircombine/faircombine/internal/constants"
	"github.com/faircombine/faircombine/internal/domain"
)

// doiPattern matches DOI identifiers such as 10.1234/abc-def.
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/[-._;()/:A-Za-z0-9]+$`)

// RegisterBuiltins registers the evaluation functions shipped with the
// service. The names here are what the assessment.automated_evaluators
// configuration maps indicators to.
func RegisterBuiltins(r *Registry) error {
	builtins := map[string]Func{
		"globally_unique_identifier": GloballyUniqueIdentifier,
		"metadata_harvestable":       MetadataHarvestable,
		"access_information":         AccessInformation,
	}
	for name, fn := range builtins {
		if err := r.Register(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// GloballyUniqueIdentifier checks that the resource carries a globally
// unique identifier: a DOI or a registry-scoped accession such as a
// DRKS trial id.
func GloballyUniqueIdentifier(_ context.Context, _ domain.Task, metadata map[string]any) (constants.TaskStatus, error) {
	identifier, ok := route(metadata, "resource", "resource_identifier")
	if !ok {
		return constants.TaskStatusFailed, nil
	}
	id, ok := identifier.(string)
	if !ok {
		return constants.TaskStatusFailed, nil
	}
	if doiPattern.MatchString(id) || strings.HasPrefix(id, "DRKS") {
		return constants.TaskStatusSuccess, nil
	}
	return constants.TaskStatusFailed, nil
}

// MetadataHarvestable checks that the metadata payload is a structured,
// indexable document. A payload with an identifier field qualifies.
func MetadataHarvestable(_ context.Context, _ domain.Task, metadata map[string]any) (constants.TaskStatus, error) {
	if len(metadata) == 0 {
		return constants.TaskStatusFailed, nil
	}
	if _, ok := route(metadata, "resource", "resource_identifier"); ok {
		return constants.TaskStatusSuccess, nil
	}
	return constants.TaskStatusWarnings, nil
}

// AccessInformation checks that the metadata declares a data sharing
// plan with access conditions.
func AccessInformation(_ context.Context, _ domain.Task, metadata map[string]any) (constants.TaskStatus, error) {
	plan, ok := route(metadata,
		"resource", "study_design", "study_data_sharing_plan",
		"study_data_sharing_plan_description")
	if !ok {
		return constants.TaskStatusFailed, nil
	}
	if s, isString := plan.(string); isString &&
		strings.HasPrefix(s, "Yes") {
		return constants.TaskStatusSuccess, nil
	}
	return constants.TaskStatusFailed, nil
}

// route follows a key path through nested maps, returning the value at
// the end of the path and whether the full path exists.
func route(payload map[string]any, keys ...string) (any, bool) {
	var current any = payload
	for _, key := range keys {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
