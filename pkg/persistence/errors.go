// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found by the given identifier.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrVersionNotFound indicates a version was not found, or does not
	// belong to the workflow it was requested for.
	ErrVersionNotFound = errors.New("workflow version not found")

	// ErrVersionConflict indicates a version-number allocation race; the
	// caller should recompute and retry.
	ErrVersionConflict = errors.New("workflow version number conflict")

	// ErrVersionImmutable indicates an attempt to modify the content of an
	// existing version.
	ErrVersionImmutable = errors.New("workflow version is immutable")

	// ErrWorkflowAlreadyExists indicates a workflow with the same identifier already exists.
	ErrWorkflowAlreadyExists = errors.New("workflow already exists")
)

// VersionError wraps version-related errors with additional context.
type VersionError struct {
	Op         string // Operation being performed (e.g., "Create", "GetByID")
	WorkflowID string
	VersionID  string
	Err        error
}

func (e *VersionError) Error() string {
	if e.VersionID != "" {
		return fmt.Sprintf("%s operation failed for version %s of workflow %s: %v", e.Op, e.VersionID, e.WorkflowID, e.Err)
	}

	return fmt.Sprintf("%s operation failed for workflow %s: %v", e.Op, e.WorkflowID, e.Err)
}

func (e *VersionError) Unwrap() error {
	return e.Err
}

func (e *VersionError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewVersionError creates a new version error with context.
func NewVersionError(op, workflowID, versionID string, err error) *VersionError {
	return &VersionError{
		Op:         op,
		WorkflowID: workflowID,
		VersionID:  versionID,
		Err:        err,
	}
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsVersionNotFound checks if an error indicates a version was not found.
func IsVersionNotFound(err error) bool {
	return errors.Is(err, ErrVersionNotFound)
}

// IsVersionConflict checks if an error indicates a version-number race.
func IsVersionConflict(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
