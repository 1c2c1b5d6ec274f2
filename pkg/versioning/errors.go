package versioning

import "errors"

var (
	// ErrInactiveWorkflow rejects a trigger against a published workflow
	// whose live status is not active.
	ErrInactiveWorkflow = errors.New("workflow is not active")

	// ErrValidation marks an operation rejected by structural validation.
	ErrValidation = errors.New("workflow validation failed")
)

// IsInactiveWorkflow checks if an error indicates a trigger against an
// inactive workflow.
func IsInactiveWorkflow(err error) bool {
	return errors.Is(err, ErrInactiveWorkflow)
}

// IsValidation checks if an error indicates a validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}
