// Package web provides HTTP request and response types for the versioning API.
package web

// PublishRequest is the body for publishing the current draft. Activate
// defaults to true when omitted.
type PublishRequest struct {
	UserID    string `json:"user_id"   validate:"required"`
	Changelog string `json:"changelog"`
	Activate  *bool  `json:"activate,omitempty"`
}

// RollbackRequest is the body for rolling triggered execution back to an
// existing version.
type RollbackRequest struct {
	VersionID string `json:"version_id" validate:"required"`
	UserID    string `json:"user_id"    validate:"required"`
	Reason    string `json:"reason"`
}

// RestoreDraftRequest is the body for overwriting the draft with a version's
// content.
type RestoreDraftRequest struct {
	VersionID string `json:"version_id" validate:"required"`
	UserID    string `json:"user_id"    validate:"required"`
}

// UpdateStatusRequest is the body for live-status transitions.
type UpdateStatusRequest struct {
	Status string `json:"status"  validate:"required,oneof=draft active inactive archived"`
	UserID string `json:"user_id" validate:"required"`
}

// BreakerResetRequest is the body for the administrative circuit reset.
type BreakerResetRequest struct {
	Provider string `json:"provider" validate:"required"`
	Model    string `json:"model"`
}
