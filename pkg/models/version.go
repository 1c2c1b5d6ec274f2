package models

import "time"

// WorkflowVersion is an immutable snapshot of a workflow graph. Version
// numbers are strictly increasing per workflow, starting at 1, and are never
// reused. Content fields are frozen at creation; the persistence layer
// exposes no update operation for them.
type WorkflowVersion struct {
	ID            string         `json:"id"`
	WorkflowID    string         `json:"workflow_id"    validate:"required"`
	VersionNumber int            `json:"version_number" validate:"required,gt=0"`
	Nodes         []*GraphNode   `json:"nodes"`
	Edges         []*GraphEdge   `json:"edges"`
	Viewport      Viewport       `json:"viewport"`
	Config        map[string]any `json:"config"`
	Changelog     string         `json:"changelog"`
	CreatedBy     string         `json:"created_by"`
	CreatedAt     time.Time      `json:"created_at"`
}

// VersionInfo is a version-history row annotated with live status.
type VersionInfo struct {
	ID            string    `json:"id"`
	VersionNumber int       `json:"version_number"`
	Changelog     string    `json:"changelog"`
	CreatedBy     string    `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
	NodeCount     int       `json:"node_count"`
	IsLive        bool      `json:"is_live"`
}

// ExecutableGraph is the resolved graph for an execution request. When
// IsDraft is true the content comes from the mutable draft and VersionNumber
// is zero.
type ExecutableGraph struct {
	WorkflowID    string         `json:"workflow_id"`
	Nodes         []*GraphNode   `json:"nodes"`
	Edges         []*GraphEdge   `json:"edges"`
	Viewport      Viewport       `json:"viewport"`
	Config        map[string]any `json:"config"`
	VersionNumber int            `json:"version_number,omitempty"`
	IsDraft       bool           `json:"is_draft"`
}

// ExecutionMode selects which graph an execution request resolves to.
type ExecutionMode string

const (
	// ExecutionModeTest always resolves the mutable draft.
	ExecutionModeTest ExecutionMode = "test"
	// ExecutionModeTrigger resolves the live published version.
	ExecutionModeTrigger ExecutionMode = "trigger"
)
