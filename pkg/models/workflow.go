package models

import "time"

// LiveStatus represents the lifecycle state of a workflow.
type LiveStatus string

const (
	LiveStatusDraft    LiveStatus = "draft"    // Never published, editable only
	LiveStatusActive   LiveStatus = "active"   // Published version runs for triggers
	LiveStatusInactive LiveStatus = "inactive" // Published but triggers are rejected
	LiveStatusArchived LiveStatus = "archived" // Terminal, triggers are rejected
)

// IsValid reports whether the status is one of the known lifecycle states.
func (s LiveStatus) IsValid() bool {
	switch s {
	case LiveStatusDraft, LiveStatusActive, LiveStatusInactive, LiveStatusArchived:
		return true
	default:
		return false
	}
}

// Workflow is the mutable draft of a node graph. The draft is the single
// live-editing surface; it carries no version number of its own. The
// Published* fields are a denormalized copy of the live version's content,
// kept as a fallback in case the referenced version row is lost. The
// workflow_versions table remains the source of truth.
type Workflow struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Nodes       []*GraphNode   `json:"nodes"`
	Edges       []*GraphEdge   `json:"edges"`
	Viewport    Viewport       `json:"viewport"`
	Config      map[string]any `json:"config"`
	LiveStatus  LiveStatus     `json:"live_status" validate:"required"`

	PublishedVersionID     *string      `json:"published_version_id,omitempty"`
	PublishedVersionNumber int          `json:"published_version_number"`
	PublishedNodes         []*GraphNode `json:"published_nodes,omitempty"`
	PublishedEdges         []*GraphEdge `json:"published_edges,omitempty"`
	PublishedViewport      Viewport     `json:"published_viewport"`

	Owner     string     `json:"owner"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// IsPublished reports whether the workflow has a live published version.
func (w *Workflow) IsPublished() bool {
	return w.PublishedVersionID != nil && *w.PublishedVersionID != ""
}
