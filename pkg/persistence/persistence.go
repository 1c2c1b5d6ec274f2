// Package persistence provides the data storage abstraction for workflows,
// versions and deployment records.
package persistence

import (
	"context"

	"github.com/flowrift/flowrift/pkg/models"
)

// Persistence aggregates the repositories backing the versioning core.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	VersionRepository() VersionRepository
	DeploymentRepository() DeploymentRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores the mutable draft rows.
type WorkflowRepository interface {
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	List(ctx context.Context) ([]*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	Delete(ctx context.Context, id string) error

	// UpdatePublishedVersion sets the live version pointer together with the
	// denormalized published snapshot in a single write.
	UpdatePublishedVersion(ctx context.Context, workflowID string, version *models.WorkflowVersion) error

	// UpdateLiveStatus transitions the workflow lifecycle state.
	UpdateLiveStatus(ctx context.Context, workflowID string, status models.LiveStatus) error

	// UpdateDraftContent overwrites the draft's nodes, edges and viewport
	// without touching publish state.
	UpdateDraftContent(ctx context.Context, workflowID string, nodes []*models.GraphNode, edges []*models.GraphEdge, viewport models.Viewport) error
}

// VersionRepository stores immutable graph snapshots. There is deliberately
// no update operation for content fields.
type VersionRepository interface {
	// Create persists the version and allocates its VersionNumber as one
	// atomic unit. Implementations must guarantee that two concurrent Create
	// calls for the same workflow never yield the same number; a lost race
	// is reported as ErrVersionConflict so the caller can retry.
	Create(ctx context.Context, version *models.WorkflowVersion) error

	GetByID(ctx context.Context, id string) (*models.WorkflowVersion, error)

	// GetByWorkflowAndID returns the version only when it belongs to the
	// given workflow, ErrVersionNotFound otherwise.
	GetByWorkflowAndID(ctx context.Context, workflowID, versionID string) (*models.WorkflowVersion, error)

	// ListByWorkflow returns versions ordered by version number descending.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error)

	MaxVersionNumber(ctx context.Context, workflowID string) (int, error)
}

// DeploymentRepository stores the append-only deployment audit trail.
type DeploymentRepository interface {
	Append(ctx context.Context, record *models.DeploymentRecord) error

	// ListByWorkflow returns records ordered by deployment time descending.
	ListByWorkflow(ctx context.Context, workflowID string) ([]*models.DeploymentRecord, error)
}
