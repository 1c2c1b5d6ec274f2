package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/google/uuid"
)

// WorkflowRepository handles workflow draft database operations.
type WorkflowRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(db *sql.DB, logger *slog.Logger) *WorkflowRepository {
	return &WorkflowRepository{db: db, logger: logger}
}

const workflowColumns = `
	id
  , name
  , description
  , nodes
  , edges
  , viewport
  , config
  , live_status
  , published_version_id
  , published_version_number
  , published_nodes
  , published_edges
  , published_viewport
  , owner
  , created_at
  , updated_at
`

// GetByID returns a workflow draft by its identifier.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND deleted_at IS NULL`

	row := r.db.QueryRowContext(ctx, query, id)

	workflow, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewVersionError("GetByID", id, "", persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow: %w", err)
	}

	return workflow, nil
}

// List returns all non-deleted workflow drafts.
func (r *WorkflowRepository) List(ctx context.Context) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE deleted_at IS NULL ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

// Save inserts or updates a workflow draft.
func (r *WorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	now := time.Now().UTC()

	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	if workflow.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate workflow ID: %w", err)
		}

		workflow.ID = id.String()
	}

	nodes, err := marshalJSON(workflow.Nodes)
	if err != nil {
		return err
	}

	edges, err := marshalJSON(workflow.Edges)
	if err != nil {
		return err
	}

	viewport, err := marshalJSON(workflow.Viewport)
	if err != nil {
		return err
	}

	config, err := marshalJSON(workflow.Config)
	if err != nil {
		return err
	}

	publishedNodes, err := marshalJSON(workflow.PublishedNodes)
	if err != nil {
		return err
	}

	publishedEdges, err := marshalJSON(workflow.PublishedEdges)
	if err != nil {
		return err
	}

	publishedViewport, err := marshalJSON(workflow.PublishedViewport)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflows (
			id, name, description, nodes, edges, viewport, config,
			live_status, published_version_id, published_version_number,
			published_nodes, published_edges, published_viewport,
			owner, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			viewport = EXCLUDED.viewport,
			config = EXCLUDED.config,
			live_status = EXCLUDED.live_status,
			published_version_id = EXCLUDED.published_version_id,
			published_version_number = EXCLUDED.published_version_number,
			published_nodes = EXCLUDED.published_nodes,
			published_edges = EXCLUDED.published_edges,
			published_viewport = EXCLUDED.published_viewport,
			owner = EXCLUDED.owner,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		workflow.ID, workflow.Name, workflow.Description, nodes, edges, viewport, config,
		string(workflow.LiveStatus), workflow.PublishedVersionID, workflow.PublishedVersionNumber,
		publishedNodes, publishedEdges, publishedViewport,
		workflow.Owner, workflow.CreatedAt, workflow.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}

	return nil
}

// Delete soft-deletes a workflow draft.
func (r *WorkflowRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return requireRowsAffected(result, "Delete", id)
}

// UpdatePublishedVersion sets the live version pointer and the denormalized
// published snapshot in one statement.
func (r *WorkflowRepository) UpdatePublishedVersion(ctx context.Context, workflowID string, version *models.WorkflowVersion) error {
	nodes, err := marshalJSON(version.Nodes)
	if err != nil {
		return err
	}

	edges, err := marshalJSON(version.Edges)
	if err != nil {
		return err
	}

	viewport, err := marshalJSON(version.Viewport)
	if err != nil {
		return err
	}

	query := `
		UPDATE workflows SET
			published_version_id = $2,
			published_version_number = $3,
			published_nodes = $4,
			published_edges = $5,
			published_viewport = $6,
			updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		workflowID, version.ID, version.VersionNumber, nodes, edges, viewport)
	if err != nil {
		return fmt.Errorf("failed to update published version: %w", err)
	}

	return requireRowsAffected(result, "UpdatePublishedVersion", workflowID)
}

// UpdateLiveStatus transitions the workflow lifecycle state.
func (r *WorkflowRepository) UpdateLiveStatus(ctx context.Context, workflowID string, status models.LiveStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET live_status = $2, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		workflowID, string(status))
	if err != nil {
		return fmt.Errorf("failed to update live status: %w", err)
	}

	return requireRowsAffected(result, "UpdateLiveStatus", workflowID)
}

// UpdateDraftContent overwrites the draft graph without touching publish state.
func (r *WorkflowRepository) UpdateDraftContent(ctx context.Context, workflowID string, graphNodes []*models.GraphNode, graphEdges []*models.GraphEdge, graphViewport models.Viewport) error {
	nodes, err := marshalJSON(graphNodes)
	if err != nil {
		return err
	}

	edges, err := marshalJSON(graphEdges)
	if err != nil {
		return err
	}

	viewport, err := marshalJSON(graphViewport)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE workflows SET nodes = $2, edges = $3, viewport = $4, updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`,
		workflowID, nodes, edges, viewport)
	if err != nil {
		return fmt.Errorf("failed to update draft content: %w", err)
	}

	return requireRowsAffected(result, "UpdateDraftContent", workflowID)
}

// requireRowsAffected maps a zero-row update to ErrWorkflowNotFound.
func requireRowsAffected(result sql.Result, op, workflowID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return persistence.NewVersionError(op, workflowID, "", persistence.ErrWorkflowNotFound)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var (
		workflow          models.Workflow
		liveStatus        string
		nodes             []byte
		edges             []byte
		viewport          []byte
		config            []byte
		publishedNodes    []byte
		publishedEdges    []byte
		publishedViewport []byte
		publishedID       sql.NullString
	)

	err := row.Scan(
		&workflow.ID, &workflow.Name, &workflow.Description,
		&nodes, &edges, &viewport, &config,
		&liveStatus, &publishedID, &workflow.PublishedVersionNumber,
		&publishedNodes, &publishedEdges, &publishedViewport,
		&workflow.Owner, &workflow.CreatedAt, &workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.LiveStatus = models.LiveStatus(liveStatus)

	if publishedID.Valid {
		workflow.PublishedVersionID = &publishedID.String
	}

	if err := unmarshalJSON(nodes, &workflow.Nodes); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(edges, &workflow.Edges); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(viewport, &workflow.Viewport); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(config, &workflow.Config); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(publishedNodes, &workflow.PublishedNodes); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(publishedEdges, &workflow.PublishedEdges); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(publishedViewport, &workflow.PublishedViewport); err != nil {
		return nil, err
	}

	return &workflow, nil
}
