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
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

// VersionRepository handles immutable version snapshots. Rows are insert-only;
// no update statement exists for content columns.
type VersionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(db *sql.DB, logger *slog.Logger) *VersionRepository {
	return &VersionRepository{db: db, logger: logger}
}

const versionColumns = `
	id
  , workflow_id
  , version_number
  , nodes
  , edges
  , viewport
  , config
  , changelog
  , created_by
  , created_at
`

// Create persists the version, allocating the next version number inside the
// INSERT. The unique index on (workflow_id, version_number) guarantees two
// concurrent publishers never share a number; the loser sees
// ErrVersionConflict and retries at the service layer.
func (r *VersionRepository) Create(ctx context.Context, version *models.WorkflowVersion) error {
	if version.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate version ID: %w", err)
		}

		version.ID = id.String()
	}

	if version.CreatedAt.IsZero() {
		version.CreatedAt = time.Now().UTC()
	}

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

	config, err := marshalJSON(version.Config)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO workflow_versions (
			id, workflow_id, version_number, nodes, edges, viewport, config,
			changelog, created_by, created_at
		)
		SELECT $1, $2,
			CASE WHEN $3 > 0 THEN $3
			     ELSE (SELECT COALESCE(MAX(version_number), 0) + 1 FROM workflow_versions WHERE workflow_id = $2)
			END,
			$4, $5, $6, $7, $8, $9, $10
		RETURNING version_number
	`

	err = r.db.QueryRowContext(ctx, query,
		version.ID, version.WorkflowID, version.VersionNumber,
		nodes, edges, viewport, config,
		version.Changelog, version.CreatedBy, version.CreatedAt,
	).Scan(&version.VersionNumber)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return persistence.NewVersionError("Create", version.WorkflowID, version.ID, persistence.ErrVersionConflict)
		}

		return fmt.Errorf("failed to insert workflow version: %w", err)
	}

	return nil
}

// GetByID returns a version by its identifier.
func (r *VersionRepository) GetByID(ctx context.Context, id string) (*models.WorkflowVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM workflow_versions WHERE id = $1`

	version, err := scanVersion(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewVersionError("GetByID", "", id, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	return version, nil
}

// GetByWorkflowAndID returns the version only when it belongs to the workflow.
func (r *VersionRepository) GetByWorkflowAndID(ctx context.Context, workflowID, versionID string) (*models.WorkflowVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM workflow_versions WHERE id = $1 AND workflow_id = $2`

	version, err := scanVersion(r.db.QueryRowContext(ctx, query, versionID, workflowID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewVersionError("GetByWorkflowAndID", workflowID, versionID, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to scan workflow version: %w", err)
	}

	return version, nil
}

// ListByWorkflow returns versions ordered by version number descending.
func (r *VersionRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	query := `SELECT ` + versionColumns + ` FROM workflow_versions WHERE workflow_id = $1 ORDER BY version_number DESC`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow versions: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	versions := make([]*models.WorkflowVersion, 0)

	for rows.Next() {
		version, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow version: %w", err)
		}

		versions = append(versions, version)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workflow versions: %w", err)
	}

	return versions, nil
}

// MaxVersionNumber returns the highest allocated number, zero when none exist.
func (r *VersionRepository) MaxVersionNumber(ctx context.Context, workflowID string) (int, error) {
	var maxNumber int

	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version_number), 0) FROM workflow_versions WHERE workflow_id = $1`,
		workflowID).Scan(&maxNumber)
	if err != nil {
		return 0, fmt.Errorf("failed to query max version number: %w", err)
	}

	return maxNumber, nil
}

func scanVersion(row rowScanner) (*models.WorkflowVersion, error) {
	var (
		version  models.WorkflowVersion
		nodes    []byte
		edges    []byte
		viewport []byte
		config   []byte
	)

	err := row.Scan(
		&version.ID, &version.WorkflowID, &version.VersionNumber,
		&nodes, &edges, &viewport, &config,
		&version.Changelog, &version.CreatedBy, &version.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := unmarshalJSON(nodes, &version.Nodes); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(edges, &version.Edges); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(viewport, &version.Viewport); err != nil {
		return nil, err
	}

	if err := unmarshalJSON(config, &version.Config); err != nil {
		return nil, err
	}

	return &version, nil
}
