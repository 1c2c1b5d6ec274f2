package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/google/uuid"
)

// DeploymentRepository stores the append-only deployment audit trail. There
// are no update or delete statements in this repository.
type DeploymentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(db *sql.DB, logger *slog.Logger) *DeploymentRepository {
	return &DeploymentRepository{db: db, logger: logger}
}

// Append adds a record to the deployment trail.
func (r *DeploymentRepository) Append(ctx context.Context, record *models.DeploymentRecord) error {
	if record.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate deployment ID: %w", err)
		}

		record.ID = id.String()
	}

	if record.DeployedAt.IsZero() {
		record.DeployedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO deployment_records (
			id, workflow_id, version_id, action, previous_version_id,
			deployed_by, reason, deployed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.WorkflowID, record.VersionID, string(record.Action),
		record.PreviousVersionID, record.DeployedBy, record.Reason, record.DeployedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert deployment record: %w", err)
	}

	return nil
}

// ListByWorkflow returns records ordered by deployment time descending.
func (r *DeploymentRepository) ListByWorkflow(ctx context.Context, workflowID string) ([]*models.DeploymentRecord, error) {
	query := `
		SELECT
			id
		  , workflow_id
		  , version_id
		  , action
		  , previous_version_id
		  , deployed_by
		  , reason
		  , deployed_at
		FROM deployment_records
		WHERE workflow_id = $1
		ORDER BY deployed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deployment records: %w", err)
	}

	defer func() {
		if err := rows.Close(); err != nil {
			r.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]*models.DeploymentRecord, 0)

	for rows.Next() {
		var (
			record     models.DeploymentRecord
			action     string
			previousID sql.NullString
		)

		err := rows.Scan(
			&record.ID, &record.WorkflowID, &record.VersionID, &action,
			&previousID, &record.DeployedBy, &record.Reason, &record.DeployedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan deployment record: %w", err)
		}

		record.Action = models.DeploymentAction(action)

		if previousID.Valid {
			record.PreviousVersionID = &previousID.String
		}

		records = append(records, &record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating deployment records: %w", err)
	}

	return records, nil
}
