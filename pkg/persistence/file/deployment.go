package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"sync"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/google/uuid"
)

// DeploymentRepository stores the append-only deployment trail as one JSON
// file per workflow, newest record first.
type DeploymentRepository struct {
	root string
	mu   *sync.Mutex
}

// NewDeploymentRepository creates a new deployment repository.
func NewDeploymentRepository(root string, mu *sync.Mutex) *DeploymentRepository {
	return &DeploymentRepository{root: root, mu: mu}
}

func (dr *DeploymentRepository) trailPath(workflowID string) string {
	return path.Join(dr.root, "deployments", workflowID+".json")
}

// Append adds a record to the workflow's deployment trail.
func (dr *DeploymentRepository) Append(_ context.Context, record *models.DeploymentRecord) error {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	records, err := dr.readTrail(record.WorkflowID)
	if err != nil {
		return err
	}

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

	records = append([]*models.DeploymentRecord{record}, records...)

	dir := path.Join(dr.root, "deployments")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create deployments directory: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode deployment trail: %w", err)
	}

	if err := os.WriteFile(dr.trailPath(record.WorkflowID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write deployment trail: %w", err)
	}

	return nil
}

// ListByWorkflow returns records ordered by deployment time descending.
func (dr *DeploymentRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.DeploymentRecord, error) {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	return dr.readTrail(workflowID)
}

// readTrail loads the trail file, returning an empty slice when none exists.
// Callers must hold the lock.
func (dr *DeploymentRepository) readTrail(workflowID string) ([]*models.DeploymentRecord, error) {
	data, err := os.ReadFile(dr.trailPath(workflowID))
	if err != nil {
		if os.IsNotExist(err) {
			return make([]*models.DeploymentRecord, 0), nil
		}

		return nil, fmt.Errorf("failed to read deployment trail: %w", err)
	}

	var records []*models.DeploymentRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode deployment trail: %w", err)
	}

	return records, nil
}
