package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sync"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
)

// WorkflowRepository handles workflow draft file operations.
type WorkflowRepository struct {
	root string
	mu   *sync.Mutex
}

// NewWorkflowRepository creates a new workflow repository.
func NewWorkflowRepository(root string, mu *sync.Mutex) *WorkflowRepository {
	return &WorkflowRepository{root: root, mu: mu}
}

func (wr *WorkflowRepository) workflowPath(id string) string {
	return path.Join(wr.root, "workflows", id+".json")
}

// GetByID loads a workflow draft by its identifier.
func (wr *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	return wr.readWorkflow(id)
}

// List returns all non-deleted workflow drafts.
func (wr *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	root := os.DirFS(path.Join(wr.root, "workflows"))

	jsonFiles, err := fs.Glob(root, "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list workflow files: %w", err)
	}

	workflows := make([]*models.Workflow, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		workflow, err := wr.readWorkflow(file[:len(file)-5])
		if err != nil {
			if persistence.IsWorkflowNotFound(err) {
				continue
			}

			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// Save writes a workflow draft to disk.
func (wr *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	now := time.Now().UTC()
	if workflow.CreatedAt.IsZero() {
		workflow.CreatedAt = now
	}

	workflow.UpdatedAt = now

	return wr.writeWorkflow(workflow)
}

// Delete soft-deletes a workflow draft.
func (wr *WorkflowRepository) Delete(_ context.Context, id string) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.readWorkflow(id)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	workflow.DeletedAt = &now
	workflow.UpdatedAt = now

	return wr.writeWorkflow(workflow)
}

// UpdatePublishedVersion sets the live version pointer and the denormalized
// published snapshot in a single write.
func (wr *WorkflowRepository) UpdatePublishedVersion(_ context.Context, workflowID string, version *models.WorkflowVersion) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.readWorkflow(workflowID)
	if err != nil {
		return err
	}

	versionID := version.ID
	workflow.PublishedVersionID = &versionID
	workflow.PublishedVersionNumber = version.VersionNumber
	workflow.PublishedNodes = models.CopyNodes(version.Nodes)
	workflow.PublishedEdges = models.CopyEdges(version.Edges)
	workflow.PublishedViewport = version.Viewport
	workflow.UpdatedAt = time.Now().UTC()

	return wr.writeWorkflow(workflow)
}

// UpdateLiveStatus transitions the workflow lifecycle state.
func (wr *WorkflowRepository) UpdateLiveStatus(_ context.Context, workflowID string, status models.LiveStatus) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.readWorkflow(workflowID)
	if err != nil {
		return err
	}

	workflow.LiveStatus = status
	workflow.UpdatedAt = time.Now().UTC()

	return wr.writeWorkflow(workflow)
}

// UpdateDraftContent overwrites the draft graph without touching publish state.
func (wr *WorkflowRepository) UpdateDraftContent(_ context.Context, workflowID string, nodes []*models.GraphNode, edges []*models.GraphEdge, viewport models.Viewport) error {
	wr.mu.Lock()
	defer wr.mu.Unlock()

	workflow, err := wr.readWorkflow(workflowID)
	if err != nil {
		return err
	}

	workflow.Nodes = models.CopyNodes(nodes)
	workflow.Edges = models.CopyEdges(edges)
	workflow.Viewport = viewport
	workflow.UpdatedAt = time.Now().UTC()

	return wr.writeWorkflow(workflow)
}

// readWorkflow loads and decodes a workflow file. Callers must hold the lock.
func (wr *WorkflowRepository) readWorkflow(id string) (*models.Workflow, error) {
	data, err := os.ReadFile(wr.workflowPath(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, persistence.NewVersionError("GetByID", id, "", persistence.ErrWorkflowNotFound)
		}

		return nil, fmt.Errorf("failed to read workflow file: %w", err)
	}

	var workflow models.Workflow
	if err := json.Unmarshal(data, &workflow); err != nil {
		return nil, fmt.Errorf("failed to decode workflow %s: %w", id, err)
	}

	if workflow.DeletedAt != nil {
		return nil, persistence.NewVersionError("GetByID", id, "", persistence.ErrWorkflowNotFound)
	}

	return &workflow, nil
}

// writeWorkflow encodes and stores a workflow file. Callers must hold the lock.
func (wr *WorkflowRepository) writeWorkflow(workflow *models.Workflow) error {
	dir := path.Join(wr.root, "workflows")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create workflows directory: %w", err)
	}

	data, err := json.MarshalIndent(workflow, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode workflow %s: %w", workflow.ID, err)
	}

	if err := os.WriteFile(wr.workflowPath(workflow.ID), data, 0o644); err != nil {
		return fmt.Errorf("failed to write workflow file: %w", err)
	}

	return nil
}
