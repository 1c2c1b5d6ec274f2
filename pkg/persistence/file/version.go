package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"sync"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/google/uuid"
)

// VersionRepository handles immutable version snapshots on disk. Versions are
// stored per workflow under versions/<workflow_id>/<version_id>.json and are
// never rewritten after creation.
type VersionRepository struct {
	root string
	mu   *sync.Mutex
}

// NewVersionRepository creates a new version repository.
func NewVersionRepository(root string, mu *sync.Mutex) *VersionRepository {
	return &VersionRepository{root: root, mu: mu}
}

func (vr *VersionRepository) versionDir(workflowID string) string {
	return path.Join(vr.root, "versions", workflowID)
}

// Create persists the version, allocating its number atomically under the
// store lock. A caller-supplied number that is already taken reports
// ErrVersionConflict.
func (vr *VersionRepository) Create(_ context.Context, version *models.WorkflowVersion) error {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	existing, err := vr.listByWorkflow(version.WorkflowID)
	if err != nil {
		return err
	}

	maxNumber := 0

	for _, v := range existing {
		if v.VersionNumber > maxNumber {
			maxNumber = v.VersionNumber
		}

		if version.VersionNumber != 0 && v.VersionNumber == version.VersionNumber {
			return persistence.NewVersionError("Create", version.WorkflowID, version.ID, persistence.ErrVersionConflict)
		}
	}

	if version.VersionNumber == 0 {
		version.VersionNumber = maxNumber + 1
	}

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

	dir := vr.versionDir(version.WorkflowID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create versions directory: %w", err)
	}

	versionPath := path.Join(dir, version.ID+".json")
	if _, err := os.Stat(versionPath); err == nil {
		return persistence.NewVersionError("Create", version.WorkflowID, version.ID, persistence.ErrVersionImmutable)
	}

	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version %s: %w", version.ID, err)
	}

	if err := os.WriteFile(versionPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write version file: %w", err)
	}

	return nil
}

// GetByID scans all workflows for the given version identifier.
func (vr *VersionRepository) GetByID(_ context.Context, id string) (*models.WorkflowVersion, error) {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	root := path.Join(vr.root, "versions")

	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewVersionError("GetByID", "", id, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to list version directories: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		version, err := vr.readVersion(entry.Name(), id)
		if err == nil {
			return version, nil
		}

		if !persistence.IsVersionNotFound(err) {
			return nil, err
		}
	}

	return nil, persistence.NewVersionError("GetByID", "", id, persistence.ErrVersionNotFound)
}

// GetByWorkflowAndID returns the version only when it belongs to the workflow.
func (vr *VersionRepository) GetByWorkflowAndID(_ context.Context, workflowID, versionID string) (*models.WorkflowVersion, error) {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	return vr.readVersion(workflowID, versionID)
}

// ListByWorkflow returns versions ordered by version number descending.
func (vr *VersionRepository) ListByWorkflow(_ context.Context, workflowID string) ([]*models.WorkflowVersion, error) {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	versions, err := vr.listByWorkflow(workflowID)
	if err != nil {
		return nil, err
	}

	sort.Slice(versions, func(i, j int) bool {
		return versions[i].VersionNumber > versions[j].VersionNumber
	})

	return versions, nil
}

// MaxVersionNumber returns the highest allocated number, zero when none exist.
func (vr *VersionRepository) MaxVersionNumber(_ context.Context, workflowID string) (int, error) {
	vr.mu.Lock()
	defer vr.mu.Unlock()

	versions, err := vr.listByWorkflow(workflowID)
	if err != nil {
		return 0, err
	}

	maxNumber := 0

	for _, v := range versions {
		if v.VersionNumber > maxNumber {
			maxNumber = v.VersionNumber
		}
	}

	return maxNumber, nil
}

// readVersion loads one version file. Callers must hold the lock.
func (vr *VersionRepository) readVersion(workflowID, versionID string) (*models.WorkflowVersion, error) {
	data, err := os.ReadFile(path.Join(vr.versionDir(workflowID), versionID+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, persistence.NewVersionError("GetByWorkflowAndID", workflowID, versionID, persistence.ErrVersionNotFound)
		}

		return nil, fmt.Errorf("failed to read version file: %w", err)
	}

	var version models.WorkflowVersion
	if err := json.Unmarshal(data, &version); err != nil {
		return nil, fmt.Errorf("failed to decode version %s: %w", versionID, err)
	}

	return &version, nil
}

// listByWorkflow loads all versions for a workflow. Callers must hold the lock.
func (vr *VersionRepository) listByWorkflow(workflowID string) ([]*models.WorkflowVersion, error) {
	dir := vr.versionDir(workflowID)

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list version files: %w", err)
	}

	versions := make([]*models.WorkflowVersion, 0, len(jsonFiles))

	for _, file := range jsonFiles {
		version, err := vr.readVersion(workflowID, file[:len(file)-5])
		if err != nil {
			return nil, err
		}

		versions = append(versions, version)
	}

	return versions, nil
}
