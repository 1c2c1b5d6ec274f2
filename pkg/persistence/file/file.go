// Package file provides file-based persistence for workflows, versions and
// deployment records. It is used by tests and local development; production
// deployments use the postgresql package.
package file

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/flowrift/flowrift/pkg/persistence"
)

// Persistence implements the persistence.Persistence interface using the file system.
type Persistence struct {
	root           string
	workflowRepo   *WorkflowRepository
	versionRepo    *VersionRepository
	deploymentRepo *DeploymentRepository
}

// NewPersistence creates a new instance of Persistence with the specified root directory.
func NewPersistence(root string) persistence.Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	// One lock shared by all repositories: version-number allocation must be
	// serialized against workflow snapshot updates.
	mu := &sync.Mutex{}

	return &Persistence{
		root:           cleanRoot,
		workflowRepo:   NewWorkflowRepository(cleanRoot, mu),
		versionRepo:    NewVersionRepository(cleanRoot, mu),
		deploymentRepo: NewDeploymentRepository(cleanRoot, mu),
	}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) WorkflowRepository() persistence.WorkflowRepository {
	return fp.workflowRepo
}

func (fp *Persistence) VersionRepository() persistence.VersionRepository {
	return fp.versionRepo
}

func (fp *Persistence) DeploymentRepository() persistence.DeploymentRepository {
	return fp.deploymentRepo
}
