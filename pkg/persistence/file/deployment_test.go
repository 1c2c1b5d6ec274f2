package file

import (
	"testing"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeploymentRepository_Append_AssignsIDAndTimestamp(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.DeploymentRepository()

	record := &models.DeploymentRecord{
		WorkflowID: "wf-1",
		VersionID:  "version-1",
		Action:     models.DeploymentActionDeploy,
		DeployedBy: "user-1",
	}

	err := repo.Append(t.Context(), record)
	require.NoError(t, err)

	assert.NotEmpty(t, record.ID)
	assert.False(t, record.DeployedAt.IsZero())
}

func TestDeploymentRepository_ListByWorkflow_NewestFirst(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.DeploymentRepository()

	actions := []models.DeploymentAction{
		models.DeploymentActionDeploy,
		models.DeploymentActionRollback,
		models.DeploymentActionDeactivate,
	}

	for i, action := range actions {
		err := repo.Append(t.Context(), &models.DeploymentRecord{
			WorkflowID: "wf-1",
			VersionID:  "version-1",
			Action:     action,
			DeployedAt: time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	records, err := repo.ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, models.DeploymentActionDeactivate, records[0].Action)
	assert.Equal(t, models.DeploymentActionRollback, records[1].Action)
	assert.Equal(t, models.DeploymentActionDeploy, records[2].Action)
}

func TestDeploymentRepository_ListByWorkflow_EmptyTrail(t *testing.T) {
	p := NewPersistence(t.TempDir())

	records, err := p.DeploymentRepository().ListByWorkflow(t.Context(), "wf-1")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDeploymentRepository_TrailsAreSeparatePerWorkflow(t *testing.T) {
	p := NewPersistence(t.TempDir())
	repo := p.DeploymentRepository()

	err := repo.Append(t.Context(), &models.DeploymentRecord{
		WorkflowID: "wf-1",
		VersionID:  "version-1",
		Action:     models.DeploymentActionDeploy,
	})
	require.NoError(t, err)

	records, err := repo.ListByWorkflow(t.Context(), "wf-2")
	require.NoError(t, err)
	assert.Empty(t, records)
}
