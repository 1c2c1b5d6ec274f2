package versioning

import (
	"context"
	"log/slog"
	"os"
	"path"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/flowrift/flowrift/pkg/persistence/file"
)

func newTestService(t *testing.T) (*Service, persistence.Persistence, string) {
	t.Helper()

	root := t.TempDir()
	store := file.NewPersistence(root)
	service := NewService(store, slog.New(slog.DiscardHandler), nil)

	return service, store, root
}

func saveTestWorkflow(t *testing.T, store persistence.Persistence, nodes []*models.GraphNode, edges []*models.GraphEdge) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		ID:         uuid.New().String(),
		Name:       "Test Workflow",
		Nodes:      nodes,
		Edges:      edges,
		LiveStatus: models.LiveStatusDraft,
		Owner:      "user-1",
	}

	require.NoError(t, store.WorkflowRepository().Save(context.Background(), workflow))

	return workflow
}

func node(id, nodeType string) *models.GraphNode {
	return &models.GraphNode{
		ID:      id,
		Type:    nodeType,
		Name:    id,
		Config:  map[string]any{"provider": "openai"},
		Enabled: true,
	}
}

func TestPublishCreatesVersionAndActivates(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	version, err := service.Publish(ctx, workflow.ID, "user-1", "initial", true)
	require.NoError(t, err)

	assert.Equal(t, 1, version.VersionNumber)
	assert.Equal(t, workflow.ID, version.WorkflowID)
	assert.Equal(t, "initial", version.Changelog)
	assert.Equal(t, "user-1", version.CreatedBy)
	assert.Len(t, version.Nodes, 1)

	updated, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedVersionID)
	assert.Equal(t, version.ID, *updated.PublishedVersionID)
	assert.Equal(t, 1, updated.PublishedVersionNumber)
	assert.Equal(t, models.LiveStatusActive, updated.LiveStatus)
	assert.Len(t, updated.PublishedNodes, 1)

	records, err := store.DeploymentRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, models.DeploymentActionDeploy, records[0].Action)
	assert.Equal(t, version.ID, records[0].VersionID)
	assert.Nil(t, records[0].PreviousVersionID)
}

func TestPublishWithoutActivateKeepsStatus(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", false)
	require.NoError(t, err)

	updated, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusDraft, updated.LiveStatus)
	assert.True(t, updated.IsPublished())
}

func TestPublishVersionSnapshotIsIndependent(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	draftNode := node("a", "ai_agent")
	workflow := saveTestWorkflow(t, store, []*models.GraphNode{draftNode}, nil)

	version, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	// Mutating the draft node must not leak into the frozen snapshot.
	draftNode.Config["provider"] = "anthropic"

	assert.Equal(t, "openai", version.Nodes[0].Config["provider"])
}

func TestPublishIncrementsVersionNumbers(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	first, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	second, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	assert.Equal(t, 1, first.VersionNumber)
	assert.Equal(t, 2, second.VersionNumber)

	records, err := store.DeploymentRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first; the second deploy links back to the first version.
	require.NotNil(t, records[0].PreviousVersionID)
	assert.Equal(t, first.ID, *records[0].PreviousVersionID)
}

func TestPublishValidationFailures(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	empty := saveTestWorkflow(t, store, nil, nil)

	_, err := service.Publish(ctx, empty.ID, "user-1", "", true)
	assert.True(t, IsValidation(err))

	danglingEdge := saveTestWorkflow(t, store,
		[]*models.GraphNode{node("a", "ai_agent")},
		[]*models.GraphEdge{{ID: "e1", Source: "a", Target: "ghost"}})

	_, err = service.Publish(ctx, danglingEdge.ID, "user-1", "", true)
	assert.True(t, IsValidation(err))
}

func TestPublishRejectsArchivedWorkflow(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	require.NoError(t, service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusArchived, "user-1"))

	_, err = service.Publish(ctx, workflow.ID, "user-1", "", true)
	assert.True(t, IsValidation(err))

	// The workflow stays archived and no second version was frozen.
	updated, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Equal(t, models.LiveStatusArchived, updated.LiveStatus)

	versions, err := store.VersionRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func TestPublishWorkflowNotFound(t *testing.T) {
	service, _, _ := newTestService(t)

	_, err := service.Publish(context.Background(), "missing", "user-1", "", true)
	assert.True(t, persistence.IsWorkflowNotFound(err))
}

func TestRestoreDraftOverwritesDraftOnly(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	version, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil, models.Viewport{})
	require.NoError(t, err)

	require.NoError(t, service.RestoreDraft(ctx, workflow.ID, version.ID, "user-1"))

	restored, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	assert.Len(t, restored.Nodes, 1)
	assert.Equal(t, models.LiveStatusActive, restored.LiveStatus)
	require.NotNil(t, restored.PublishedVersionID)
	assert.Equal(t, version.ID, *restored.PublishedVersionID)
}

func TestRestoreDraftVersionFromOtherWorkflow(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	first := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)
	second := saveTestWorkflow(t, store, []*models.GraphNode{node("b", "loop")}, nil)

	version, err := service.Publish(ctx, first.ID, "user-1", "", true)
	require.NoError(t, err)

	err = service.RestoreDraft(ctx, second.ID, version.ID, "user-1")
	assert.True(t, persistence.IsVersionNotFound(err))
}

func TestRollbackToVersion(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	v1, err := service.Publish(ctx, workflow.ID, "user-1", "v1", true)
	require.NoError(t, err)

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil, models.Viewport{})
	require.NoError(t, err)

	v2, err := service.Publish(ctx, workflow.ID, "user-1", "v2", true)
	require.NoError(t, err)

	require.NoError(t, service.RollbackToVersion(ctx, workflow.ID, v1.ID, "user-2", "v2 regressed"))

	updated, err := store.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.PublishedVersionID)
	assert.Equal(t, v1.ID, *updated.PublishedVersionID)
	assert.Equal(t, 1, updated.PublishedVersionNumber)

	// The draft keeps its two nodes.
	assert.Len(t, updated.Nodes, 2)

	records, err := store.DeploymentRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, models.DeploymentActionRollback, records[0].Action)
	assert.Equal(t, "v2 regressed", records[0].Reason)
	require.NotNil(t, records[0].PreviousVersionID)
	assert.Equal(t, v2.ID, *records[0].PreviousVersionID)

	history, err := service.GetVersionHistory(ctx, workflow.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].VersionNumber)
	assert.False(t, history[0].IsLive)
	assert.Equal(t, 1, history[1].VersionNumber)
	assert.True(t, history[1].IsLive)
}

func TestGetExecutableGraphResolvesByMode(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil, models.Viewport{})
	require.NoError(t, err)

	triggered, err := service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTrigger)
	require.NoError(t, err)
	assert.False(t, triggered.IsDraft)
	assert.Equal(t, 1, triggered.VersionNumber)
	assert.Len(t, triggered.Nodes, 1)

	tested, err := service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTest)
	require.NoError(t, err)
	assert.True(t, tested.IsDraft)
	assert.Len(t, tested.Nodes, 2)
}

func TestGetExecutableGraphNeverPublishedFallsBackToDraft(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	graph, err := service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTrigger)
	require.NoError(t, err)
	assert.True(t, graph.IsDraft)
	assert.Len(t, graph.Nodes, 1)
}

func TestGetExecutableGraphRejectsInactiveWorkflow(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	require.NoError(t, service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusInactive, "user-1"))

	_, err = service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTrigger)
	assert.True(t, IsInactiveWorkflow(err))

	// Test mode still resolves the draft.
	graph, err := service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTest)
	require.NoError(t, err)
	assert.True(t, graph.IsDraft)
}

func TestGetExecutableGraphMissingVersionRowFallsBackToSnapshot(t *testing.T) {
	service, store, root := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	version, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	// Simulate a lost version row.
	require.NoError(t, os.Remove(path.Join(root, "versions", workflow.ID, version.ID+".json")))

	graph, err := service.GetExecutableGraph(ctx, workflow.ID, models.ExecutionModeTrigger)
	require.NoError(t, err)
	assert.False(t, graph.IsDraft)
	assert.Equal(t, 1, graph.VersionNumber)
	assert.Len(t, graph.Nodes, 1)
}

func TestUpdateLiveStatusTransitions(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	// Activating without a published version is rejected.
	err := service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusActive, "user-1")
	assert.True(t, IsValidation(err))

	_, err = service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	require.NoError(t, service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusInactive, "user-1"))
	require.NoError(t, service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusActive, "user-1"))
	require.NoError(t, service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusArchived, "user-1"))

	// Archived is terminal.
	err = service.UpdateLiveStatus(ctx, workflow.ID, models.LiveStatusActive, "user-1")
	assert.True(t, IsValidation(err))

	records, err := store.DeploymentRepository().ListByWorkflow(ctx, workflow.ID)
	require.NoError(t, err)

	var deactivations int

	for _, record := range records {
		if record.Action == models.DeploymentActionDeactivate {
			deactivations++
		}
	}

	assert.Equal(t, 2, deactivations)
}

func TestUpdateLiveStatusRejectsUnknownStatus(t *testing.T) {
	service, store, _ := newTestService(t)

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	err := service.UpdateLiveStatus(context.Background(), workflow.ID, models.LiveStatus("paused"), "user-1")
	assert.True(t, IsValidation(err))
}

func TestHasUnpublishedChanges(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	empty := saveTestWorkflow(t, store, nil, nil)

	changed, err := service.HasUnpublishedChanges(ctx, empty.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	changed, err = service.HasUnpublishedChanges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	_, err = service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	changed, err = service.HasUnpublishedChanges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil, models.Viewport{})
	require.NoError(t, err)

	changed, err = service.HasUnpublishedChanges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestHasUnpublishedChangesIgnoresLayout(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	// Reorder the nodes and move one; neither is a structural change.
	moved := node("b", "loop")
	moved.PositionX = 400
	moved.PositionY = 250

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{moved, node("a", "ai_agent")}, nil, models.Viewport{X: 50, Y: 50, Zoom: 1.5})
	require.NoError(t, err)

	changed, err := service.HasUnpublishedChanges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestHasUnpublishedChangesDetectsConfigEdit(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	_, err := service.Publish(ctx, workflow.ID, "user-1", "", true)
	require.NoError(t, err)

	edited := node("a", "ai_agent")
	edited.Config["provider"] = "anthropic"

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{edited}, nil, models.Viewport{})
	require.NoError(t, err)

	changed, err := service.HasUnpublishedChanges(ctx, workflow.ID)
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestVersionContentIsImmutableAcrossPublishes(t *testing.T) {
	service, store, _ := newTestService(t)
	ctx := context.Background()

	workflow := saveTestWorkflow(t, store, []*models.GraphNode{node("a", "ai_agent")}, nil)

	v1, err := service.Publish(ctx, workflow.ID, "user-1", "v1", true)
	require.NoError(t, err)

	err = store.WorkflowRepository().UpdateDraftContent(ctx, workflow.ID,
		[]*models.GraphNode{node("a", "ai_agent"), node("b", "loop")}, nil, models.Viewport{})
	require.NoError(t, err)

	_, err = service.Publish(ctx, workflow.ID, "user-1", "v2", true)
	require.NoError(t, err)

	stored, err := store.VersionRepository().GetByWorkflowAndID(ctx, workflow.ID, v1.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Nodes, 1)
	assert.Equal(t, "v1", stored.Changelog)
	assert.WithinDuration(t, v1.CreatedAt, stored.CreatedAt, time.Second)
}
