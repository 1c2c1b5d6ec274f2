package postgresql_test

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/persistence"
	"github.com/flowrift/flowrift/pkg/persistence/postgresql"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	// Drop tables in reverse dependency order (children first, parents last)
	for _, table := range []string{"deployment_records", "workflow_versions", "workflows", "schema_migrations"} {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowrift_test"),
			postgres.WithUsername("flowrift"),
			postgres.WithPassword("flowrift"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = store.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return store, ctx, databaseURL
}

func savedWorkflow(ctx context.Context, t *testing.T, p *postgresql.Persistence) *models.Workflow {
	t.Helper()

	workflow := &models.Workflow{
		ID:          uuid.NewString(),
		Name:        "Test Workflow",
		Description: "A test workflow",
		Nodes: []*models.GraphNode{
			{
				ID:      "summarize",
				Type:    "llm",
				Name:    "Summarize",
				Config:  map[string]any{"provider": "openai", "model": "gpt-4o"},
				Enabled: true,
			},
			{
				ID:      "fanout",
				Type:    models.NodeTypeLoop,
				Name:    "Fan Out",
				Config:  map[string]any{"batchSize": float64(2)},
				Enabled: true,
			},
		},
		Edges: []*models.GraphEdge{
			{ID: "e1", Source: "summarize", Target: "fanout"},
		},
		Viewport:   models.Viewport{X: 100, Y: 50, Zoom: 1.25},
		Config:     map[string]any{"test_var": "test_value"},
		LiveStatus: models.LiveStatusDraft,
		Owner:      "test-user",
	}

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	return workflow
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	// Verify tables were created
	var exists bool

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflows')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflows table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'workflow_versions')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "workflow_versions table should exist")

	err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = 'deployment_records')`).Scan(&exists)
	require.NoError(t, err)
	assert.True(t, exists, "deployment_records table should exist")

	var version int

	err = db.QueryRowContext(ctx, "SELECT version FROM schema_migrations WHERE version = 1").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestNewPersistence_SaveAndRetrieveWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := savedWorkflow(ctx, t, p)
	assert.False(t, workflow.CreatedAt.IsZero())
	assert.False(t, workflow.UpdatedAt.IsZero())

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, workflow.ID, retrieved.ID)
	assert.Equal(t, workflow.Name, retrieved.Name)
	assert.Equal(t, workflow.Description, retrieved.Description)
	assert.Equal(t, workflow.LiveStatus, retrieved.LiveStatus)
	assert.Equal(t, workflow.Owner, retrieved.Owner)
	assert.Len(t, retrieved.Nodes, len(workflow.Nodes))
	assert.Len(t, retrieved.Edges, len(workflow.Edges))
	assert.Equal(t, "openai", retrieved.Nodes[0].Config["provider"])
	assert.Equal(t, workflow.Config["test_var"], retrieved.Config["test_var"])
	assert.InEpsilon(t, workflow.Viewport.Zoom, retrieved.Viewport.Zoom, 0.0001)
}

func TestNewPersistence_UpdateWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := savedWorkflow(ctx, t, p)
	initialUpdatedAt := workflow.UpdatedAt

	// Wait a moment to ensure different timestamp
	time.Sleep(10 * time.Millisecond)

	workflow.Name = "Updated Test Workflow"
	workflow.Description = "An updated test workflow"

	err := p.WorkflowRepository().Save(ctx, workflow)
	require.NoError(t, err)

	retrieved, err := p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.NoError(t, err)
	require.NotNil(t, retrieved)

	assert.Equal(t, "Updated Test Workflow", retrieved.Name)
	assert.Equal(t, "An updated test workflow", retrieved.Description)
	assert.True(t, retrieved.UpdatedAt.After(initialUpdatedAt))
}

func TestNewPersistence_DeleteWorkflow(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	workflow := savedWorkflow(ctx, t, p)

	err := p.WorkflowRepository().Delete(ctx, workflow.ID)
	require.NoError(t, err)

	_, err = p.WorkflowRepository().GetByID(ctx, workflow.ID)
	require.Error(t, err)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	workflows, err := p.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, workflows)
}

func TestNewPersistence_ListWorkflows(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	first := savedWorkflow(ctx, t, p)
	second := savedWorkflow(ctx, t, p)

	workflows, err := p.WorkflowRepository().List(ctx)
	require.NoError(t, err)
	require.Len(t, workflows, 2)

	ids := []string{workflows[0].ID, workflows[1].ID}
	assert.ElementsMatch(t, []string{first.ID, second.ID}, ids)
}
