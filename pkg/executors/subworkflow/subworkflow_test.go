package subworkflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowrift/flowrift/pkg/models"
)

func TestExecuteReturnsTriggerMarker(t *testing.T) {
	executor := NewExecutor()

	node := &models.GraphNode{
		ID:   "sub-1",
		Type: models.NodeTypeSubWorkflow,
		Config: map[string]any{
			"workflowId":         "child-wf",
			"inputData":          map[string]any{"key": "value"},
			"inheritCredentials": true,
			"waitForCompletion":  false,
		},
	}

	data, err := executor.Execute(context.Background(), node, &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, TriggerMarker, data["type"])
	assert.Equal(t, "child-wf", data["workflowId"])
	assert.Equal(t, map[string]any{"key": "value"}, data["inputData"])
	assert.Equal(t, true, data["inheritCredentials"])
	assert.Equal(t, false, data["waitForCompletion"])
}

func TestExecuteDefaults(t *testing.T) {
	executor := NewExecutor()

	node := &models.GraphNode{
		ID:     "sub-1",
		Type:   models.NodeTypeSubWorkflow,
		Config: map[string]any{"workflowId": "child-wf"},
	}

	data, err := executor.Execute(context.Background(), node, &models.ExecutionContext{})
	require.NoError(t, err)

	assert.Equal(t, false, data["inheritCredentials"])
	assert.Equal(t, true, data["waitForCompletion"])
}

func TestExecuteRequiresWorkflowID(t *testing.T) {
	executor := NewExecutor()

	node := &models.GraphNode{
		ID:     "sub-1",
		Type:   models.NodeTypeSubWorkflow,
		Config: map[string]any{},
	}

	_, err := executor.Execute(context.Background(), node, &models.ExecutionContext{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "workflowId")
}
