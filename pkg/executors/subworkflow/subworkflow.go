// Package subworkflow implements the sub-workflow node executor. The
// executor validates the reference and emits a trigger marker; spawning the
// child execution is the external engine's job.
package subworkflow

import (
	"context"
	"errors"

	"github.com/flowrift/flowrift/pkg/models"
)

// TriggerMarker is the type field of the emitted marker object.
const TriggerMarker = "sub_workflow_trigger"

// Executor validates sub-workflow references.
type Executor struct{}

// NewExecutor creates the sub-workflow executor.
func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Types() []string {
	return []string{models.NodeTypeSubWorkflow}
}

// Execute validates the workflowId reference and returns the trigger marker
// consumed by the execution engine.
func (e *Executor) Execute(_ context.Context, node *models.GraphNode, _ *models.ExecutionContext) (map[string]any, error) {
	workflowID, _ := node.Config["workflowId"].(string)
	if workflowID == "" {
		return nil, errors.New("sub-workflow node requires a 'workflowId'")
	}

	inputData, _ := node.Config["inputData"].(map[string]any)
	inheritCredentials, _ := node.Config["inheritCredentials"].(bool)

	waitForCompletion := true
	if wait, ok := node.Config["waitForCompletion"].(bool); ok {
		waitForCompletion = wait
	}

	return map[string]any{
		"type":               TriggerMarker,
		"workflowId":         workflowID,
		"inputData":          inputData,
		"inheritCredentials": inheritCredentials,
		"waitForCompletion":  waitForCompletion,
	}, nil
}
