// Package aiagent implements the AI-agent node executor. It currently
// delegates to the generic provider-call path but stays a distinct strategy:
// streaming and token accounting will land here without touching the generic
// executor.
package aiagent

import (
	"context"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/protocol"
)

// Executor dispatches ai_agent nodes.
type Executor struct {
	delegate protocol.NodeExecutor
}

// NewExecutor creates the AI-agent executor delegating to the given
// provider-call executor.
func NewExecutor(delegate protocol.NodeExecutor) *Executor {
	return &Executor{delegate: delegate}
}

func (e *Executor) Types() []string {
	return []string{models.NodeTypeAIAgent}
}

func (e *Executor) Execute(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) (map[string]any, error) {
	return e.delegate.Execute(ctx, node, execCtx)
}
