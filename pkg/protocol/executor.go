// Package protocol defines the interfaces and contracts between the executor
// registry, its strategies and their external collaborators.
package protocol

import (
	"context"

	"github.com/flowrift/flowrift/pkg/models"
)

// NodeExecutor is the execution strategy for one or more node types. The
// returned map becomes ExecutionResult.Data; a returned error is normalized
// into a structured failure by the registry and never propagates further.
type NodeExecutor interface {
	// Types returns the node type identifiers this executor claims.
	Types() []string

	// Execute runs the node against the execution context. Implementations
	// must honor ctx cancellation; blocking I/O belongs here, not in the
	// registry.
	Execute(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) (map[string]any, error)
}

// NodeDefinitionProvider is the external node-schema collaborator. GetNodeByID
// returns (nil, nil) for unknown node types.
type NodeDefinitionProvider interface {
	GetNodeByID(ctx context.Context, nodeType string) (*models.NodeDefinition, error)
}

// ProviderRequest is a normalized call to an external model provider.
type ProviderRequest struct {
	Provider string
	Model    string
	NodeType string
	Config   map[string]any
	Input    map[string]any
}

// ProviderClient performs the actual provider call for the generic executor.
// Concrete implementations (HTTP, AI SDKs) live outside this core.
type ProviderClient interface {
	Call(ctx context.Context, req ProviderRequest) (map[string]any, error)
}

// CircuitGuard is consulted by provider-calling executors before attempting a
// call and updated with the outcome afterward.
type CircuitGuard interface {
	CanExecute(provider, model string) bool
	RecordSuccess(provider, model string)
	RecordFailure(provider, model, errorType string)
}
