// Package generic implements the fallback provider-call executor. It serves
// any schema-described node type that no specialized executor claims, gating
// every outbound call through the circuit breaker.
package generic

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/protocol"
)

// Executor calls external model providers through a protocol.ProviderClient.
type Executor struct {
	logger *slog.Logger
	client protocol.ProviderClient
	guard  protocol.CircuitGuard
}

// NewExecutor creates the generic provider-call executor.
func NewExecutor(logger *slog.Logger, client protocol.ProviderClient, guard protocol.CircuitGuard) *Executor {
	return &Executor{
		logger: logger.With("module", "executor.generic"),
		client: client,
		guard:  guard,
	}
}

// Types returns nil: the generic executor claims no types and is installed
// as the registry fallback instead.
func (e *Executor) Types() []string {
	return nil
}

// Execute performs the provider call for the node. The circuit breaker is
// consulted before the call and updated with the outcome afterward.
func (e *Executor) Execute(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) (map[string]any, error) {
	provider := stringConfig(node.Config, "provider")
	model := stringConfig(node.Config, "model")

	if provider == "" {
		return nil, errors.New("node config is missing 'provider'")
	}

	if !e.guard.CanExecute(provider, model) {
		return nil, fmt.Errorf("circuit open for %s/%s, call rejected", provider, model)
	}

	data, err := e.client.Call(ctx, protocol.ProviderRequest{
		Provider: provider,
		Model:    model,
		NodeType: node.Type,
		Config:   node.Config,
		Input:    execCtx.NodeOutputs,
	})
	if err != nil {
		e.guard.RecordFailure(provider, model, classifyError(err))

		return nil, fmt.Errorf("provider call failed: %w", err)
	}

	e.guard.RecordSuccess(provider, model)

	return data, nil
}

func stringConfig(config map[string]any, key string) string {
	if value, ok := config[key].(string); ok {
		return value
	}

	return ""
}

func classifyError(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return "provider_error"
	}
}
