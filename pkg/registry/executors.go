package registry

import (
	"log/slog"

	"github.com/flowrift/flowrift/pkg/executors/aiagent"
	"github.com/flowrift/flowrift/pkg/executors/loop"
	"github.com/flowrift/flowrift/pkg/executors/subworkflow"
	"github.com/flowrift/flowrift/pkg/executors/trigger"

	generic_executor "github.com/flowrift/flowrift/pkg/executors/generic"
	"github.com/flowrift/flowrift/pkg/protocol"
)

// RegisterDefaultExecutors installs the built-in strategies: loop,
// sub-workflow, trigger pass-throughs, the AI-agent delegate and the generic
// provider-call fallback.
func RegisterDefaultExecutors(registry *ExecutorRegistry, logger *slog.Logger, client protocol.ProviderClient, guard protocol.CircuitGuard) {
	genericExecutor := generic_executor.NewExecutor(logger, client, guard)

	registry.RegisterGeneric(genericExecutor)
	registry.Register(loop.NewExecutor())
	registry.Register(subworkflow.NewExecutor())
	registry.Register(trigger.NewExecutor())
	registry.Register(aiagent.NewExecutor(genericExecutor))
}
