// Package registry maps node types to execution strategies and enforces the
// dispatch contract: structural validation before a strategy runs, timeout
// and cancellation propagation while it runs, and a structured result on the
// way out. No error or panic escapes Execute.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"

	"github.com/flowrift/flowrift/pkg/eventbus"
	"github.com/flowrift/flowrift/pkg/events"
	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/protocol"
)

const (
	// DefaultExecutionTimeout applies when a node config carries no timeout.
	DefaultExecutionTimeout = 30 * time.Second

	// DefaultMaxConcurrent bounds ExecuteParallel batch size when the caller
	// passes no bound.
	DefaultMaxConcurrent = 10
)

// ExecutorRegistry dispatches nodes to specialized executors, falling back to
// a single generic provider-call executor for any schema-described type.
type ExecutorRegistry struct {
	logger      *slog.Logger
	definitions protocol.NodeDefinitionProvider
	eventBus    eventbus.EventPublisher

	timeout       time.Duration
	maxConcurrent int

	mu        sync.RWMutex
	executors map[string]protocol.NodeExecutor
	generic   protocol.NodeExecutor
}

// NewExecutorRegistry creates a registry with default timeout and
// concurrency bounds.
func NewExecutorRegistry(logger *slog.Logger, definitions protocol.NodeDefinitionProvider) *ExecutorRegistry {
	return &ExecutorRegistry{
		logger:        logger.With("module", "registry"),
		definitions:   definitions,
		timeout:       DefaultExecutionTimeout,
		maxConcurrent: DefaultMaxConcurrent,
		executors:     make(map[string]protocol.NodeExecutor),
	}
}

// WithEventBus enables node execution notifications on the bus. Emission is
// best-effort and never affects the execution result.
func (r *ExecutorRegistry) WithEventBus(eventBus eventbus.EventPublisher) *ExecutorRegistry {
	r.eventBus = eventBus

	return r
}

// SetDefaultTimeout overrides the timeout applied to nodes without one.
func (r *ExecutorRegistry) SetDefaultTimeout(timeout time.Duration) {
	if timeout > 0 {
		r.timeout = timeout
	}
}

// Register claims every type the executor reports. A duplicate claim is a
// configuration error: it is logged and the last registration wins.
func (r *ExecutorRegistry) Register(executor protocol.NodeExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, nodeType := range executor.Types() {
		if _, exists := r.executors[nodeType]; exists {
			r.logger.Warn("Node type already claimed, overriding previous executor",
				"node_type", nodeType)
		}

		r.executors[nodeType] = executor
	}
}

// RegisterGeneric installs the fallback executor used for node types without
// a specialized claim.
func (r *ExecutorRegistry) RegisterGeneric(executor protocol.NodeExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generic = executor
}

// IsSupported reports whether the node type has a specialized executor or a
// known schema the generic executor can serve.
func (r *ExecutorRegistry) IsSupported(ctx context.Context, nodeType string) bool {
	r.mu.RLock()
	_, claimed := r.executors[nodeType]
	hasGeneric := r.generic != nil
	r.mu.RUnlock()

	if claimed {
		return true
	}

	if !hasGeneric {
		return false
	}

	definition, err := r.definitions.GetNodeByID(ctx, nodeType)
	if err != nil {
		r.logger.Warn("Node definition lookup failed", "node_type", nodeType, "error", err)

		return false
	}

	return definition != nil
}

// Execute dispatches one node and always returns a result, never an error.
// Validation failures, handler errors, panics and cancellation all surface
// as {success:false} results with timing metadata attached.
func (r *ExecutorRegistry) Execute(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) *models.ExecutionResult {
	started := time.Now()

	result := r.dispatch(ctx, node, execCtx)
	result.Meta = models.ExecutionMeta{
		NodeID:     node.ID,
		NodeType:   node.Type,
		StartedAt:  started,
		DurationMS: time.Since(started).Milliseconds(),
	}

	if !result.Success {
		r.logger.Warn("Node execution failed",
			"node_id", node.ID,
			"node_type", node.Type,
			"error", result.Error.Message)
	}

	r.emitResult(ctx, node, execCtx, result)

	return result
}

// emitResult publishes a finished or failed event for the dispatch. A
// publish error is logged, never surfaced into the result.
func (r *ExecutorRegistry) emitResult(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext, result *models.ExecutionResult) {
	if r.eventBus == nil {
		return
	}

	var event eventbus.Event

	if result.Success {
		event = events.NodeExecutionFinished{
			BaseEvent:   r.baseEvent(events.NodeExecutionFinishedEvent, execCtx.WorkflowID),
			ExecutionID: execCtx.ExecutionID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Data:        result.Data,
			DurationMS:  result.Meta.DurationMS,
		}
	} else {
		event = events.NodeExecutionFailed{
			BaseEvent:   r.baseEvent(events.NodeExecutionFailedEvent, execCtx.WorkflowID),
			ExecutionID: execCtx.ExecutionID,
			NodeID:      node.ID,
			NodeType:    node.Type,
			Error:       result.Error.Message,
			DurationMS:  result.Meta.DurationMS,
		}
	}

	if err := r.eventBus.Publish(ctx, execCtx.WorkflowID, event); err != nil {
		r.logger.Warn("Failed to publish node execution event",
			"event_type", event.GetType(),
			"node_id", node.ID,
			"error", err)
	}
}

func (r *ExecutorRegistry) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	id := ""
	if bus, ok := r.eventBus.(eventbus.EventBus); ok {
		id = bus.GenerateID()
	}

	return events.BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// ExecuteParallel runs nodes in batches of at most maxConcurrent, waiting for
// each full batch before starting the next. Results are keyed by node ID.
func (r *ExecutorRegistry) ExecuteParallel(ctx context.Context, nodes []*models.GraphNode, execCtx *models.ExecutionContext, maxConcurrent int) map[string]*models.ExecutionResult {
	if maxConcurrent <= 0 {
		maxConcurrent = r.maxConcurrent
	}

	results := make(map[string]*models.ExecutionResult, len(nodes))

	var resultsMu sync.Mutex

	for start := 0; start < len(nodes); start += maxConcurrent {
		end := min(start+maxConcurrent, len(nodes))

		group, groupCtx := errgroup.WithContext(ctx)

		for i := start; i < end; i++ {
			node := nodes[i]

			group.Go(func() error {
				result := r.Execute(groupCtx, node, execCtx)

				resultsMu.Lock()
				results[node.ID] = result
				resultsMu.Unlock()

				return nil
			})
		}

		// Execute never returns an error; Wait is a batch barrier.
		_ = group.Wait()
	}

	return results
}

type executionOutcome struct {
	data map[string]any
	err  error
}

func (r *ExecutorRegistry) dispatch(ctx context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) *models.ExecutionResult {
	definition, err := r.definitions.GetNodeByID(ctx, node.Type)
	if err != nil {
		return models.Failure("node definition lookup failed: "+err.Error(), nil)
	}

	executor, claimed := r.executorFor(node.Type)
	if executor == nil || (!claimed && definition == nil) {
		// The generic executor only serves schema-described types.
		return models.Failure(fmt.Sprintf("unknown node type '%s'", node.Type), nil)
	}

	if definition != nil {
		if err := validateNodeConfig(node, definition); err != nil {
			return models.Failure(err.Error(), map[string]any{"node_type": node.Type})
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, nodeTimeout(node, r.timeout))
	defer cancel()

	outcomes := make(chan executionOutcome, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("Executor panic",
					"node_id", node.ID,
					"node_type", node.Type,
					"panic", rec)
				outcomes <- executionOutcome{err: fmt.Errorf("executor panic: %v", rec)}
			}
		}()

		data, execErr := executor.Execute(callCtx, node, execCtx)
		outcomes <- executionOutcome{data: data, err: execErr}
	}()

	select {
	case <-callCtx.Done():
		return models.Failure("cancelled", map[string]any{"reason": callCtx.Err().Error()})
	case outcome := <-outcomes:
		if outcome.err != nil {
			return models.Failure(outcome.err.Error(), nil)
		}

		return &models.ExecutionResult{Success: true, Data: outcome.data}
	}
}

// executorFor resolves the strategy: specialized claim first, generic
// fallback otherwise. Returns nil when neither applies.
func (r *ExecutorRegistry) executorFor(nodeType string) (protocol.NodeExecutor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if executor, ok := r.executors[nodeType]; ok {
		return executor, true
	}

	return r.generic, false
}

// nodeTimeout reads the per-node timeout from config, falling back to the
// registry default. Config carries either a JSON number of seconds or a Go
// duration string.
func nodeTimeout(node *models.GraphNode, fallback time.Duration) time.Duration {
	raw, ok := node.Config["timeout"]
	if !ok {
		return fallback
	}

	switch value := raw.(type) {
	case float64:
		if value > 0 {
			return time.Duration(value * float64(time.Second))
		}
	case int:
		if value > 0 {
			return time.Duration(value) * time.Second
		}
	case string:
		if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
			return duration
		}
	}

	return fallback
}

// validateNodeConfig checks required-field presence and, when the definition
// carries a JSON schema, validates the config structure against it.
func validateNodeConfig(node *models.GraphNode, definition *models.NodeDefinition) error {
	var missing []string

	for _, fieldID := range definition.RequiredFields() {
		value, ok := node.Config[fieldID]
		if !ok || value == nil {
			missing = append(missing, fieldID)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if len(definition.ConfigSchema) == 0 {
		return nil
	}

	schemaLoader := gojsonschema.NewGoLoader(definition.ConfigSchema)
	configLoader := gojsonschema.NewGoLoader(node.Config)

	result, err := gojsonschema.Validate(schemaLoader, configLoader)
	if err != nil {
		return fmt.Errorf("config schema validation: %w", err)
	}

	if !result.Valid() {
		var details []string
		for _, schemaErr := range result.Errors() {
			details = append(details, schemaErr.String())
		}

		return fmt.Errorf("config schema validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}
