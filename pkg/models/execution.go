package models

import "time"

// ExecutionContext carries the runtime state the execution engine passes to
// each node dispatch. TriggerData is available to node configs as $trigger.
type ExecutionContext struct {
	ExecutionID string         `json:"execution_id"`
	WorkflowID  string         `json:"workflow_id"`
	Mode        ExecutionMode  `json:"mode"`
	TriggerData map[string]any `json:"trigger_data,omitempty"`
	NodeOutputs map[string]any `json:"node_outputs,omitempty"`
	Variables   map[string]any `json:"variables,omitempty"`
}

// ExecutionError is a normalized node-execution failure.
type ExecutionError struct {
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ExecutionMeta carries timing metadata for a node execution.
type ExecutionMeta struct {
	NodeID     string    `json:"node_id"`
	NodeType   string    `json:"node_type"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
}

// ExecutionResult is the uniform outcome of a node dispatch. The registry
// never lets handler errors escape; every failure is reported through this
// shape.
type ExecutionResult struct {
	Success bool            `json:"success"`
	Data    map[string]any  `json:"data,omitempty"`
	Error   *ExecutionError `json:"error,omitempty"`
	Meta    ExecutionMeta   `json:"meta"`
}

// Failure builds a failed ExecutionResult with the given message.
func Failure(message string, details map[string]any) *ExecutionResult {
	return &ExecutionResult{
		Success: false,
		Error:   &ExecutionError{Message: message, Details: details},
	}
}
