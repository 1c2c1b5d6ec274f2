// Package loop implements the loop node executor. It does not iterate
// itself: it bounds the items collection and reports the batch plan for the
// external execution engine to drive.
package loop

import (
	"context"
	"errors"

	"github.com/flowrift/flowrift/pkg/models"
)

const (
	// DefaultMaxIterations caps the items a loop node hands to the engine.
	DefaultMaxIterations = 100

	// DefaultBatchSize is the per-iteration batch size when unset.
	DefaultBatchSize = 1
)

// Executor bounds loop node inputs.
type Executor struct{}

// NewExecutor creates the loop executor.
func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Types() []string {
	return []string{models.NodeTypeLoop}
}

// Execute bounds the configured items to the max-iteration ceiling and
// returns {items, total, batchSize, iterations}.
func (e *Executor) Execute(_ context.Context, node *models.GraphNode, _ *models.ExecutionContext) (map[string]any, error) {
	items, err := itemsConfig(node.Config)
	if err != nil {
		return nil, err
	}

	maxIterations := intConfig(node.Config, "maxIterations", DefaultMaxIterations)
	batchSize := intConfig(node.Config, "batchSize", DefaultBatchSize)

	total := len(items)

	bounded := items
	if len(bounded) > maxIterations {
		bounded = bounded[:maxIterations]
	}

	iterations := (len(bounded) + batchSize - 1) / batchSize

	return map[string]any{
		"items":      bounded,
		"total":      total,
		"batchSize":  batchSize,
		"iterations": iterations,
	}, nil
}

func itemsConfig(config map[string]any) ([]any, error) {
	raw, ok := config["items"]
	if !ok || raw == nil {
		return []any{}, nil
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, errors.New("loop node 'items' must be an array")
	}

	return items, nil
}

func intConfig(config map[string]any, key string, fallback int) int {
	switch value := config[key].(type) {
	case float64:
		if value > 0 {
			return int(value)
		}
	case int:
		if value > 0 {
			return value
		}
	}

	return fallback
}
