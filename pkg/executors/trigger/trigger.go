// Package trigger implements the webhook and schedule trigger executors.
// Both pass the already-captured trigger payload through without side
// effects; the schedule executor additionally validates its cron expression.
package trigger

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/flowrift/flowrift/pkg/models"
)

// Executor passes trigger payloads into the graph.
type Executor struct{}

// NewExecutor creates the trigger executor for webhook and schedule nodes.
func NewExecutor() *Executor {
	return &Executor{}
}

func (e *Executor) Types() []string {
	return []string{models.NodeTypeTriggerWebhook, models.NodeTypeTriggerSchedule}
}

// Execute returns the captured trigger payload. Schedule nodes validate
// their cron expression first; a malformed expression is a config error the
// editor should have caught, surfaced here as a failure.
func (e *Executor) Execute(_ context.Context, node *models.GraphNode, execCtx *models.ExecutionContext) (map[string]any, error) {
	if node.Type == models.NodeTypeTriggerSchedule {
		if err := validateCronExpression(node.Config); err != nil {
			return nil, err
		}
	}

	return map[string]any{
		"trigger":     models.CopyMap(execCtx.TriggerData),
		"triggeredAt": time.Now().UTC().Format(time.RFC3339),
		"mode":        string(execCtx.Mode),
	}, nil
}

// validateCronExpression checks the schedule node's cron config with the
// standard 5-field parser (minute hour day month weekday).
func validateCronExpression(config map[string]any) error {
	expression, _ := config["cron"].(string)
	if expression == "" {
		return fmt.Errorf("schedule trigger requires a 'cron' expression")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expression); err != nil {
		return fmt.Errorf("invalid cron expression '%s': %w", expression, err)
	}

	return nil
}
