// Package models defines the core domain models for node-graph workflow versioning and dispatch.
package models

// Built-in node types handled by specialized executors. Everything else is
// dispatched through the generic provider-call executor.
const (
	NodeTypeLoop            = "loop"
	NodeTypeSubWorkflow     = "sub_workflow"
	NodeTypeAIAgent         = "ai_agent"
	NodeTypeTriggerWebhook  = "trigger:webhook"
	NodeTypeTriggerSchedule = "trigger:schedule"
)

// GraphNode represents a node instance inside a workflow graph.
type GraphNode struct {
	ID        string         `json:"id"         validate:"required"`
	Type      string         `json:"type"       validate:"required"`
	Name      string         `json:"name"`
	Config    map[string]any `json:"config"`
	PositionX int            `json:"position_x"`
	PositionY int            `json:"position_y"`
	Enabled   bool           `json:"enabled"`
}

// GraphEdge connects two nodes in a workflow graph.
type GraphEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source" validate:"required"`
	Target       string `json:"target" validate:"required"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// Viewport stores the editor camera position for a graph snapshot.
type Viewport struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Zoom float64 `json:"zoom"`
}

// CopyNodes creates a deep copy of a node slice. Snapshots taken at publish
// time must not share config maps with the mutable draft.
func CopyNodes(nodes []*GraphNode) []*GraphNode {
	if nodes == nil {
		return nil
	}

	copied := make([]*GraphNode, len(nodes))
	for i, node := range nodes {
		copied[i] = &GraphNode{
			ID:        node.ID,
			Type:      node.Type,
			Name:      node.Name,
			Config:    CopyMap(node.Config),
			PositionX: node.PositionX,
			PositionY: node.PositionY,
			Enabled:   node.Enabled,
		}
	}

	return copied
}

// CopyEdges creates a deep copy of an edge slice.
func CopyEdges(edges []*GraphEdge) []*GraphEdge {
	if edges == nil {
		return nil
	}

	copied := make([]*GraphEdge, len(edges))
	for i, edge := range edges {
		edgeCopy := *edge
		copied[i] = &edgeCopy
	}

	return copied
}

// CopyMap creates a copy of a map[string]any. Nested values are shared.
func CopyMap(original map[string]any) map[string]any {
	if original == nil {
		return nil
	}

	result := make(map[string]any, len(original))
	for k, v := range original {
		result[k] = v
	}

	return result
}
