package versioning

import (
	"reflect"

	"github.com/flowrift/flowrift/pkg/models"
)

// graphsEqual compares two graphs structurally: node and edge sets must
// match regardless of slice order. Node positions and the viewport are
// layout, not structure, and do not count as changes.
func graphsEqual(nodes []*models.GraphNode, edges []*models.GraphEdge, otherNodes []*models.GraphNode, otherEdges []*models.GraphEdge) bool {
	return nodeSetsEqual(nodes, otherNodes) && edgeSetsEqual(edges, otherEdges)
}

func nodeSetsEqual(nodes, others []*models.GraphNode) bool {
	if len(nodes) != len(others) {
		return false
	}

	byID := make(map[string]*models.GraphNode, len(others))
	for _, node := range others {
		byID[node.ID] = node
	}

	for _, node := range nodes {
		other, ok := byID[node.ID]
		if !ok {
			return false
		}

		if node.Type != other.Type || node.Name != other.Name || node.Enabled != other.Enabled {
			return false
		}

		if !configsEqual(node.Config, other.Config) {
			return false
		}
	}

	return true
}

// edgeSetsEqual keys edges by their endpoints rather than their IDs: the
// editor regenerates edge IDs freely, but an edge between the same handles
// is the same connection.
func edgeSetsEqual(edges, others []*models.GraphEdge) bool {
	if len(edges) != len(others) {
		return false
	}

	counts := make(map[edgeKey]int, len(others))
	for _, edge := range others {
		counts[keyOf(edge)]++
	}

	for _, edge := range edges {
		key := keyOf(edge)

		counts[key]--
		if counts[key] < 0 {
			return false
		}
	}

	return true
}

type edgeKey struct {
	source       string
	target       string
	sourceHandle string
	targetHandle string
}

func keyOf(edge *models.GraphEdge) edgeKey {
	return edgeKey{
		source:       edge.Source,
		target:       edge.Target,
		sourceHandle: edge.SourceHandle,
		targetHandle: edge.TargetHandle,
	}
}

func configsEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}

	return reflect.DeepEqual(a, b)
}
