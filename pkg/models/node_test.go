package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyNodes_IndependentConfig(t *testing.T) {
	original := []*GraphNode{
		{
			ID:      "summarize",
			Type:    "llm",
			Name:    "Summarize",
			Config:  map[string]any{"provider": "openai", "model": "gpt-4o"},
			Enabled: true,
		},
	}

	copied := CopyNodes(original)
	require.Len(t, copied, 1)

	original[0].Config["model"] = "gpt-4o-mini"
	original[0].Name = "Renamed"

	assert.Equal(t, "gpt-4o", copied[0].Config["model"])
	assert.Equal(t, "Summarize", copied[0].Name)
}

func TestCopyNodes_Nil(t *testing.T) {
	assert.Nil(t, CopyNodes(nil))
}

func TestCopyEdges_Independent(t *testing.T) {
	original := []*GraphEdge{
		{ID: "e1", Source: "a", Target: "b", SourceHandle: "out"},
	}

	copied := CopyEdges(original)
	require.Len(t, copied, 1)

	original[0].Target = "c"

	assert.Equal(t, "b", copied[0].Target)
	assert.Equal(t, "out", copied[0].SourceHandle)
}

func TestCopyMap(t *testing.T) {
	assert.Nil(t, CopyMap(nil))

	original := map[string]any{"key": "value"}
	copied := CopyMap(original)

	original["key"] = "changed"
	assert.Equal(t, "value", copied["key"])
}
