package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLiveStatus_IsValid(t *testing.T) {
	for _, status := range []LiveStatus{LiveStatusDraft, LiveStatusActive, LiveStatusInactive, LiveStatusArchived} {
		assert.True(t, status.IsValid(), "status %q should be valid", status)
	}

	assert.False(t, LiveStatus("paused").IsValid())
	assert.False(t, LiveStatus("").IsValid())
}

func TestWorkflow_IsPublished(t *testing.T) {
	workflow := &Workflow{}
	assert.False(t, workflow.IsPublished())

	empty := ""
	workflow.PublishedVersionID = &empty
	assert.False(t, workflow.IsPublished())

	versionID := "version-1"
	workflow.PublishedVersionID = &versionID
	assert.True(t, workflow.IsPublished())
}
