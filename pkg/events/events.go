// Package events defines event types for workflow versioning and node
// execution notifications.
package events

import (
	"time"
)

type EventType string

// Kafka topic for versioning and execution events.
const Topic = "flowrift.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Versioning lifecycle events.
	VersionPublishedEvent    EventType = "workflow.version.published"
	VersionRolledBackEvent   EventType = "workflow.version.rolledback"
	WorkflowDeactivatedEvent EventType = "workflow.deactivated"

	// Node execution events.
	NodeExecutionFinishedEvent EventType = "node.execution.finished"
	NodeExecutionFailedEvent   EventType = "node.execution.failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type VersionPublished struct {
	BaseEvent

	VersionID     string `json:"version_id"`
	VersionNumber int    `json:"version_number"`
	PublishedBy   string `json:"published_by"`
	Activated     bool   `json:"activated"`
}

func (v VersionPublished) GetType() EventType {
	return VersionPublishedEvent
}

type VersionRolledBack struct {
	BaseEvent

	VersionID         string  `json:"version_id"`
	VersionNumber     int     `json:"version_number"`
	PreviousVersionID *string `json:"previous_version_id,omitempty"`
	RolledBackBy      string  `json:"rolled_back_by"`
	Reason            string  `json:"reason,omitempty"`
}

func (v VersionRolledBack) GetType() EventType {
	return VersionRolledBackEvent
}

type WorkflowDeactivated struct {
	BaseEvent

	Status        string `json:"status"`
	DeactivatedBy string `json:"deactivated_by"`
}

func (w WorkflowDeactivated) GetType() EventType {
	return WorkflowDeactivatedEvent
}

type NodeExecutionFinished struct {
	BaseEvent

	ExecutionID string         `json:"execution_id"`
	NodeID      string         `json:"node_id"`
	NodeType    string         `json:"node_type"`
	Data        map[string]any `json:"data,omitempty"`
	DurationMS  int64          `json:"duration_ms"`
}

func (n NodeExecutionFinished) GetType() EventType {
	return NodeExecutionFinishedEvent
}

type NodeExecutionFailed struct {
	BaseEvent

	ExecutionID string `json:"execution_id"`
	NodeID      string `json:"node_id"`
	NodeType    string `json:"node_type"`
	Error       string `json:"error"`
	DurationMS  int64  `json:"duration_ms"`
}

func (n NodeExecutionFailed) GetType() EventType {
	return NodeExecutionFailedEvent
}
