// Package versioning implements the version and deployment service: publish,
// rollback, draft restore, live-status transitions and executable-graph
// resolution.
package versioning

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/flowrift/flowrift/pkg/eventbus"
	"github.com/flowrift/flowrift/pkg/events"
	"github.com/flowrift/flowrift/pkg/models"
	"github.com/flowrift/flowrift/pkg/otelhelper"
	"github.com/flowrift/flowrift/pkg/persistence"
)

// publishRetries bounds retry attempts after a version-number allocation
// race. The store allocates numbers atomically, so a conflict only occurs
// when two publishers hit the same workflow at the same instant.
const publishRetries = 3

// Service orchestrates workflow versioning and deployment. The event bus is
// optional; when nil, lifecycle events are skipped.
type Service struct {
	persistence persistence.Persistence
	logger      *slog.Logger
	eventBus    eventbus.EventPublisher
	tracer      trace.Tracer
}

// NewService creates the versioning service.
func NewService(persistence persistence.Persistence, logger *slog.Logger, eventBus eventbus.EventPublisher) *Service {
	return &Service{
		persistence: persistence,
		logger:      logger.With("module", "versioning"),
		eventBus:    eventBus,
	}
}

// WithTracer enables span emission for publish and graph resolution.
func (s *Service) WithTracer(tracer trace.Tracer) *Service {
	s.tracer = tracer

	return s
}

// startSpan is a no-op returning the original context when tracing is off.
func (s *Service) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}

	return otelhelper.StartSpan(ctx, s.tracer, name, attrs...)
}

// Publish snapshots the current draft as a new immutable version, points the
// workflow's published state at it and appends a deploy record. When
// activate is true the workflow transitions to active.
func (s *Service) Publish(ctx context.Context, workflowID, userID, changelog string, activate bool) (*models.WorkflowVersion, error) {
	ctx, span := s.startSpan(ctx, "versioning.publish",
		attribute.String(otelhelper.WorkflowIDKey, workflowID))
	defer span.End()

	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if err := validateForPublishing(workflow); err != nil {
		return nil, err
	}

	previousVersionID := workflow.PublishedVersionID

	version := &models.WorkflowVersion{
		WorkflowID: workflowID,
		Nodes:      models.CopyNodes(workflow.Nodes),
		Edges:      models.CopyEdges(workflow.Edges),
		Viewport:   workflow.Viewport,
		Config:     models.CopyMap(workflow.Config),
		Changelog:  changelog,
		CreatedBy:  userID,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.createVersionWithRetry(ctx, version); err != nil {
		return nil, err
	}

	if err := s.persistence.WorkflowRepository().UpdatePublishedVersion(ctx, workflowID, version); err != nil {
		return nil, fmt.Errorf("failed to update published version: %w", err)
	}

	record := &models.DeploymentRecord{
		WorkflowID:        workflowID,
		VersionID:         version.ID,
		Action:            models.DeploymentActionDeploy,
		PreviousVersionID: previousVersionID,
		DeployedBy:        userID,
		DeployedAt:        time.Now().UTC(),
	}

	if err := s.persistence.DeploymentRepository().Append(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to append deployment record: %w", err)
	}

	if activate {
		if err := s.persistence.WorkflowRepository().UpdateLiveStatus(ctx, workflowID, models.LiveStatusActive); err != nil {
			return nil, fmt.Errorf("failed to activate workflow: %w", err)
		}
	}

	s.logger.InfoContext(ctx, "Published workflow version",
		"workflow_id", workflowID,
		"version_id", version.ID,
		"version_number", version.VersionNumber,
		"activated", activate)

	s.emit(ctx, workflowID, events.VersionPublished{
		BaseEvent:     s.baseEvent(events.VersionPublishedEvent, workflowID),
		VersionID:     version.ID,
		VersionNumber: version.VersionNumber,
		PublishedBy:   userID,
		Activated:     activate,
	})

	return version, nil
}

// RestoreDraft overwrites the mutable draft with the content of an existing
// version. Publish state and live status are untouched.
func (s *Service) RestoreDraft(ctx context.Context, workflowID, versionID, userID string) error {
	version, err := s.persistence.VersionRepository().GetByWorkflowAndID(ctx, workflowID, versionID)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	err = s.persistence.WorkflowRepository().UpdateDraftContent(ctx, workflowID,
		models.CopyNodes(version.Nodes),
		models.CopyEdges(version.Edges),
		version.Viewport)
	if err != nil {
		return fmt.Errorf("failed to restore draft: %w", err)
	}

	s.logger.InfoContext(ctx, "Restored draft from version",
		"workflow_id", workflowID,
		"version_id", versionID,
		"version_number", version.VersionNumber,
		"user_id", userID)

	return nil
}

// RollbackToVersion points triggered execution at an older version without
// touching the draft, and appends a rollback record.
func (s *Service) RollbackToVersion(ctx context.Context, workflowID, versionID, userID, reason string) error {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}

	version, err := s.persistence.VersionRepository().GetByWorkflowAndID(ctx, workflowID, versionID)
	if err != nil {
		return fmt.Errorf("failed to get version: %w", err)
	}

	previousVersionID := workflow.PublishedVersionID

	if err := s.persistence.WorkflowRepository().UpdatePublishedVersion(ctx, workflowID, version); err != nil {
		return fmt.Errorf("failed to update published version: %w", err)
	}

	record := &models.DeploymentRecord{
		WorkflowID:        workflowID,
		VersionID:         version.ID,
		Action:            models.DeploymentActionRollback,
		PreviousVersionID: previousVersionID,
		DeployedBy:        userID,
		Reason:            reason,
		DeployedAt:        time.Now().UTC(),
	}

	if err := s.persistence.DeploymentRepository().Append(ctx, record); err != nil {
		return fmt.Errorf("failed to append deployment record: %w", err)
	}

	s.logger.InfoContext(ctx, "Rolled back workflow",
		"workflow_id", workflowID,
		"version_id", versionID,
		"version_number", version.VersionNumber,
		"user_id", userID)

	s.emit(ctx, workflowID, events.VersionRolledBack{
		BaseEvent:         s.baseEvent(events.VersionRolledBackEvent, workflowID),
		VersionID:         version.ID,
		VersionNumber:     version.VersionNumber,
		PreviousVersionID: previousVersionID,
		RolledBackBy:      userID,
		Reason:            reason,
	})

	return nil
}

// GetExecutableGraph resolves which graph runs for the given mode. Test mode
// always resolves the draft. Trigger mode resolves the live published
// version: a never-published workflow degrades to the draft with a warning,
// a published-but-inactive workflow is rejected with ErrInactiveWorkflow,
// and a missing version row degrades to the denormalized snapshot.
func (s *Service) GetExecutableGraph(ctx context.Context, workflowID string, mode models.ExecutionMode) (*models.ExecutableGraph, error) {
	ctx, span := s.startSpan(ctx, "versioning.get_executable_graph",
		attribute.String(otelhelper.WorkflowIDKey, workflowID),
		attribute.String(otelhelper.ExecutionModeKey, string(mode)))
	defer span.End()

	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	switch mode {
	case models.ExecutionModeTest:
		return draftGraph(workflow), nil
	case models.ExecutionModeTrigger:
		graph, err := s.triggerGraph(ctx, workflow)
		if err != nil {
			otelhelper.SetError(span, err)

			return nil, err
		}

		return graph, nil
	default:
		return nil, fmt.Errorf("%w: unknown execution mode '%s'", ErrValidation, mode)
	}
}

func (s *Service) triggerGraph(ctx context.Context, workflow *models.Workflow) (*models.ExecutableGraph, error) {
	if !workflow.IsPublished() {
		s.logger.WarnContext(ctx, "Trigger against never-published workflow, executing draft",
			"workflow_id", workflow.ID)

		return draftGraph(workflow), nil
	}

	if workflow.LiveStatus != models.LiveStatusActive {
		return nil, fmt.Errorf("%w: workflow %s has status '%s'",
			ErrInactiveWorkflow, workflow.ID, workflow.LiveStatus)
	}

	version, err := s.persistence.VersionRepository().GetByWorkflowAndID(ctx, workflow.ID, *workflow.PublishedVersionID)
	if err != nil {
		if persistence.IsVersionNotFound(err) {
			s.logger.ErrorContext(ctx, "Published version row missing, falling back to denormalized snapshot",
				"workflow_id", workflow.ID,
				"version_id", *workflow.PublishedVersionID)

			return snapshotGraph(workflow), nil
		}

		return nil, fmt.Errorf("failed to get published version: %w", err)
	}

	return &models.ExecutableGraph{
		WorkflowID:    workflow.ID,
		Nodes:         version.Nodes,
		Edges:         version.Edges,
		Viewport:      version.Viewport,
		Config:        version.Config,
		VersionNumber: version.VersionNumber,
		IsDraft:       false,
	}, nil
}

// UpdateLiveStatus transitions the workflow lifecycle state. Transitioning
// to inactive or archived appends a deactivate record referencing the
// current published version, when one exists.
func (s *Service) UpdateLiveStatus(ctx context.Context, workflowID string, status models.LiveStatus, userID string) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: invalid live status '%s'", ErrValidation, status)
	}

	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return fmt.Errorf("failed to get workflow: %w", err)
	}

	if workflow.LiveStatus == models.LiveStatusArchived && status != models.LiveStatusArchived {
		return fmt.Errorf("%w: workflow %s is archived", ErrValidation, workflowID)
	}

	if status == models.LiveStatusActive && !workflow.IsPublished() {
		return fmt.Errorf("%w: cannot activate workflow %s without a published version", ErrValidation, workflowID)
	}

	if err := s.persistence.WorkflowRepository().UpdateLiveStatus(ctx, workflowID, status); err != nil {
		return fmt.Errorf("failed to update live status: %w", err)
	}

	s.logger.InfoContext(ctx, "Updated workflow live status",
		"workflow_id", workflowID,
		"from", workflow.LiveStatus,
		"to", status,
		"user_id", userID)

	if (status == models.LiveStatusInactive || status == models.LiveStatusArchived) && workflow.IsPublished() {
		record := &models.DeploymentRecord{
			WorkflowID: workflowID,
			VersionID:  *workflow.PublishedVersionID,
			DeployedBy: userID,
			Action:     models.DeploymentActionDeactivate,
			DeployedAt: time.Now().UTC(),
		}

		if err := s.persistence.DeploymentRepository().Append(ctx, record); err != nil {
			return fmt.Errorf("failed to append deployment record: %w", err)
		}

		s.emit(ctx, workflowID, events.WorkflowDeactivated{
			BaseEvent:     s.baseEvent(events.WorkflowDeactivatedEvent, workflowID),
			Status:        string(status),
			DeactivatedBy: userID,
		})
	}

	return nil
}

// GetVersionHistory returns the version list for a workflow, newest first,
// with the currently live version marked.
func (s *Service) GetVersionHistory(ctx context.Context, workflowID string) ([]*models.VersionInfo, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	versions, err := s.persistence.VersionRepository().ListByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}

	history := make([]*models.VersionInfo, 0, len(versions))

	for _, version := range versions {
		history = append(history, &models.VersionInfo{
			ID:            version.ID,
			VersionNumber: version.VersionNumber,
			Changelog:     version.Changelog,
			CreatedBy:     version.CreatedBy,
			CreatedAt:     version.CreatedAt,
			NodeCount:     len(version.Nodes),
			IsLive:        workflow.PublishedVersionID != nil && version.ID == *workflow.PublishedVersionID,
		})
	}

	return history, nil
}

// HasUnpublishedChanges reports whether the draft differs from the published
// snapshot. A never-published workflow has unpublished changes as soon as
// the draft has any content.
func (s *Service) HasUnpublishedChanges(ctx context.Context, workflowID string) (bool, error) {
	workflow, err := s.persistence.WorkflowRepository().GetByID(ctx, workflowID)
	if err != nil {
		return false, fmt.Errorf("failed to get workflow: %w", err)
	}

	if !workflow.IsPublished() {
		return len(workflow.Nodes) > 0 || len(workflow.Edges) > 0, nil
	}

	return !graphsEqual(workflow.Nodes, workflow.Edges, workflow.PublishedNodes, workflow.PublishedEdges), nil
}

// createVersionWithRetry retries version creation after allocation races.
// The conflict surfaces to the caller once attempts are exhausted, never
// silently dropped.
func (s *Service) createVersionWithRetry(ctx context.Context, version *models.WorkflowVersion) error {
	var err error

	for attempt := 1; attempt <= publishRetries; attempt++ {
		err = s.persistence.VersionRepository().Create(ctx, version)
		if err == nil {
			return nil
		}

		if !persistence.IsVersionConflict(err) {
			return fmt.Errorf("failed to create version: %w", err)
		}

		s.logger.WarnContext(ctx, "Version number conflict, retrying",
			"workflow_id", version.WorkflowID,
			"attempt", attempt)
	}

	return fmt.Errorf("failed to create version after %d attempts: %w", publishRetries, err)
}

func (s *Service) emit(ctx context.Context, workflowID string, event eventbus.Event) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.Publish(ctx, workflowID, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish event",
			"event_type", event.GetType(),
			"workflow_id", workflowID,
			"error", err)
	}
}

func (s *Service) baseEvent(eventType events.EventType, workflowID string) events.BaseEvent {
	id := ""
	if bus, ok := s.eventBus.(eventbus.EventBus); ok {
		id = bus.GenerateID()
	}

	return events.BaseEvent{
		ID:         id,
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// validateForPublishing ensures the draft is structurally sound before it is
// frozen into a version.
func validateForPublishing(workflow *models.Workflow) error {
	// Archived is terminal: no publish may create versions for it or pull it
	// back to active.
	if workflow.LiveStatus == models.LiveStatusArchived {
		return fmt.Errorf("%w: workflow %s is archived", ErrValidation, workflow.ID)
	}

	if len(workflow.Nodes) == 0 {
		return fmt.Errorf("%w: workflow must have at least one node", ErrValidation)
	}

	nodeIDs := make(map[string]bool, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node.ID == "" {
			return fmt.Errorf("%w: node is missing an id", ErrValidation)
		}

		if node.Type == "" {
			return fmt.Errorf("%w: node %s is missing a type", ErrValidation, node.ID)
		}

		if nodeIDs[node.ID] {
			return fmt.Errorf("%w: duplicate node id %s", ErrValidation, node.ID)
		}

		nodeIDs[node.ID] = true
	}

	for _, edge := range workflow.Edges {
		if !nodeIDs[edge.Source] || !nodeIDs[edge.Target] {
			return fmt.Errorf("%w: edge %s references a missing node", ErrValidation, edge.ID)
		}
	}

	return nil
}

func draftGraph(workflow *models.Workflow) *models.ExecutableGraph {
	return &models.ExecutableGraph{
		WorkflowID: workflow.ID,
		Nodes:      workflow.Nodes,
		Edges:      workflow.Edges,
		Viewport:   workflow.Viewport,
		Config:     workflow.Config,
		IsDraft:    true,
	}
}

// snapshotGraph builds a graph from the workflow's denormalized published
// copy. Used only when the canonical version row is missing.
func snapshotGraph(workflow *models.Workflow) *models.ExecutableGraph {
	return &models.ExecutableGraph{
		WorkflowID:    workflow.ID,
		Nodes:         workflow.PublishedNodes,
		Edges:         workflow.PublishedEdges,
		Viewport:      workflow.PublishedViewport,
		Config:        workflow.Config,
		VersionNumber: workflow.PublishedVersionNumber,
		IsDraft:       false,
	}
}
