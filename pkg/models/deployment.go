package models

import "time"

// DeploymentAction classifies an entry in the deployment audit trail.
type DeploymentAction string

const (
	DeploymentActionDeploy     DeploymentAction = "deploy"
	DeploymentActionRollback   DeploymentAction = "rollback"
	DeploymentActionDeactivate DeploymentAction = "deactivate"
)

// DeploymentRecord is an append-only audit entry for publish, rollback and
// deactivate actions. Records are never updated or deleted.
type DeploymentRecord struct {
	ID                string           `json:"id"`
	WorkflowID        string           `json:"workflow_id" validate:"required"`
	VersionID         string           `json:"version_id"  validate:"required"`
	Action            DeploymentAction `json:"action"      validate:"required"`
	PreviousVersionID *string          `json:"previous_version_id,omitempty"`
	DeployedBy        string           `json:"deployed_by"`
	Reason            string           `json:"reason,omitempty"`
	DeployedAt        time.Time        `json:"deployed_at"`
}
