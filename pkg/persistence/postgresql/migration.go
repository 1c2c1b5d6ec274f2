package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			-- Workflow drafts with denormalized published snapshot
			CREATE TABLE workflows (
				id UUID PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				viewport JSONB NOT NULL DEFAULT '{}',
				config JSONB,
				live_status VARCHAR(50) NOT NULL CHECK (live_status IN ('draft', 'active', 'inactive', 'archived')),
				published_version_id UUID,
				published_version_number INT NOT NULL DEFAULT 0,
				published_nodes JSONB,
				published_edges JSONB,
				published_viewport JSONB,
				owner VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL,
				deleted_at TIMESTAMP WITH TIME ZONE
			);

			CREATE INDEX idx_workflows_live_status ON workflows(live_status);
			CREATE INDEX idx_workflows_owner ON workflows(owner);
			CREATE INDEX idx_workflows_deleted_at ON workflows(deleted_at);

			-- Immutable version snapshots. The unique index on
			-- (workflow_id, version_number) backs the atomic number
			-- allocation in VersionRepository.Create.
			CREATE TABLE workflow_versions (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				version_number INT NOT NULL CHECK (version_number > 0),
				nodes JSONB NOT NULL DEFAULT '[]',
				edges JSONB NOT NULL DEFAULT '[]',
				viewport JSONB NOT NULL DEFAULT '{}',
				config JSONB,
				changelog TEXT NOT NULL DEFAULT '',
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				UNIQUE (workflow_id, version_number)
			);

			CREATE INDEX idx_workflow_versions_workflow_id ON workflow_versions(workflow_id);

			-- Append-only deployment audit trail
			CREATE TABLE deployment_records (
				id UUID PRIMARY KEY,
				workflow_id UUID NOT NULL REFERENCES workflows(id) ON DELETE CASCADE,
				version_id UUID NOT NULL,
				action VARCHAR(50) NOT NULL CHECK (action IN ('deploy', 'rollback', 'deactivate')),
				previous_version_id UUID,
				deployed_by VARCHAR(255),
				reason TEXT NOT NULL DEFAULT '',
				deployed_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_deployment_records_workflow_id ON deployment_records(workflow_id, deployed_at DESC);
		`,
	}
}
