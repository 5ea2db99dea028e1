package migrations

var schemaHistory = []Migration{
	{
		Version:     1,
		Description: "task type registry",
		Up: `
			CREATE TABLE IF NOT EXISTS task_types (
				id TEXT PRIMARY KEY,
				display_name TEXT NOT NULL DEFAULT '',
				category TEXT NOT NULL DEFAULT '',
				definition TEXT NOT NULL,
				is_active INTEGER NOT NULL DEFAULT 1,
				updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
			);
			CREATE INDEX IF NOT EXISTS idx_task_types_active ON task_types(is_active);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_task_types_active;
			DROP TABLE IF EXISTS task_types;
		`,
	},
	{
		Version:     2,
		Description: "validation audit log",
		Up: `
			CREATE TABLE IF NOT EXISTS validation_audit (
				id TEXT PRIMARY KEY,
				agent_id TEXT NOT NULL,
				task_type_id TEXT NOT NULL DEFAULT '',
				payload_hash TEXT NOT NULL DEFAULT '',
				validation_result TEXT NOT NULL CHECK(validation_result IN ('passed', 'failed', 'flagged_for_review', 'rate_limited')),
				errors TEXT NOT NULL DEFAULT '[]',
				soft_flags TEXT NOT NULL DEFAULT '[]',
				attempt_number INTEGER NOT NULL DEFAULT 1,
				dry_run INTEGER NOT NULL DEFAULT 0,
				created_at DATETIME NOT NULL
			);
		`,
		Down: `
			DROP TABLE IF EXISTS validation_audit;
		`,
	},
	{
		Version:     3,
		Description: "audit lookup indexes",
		Up: `
			CREATE INDEX IF NOT EXISTS idx_audit_agent_created ON validation_audit(agent_id, created_at);
			CREATE INDEX IF NOT EXISTS idx_audit_task_type ON validation_audit(task_type_id);
			CREATE INDEX IF NOT EXISTS idx_audit_hash ON validation_audit(payload_hash);
		`,
		Down: `
			DROP INDEX IF EXISTS idx_audit_agent_created;
			DROP INDEX IF EXISTS idx_audit_task_type;
			DROP INDEX IF EXISTS idx_audit_hash;
		`,
	},
}
