package postgres

const schema = `
CREATE TABLE IF NOT EXISTS task_types (
    id TEXT PRIMARY KEY,
    display_name TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL DEFAULT '',
    definition JSONB NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_task_types_active ON task_types(is_active);

CREATE TABLE IF NOT EXISTS validation_audit (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL,
    task_type_id TEXT NOT NULL DEFAULT '',
    payload_hash TEXT NOT NULL DEFAULT '',
    validation_result TEXT NOT NULL CHECK(validation_result IN ('passed', 'failed', 'flagged_for_review', 'rate_limited')),
    errors JSONB NOT NULL DEFAULT '[]',
    soft_flags JSONB NOT NULL DEFAULT '[]',
    attempt_number INTEGER NOT NULL DEFAULT 1,
    dry_run BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_agent_created ON validation_audit(agent_id, created_at);
CREATE INDEX IF NOT EXISTS idx_audit_task_type ON validation_audit(task_type_id);
CREATE INDEX IF NOT EXISTS idx_audit_hash ON validation_audit(payload_hash);
`
