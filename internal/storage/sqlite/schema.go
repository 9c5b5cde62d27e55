package sqlite

// schema defines the project_tasks table.
//
// The partial unique index on (project_id, source_id) is what makes canonical
// seeding idempotent under concurrent invocation: two racing seed attempts
// both INSERT with ON CONFLICT DO NOTHING, and at most one row survives per
// template. source_id is NULL for custom tasks, and SQLite treats NULLs as
// distinct in unique indexes, so the partial index keeps custom rows out of
// the constraint entirely.
//
// The CHECK(source = origin) constraint enforces the provenance mirror at the
// storage layer in addition to construction-time validation; the two columns
// historically diverged and must never do so again.
const schema = `
CREATE TABLE IF NOT EXISTS project_tasks (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	text TEXT NOT NULL,
	stage TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	notes TEXT NOT NULL DEFAULT '',
	priority TEXT,
	due_date TIMESTAMP,
	origin TEXT NOT NULL,
	source TEXT NOT NULL,
	source_id TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	CHECK (source = origin)
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_project_tasks_source
	ON project_tasks(project_id, source_id)
	WHERE source_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS idx_project_tasks_project
	ON project_tasks(project_id);
`
