package store

import (
	"fmt"
)

func (s *Store) migrate() error {
	return s.migrateV1()
}

func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id         TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		email      TEXT NOT NULL DEFAULT '',
		role       TEXT NOT NULL DEFAULT 'worker',
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		budget       REAL NOT NULL DEFAULT 0,
		status       TEXT NOT NULL DEFAULT 'pending',
		manager_id   TEXT NOT NULL DEFAULT '',
		start_at     INTEGER NOT NULL,
		due_at       INTEGER NOT NULL,
		completed_at INTEGER,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_projects_status ON projects(status);
	CREATE INDEX IF NOT EXISTS idx_projects_manager ON projects(manager_id);

	CREATE TABLE IF NOT EXISTS phases (
		id         TEXT PRIMARY KEY,
		project_id TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		status     TEXT NOT NULL DEFAULT 'pending',
		start_at   INTEGER NOT NULL,
		due_at     INTEGER NOT NULL,
		position   INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_phases_project ON phases(project_id, position);

	CREATE TABLE IF NOT EXISTS tasks (
		id           TEXT PRIMARY KEY,
		phase_id     TEXT NOT NULL REFERENCES phases(id) ON DELETE CASCADE,
		name         TEXT NOT NULL,
		priority     TEXT NOT NULL DEFAULT 'medium',
		status       TEXT NOT NULL DEFAULT 'pending',
		start_at     INTEGER NOT NULL,
		due_at       INTEGER NOT NULL,
		completed_at INTEGER,
		position     INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_tasks_phase ON tasks(phase_id, position);
	CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);

	CREATE TABLE IF NOT EXISTS assignments (
		id            TEXT PRIMARY KEY,
		worker_id     TEXT NOT NULL REFERENCES workers(id),
		project_id    TEXT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
		task_id       TEXT,
		status        TEXT NOT NULL DEFAULT 'assigned',
		created_at    INTEGER NOT NULL,
		terminated_at INTEGER
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_worker ON assignments(worker_id);
	CREATE INDEX IF NOT EXISTS idx_assignments_project ON assignments(project_id);

	CREATE TABLE IF NOT EXISTS meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR REPLACE INTO meta(key, value) VALUES ('schema_version', '1');
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute migration v1: %w", err)
	}

	return nil
}
