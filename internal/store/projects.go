package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskflow-dev/taskflow/internal/model"
)

// Timestamps are stored as unix milliseconds.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(*t), Valid: true}
}

func millisPtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMillis(v.Int64)
	return &t
}

// CreateProject inserts a new project.
func (s *Store) CreateProject(p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	_, err := s.db.Exec(`
	INSERT INTO projects (id, name, budget, status, manager_id, start_at, due_at, completed_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Budget, string(p.Status), p.ManagerID,
		toMillis(p.StartAt), toMillis(p.DueAt), nullMillis(p.CompletedAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	s.bumpRevision()
	return nil
}

// GetProject retrieves a project with its phases and tasks, in position
// order. Returns ErrNotFound if the project does not exist.
func (s *Store) GetProject(id string) (*model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadProject(id)
}

// loadProject is the lock-free inner loader shared by the read-model queries.
func (s *Store) loadProject(id string) (*model.Project, error) {
	p := &model.Project{}
	var status string
	var startAt, dueAt int64
	var completedAt sql.NullInt64

	err := s.db.QueryRow(`
	SELECT id, name, budget, status, manager_id, start_at, due_at, completed_at
	FROM projects WHERE id = ?`, id).Scan(
		&p.ID, &p.Name, &p.Budget, &status, &p.ManagerID, &startAt, &dueAt, &completedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	p.Status = model.Status(status)
	p.StartAt = fromMillis(startAt)
	p.DueAt = fromMillis(dueAt)
	p.CompletedAt = millisPtr(completedAt)

	phases, err := s.loadPhases(p.ID)
	if err != nil {
		return nil, err
	}
	p.Phases = phases
	return p, nil
}

func (s *Store) loadPhases(projectID string) ([]model.Phase, error) {
	rows, err := s.db.Query(`
	SELECT id, name, status, start_at, due_at
	FROM phases WHERE project_id = ? ORDER BY position, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list phases: %w", err)
	}
	defer rows.Close()

	var phases []model.Phase
	for rows.Next() {
		var ph model.Phase
		var status string
		var startAt, dueAt int64
		if err := rows.Scan(&ph.ID, &ph.Name, &status, &startAt, &dueAt); err != nil {
			return nil, fmt.Errorf("failed to scan phase: %w", err)
		}
		ph.Status = model.Status(status)
		ph.StartAt = fromMillis(startAt)
		ph.DueAt = fromMillis(dueAt)
		phases = append(phases, ph)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating phases: %w", err)
	}

	for i := range phases {
		tasks, err := s.loadTasks(phases[i].ID)
		if err != nil {
			return nil, err
		}
		phases[i].Tasks = tasks
	}
	return phases, nil
}

func (s *Store) loadTasks(phaseID string) ([]model.Task, error) {
	rows, err := s.db.Query(`
	SELECT id, name, priority, status, start_at, due_at, completed_at
	FROM tasks WHERE phase_id = ? ORDER BY position, id`, phaseID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []model.Task
	for rows.Next() {
		var t model.Task
		var priority, status string
		var startAt, dueAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(&t.ID, &t.Name, &priority, &status, &startAt, &dueAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.Priority = model.Priority(priority)
		t.Status = model.Status(status)
		t.StartAt = fromMillis(startAt)
		t.DueAt = fromMillis(dueAt)
		t.CompletedAt = millisPtr(completedAt)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}
	return tasks, nil
}

// ListProjects returns projects (without nested phases) matching the
// optional status and manager filters, newest first.
func (s *Store) ListProjects(status, managerID string) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
	SELECT id, name, budget, status, manager_id, start_at, due_at, completed_at
	FROM projects`

	var args []interface{}
	var where []string
	if status != "" {
		where = append(where, "status = ?")
		args = append(args, status)
	}
	if managerID != "" {
		where = append(where, "manager_id = ?")
		args = append(args, managerID)
	}
	for i, cond := range where {
		if i == 0 {
			query += " WHERE " + cond
		} else {
			query += " AND " + cond
		}
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []model.Project
	for rows.Next() {
		var p model.Project
		var st string
		var startAt, dueAt int64
		var completedAt sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Budget, &st, &p.ManagerID, &startAt, &dueAt, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		p.Status = model.Status(st)
		p.StartAt = fromMillis(startAt)
		p.DueAt = fromMillis(dueAt)
		p.CompletedAt = millisPtr(completedAt)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}
	return projects, nil
}

// UpdateProjectStatus updates a project's status. Moving to completed
// records the actual completion time; moving away clears it.
func (s *Store) UpdateProjectStatus(id string, status model.Status, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == model.StatusCompleted && completedAt == nil {
		now := time.Now().UTC()
		completedAt = &now
	}
	if status != model.StatusCompleted {
		completedAt = nil
	}

	res, err := s.db.Exec(`
	UPDATE projects SET status = ?, completed_at = ?, updated_at = ? WHERE id = ?`,
		string(status), nullMillis(completedAt), time.Now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to update project status: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	s.bumpRevision()
	return nil
}

// DeleteProject removes a project and, via cascade, its phases, tasks, and
// assignments.
func (s *Store) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	s.bumpRevision()
	return nil
}

// ManagerProjects loads the full nested project set a manager owns, as the
// manager performance calculator expects it.
func (s *Store) ManagerProjects(managerID string) ([]model.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id FROM projects WHERE manager_id = ? ORDER BY created_at`, managerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list manager projects: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan project id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project ids: %w", err)
	}

	projects := make([]model.Project, 0, len(ids))
	for _, id := range ids {
		p, err := s.loadProject(id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, nil
}
