package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskflow-dev/taskflow/internal/model"
)

// CreatePhase inserts a phase at the end of a project's phase order.
func (s *Store) CreatePhase(projectID string, ph *model.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE id = ?`, projectID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("project %s: %w", projectID, ErrNotFound)
	}

	var position int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(position)+1, 0) FROM phases WHERE project_id = ?`, projectID).Scan(&position); err != nil {
		return fmt.Errorf("failed to compute phase position: %w", err)
	}

	_, err := s.db.Exec(`
	INSERT INTO phases (id, project_id, name, status, start_at, due_at, position)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ph.ID, projectID, ph.Name, string(ph.Status), toMillis(ph.StartAt), toMillis(ph.DueAt), position)
	if err != nil {
		return fmt.Errorf("failed to create phase: %w", err)
	}
	s.bumpRevision()
	return nil
}

// CreateTask inserts a task at the end of a phase's task order.
func (s *Store) CreateTask(phaseID string, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var exists int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM phases WHERE id = ?`, phaseID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check phase: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("phase %s: %w", phaseID, ErrNotFound)
	}

	var position int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(position)+1, 0) FROM tasks WHERE phase_id = ?`, phaseID).Scan(&position); err != nil {
		return fmt.Errorf("failed to compute task position: %w", err)
	}

	_, err := s.db.Exec(`
	INSERT INTO tasks (id, phase_id, name, priority, status, start_at, due_at, completed_at, position)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, phaseID, t.Name, string(t.Priority), string(t.Status),
		toMillis(t.StartAt), toMillis(t.DueAt), nullMillis(t.CompletedAt), position)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	s.bumpRevision()
	return nil
}

// GetTask retrieves a single task by ID.
func (s *Store) GetTask(id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t model.Task
	var priority, status string
	var startAt, dueAt int64
	var completedAt sql.NullInt64

	err := s.db.QueryRow(`
	SELECT id, name, priority, status, start_at, due_at, completed_at
	FROM tasks WHERE id = ?`, id).Scan(
		&t.ID, &t.Name, &priority, &status, &startAt, &dueAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	t.Priority = model.Priority(priority)
	t.Status = model.Status(status)
	t.StartAt = fromMillis(startAt)
	t.DueAt = fromMillis(dueAt)
	t.CompletedAt = millisPtr(completedAt)
	return &t, nil
}

// UpdateTaskStatus moves a task to a new status. Completion stamps
// completed_at (actual completion is only ever present on completed
// tasks); any other transition clears it.
func (s *Store) UpdateTaskStatus(id string, status model.Status, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if status == model.StatusCompleted && completedAt == nil {
		now := time.Now().UTC()
		completedAt = &now
	}
	if status != model.StatusCompleted {
		completedAt = nil
	}

	res, err := s.db.Exec(`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?`,
		string(status), nullMillis(completedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update task status: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task %s: %w", id, ErrNotFound)
	}
	s.bumpRevision()
	return nil
}
