package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/taskflow-dev/taskflow/internal/model"
	"github.com/taskflow-dev/taskflow/internal/scoring"
)

// Assignment links a worker to a project, or to a single task within it
// when TaskID is set. Termination is recorded rather than deleted so
// performance reports can apply penalties.
type Assignment struct {
	ID           string             `json:"id"`
	WorkerID     string             `json:"worker_id"`
	ProjectID    string             `json:"project_id"`
	TaskID       string             `json:"task_id,omitempty"`
	Status       model.WorkerStatus `json:"status"`
	CreatedAt    int64              `json:"created_at"`
	TerminatedAt int64              `json:"terminated_at,omitempty"`
}

// CreateWorker inserts a new worker.
func (s *Store) CreateWorker(w *model.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO workers (id, name, email, role, created_at) VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Name, w.Email, w.Role, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	s.bumpRevision()
	return nil
}

// GetWorker retrieves a worker by ID.
func (s *Store) GetWorker(id string) (*model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var w model.Worker
	err := s.db.QueryRow(`SELECT id, name, email, role FROM workers WHERE id = ?`, id).
		Scan(&w.ID, &w.Name, &w.Email, &w.Role)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	return &w, nil
}

// ListWorkers returns all workers, oldest first.
func (s *Store) ListWorkers() ([]model.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`SELECT id, name, email, role FROM workers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		var w model.Worker
		if err := rows.Scan(&w.ID, &w.Name, &w.Email, &w.Role); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating workers: %w", err)
	}
	return workers, nil
}

// CreateAssignment records a worker assignment to a project or task.
func (s *Store) CreateAssignment(a *Assignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.Status == "" {
		a.Status = model.WorkerAssigned
	}
	if a.CreatedAt == 0 {
		a.CreatedAt = time.Now().UnixMilli()
	}

	_, err := s.db.Exec(`
	INSERT INTO assignments (id, worker_id, project_id, task_id, status, created_at, terminated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.WorkerID, a.ProjectID,
		sql.NullString{String: a.TaskID, Valid: a.TaskID != ""},
		string(a.Status), a.CreatedAt,
		sql.NullInt64{Int64: a.TerminatedAt, Valid: a.TerminatedAt != 0})
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}
	s.bumpRevision()
	return nil
}

// GetAssignment retrieves an assignment by ID.
func (s *Store) GetAssignment(id string) (*Assignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadAssignment(id)
}

func (s *Store) loadAssignment(id string) (*Assignment, error) {
	var a Assignment
	var taskID sql.NullString
	var terminatedAt sql.NullInt64
	var status string

	err := s.db.QueryRow(`
	SELECT id, worker_id, project_id, task_id, status, created_at, terminated_at
	FROM assignments WHERE id = ?`, id).Scan(
		&a.ID, &a.WorkerID, &a.ProjectID, &taskID, &status, &a.CreatedAt, &terminatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("assignment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	a.TaskID = taskID.String
	a.Status = model.WorkerStatus(status)
	if terminatedAt.Valid {
		a.TerminatedAt = terminatedAt.Int64
	}
	return &a, nil
}

// TerminateAssignment marks an assignment terminated. Terminating an
// already-terminated assignment is a conflict.
func (s *Store) TerminateAssignment(id string) (*Assignment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.loadAssignment(id)
	if err != nil {
		return nil, err
	}
	if a.Status == model.WorkerTerminated {
		return nil, fmt.Errorf("assignment %s already terminated: %w", id, ErrConflict)
	}

	now := time.Now().UnixMilli()
	if _, err := s.db.Exec(`UPDATE assignments SET status = ?, terminated_at = ? WHERE id = ?`,
		string(model.WorkerTerminated), now, id); err != nil {
		return nil, fmt.Errorf("failed to terminate assignment: %w", err)
	}

	a.Status = model.WorkerTerminated
	a.TerminatedAt = now
	s.bumpRevision()
	return a, nil
}

// WorkerProjects builds the worker performance read model: every project
// the worker has a project-level assignment on, loaded with nested phases
// and tasks, annotated with the worker's project standing and with
// task-level standings on the tasks themselves.
func (s *Store) WorkerProjects(workerID string) ([]scoring.WorkerProject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
	SELECT project_id, task_id, status
	FROM assignments WHERE worker_id = ? ORDER BY created_at`, workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list worker assignments: %w", err)
	}
	defer rows.Close()

	projectStatus := make(map[string]model.WorkerStatus)
	taskStatus := make(map[string]model.WorkerStatus)
	var projectOrder []string

	for rows.Next() {
		var projectID string
		var taskID sql.NullString
		var status string
		if err := rows.Scan(&projectID, &taskID, &status); err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}

		if taskID.Valid && taskID.String != "" {
			taskStatus[taskID.String] = model.WorkerStatus(status)
			continue
		}
		if _, seen := projectStatus[projectID]; !seen {
			projectOrder = append(projectOrder, projectID)
		}
		projectStatus[projectID] = model.WorkerStatus(status)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assignments: %w", err)
	}

	result := make([]scoring.WorkerProject, 0, len(projectOrder))
	for _, projectID := range projectOrder {
		p, err := s.loadProject(projectID)
		if err != nil {
			return nil, err
		}
		for pi := range p.Phases {
			for ti := range p.Phases[pi].Tasks {
				task := &p.Phases[pi].Tasks[ti]
				if ws, ok := taskStatus[task.ID]; ok {
					task.WorkerStatus = ws
				}
			}
		}
		result = append(result, scoring.WorkerProject{Project: *p, Status: projectStatus[projectID]})
	}
	return result, nil
}
