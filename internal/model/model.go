// Package model defines the TaskFlow domain entities shared by the store,
// the scoring engine, and the HTTP API.
package model

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of a project, phase, or task.
type Status string

const (
	StatusPending   Status = "pending"
	StatusOnGoing   Status = "on_going"
	StatusCompleted Status = "completed"
	StatusDelayed   Status = "delayed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusPending, StatusOnGoing, StatusCompleted, StatusDelayed, StatusCancelled}

// ParseStatus validates a raw status string. Unknown values are a hard
// error — callers are responsible for data integrity before scoring.
func ParseStatus(raw string) (Status, error) {
	switch s := Status(raw); s {
	case StatusPending, StatusOnGoing, StatusCompleted, StatusDelayed, StatusCancelled:
		return s, nil
	}
	return "", fmt.Errorf("unknown status: %q", raw)
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Priorities lists every valid priority in ascending order.
var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

// ParsePriority validates a raw priority string.
func ParsePriority(raw string) (Priority, error) {
	switch p := Priority(raw); p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return p, nil
	}
	return "", fmt.Errorf("unknown priority: %q", raw)
}

// WorkerStatus represents a worker's standing on a project or task.
// An empty value means no worker annotation is attached.
type WorkerStatus string

const (
	WorkerAssigned   WorkerStatus = "assigned"
	WorkerTerminated WorkerStatus = "terminated"
)

// ParseWorkerStatus validates a raw worker status string. The empty string
// is accepted and means "not annotated".
func ParseWorkerStatus(raw string) (WorkerStatus, error) {
	switch w := WorkerStatus(raw); w {
	case "", WorkerAssigned, WorkerTerminated:
		return w, nil
	}
	return "", fmt.Errorf("unknown worker status: %q", raw)
}

// Task is a single unit of work inside a phase.
//
// CompletedAt is set only when Status is StatusCompleted. WorkerStatus is an
// explicit optional field replacing the free-form metadata bag the original
// application attached after construction.
type Task struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Priority     Priority     `json:"priority"`
	Status       Status       `json:"status"`
	StartAt      time.Time    `json:"start_at"`
	DueAt        time.Time    `json:"due_at"`
	CompletedAt  *time.Time   `json:"completed_at,omitempty"`
	WorkerStatus WorkerStatus `json:"worker_status,omitempty"`
}

// Phase is an ordered group of tasks within a project. Phase date bounds are
// enforced by the CRUD layer, not by the scoring engine.
type Phase struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Status  Status    `json:"status"`
	StartAt time.Time `json:"start_at"`
	DueAt   time.Time `json:"due_at"`
	Tasks   []Task    `json:"tasks"`
}

// Project is the top-level entity: a budgeted body of work split into phases.
type Project struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Budget      float64    `json:"budget"`
	Status      Status     `json:"status"`
	ManagerID   string     `json:"manager_id"`
	StartAt     time.Time  `json:"start_at"`
	DueAt       time.Time  `json:"due_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Phases      []Phase    `json:"phases"`
}

// Tasks flattens every task across all phases, in phase order.
func (p Project) Tasks() []Task {
	var tasks []Task
	for _, ph := range p.Phases {
		tasks = append(tasks, ph.Tasks...)
	}
	return tasks
}

// Worker is a person who can be assigned to projects and tasks.
type Worker struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"` // "worker" or "manager"
}
