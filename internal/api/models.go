// Package api provides the TaskFlow HTTP API.
package api

import (
	"time"

	"github.com/taskflow-dev/taskflow/internal/model"
	"github.com/taskflow-dev/taskflow/internal/scoring"
	"github.com/taskflow-dev/taskflow/internal/store"
)

// --- Request DTOs ---

// CreateProjectRequest is the payload for POST /api/v1/projects.
type CreateProjectRequest struct {
	Name      string    `json:"name"`
	Budget    float64   `json:"budget"`
	ManagerID string    `json:"manager_id"`
	Status    string    `json:"status,omitempty"`
	StartAt   time.Time `json:"start_at"`
	DueAt     time.Time `json:"due_at"`
}

// ProjectPatchRequest is the payload for PATCH /api/v1/projects/:id.
type ProjectPatchRequest struct {
	Status      *string    `json:"status,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreatePhaseRequest is the payload for POST /api/v1/projects/:id/phases.
type CreatePhaseRequest struct {
	Name    string    `json:"name"`
	Status  string    `json:"status,omitempty"`
	StartAt time.Time `json:"start_at"`
	DueAt   time.Time `json:"due_at"`
}

// CreateTaskRequest is the payload for POST /api/v1/phases/:id/tasks.
type CreateTaskRequest struct {
	Name     string    `json:"name"`
	Priority string    `json:"priority"`
	Status   string    `json:"status,omitempty"`
	StartAt  time.Time `json:"start_at"`
	DueAt    time.Time `json:"due_at"`
}

// TaskPatchRequest is the payload for PATCH /api/v1/tasks/:id.
type TaskPatchRequest struct {
	Status      *string    `json:"status,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// CreateWorkerRequest is the payload for POST /api/v1/workers.
type CreateWorkerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
}

// CreateAssignmentRequest is the payload for POST /api/v1/projects/:id/assignments.
// TaskID is optional: without it the assignment is project-level.
type CreateAssignmentRequest struct {
	WorkerID string `json:"worker_id"`
	TaskID   string `json:"task_id,omitempty"`
}

// TokenRequest is the payload for POST /api/v1/auth/token.
type TokenRequest struct {
	APIKey string `json:"api_key"`
	Role   string `json:"role,omitempty"`
}

// --- Response DTOs ---

// ProjectResponse wraps a project for API responses.
type ProjectResponse struct {
	Project *model.Project `json:"project"`
}

// ProjectListResponse wraps a list of projects.
type ProjectListResponse struct {
	Projects []model.Project `json:"projects"`
	Total    int             `json:"total"`
}

// TaskResponse wraps a task.
type TaskResponse struct {
	Task *model.Task `json:"task"`
}

// PhaseResponse wraps a phase.
type PhaseResponse struct {
	Phase *model.Phase `json:"phase"`
}

// WorkerResponse wraps a worker.
type WorkerResponse struct {
	Worker *model.Worker `json:"worker"`
}

// WorkerListResponse wraps a list of workers.
type WorkerListResponse struct {
	Workers []model.Worker `json:"workers"`
	Total   int            `json:"total"`
}

// AssignmentResponse wraps an assignment.
type AssignmentResponse struct {
	Assignment *store.Assignment `json:"assignment"`
}

// TokenResponse is the response for POST /api/v1/auth/token.
type TokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// ProgressResponse is the response for GET /api/v1/projects/:id/progress.
type ProgressResponse struct {
	ProjectID   string                 `json:"project_id"`
	ProjectName string                 `json:"project_name"`
	Report      scoring.ProgressReport `json:"report"`
}

// WorkerPerformanceResponse is the response for GET /api/v1/workers/:id/performance.
type WorkerPerformanceResponse struct {
	WorkerID   string               `json:"worker_id"`
	WorkerName string               `json:"worker_name"`
	Report     scoring.WorkerReport `json:"report"`
}

// ManagerPerformanceResponse is the response for GET /api/v1/managers/:id/performance.
type ManagerPerformanceResponse struct {
	ManagerID string                `json:"manager_id"`
	Report    scoring.ManagerReport `json:"report"`
}

// ConfigResponse is the response for GET /api/v1/config.
type ConfigResponse struct {
	Environment    string `json:"environment"`
	LogLevel       string `json:"log_level"`
	HTTPPort       int    `json:"http_port"`
	APIListenAddr  string `json:"api_listen_addr"`
	RateLimitRPS   int    `json:"rate_limit_rps"`
	RateLimitBurst int    `json:"rate_limit_burst"`
	AuthMode       string `json:"auth_mode"`
}

// ProblemDetail follows RFC 7807 for error responses.
type ProblemDetail struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}
