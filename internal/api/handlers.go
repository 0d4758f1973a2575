package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/taskflow-dev/taskflow/internal/cache"
	"github.com/taskflow-dev/taskflow/internal/config"
	"github.com/taskflow-dev/taskflow/internal/health"
	"github.com/taskflow-dev/taskflow/internal/metrics"
	"github.com/taskflow-dev/taskflow/internal/model"
	"github.com/taskflow-dev/taskflow/internal/store"
)

// progressCacheSize bounds the number of cached progress reports.
const progressCacheSize = 256

// reportKey identifies a cached report: any store mutation changes the
// revision, so stale entries are never served.
type reportKey struct {
	ID  string
	Rev int64
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	store    *store.Store
	checker  *health.Checker
	metrics  *metrics.Metrics
	cfg      *config.Config
	logger   zerolog.Logger
	progress *cache.Cache[reportKey, ProgressResponse]
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(st *store.Store, checker *health.Checker, m *metrics.Metrics, cfg *config.Config, logger zerolog.Logger) *Handlers {
	return &Handlers{
		store:    st,
		checker:  checker,
		metrics:  m,
		cfg:      cfg,
		logger:   logger.With().Str("component", "handlers").Logger(),
		progress: cache.New[reportKey, ProgressResponse](progressCacheSize),
	}
}

// storeError maps store sentinel errors onto problem responses.
func (h *Handlers) storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return problemResponse(c, fiber.StatusNotFound,
			"not_found", "Not Found", err.Error())
	case errors.Is(err, store.ErrConflict):
		return problemResponse(c, fiber.StatusConflict,
			"conflict", "Conflict", err.Error())
	}

	h.logger.Error().Err(err).Str("path", c.Path()).Msg("store operation failed")
	if h.metrics != nil {
		h.metrics.RecordError("store", "internal")
	}
	return problemResponse(c, fiber.StatusInternalServerError,
		"internal_error", "Internal Server Error", "An internal error occurred")
}

// --- Projects ---

// CreateProject handles POST /api/v1/projects.
func (h *Handlers) CreateProject(c *fiber.Ctx) error {
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "Project name is required")
	}
	if req.ManagerID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_manager", "Bad Request", "Manager ID is required")
	}
	if !req.DueAt.After(req.StartAt) {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_dates", "Bad Request", "Due date must be after start date")
	}

	status := model.StatusPending
	if req.Status != "" {
		parsed, err := model.ParseStatus(req.Status)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_status", "Bad Request", err.Error())
		}
		status = parsed
	}

	p := &model.Project{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Budget:    req.Budget,
		Status:    status,
		ManagerID: req.ManagerID,
		StartAt:   req.StartAt,
		DueAt:     req.DueAt,
	}

	if err := h.store.CreateProject(p); err != nil {
		return h.storeError(c, err)
	}

	h.logger.Info().Str("project_id", p.ID).Str("manager_id", p.ManagerID).Msg("project created")
	return c.Status(fiber.StatusCreated).JSON(ProjectResponse{Project: p})
}

// ListProjects handles GET /api/v1/projects.
func (h *Handlers) ListProjects(c *fiber.Ctx) error {
	status := c.Query("status")
	if status != "" {
		if _, err := model.ParseStatus(status); err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_status", "Bad Request", err.Error())
		}
	}

	projects, err := h.store.ListProjects(status, c.Query("manager_id"))
	if err != nil {
		return h.storeError(c, err)
	}
	if projects == nil {
		projects = []model.Project{}
	}

	return c.JSON(ProjectListResponse{Projects: projects, Total: len(projects)})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *Handlers) GetProject(c *fiber.Ctx) error {
	p, err := h.store.GetProject(c.Params("id"))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(ProjectResponse{Project: p})
}

// PatchProject handles PATCH /api/v1/projects/:id.
func (h *Handlers) PatchProject(c *fiber.Ctx) error {
	var req ProjectPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Status == nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_status", "Bad Request", "Status is required")
	}

	status, err := model.ParseStatus(*req.Status)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_status", "Bad Request", err.Error())
	}

	id := c.Params("id")
	if err := h.store.UpdateProjectStatus(id, status, req.CompletedAt); err != nil {
		return h.storeError(c, err)
	}

	p, err := h.store.GetProject(id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(ProjectResponse{Project: p})
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *Handlers) DeleteProject(c *fiber.Ctx) error {
	if err := h.store.DeleteProject(c.Params("id")); err != nil {
		return h.storeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// --- Phases and tasks ---

// CreatePhase handles POST /api/v1/projects/:id/phases.
func (h *Handlers) CreatePhase(c *fiber.Ctx) error {
	var req CreatePhaseRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "Phase name is required")
	}

	status := model.StatusPending
	if req.Status != "" {
		parsed, err := model.ParseStatus(req.Status)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_status", "Bad Request", err.Error())
		}
		status = parsed
	}

	ph := &model.Phase{
		ID:      uuid.New().String(),
		Name:    req.Name,
		Status:  status,
		StartAt: req.StartAt,
		DueAt:   req.DueAt,
	}

	if err := h.store.CreatePhase(c.Params("id"), ph); err != nil {
		return h.storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(PhaseResponse{Phase: ph})
}

// CreateTask handles POST /api/v1/phases/:id/tasks.
func (h *Handlers) CreateTask(c *fiber.Ctx) error {
	var req CreateTaskRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "Task name is required")
	}

	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_priority", "Bad Request", err.Error())
	}

	status := model.StatusPending
	if req.Status != "" {
		parsed, err := model.ParseStatus(req.Status)
		if err != nil {
			return problemResponse(c, fiber.StatusBadRequest,
				"invalid_status", "Bad Request", err.Error())
		}
		status = parsed
	}

	task := &model.Task{
		ID:       uuid.New().String(),
		Name:     req.Name,
		Priority: priority,
		Status:   status,
		StartAt:  req.StartAt,
		DueAt:    req.DueAt,
	}

	if err := h.store.CreateTask(c.Params("id"), task); err != nil {
		return h.storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(TaskResponse{Task: task})
}

// PatchTask handles PATCH /api/v1/tasks/:id.
func (h *Handlers) PatchTask(c *fiber.Ctx) error {
	var req TaskPatchRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Status == nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_status", "Bad Request", "Status is required")
	}

	status, err := model.ParseStatus(*req.Status)
	if err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_status", "Bad Request", err.Error())
	}

	id := c.Params("id")
	if err := h.store.UpdateTaskStatus(id, status, req.CompletedAt); err != nil {
		return h.storeError(c, err)
	}

	task, err := h.store.GetTask(id)
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(TaskResponse{Task: task})
}

// --- Workers and assignments ---

// CreateWorker handles POST /api/v1/workers.
func (h *Handlers) CreateWorker(c *fiber.Ctx) error {
	var req CreateWorkerRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.Name == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_name", "Bad Request", "Worker name is required")
	}

	role := req.Role
	if role == "" {
		role = "worker"
	}

	w := &model.Worker{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Email: req.Email,
		Role:  role,
	}

	if err := h.store.CreateWorker(w); err != nil {
		return h.storeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(WorkerResponse{Worker: w})
}

// ListWorkers handles GET /api/v1/workers.
func (h *Handlers) ListWorkers(c *fiber.Ctx) error {
	workers, err := h.store.ListWorkers()
	if err != nil {
		return h.storeError(c, err)
	}
	if workers == nil {
		workers = []model.Worker{}
	}
	return c.JSON(WorkerListResponse{Workers: workers, Total: len(workers)})
}

// GetWorker handles GET /api/v1/workers/:id.
func (h *Handlers) GetWorker(c *fiber.Ctx) error {
	w, err := h.store.GetWorker(c.Params("id"))
	if err != nil {
		return h.storeError(c, err)
	}
	return c.JSON(WorkerResponse{Worker: w})
}

// CreateAssignment handles POST /api/v1/projects/:id/assignments.
func (h *Handlers) CreateAssignment(c *fiber.Ctx) error {
	var req CreateAssignmentRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	if req.WorkerID == "" {
		return problemResponse(c, fiber.StatusBadRequest,
			"missing_worker", "Bad Request", "Worker ID is required")
	}

	a := &store.Assignment{
		ID:        uuid.New().String(),
		WorkerID:  req.WorkerID,
		ProjectID: c.Params("id"),
		TaskID:    req.TaskID,
	}

	if err := h.store.CreateAssignment(a); err != nil {
		return h.storeError(c, err)
	}

	h.logger.Info().
		Str("assignment_id", a.ID).
		Str("worker_id", a.WorkerID).
		Str("project_id", a.ProjectID).
		Msg("worker assigned")
	return c.Status(fiber.StatusCreated).JSON(AssignmentResponse{Assignment: a})
}

// TerminateAssignment handles POST /api/v1/assignments/:id/terminate.
func (h *Handlers) TerminateAssignment(c *fiber.Ctx) error {
	a, err := h.store.TerminateAssignment(c.Params("id"))
	if err != nil {
		return h.storeError(c, err)
	}

	h.logger.Info().
		Str("assignment_id", a.ID).
		Str("worker_id", a.WorkerID).
		Msg("assignment terminated")
	return c.JSON(AssignmentResponse{Assignment: a})
}

// --- Config and probes ---

// GetConfig handles GET /api/v1/config.
func (h *Handlers) GetConfig(c *fiber.Ctx) error {
	return c.JSON(ConfigResponse{
		Environment:    h.cfg.Environment,
		LogLevel:       h.cfg.LogLevel,
		HTTPPort:       h.cfg.HTTPPort,
		APIListenAddr:  h.cfg.APIListenAddr,
		RateLimitRPS:   h.cfg.RateLimitRPS,
		RateLimitBurst: h.cfg.RateLimitBurst,
		AuthMode:       h.cfg.AuthMode,
	})
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	if !h.checker.IsReady(c.Context()) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
		})
	}
	return c.JSON(fiber.Map{"status": "ready"})
}
