package api

import (
	"github.com/gofiber/fiber/v2"

	"github.com/taskflow-dev/taskflow/internal/scoring"
)

// ProjectProgress handles GET /api/v1/projects/:id/progress. Reports are
// cached against the store revision, so repeated dashboard polls between
// writes skip the recompute.
func (h *Handlers) ProjectProgress(c *fiber.Ctx) error {
	id := c.Params("id")
	key := reportKey{ID: id, Rev: h.store.Revision()}

	if resp, ok := h.progress.Get(key); ok {
		return c.JSON(resp)
	}

	p, err := h.store.GetProject(id)
	if err != nil {
		return h.storeError(c, err)
	}

	report := scoring.ProjectProgress(*p)
	if h.metrics != nil {
		h.metrics.RecordReport("progress")
	}

	h.logger.Debug().
		Str("project_id", p.ID).
		Float64("weighted_progress", report.WeightedProgress).
		Msg("progress report computed")

	resp := ProgressResponse{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Report:      report,
	}
	h.progress.Put(key, resp)
	return c.JSON(resp)
}

// WorkerPerformance handles GET /api/v1/workers/:id/performance.
func (h *Handlers) WorkerPerformance(c *fiber.Ctx) error {
	id := c.Params("id")

	w, err := h.store.GetWorker(id)
	if err != nil {
		return h.storeError(c, err)
	}

	projects, err := h.store.WorkerProjects(id)
	if err != nil {
		return h.storeError(c, err)
	}

	report := scoring.WorkerPerformance(projects)
	if h.metrics != nil {
		h.metrics.RecordReport("worker_performance")
	}

	h.logger.Debug().
		Str("worker_id", id).
		Float64("overall_score", report.OverallScore).
		Str("grade", report.Grade).
		Msg("worker performance computed")

	return c.JSON(WorkerPerformanceResponse{
		WorkerID:   w.ID,
		WorkerName: w.Name,
		Report:     report,
	})
}

// ManagerPerformance handles GET /api/v1/managers/:id/performance.
// A manager with no projects gets a well-formed zero report, not a 404.
func (h *Handlers) ManagerPerformance(c *fiber.Ctx) error {
	id := c.Params("id")

	projects, err := h.store.ManagerProjects(id)
	if err != nil {
		return h.storeError(c, err)
	}

	report := scoring.ManagerPerformance(projects)
	if h.metrics != nil {
		h.metrics.RecordReport("manager_performance")
	}

	h.logger.Debug().
		Str("manager_id", id).
		Float64("overall_score", report.OverallScore).
		Str("grade", report.Grade).
		Msg("manager performance computed")

	return c.JSON(ManagerPerformanceResponse{
		ManagerID: id,
		Report:    report,
	})
}
