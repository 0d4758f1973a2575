package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-dev/taskflow/internal/config"
	"github.com/taskflow-dev/taskflow/internal/health"
	"github.com/taskflow-dev/taskflow/internal/store"
)

// testApp creates a Fiber app with all routes and a temp-file store.
func testApp(t *testing.T, authMode, apiKey string) *fiber.App {
	t.Helper()
	logger := zerolog.Nop()

	st, err := store.New(filepath.Join(t.TempDir(), "api-test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	checker := health.NewChecker(logger)

	appCfg := &config.Config{
		Environment:    "test",
		LogLevel:       "debug",
		HTTPPort:       8080,
		APIListenAddr:  ":8090",
		RateLimitRPS:   100,
		RateLimitBurst: 200,
		AuthMode:       authMode,
		APIKey:         apiKey,
	}

	srv := NewServer(ServerConfig{
		ListenAddr: ":0",
		AuthConfig: AuthConfig{
			Mode:   authMode,
			APIKey: apiKey,
		},
		RateLimit: RateLimitConfig{RPS: 100, Burst: 200},
	}, st, checker, nil, appCfg, logger)

	return srv.App()
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var req *http.Request
	if body != "" {
		req, _ = http.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, _ = http.NewRequest(method, path, nil)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

const projectBody = `{
	"name": "Website Relaunch",
	"budget": 25000,
	"manager_id": "mgr-1",
	"start_at": "2024-03-01T00:00:00Z",
	"due_at": "2024-06-01T00:00:00Z"
}`

func createProject(t *testing.T, app *fiber.App) string {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/v1/projects", projectBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pr ProjectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	return pr.Project.ID
}

func createPhase(t *testing.T, app *fiber.App, projectID string) string {
	t.Helper()
	body := `{"name":"Design","start_at":"2024-03-01T00:00:00Z","due_at":"2024-04-01T00:00:00Z"}`
	resp := doJSON(t, app, "POST", "/api/v1/projects/"+projectID+"/phases", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var pr PhaseResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	return pr.Phase.ID
}

func createTask(t *testing.T, app *fiber.App, phaseID, priority, status string) string {
	t.Helper()
	body := `{"name":"Wireframes","priority":"` + priority + `","status":"` + status + `","start_at":"2024-03-01T00:00:00Z","due_at":"2024-03-15T00:00:00Z"}`
	resp := doJSON(t, app, "POST", "/api/v1/phases/"+phaseID+"/tasks", body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var tr TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	return tr.Task.ID
}

func TestServer_HealthzEndpoint(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	assert.Equal(t, "ok", body["status"])
}

func TestServer_ReadyzEndpoint(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/readyz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_CreateProject(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "POST", "/api/v1/projects", projectBody)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var pr ProjectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.NotEmpty(t, pr.Project.ID)
	assert.Equal(t, "Website Relaunch", pr.Project.Name)
	assert.Equal(t, "pending", string(pr.Project.Status))
}

func TestServer_CreateProject_MissingName(t *testing.T) {
	app := testApp(t, "none", "")

	body := `{"manager_id":"mgr-1","start_at":"2024-03-01T00:00:00Z","due_at":"2024-06-01T00:00:00Z"}`
	resp := doJSON(t, app, "POST", "/api/v1/projects", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "missing_name", problem.Type)
}

func TestServer_CreateProject_DueBeforeStart(t *testing.T) {
	app := testApp(t, "none", "")

	body := `{"name":"Backwards","manager_id":"mgr-1","start_at":"2024-06-01T00:00:00Z","due_at":"2024-03-01T00:00:00Z"}`
	resp := doJSON(t, app, "POST", "/api/v1/projects", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "invalid_dates", problem.Type)
}

func TestServer_GetProject_NotFound(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/api/v1/projects/nonexistent", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PatchProject_Status(t *testing.T) {
	app := testApp(t, "none", "")
	id := createProject(t, app)

	resp := doJSON(t, app, "PATCH", "/api/v1/projects/"+id, `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var pr ProjectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.Equal(t, "completed", string(pr.Project.Status))
	assert.NotNil(t, pr.Project.CompletedAt)
}

func TestServer_PatchProject_InvalidStatus(t *testing.T) {
	app := testApp(t, "none", "")
	id := createProject(t, app)

	resp := doJSON(t, app, "PATCH", "/api/v1/projects/"+id, `{"status":"paused"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_DeleteProject(t *testing.T) {
	app := testApp(t, "none", "")
	id := createProject(t, app)

	resp := doJSON(t, app, "DELETE", "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects/"+id, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ListProjects_Filter(t *testing.T) {
	app := testApp(t, "none", "")
	createProject(t, app)

	resp := doJSON(t, app, "GET", "/api/v1/projects?manager_id=mgr-1", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var lr ProjectListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&lr))
	assert.Equal(t, 1, lr.Total)

	resp = doJSON(t, app, "GET", "/api/v1/projects?manager_id=mgr-other", "")
	var empty ProjectListResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	assert.Equal(t, 0, empty.Total)
}

func TestServer_PhaseAndTaskFlow(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)
	taskID := createTask(t, app, phaseID, "high", "pending")

	resp := doJSON(t, app, "PATCH", "/api/v1/tasks/"+taskID, `{"status":"completed"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var tr TaskResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&tr))
	assert.Equal(t, "completed", string(tr.Task.Status))
	assert.NotNil(t, tr.Task.CompletedAt)
}

func TestServer_CreateTask_InvalidPriority(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)

	body := `{"name":"Task","priority":"urgent","start_at":"2024-03-01T00:00:00Z","due_at":"2024-03-15T00:00:00Z"}`
	resp := doJSON(t, app, "POST", "/api/v1/phases/"+phaseID+"/tasks", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem ProblemDetail
	json.NewDecoder(resp.Body).Decode(&problem)
	assert.Equal(t, "invalid_priority", problem.Type)
}

func TestServer_WorkerAndAssignmentFlow(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "POST", "/api/v1/workers", `{"name":"Dana","email":"dana@example.com"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var wr WorkerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wr))
	assert.Equal(t, "worker", wr.Worker.Role)

	projectID := createProject(t, app)

	resp = doJSON(t, app, "POST", "/api/v1/projects/"+projectID+"/assignments",
		`{"worker_id":"`+wr.Worker.ID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var ar AssignmentResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ar))
	assert.Equal(t, "assigned", string(ar.Assignment.Status))

	resp = doJSON(t, app, "POST", "/api/v1/assignments/"+ar.Assignment.ID+"/terminate", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Terminating twice conflicts.
	resp = doJSON(t, app, "POST", "/api/v1/assignments/"+ar.Assignment.ID+"/terminate", "")
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_ProgressReport(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)
	createTask(t, app, phaseID, "high", "completed")
	createTask(t, app, phaseID, "low", "pending")

	resp := doJSON(t, app, "GET", "/api/v1/projects/"+projectID+"/progress", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var pr ProgressResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.Equal(t, projectID, pr.ProjectID)
	assert.Equal(t, 2, pr.Report.TotalTasks)
	// high completed (100×3) + low pending (0×1) over weight 4 → 75
	assert.InDelta(t, 75.0, pr.Report.WeightedProgress, 0.01)
}

func TestServer_ProgressReport_ReflectsWrites(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)
	taskID := createTask(t, app, phaseID, "medium", "pending")

	// Two identical polls, the second served from cache.
	for i := 0; i < 2; i++ {
		resp := doJSON(t, app, "GET", "/api/v1/projects/"+projectID+"/progress", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var pr ProgressResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
		assert.Zero(t, pr.Report.WeightedProgress)
	}

	// A write invalidates the cached report.
	resp := doJSON(t, app, "PATCH", "/api/v1/tasks/"+taskID, `{"status":"completed"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/projects/"+projectID+"/progress", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var pr ProgressResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.InDelta(t, 100.0, pr.Report.WeightedProgress, 0.01)
}

func TestServer_ProgressReport_EmptyProject(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)

	resp := doJSON(t, app, "GET", "/api/v1/projects/"+projectID+"/progress", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var pr ProgressResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&pr))
	assert.Zero(t, pr.Report.WeightedProgress)
	assert.NotEmpty(t, pr.Report.Insights)
}

func TestServer_WorkerPerformanceReport(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "POST", "/api/v1/workers", `{"name":"Dana"}`)
	var wr WorkerResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&wr))

	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)
	createTask(t, app, phaseID, "high", "completed")

	resp = doJSON(t, app, "POST", "/api/v1/projects/"+projectID+"/assignments",
		`{"worker_id":"`+wr.Worker.ID+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/v1/workers/"+wr.Worker.ID+"/performance", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var perf WorkerPerformanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&perf))
	assert.Equal(t, wr.Worker.ID, perf.WorkerID)
	assert.Equal(t, 1, perf.Report.ProjectCount)
	assert.NotEqual(t, "N/A", perf.Report.Grade)
}

func TestServer_WorkerPerformance_UnknownWorker(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/api/v1/workers/nonexistent/performance", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_ManagerPerformance_NoProjects(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/api/v1/managers/mgr-ghost/performance", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var perf ManagerPerformanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&perf))
	assert.Zero(t, perf.Report.OverallScore)
	assert.Equal(t, "N/A", perf.Report.Grade)
}

func TestServer_ManagerPerformanceReport(t *testing.T) {
	app := testApp(t, "none", "")
	projectID := createProject(t, app)
	phaseID := createPhase(t, app, projectID)
	createTask(t, app, phaseID, "medium", "completed")

	resp := doJSON(t, app, "GET", "/api/v1/managers/mgr-1/performance", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var perf ManagerPerformanceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&perf))
	assert.Equal(t, "mgr-1", perf.ManagerID)
	assert.Equal(t, 1, perf.Report.ProjectCount)
}

func TestServer_GetConfig(t *testing.T) {
	app := testApp(t, "none", "")

	resp := doJSON(t, app, "GET", "/api/v1/config", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var cfg ConfigResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cfg))
	assert.Equal(t, "test", cfg.Environment)
	assert.Equal(t, "none", cfg.AuthMode)
}
