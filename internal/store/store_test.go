package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow-dev/taskflow/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "taskflow-test.db")
	s, err := New(dbPath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testProject(managerID string) *model.Project {
	return &model.Project{
		ID:        uuid.New().String(),
		Name:      "Website Relaunch",
		Budget:    25000,
		Status:    model.StatusOnGoing,
		ManagerID: managerID,
		StartAt:   time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		DueAt:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNew_CreatesSchema(t *testing.T) {
	s := newTestStore(t)

	tables := []string{"workers", "projects", "phases", "tasks", "assignments", "meta"}
	for _, table := range tables {
		var count int
		err := s.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err)
		assert.Equal(t, 1, count, "table %s should exist", table)
	}
}

func TestProject_CRUD(t *testing.T) {
	s := newTestStore(t)

	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))

	retrieved, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, retrieved.Name)
	assert.Equal(t, model.StatusOnGoing, retrieved.Status)
	assert.Equal(t, p.Budget, retrieved.Budget)
	assert.True(t, retrieved.StartAt.Equal(p.StartAt))
	assert.Nil(t, retrieved.CompletedAt)

	// Completing stamps the actual completion time.
	require.NoError(t, s.UpdateProjectStatus(p.ID, model.StatusCompleted, nil))
	completed, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)

	// Reopening clears it again.
	require.NoError(t, s.UpdateProjectStatus(p.ID, model.StatusOnGoing, nil))
	reopened, err := s.GetProject(p.ID)
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	require.NoError(t, s.DeleteProject(p.ID))
	_, err = s.GetProject(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProject_ListFilters(t *testing.T) {
	s := newTestStore(t)

	a := testProject("mgr-1")
	b := testProject("mgr-2")
	b.Status = model.StatusDelayed
	require.NoError(t, s.CreateProject(a))
	require.NoError(t, s.CreateProject(b))

	all, err := s.ListProjects("", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	delayed, err := s.ListProjects(string(model.StatusDelayed), "")
	require.NoError(t, err)
	require.Len(t, delayed, 1)
	assert.Equal(t, b.ID, delayed[0].ID)

	byManager, err := s.ListProjects("", "mgr-1")
	require.NoError(t, err)
	require.Len(t, byManager, 1)
	assert.Equal(t, a.ID, byManager[0].ID)
}

func TestPhaseAndTask_NestedLoad(t *testing.T) {
	s := newTestStore(t)

	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))

	design := &model.Phase{ID: uuid.New().String(), Name: "Design", Status: model.StatusOnGoing, StartAt: p.StartAt, DueAt: p.DueAt}
	build := &model.Phase{ID: uuid.New().String(), Name: "Build", Status: model.StatusPending, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreatePhase(p.ID, design))
	require.NoError(t, s.CreatePhase(p.ID, build))

	task := &model.Task{ID: uuid.New().String(), Name: "Wireframes", Priority: model.PriorityHigh, Status: model.StatusPending, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreateTask(design.ID, task))

	loaded, err := s.GetProject(p.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Phases, 2)
	assert.Equal(t, "Design", loaded.Phases[0].Name, "phase order should follow insertion")
	assert.Equal(t, "Build", loaded.Phases[1].Name)
	require.Len(t, loaded.Phases[0].Tasks, 1)
	assert.Equal(t, model.PriorityHigh, loaded.Phases[0].Tasks[0].Priority)
}

func TestTask_StatusTransitions(t *testing.T) {
	s := newTestStore(t)

	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))
	phase := &model.Phase{ID: uuid.New().String(), Name: "Phase", Status: model.StatusOnGoing, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreatePhase(p.ID, phase))
	task := &model.Task{ID: uuid.New().String(), Name: "Task", Priority: model.PriorityMedium, Status: model.StatusPending, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreateTask(phase.ID, task))

	require.NoError(t, s.UpdateTaskStatus(task.ID, model.StatusCompleted, nil))
	got, err := s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Invariant: actual completion exists only on completed tasks.
	require.NoError(t, s.UpdateTaskStatus(task.ID, model.StatusDelayed, nil))
	got, err = s.GetTask(task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedAt)

	err = s.UpdateTaskStatus("missing", model.StatusCompleted, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreatePhase_MissingProject(t *testing.T) {
	s := newTestStore(t)

	phase := &model.Phase{ID: uuid.New().String(), Name: "Orphan", Status: model.StatusPending}
	err := s.CreatePhase("no-such-project", phase)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorker_CRUD(t *testing.T) {
	s := newTestStore(t)

	w := &model.Worker{ID: uuid.New().String(), Name: "Dana", Email: "dana@example.com", Role: "worker"}
	require.NoError(t, s.CreateWorker(w))

	got, err := s.GetWorker(w.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dana", got.Name)

	all, err := s.ListWorkers()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = s.GetWorker("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAssignment_Lifecycle(t *testing.T) {
	s := newTestStore(t)

	w := &model.Worker{ID: uuid.New().String(), Name: "Dana", Role: "worker"}
	require.NoError(t, s.CreateWorker(w))
	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))

	a := &Assignment{ID: uuid.New().String(), WorkerID: w.ID, ProjectID: p.ID}
	require.NoError(t, s.CreateAssignment(a))
	assert.Equal(t, model.WorkerAssigned, a.Status)

	terminated, err := s.TerminateAssignment(a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkerTerminated, terminated.Status)
	assert.Greater(t, terminated.TerminatedAt, int64(0))

	_, err = s.TerminateAssignment(a.ID)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = s.TerminateAssignment("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWorkerProjects_ReadModel(t *testing.T) {
	s := newTestStore(t)

	w := &model.Worker{ID: uuid.New().String(), Name: "Dana", Role: "worker"}
	require.NoError(t, s.CreateWorker(w))

	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))
	phase := &model.Phase{ID: uuid.New().String(), Name: "Phase", Status: model.StatusOnGoing, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreatePhase(p.ID, phase))
	task := &model.Task{ID: uuid.New().String(), Name: "Task", Priority: model.PriorityHigh, Status: model.StatusOnGoing, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreateTask(phase.ID, task))

	// Project-level assignment plus a terminated task-level assignment.
	projectAssignment := &Assignment{ID: uuid.New().String(), WorkerID: w.ID, ProjectID: p.ID}
	require.NoError(t, s.CreateAssignment(projectAssignment))
	taskAssignment := &Assignment{ID: uuid.New().String(), WorkerID: w.ID, ProjectID: p.ID, TaskID: task.ID}
	require.NoError(t, s.CreateAssignment(taskAssignment))
	_, err := s.TerminateAssignment(taskAssignment.ID)
	require.NoError(t, err)

	wps, err := s.WorkerProjects(w.ID)
	require.NoError(t, err)
	require.Len(t, wps, 1)
	assert.Equal(t, model.WorkerAssigned, wps[0].Status)
	require.Len(t, wps[0].Project.Phases, 1)
	require.Len(t, wps[0].Project.Phases[0].Tasks, 1)
	assert.Equal(t, model.WorkerTerminated, wps[0].Project.Phases[0].Tasks[0].WorkerStatus)
}

func TestRevision_BumpsOnWrites(t *testing.T) {
	s := newTestStore(t)

	before := s.Revision()
	require.NoError(t, s.CreateProject(testProject("mgr-1")))
	afterCreate := s.Revision()
	assert.Greater(t, afterCreate, before)

	// Reads leave the revision alone.
	_, err := s.ListProjects("", "")
	require.NoError(t, err)
	assert.Equal(t, afterCreate, s.Revision())
}

func TestManagerProjects_LoadsNested(t *testing.T) {
	s := newTestStore(t)

	p := testProject("mgr-1")
	require.NoError(t, s.CreateProject(p))
	phase := &model.Phase{ID: uuid.New().String(), Name: "Phase", Status: model.StatusOnGoing, StartAt: p.StartAt, DueAt: p.DueAt}
	require.NoError(t, s.CreatePhase(p.ID, phase))

	other := testProject("mgr-2")
	require.NoError(t, s.CreateProject(other))

	projects, err := s.ManagerProjects("mgr-1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, p.ID, projects[0].ID)
	assert.Len(t, projects[0].Phases, 1)
}
