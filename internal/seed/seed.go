// Package seed loads demo fixture data from a YAML file into the store.
package seed

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/taskflow-dev/taskflow/internal/model"
	"github.com/taskflow-dev/taskflow/internal/store"
)

// Fixture is the root of a seed file.
type Fixture struct {
	Workers  []WorkerSpec  `yaml:"workers"`
	Projects []ProjectSpec `yaml:"projects"`
}

// WorkerSpec describes one seeded worker. Workers are referenced from
// projects and tasks by name.
type WorkerSpec struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
	Role  string `yaml:"role"`
}

// ProjectSpec describes one seeded project with its full phase tree.
type ProjectSpec struct {
	Name        string           `yaml:"name"`
	Budget      float64          `yaml:"budget"`
	Manager     string           `yaml:"manager"` // seeded worker name, or a raw manager ID
	Status      string           `yaml:"status"`
	StartAt     time.Time        `yaml:"start_at"`
	DueAt       time.Time        `yaml:"due_at"`
	CompletedAt *time.Time       `yaml:"completed_at"`
	Phases      []PhaseSpec      `yaml:"phases"`
	Assignments []AssignmentSpec `yaml:"assignments"`
}

// PhaseSpec describes one seeded phase.
type PhaseSpec struct {
	Name    string     `yaml:"name"`
	Status  string     `yaml:"status"`
	StartAt time.Time  `yaml:"start_at"`
	DueAt   time.Time  `yaml:"due_at"`
	Tasks   []TaskSpec `yaml:"tasks"`
}

// TaskSpec describes one seeded task. Worker optionally attaches a
// task-level assignment for the named worker.
type TaskSpec struct {
	Name        string     `yaml:"name"`
	Priority    string     `yaml:"priority"`
	Status      string     `yaml:"status"`
	StartAt     time.Time  `yaml:"start_at"`
	DueAt       time.Time  `yaml:"due_at"`
	CompletedAt *time.Time `yaml:"completed_at"`
	Worker      string     `yaml:"worker"`
	Terminated  bool       `yaml:"terminated"`
}

// AssignmentSpec describes one project-level worker assignment.
type AssignmentSpec struct {
	Worker     string `yaml:"worker"`
	Terminated bool   `yaml:"terminated"`
}

// Apply reads the fixture at path and inserts everything through the store.
// Seeding is intended for fresh databases; it does not check for duplicates.
func Apply(path string, st *store.Store, logger zerolog.Logger) error {
	log := logger.With().Str("component", "seed").Logger()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}

	var fixture Fixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("parsing seed file: %w", err)
	}

	workerIDs := make(map[string]string, len(fixture.Workers))
	for _, spec := range fixture.Workers {
		if spec.Name == "" {
			return fmt.Errorf("seed worker without a name")
		}
		role := spec.Role
		if role == "" {
			role = "worker"
		}
		w := &model.Worker{
			ID:    uuid.New().String(),
			Name:  spec.Name,
			Email: spec.Email,
			Role:  role,
		}
		if err := st.CreateWorker(w); err != nil {
			return fmt.Errorf("seeding worker %q: %w", spec.Name, err)
		}
		workerIDs[spec.Name] = w.ID
	}

	for _, spec := range fixture.Projects {
		if err := applyProject(spec, workerIDs, st); err != nil {
			return err
		}
	}

	log.Info().
		Int("workers", len(fixture.Workers)).
		Int("projects", len(fixture.Projects)).
		Str("path", path).
		Msg("seed data applied")
	return nil
}

func applyProject(spec ProjectSpec, workerIDs map[string]string, st *store.Store) error {
	status, err := parseStatus(spec.Status)
	if err != nil {
		return fmt.Errorf("seed project %q: %w", spec.Name, err)
	}

	// Manager references either a seeded worker by name or an external ID.
	managerID := spec.Manager
	if id, ok := workerIDs[spec.Manager]; ok {
		managerID = id
	}
	if managerID == "" {
		return fmt.Errorf("seed project %q: manager is required", spec.Name)
	}

	p := &model.Project{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Budget:      spec.Budget,
		Status:      status,
		ManagerID:   managerID,
		StartAt:     spec.StartAt,
		DueAt:       spec.DueAt,
		CompletedAt: spec.CompletedAt,
	}
	if err := st.CreateProject(p); err != nil {
		return fmt.Errorf("seeding project %q: %w", spec.Name, err)
	}

	for _, phaseSpec := range spec.Phases {
		phaseStatus, err := parseStatus(phaseSpec.Status)
		if err != nil {
			return fmt.Errorf("seed phase %q: %w", phaseSpec.Name, err)
		}
		ph := &model.Phase{
			ID:      uuid.New().String(),
			Name:    phaseSpec.Name,
			Status:  phaseStatus,
			StartAt: phaseSpec.StartAt,
			DueAt:   phaseSpec.DueAt,
		}
		if err := st.CreatePhase(p.ID, ph); err != nil {
			return fmt.Errorf("seeding phase %q: %w", phaseSpec.Name, err)
		}

		for _, taskSpec := range phaseSpec.Tasks {
			if err := applyTask(taskSpec, p.ID, ph.ID, workerIDs, st); err != nil {
				return err
			}
		}
	}

	for _, assignSpec := range spec.Assignments {
		workerID, ok := workerIDs[assignSpec.Worker]
		if !ok {
			return fmt.Errorf("seed project %q: unknown worker %q", spec.Name, assignSpec.Worker)
		}
		if err := createAssignment(st, workerID, p.ID, "", assignSpec.Terminated); err != nil {
			return fmt.Errorf("seeding assignment for %q: %w", assignSpec.Worker, err)
		}
	}

	return nil
}

func applyTask(spec TaskSpec, projectID, phaseID string, workerIDs map[string]string, st *store.Store) error {
	status, err := parseStatus(spec.Status)
	if err != nil {
		return fmt.Errorf("seed task %q: %w", spec.Name, err)
	}
	priority, err := model.ParsePriority(spec.Priority)
	if err != nil {
		return fmt.Errorf("seed task %q: %w", spec.Name, err)
	}

	task := &model.Task{
		ID:          uuid.New().String(),
		Name:        spec.Name,
		Priority:    priority,
		Status:      status,
		StartAt:     spec.StartAt,
		DueAt:       spec.DueAt,
		CompletedAt: spec.CompletedAt,
	}
	if err := st.CreateTask(phaseID, task); err != nil {
		return fmt.Errorf("seeding task %q: %w", spec.Name, err)
	}

	if spec.Worker != "" {
		workerID, ok := workerIDs[spec.Worker]
		if !ok {
			return fmt.Errorf("seed task %q: unknown worker %q", spec.Name, spec.Worker)
		}
		if err := createAssignment(st, workerID, projectID, task.ID, spec.Terminated); err != nil {
			return fmt.Errorf("seeding task assignment for %q: %w", spec.Worker, err)
		}
	}

	return nil
}

func createAssignment(st *store.Store, workerID, projectID, taskID string, terminated bool) error {
	a := &store.Assignment{
		ID:        uuid.New().String(),
		WorkerID:  workerID,
		ProjectID: projectID,
		TaskID:    taskID,
	}
	if err := st.CreateAssignment(a); err != nil {
		return err
	}
	if terminated {
		if _, err := st.TerminateAssignment(a.ID); err != nil {
			return err
		}
	}
	return nil
}

// parseStatus applies the pending default before validating.
func parseStatus(raw string) (model.Status, error) {
	if raw == "" {
		return model.StatusPending, nil
	}
	return model.ParseStatus(raw)
}
