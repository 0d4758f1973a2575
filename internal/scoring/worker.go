package scoring

import (
	"fmt"

	"github.com/taskflow-dev/taskflow/internal/model"
)

// Termination penalties, in points subtracted from the 0–100 base score.
const (
	projectTerminationPenalty = 25.0
	taskTerminationPenalty    = 15.0
)

// Worker insight thresholds.
const (
	lowCompletionRatePct   = 60.0
	trainingTerminationMin = 3
)

// WorkerProject pairs a project with the worker's standing on it. This is
// the typed side channel for what the original data model smuggled in as
// ad-hoc metadata: per-task standings ride on Task.WorkerStatus, the
// project-level standing rides here.
type WorkerProject struct {
	Project model.Project      `json:"project"`
	Status  model.WorkerStatus `json:"worker_status"`
}

// WorkerReport is the full performance evaluation for one worker.
type WorkerReport struct {
	OverallScore        float64                 `json:"overall_score"`
	Grade               string                  `json:"performance_grade"`
	BaseScore           float64                 `json:"base_score"`
	PenaltyPoints       float64                 `json:"penalty_points"`
	TotalTasks          int                     `json:"total_tasks"`
	TasksByStatus       map[model.Status]int    `json:"tasks_by_status"`
	TimeBreakdown       map[TimePerformance]int `json:"time_breakdown"`
	ProjectCount        int                     `json:"project_count"`
	ProjectsByStatus    map[model.Status]int    `json:"projects_by_status"`
	ProjectTerminations int                     `json:"project_terminations"`
	TaskTerminations    int                     `json:"task_terminations"`
	AvgCompletionRate   float64                 `json:"avg_completion_rate"`
	AvgTasksPerProject  float64                 `json:"avg_tasks_per_project"`
	Insights            []string                `json:"insights"`
	Recommendations     []string                `json:"recommendations"`
}

// WorkerPerformance aggregates task scores across all of a worker's
// projects into a single 0–100 score.
//
// Every task across every phase of every project is scored with ScoreTask;
// the weighted sum normalized by the max-possible sum gives the base score.
// Terminations then subtract flat penalties — 25 points per project the
// worker was terminated from, 15 per individual terminated task — with the
// result floored at zero. The secondary metrics (completion rate, tasks per
// project, project status counts) describe workload and are independent of
// the score itself.
func WorkerPerformance(projects []WorkerProject) WorkerReport {
	report := WorkerReport{
		TasksByStatus:    make(map[model.Status]int),
		TimeBreakdown:    make(map[TimePerformance]int),
		ProjectsByStatus: make(map[model.Status]int),
		Grade:            "N/A",
	}

	if len(projects) == 0 {
		report.Insights = append(report.Insights, "no projects assigned yet; performance cannot be evaluated")
		return report
	}

	var weightedSum, maxSum float64
	var completionRateSum float64

	for _, wp := range projects {
		report.ProjectCount++
		report.ProjectsByStatus[wp.Project.Status]++
		if wp.Status == model.WorkerTerminated {
			report.ProjectTerminations++
		}

		projectTasks := 0
		projectCompleted := 0
		for _, t := range wp.Project.Tasks() {
			projectTasks++
			report.TotalTasks++
			report.TasksByStatus[t.Status]++
			if t.Status == model.StatusCompleted {
				projectCompleted++
			}
			if t.WorkerStatus == model.WorkerTerminated {
				report.TaskTerminations++
			}

			score := ScoreTask(t)
			weightedSum += score.Weighted
			maxSum += score.MaxPossible
			if score.TimePerformance != TimeNone {
				report.TimeBreakdown[score.TimePerformance]++
			}
		}

		completionRateSum += safeRatio(float64(projectCompleted), float64(projectTasks)) * 100
	}

	report.BaseScore = safeRatio(weightedSum, maxSum) * 100
	report.PenaltyPoints = float64(report.ProjectTerminations)*projectTerminationPenalty +
		float64(report.TaskTerminations)*taskTerminationPenalty
	report.OverallScore = clampScore(report.BaseScore - report.PenaltyPoints)

	report.AvgCompletionRate = safeRatio(completionRateSum, float64(report.ProjectCount))
	report.AvgTasksPerProject = safeRatio(float64(report.TotalTasks), float64(report.ProjectCount))

	report.Grade = GradeFor(report.OverallScore)
	report.Insights, report.Recommendations = workerInsights(report)
	return report
}

func workerInsights(r WorkerReport) (insights, recommendations []string) {
	if r.OverallScore >= 90 {
		insights = appendUnique(insights, "consistently strong delivery across assigned projects")
	}
	if early := r.TimeBreakdown[TimeEarly]; early > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("%d task(s) delivered ahead of schedule", early))
	}
	if r.ProjectTerminations > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("terminated from %d project(s); score includes termination penalties", r.ProjectTerminations))
	}

	if r.AvgCompletionRate < lowCompletionRatePct {
		recommendations = appendUnique(recommendations,
			"average completion rate is below 60%; review task priorities and workload")
	}
	if r.TaskTerminations >= trainingTerminationMin {
		recommendations = appendUnique(recommendations,
			"multiple task terminations; consider additional training or closer supervision")
	}
	if late := r.TimeBreakdown[TimeLate]; late > 0 && late >= r.TimeBreakdown[TimeEarly] {
		recommendations = appendUnique(recommendations,
			"late deliveries outweigh early ones; revisit deadline estimates")
	}

	return insights, recommendations
}
