package scoring

import (
	"fmt"

	"github.com/taskflow-dev/taskflow/internal/model"
)

// Progress weighting is intentionally a different scheme from task scoring:
// progress answers "how far along is the work", not "how well did it go".
var progressPriorityWeights = map[model.Priority]float64{
	model.PriorityHigh:   3.0,
	model.PriorityMedium: 2.0,
	model.PriorityLow:    1.0,
}

// Completion credit per status, in percent.
var statusCompletionPct = map[model.Status]float64{
	model.StatusPending:   0,
	model.StatusOnGoing:   50,
	model.StatusCompleted: 100,
	model.StatusDelayed:   25,
	model.StatusCancelled: 0,
}

// Insight thresholds for the progress report.
const (
	nearCompletionPct  = 90.0
	pendingBacklogPct  = 30.0
)

// PhaseProgress is the per-phase slice of a progress report.
type PhaseProgress struct {
	PhaseID          string  `json:"phase_id"`
	Name             string  `json:"name"`
	TotalTasks       int     `json:"total_tasks"`
	CompletedTasks   int     `json:"completed_tasks"`
	CancelledTasks   int     `json:"cancelled_tasks"`
	WeightedProgress float64 `json:"weighted_progress"`
	SimpleProgress   float64 `json:"simple_progress"`
}

// CrossTabCell is one cell of the status × priority breakdown.
type CrossTabCell struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// ProgressReport is the full progress breakdown for one project.
type ProgressReport struct {
	WeightedProgress float64                                     `json:"weighted_progress"`
	TotalTasks       int                                         `json:"total_tasks"`
	StatusCounts     map[model.Status]int                        `json:"status_counts"`
	PriorityCounts   map[model.Priority]int                      `json:"priority_counts"`
	CrossTab         map[model.Status]map[model.Priority]CrossTabCell `json:"cross_tab"`
	Phases           []PhaseProgress                             `json:"phases"`
	Insights         []string                                    `json:"insights"`
	Recommendations  []string                                    `json:"recommendations"`
}

// ProjectProgress rolls task completion up into phase-level and
// project-level percentages.
//
// Per phase, weighted progress is Σ(completion% × priorityWeight) /
// Σ(priorityWeight) so high-priority work dominates the number, and simple
// progress is completed / (total − cancelled). The project-level figure is
// the task-count-weighted average of the phase figures, so larger phases
// count proportionally more. A project with no phases is not an error: the
// report comes back at zero with an explanatory insight so dashboards can
// render a "no data yet" state.
func ProjectProgress(p model.Project) ProgressReport {
	report := ProgressReport{
		StatusCounts:   make(map[model.Status]int),
		PriorityCounts: make(map[model.Priority]int),
		CrossTab:       make(map[model.Status]map[model.Priority]CrossTabCell),
	}

	if len(p.Phases) == 0 {
		report.Insights = append(report.Insights, "project has no phases yet; progress cannot be measured")
		return report
	}

	crossCounts := make(map[model.Status]map[model.Priority]int)

	var progressSum float64 // Σ(phaseWeighted × phaseTaskCount)
	for _, phase := range p.Phases {
		pp := PhaseProgress{PhaseID: phase.ID, Name: phase.Name}

		var weightSum, weightedSum float64
		for _, t := range phase.Tasks {
			pp.TotalTasks++
			report.TotalTasks++
			report.StatusCounts[t.Status]++
			report.PriorityCounts[t.Priority]++
			if crossCounts[t.Status] == nil {
				crossCounts[t.Status] = make(map[model.Priority]int)
			}
			crossCounts[t.Status][t.Priority]++

			switch t.Status {
			case model.StatusCompleted:
				pp.CompletedTasks++
			case model.StatusCancelled:
				pp.CancelledTasks++
			}

			weight, ok := progressPriorityWeights[t.Priority]
			if !ok {
				weight = 1.0
			}
			weightSum += weight
			weightedSum += statusCompletionPct[t.Status] * weight
		}

		pp.WeightedProgress = safeRatio(weightedSum, weightSum)
		pp.SimpleProgress = safeRatio(float64(pp.CompletedTasks), float64(pp.TotalTasks-pp.CancelledTasks)) * 100

		progressSum += pp.WeightedProgress * float64(pp.TotalTasks)
		report.Phases = append(report.Phases, pp)
	}

	report.WeightedProgress = safeRatio(progressSum, float64(report.TotalTasks))

	// Full 5×3 cross-tabulation, including zero cells, for dashboard grids.
	for _, status := range model.Statuses {
		row := make(map[model.Priority]CrossTabCell, len(model.Priorities))
		for _, priority := range model.Priorities {
			count := crossCounts[status][priority]
			row[priority] = CrossTabCell{
				Count:   count,
				Percent: safeRatio(float64(count), float64(report.TotalTasks)) * 100,
			}
		}
		report.CrossTab[status] = row
	}

	report.Insights, report.Recommendations = progressInsights(report)
	return report
}

func progressInsights(r ProgressReport) (insights, recommendations []string) {
	if r.TotalTasks == 0 {
		insights = appendUnique(insights, "project phases contain no tasks yet")
		return insights, recommendations
	}

	if r.WeightedProgress >= nearCompletionPct {
		insights = appendUnique(insights, "project is near completion")
	}

	if delayed := r.StatusCounts[model.StatusDelayed]; delayed > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("%d task(s) are delayed and holding back progress", delayed))
	}

	pendingPct := safeRatio(float64(r.StatusCounts[model.StatusPending]), float64(r.TotalTasks)) * 100
	if pendingPct > pendingBacklogPct {
		recommendations = appendUnique(recommendations,
			"over 30% of tasks have not been started; review resource allocation")
	}

	return insights, recommendations
}
