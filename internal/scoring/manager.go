package scoring

import (
	"fmt"

	"github.com/taskflow-dev/taskflow/internal/model"
)

// Per-project completion credit for the manager score. Cancellations cost
// credit rather than merely earning none.
var managerStatusWeights = map[model.Status]float64{
	model.StatusCompleted: 1.0,
	model.StatusOnGoing:   0.6,
	model.StatusDelayed:   0.3,
	model.StatusPending:   0.2,
	model.StatusCancelled: -0.5,
}

// Delivery classifies how a completed project landed against its plan.
type Delivery string

const (
	DeliveryEarly        Delivery = "early"
	DeliveryOnTime       Delivery = "onTime"
	DeliveryLate         Delivery = "late"
	DeliverySeverelyLate Delivery = "severelyLate"
)

// Project-level time multipliers. The on-time grace is two days; a late
// finish within 20% of the planned duration is ordinary lateness, anything
// beyond that is severe.
const (
	deliveryEarlyBonus        = 1.3
	deliveryOnTimeCredit      = 1.0
	deliveryLatePenalty       = 0.7
	deliverySevereLatePenalty = 0.4
	deliveryGraceDays         = 2
	severeOverrunRatio        = 0.20
)

// Sub-score weights for the overall manager score: completion 35%, time
// management 30%, progress 35%.
const (
	completionWeight = 0.35
	timeWeight       = 0.30
	progressWeight   = 0.35
)

// ProgressBucket labels the progress band a project falls into.
type ProgressBucket string

const (
	ProgressHigh     ProgressBucket = "high"     // ≥75%
	ProgressModerate ProgressBucket = "moderate" // 50–74%
	ProgressLow      ProgressBucket = "low"      // 25–49%
	ProgressMinimal  ProgressBucket = "minimal"  // <25%
)

func bucketFor(progress float64) ProgressBucket {
	switch {
	case progress >= 75:
		return ProgressHigh
	case progress >= 50:
		return ProgressModerate
	case progress >= 25:
		return ProgressLow
	default:
		return ProgressMinimal
	}
}

// ManagerReport is the full performance evaluation for a project manager.
type ManagerReport struct {
	OverallScore      float64                `json:"overall_score"`
	Grade             string                 `json:"performance_grade"`
	CompletionScore   float64                `json:"completion_score"`
	TimeScore         float64                `json:"time_score"`
	ProgressScore     float64                `json:"progress_score"`
	ProjectCount      int                    `json:"project_count"`
	ProjectsByStatus  map[model.Status]int   `json:"projects_by_status"`
	DeliveryBreakdown map[Delivery]int       `json:"delivery_breakdown"`
	ProgressBuckets   map[ProgressBucket]int `json:"progress_buckets"`
	Insights          []string               `json:"insights"`
	Recommendations   []string               `json:"recommendations"`
}

// ManagerPerformance aggregates project-level outcomes for the set of
// projects a manager owns.
//
// Three sub-scores are combined 35/30/35:
//
//   - Completion: each project contributes status credit (completed 1.0 down
//     to cancelled −0.5) normalized against a maximum of 1.0 per project and
//     scaled to 0–100, floored at zero.
//   - Time management: evaluated only over completed projects with an actual
//     completion date. Early finishes earn a 1.3 bonus, finishes within two
//     days of plan full credit, overruns up to 20% of the planned duration
//     0.7, worse overruns 0.4; the (100 × multiplier) values are averaged.
//   - Progress: the mean weighted progress over projects that have at least
//     one phase, with each project also bucketed for insight generation.
//
// The combined score is clamped to [0,100]. No projects at all is not an
// error: the report comes back zeroed with grade "N/A" and an advisory.
func ManagerPerformance(projects []model.Project) ManagerReport {
	report := ManagerReport{
		ProjectsByStatus:  make(map[model.Status]int),
		DeliveryBreakdown: make(map[Delivery]int),
		ProgressBuckets:   make(map[ProgressBucket]int),
		Grade:             "N/A",
	}

	if len(projects) == 0 {
		report.Insights = append(report.Insights, "no projects managed yet; performance cannot be evaluated")
		return report
	}

	var completionCredit float64
	var timeValueSum float64
	var timedProjects int
	var progressSum float64
	var phasedProjects int

	for _, p := range projects {
		report.ProjectCount++
		report.ProjectsByStatus[p.Status]++
		completionCredit += managerStatusWeights[p.Status]

		if p.Status == model.StatusCompleted && p.CompletedAt != nil {
			delivery := classifyDelivery(p)
			report.DeliveryBreakdown[delivery]++
			timeValueSum += 100 * deliveryMultiplier(delivery)
			timedProjects++
		}

		if len(p.Phases) > 0 {
			progress := ProjectProgress(p).WeightedProgress
			progressSum += progress
			report.ProgressBuckets[bucketFor(progress)]++
			phasedProjects++
		}
	}

	report.CompletionScore = clampScore(safeRatio(completionCredit, float64(report.ProjectCount)) * 100)
	report.TimeScore = safeRatio(timeValueSum, float64(timedProjects))
	report.ProgressScore = safeRatio(progressSum, float64(phasedProjects))

	report.OverallScore = clampScore(
		completionWeight*report.CompletionScore +
			timeWeight*report.TimeScore +
			progressWeight*report.ProgressScore)

	report.Grade = GradeFor(report.OverallScore)
	report.Insights, report.Recommendations = managerInsights(report, timedProjects)
	return report
}

// classifyDelivery places a completed project on the early → severely-late
// scale. The overrun ratio guards a zero planned duration, which then reads
// as an ordinary (non-severe) late finish.
func classifyDelivery(p model.Project) Delivery {
	actual := *p.CompletedAt
	if actual.Before(p.DueAt) {
		return DeliveryEarly
	}
	if !actual.After(p.DueAt.AddDate(0, 0, deliveryGraceDays)) {
		return DeliveryOnTime
	}

	overdueDays := actual.Sub(p.DueAt).Hours() / 24
	plannedDays := p.DueAt.Sub(p.StartAt).Hours() / 24
	if safeRatio(overdueDays, plannedDays) <= severeOverrunRatio {
		return DeliveryLate
	}
	return DeliverySeverelyLate
}

func deliveryMultiplier(d Delivery) float64 {
	switch d {
	case DeliveryEarly:
		return deliveryEarlyBonus
	case DeliveryOnTime:
		return deliveryOnTimeCredit
	case DeliveryLate:
		return deliveryLatePenalty
	default:
		return deliverySevereLatePenalty
	}
}

func managerInsights(r ManagerReport, timedProjects int) (insights, recommendations []string) {
	if cancelled := r.ProjectsByStatus[model.StatusCancelled]; cancelled > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("%d project(s) cancelled; cancellations reduce the completion score", cancelled))
	}

	delayedPct := safeRatio(float64(r.ProjectsByStatus[model.StatusDelayed]), float64(r.ProjectCount)) * 100
	if delayedPct > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("%.0f%% of projects are currently delayed", delayedPct))
	}

	if early := r.DeliveryBreakdown[DeliveryEarly]; early > 0 {
		insights = appendUnique(insights,
			fmt.Sprintf("%d project(s) delivered ahead of plan", early))
	}

	if timedProjects > 0 && r.TimeScore < 70 {
		recommendations = appendUnique(recommendations,
			"time-management score is below 70; review project scheduling and deadline planning")
	}
	if minimal := r.ProgressBuckets[ProgressMinimal]; minimal > 0 {
		recommendations = appendUnique(recommendations,
			fmt.Sprintf("%d project(s) show minimal progress; re-plan phases or reassign resources", minimal))
	}
	if severe := r.DeliveryBreakdown[DeliverySeverelyLate]; severe > 0 {
		recommendations = appendUnique(recommendations,
			"severely late deliveries detected; tighten milestone tracking")
	}

	return insights, recommendations
}
