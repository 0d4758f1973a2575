// Package scoring implements the TaskFlow performance and progress
// calculators. Every function here is pure: it reads caller-supplied
// entities, never mutates them, and returns a fresh result value, so the
// package is safe to call from concurrent request handlers without
// synchronization.
package scoring

import (
	"github.com/taskflow-dev/taskflow/internal/model"
)

// TimePerformance classifies how a completed task landed against its
// planned completion date. Empty for tasks that are not completed or have
// no dates to compare.
type TimePerformance string

const (
	TimeEarly  TimePerformance = "early"
	TimeOnTime TimePerformance = "onTime"
	TimeLate   TimePerformance = "late"
	TimeNone   TimePerformance = ""
)

// Scoring weight tables. These literals are load-bearing: reports computed
// against historical data must keep producing the same numbers.
var taskPriorityWeights = map[model.Priority]float64{
	model.PriorityHigh:   5.0,
	model.PriorityMedium: 3.0,
	model.PriorityLow:    1.0,
}

var taskStatusMultipliers = map[model.Status]float64{
	model.StatusCompleted: 1.0,
	model.StatusOnGoing:   0.5,
	model.StatusDelayed:   0.3,
	model.StatusPending:   0.0,
	model.StatusCancelled: 0.0,
}

const (
	earlyBonus      = 1.2
	onTimeCredit    = 1.0
	latePenalty     = 0.8
	onTimeGraceDays = 1
)

// TaskScore is the score of a single task.
type TaskScore struct {
	Weighted        float64         `json:"weighted_score"`
	MaxPossible     float64         `json:"max_possible_score"`
	TimePerformance TimePerformance `json:"time_performance"`
}

// ScoreTask scores one task from its priority, status, and timeliness.
//
// Weighted = priorityWeight × statusMultiplier × timeMultiplier. The time
// multiplier applies only to completed tasks with both a planned and an
// actual completion date: finishing before the plan earns a 1.2 bonus,
// finishing within one day of the plan is full credit, anything later is a
// 0.8 penalty. MaxPossible is the theoretical ceiling (full status credit
// plus the early bonus) used as the normalization denominator when scores
// are summed across many tasks.
func ScoreTask(t model.Task) TaskScore {
	weight, ok := taskPriorityWeights[t.Priority]
	if !ok {
		weight = 1.0
	}
	multiplier := taskStatusMultipliers[t.Status] // absent keys score zero

	timeMultiplier := 1.0
	perf := TimeNone
	if t.Status == model.StatusCompleted && t.CompletedAt != nil && !t.DueAt.IsZero() {
		actual := *t.CompletedAt
		grace := t.DueAt.AddDate(0, 0, onTimeGraceDays)
		switch {
		case actual.Before(t.DueAt):
			perf = TimeEarly
			timeMultiplier = earlyBonus
		case !actual.After(grace):
			perf = TimeOnTime
			timeMultiplier = onTimeCredit
		default:
			perf = TimeLate
			timeMultiplier = latePenalty
		}
	}

	return TaskScore{
		Weighted:        weight * multiplier * timeMultiplier,
		MaxPossible:     weight * onTimeCredit * earlyBonus,
		TimePerformance: perf,
	}
}
