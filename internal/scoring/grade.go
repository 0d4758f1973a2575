package scoring

// gradeBand maps a minimum score to a letter grade.
type gradeBand struct {
	min   float64
	grade string
}

// Nine bands, checked top-down. Shared by the worker and manager reports.
var gradeBands = []gradeBand{
	{90, "A+"},
	{85, "A"},
	{80, "A-"},
	{75, "B+"},
	{70, "B"},
	{65, "C+"},
	{60, "C"},
	{50, "D"},
}

// GradeFor maps a 0–100 score to its letter grade. Scores below the lowest
// band are an F. Callers with no data at all should report "N/A" instead of
// calling this.
func GradeFor(score float64) string {
	for _, b := range gradeBands {
		if score >= b.min {
			return b.grade
		}
	}
	return "F"
}

// clampScore bounds a score to [0,100].
func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

// appendUnique appends msg to list unless it is already present, preserving
// insertion order so insight text stays stable between runs.
func appendUnique(list []string, msg string) []string {
	for _, existing := range list {
		if existing == msg {
			return list
		}
	}
	return append(list, msg)
}

// safeRatio divides guarding the denominator: a zero denominator yields 0.0
// rather than NaN or Inf.
func safeRatio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
