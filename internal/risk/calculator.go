package risk

import "github.com/buildsafe/backend/internal/storage/models"

// Pure risk matrix arithmetic. No I/O, no state.

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Rating is the likelihood x severity product, range 1..25.
func Rating(likelihood, severity int) int {
	return likelihood * severity
}

// LevelFor buckets a rating. The partition (<=4 low, 5..12 medium, >=13 high)
// matches existing risk registers and must not shift.
func LevelFor(rating int) Level {
	switch {
	case rating <= 4:
		return LevelLow
	case rating <= 12:
		return LevelMedium
	default:
		return LevelHigh
	}
}

// Residual subtracts the summed reduction factors of the selected controls
// from the initial likelihood and severity. Each axis floors at 1: no control
// set is claimed to eliminate risk entirely.
func Residual(initialLikelihood, initialSeverity int, controls []models.LibraryEntry) (int, int) {
	likelihoodReduction := 0
	severityReduction := 0

	for _, c := range controls {
		likelihoodReduction += c.LikelihoodReduction
		severityReduction += c.SeverityReduction
	}

	return floorOne(initialLikelihood - likelihoodReduction),
		floorOne(initialSeverity - severityReduction)
}

// ClampScale forces a likelihood or severity value into the 1..5 ordinal
// scale. Out-of-range inputs are clamped rather than rejected.
func ClampScale(v int) int {
	if v < 1 {
		return 1
	}
	if v > 5 {
		return 5
	}
	return v
}

func floorOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
