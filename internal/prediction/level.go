package prediction

// Three distinct confidence thresholds govern three distinct behaviors.
// They are deliberately separate constants; do not merge them.
const (
	// NotifyThreshold gates the doctor notification fan-out at the
	// moment a prediction is first saved.
	NotifyThreshold = 0.50

	// ReviewThreshold decides membership in the doctor review queue.
	ReviewThreshold = 0.55

	// Display banding for UI labeling only.
	moderateBand = 0.75
	highBand     = 0.90
)

// Level is the display band shown next to a prediction. It is unrelated
// to review-queue membership.
type Level string

const (
	LevelHigh     Level = "high"
	LevelModerate Level = "moderate"
	LevelLow      Level = "low"
)

// LevelFor maps a confidence score to its display band.
func LevelFor(confidence float64) Level {
	switch {
	case confidence >= highBand:
		return LevelHigh
	case confidence >= moderateBand:
		return LevelModerate
	default:
		return LevelLow
	}
}

// NeedsReview reports whether a prediction belongs in the doctor review
// queue, regardless of its reviewed flag.
func NeedsReview(confidence float64) bool {
	return confidence < ReviewThreshold
}
