package analysis

import (
	"time"

	"github.com/examsentry/examsentry/internal/telemetry"
)

// Aggregate combines the four per-signal reports into one result. The score
// is the weighted sum of the sub-scores clamped to [0,100]; confidence is the
// unweighted mean across the four signals; pattern tags keep signal order
// (mouse, keystroke, gaze, time).
func Aggregate(mouse, keystroke, gaze, timing SignalReport, w telemetry.ScoreWeights, now time.Time) BehaviorAnalysisResult {
	score := clamp(
		mouse.Score*w.Mouse+
			keystroke.Score*w.Keystroke+
			gaze.Score*w.Gaze+
			timing.Score*w.Time,
		0, 100)
	confidence := (mouse.Confidence + keystroke.Confidence + gaze.Confidence + timing.Confidence) / 4

	patterns := make([]PatternTag, 0, len(mouse.Patterns)+len(keystroke.Patterns)+len(gaze.Patterns)+len(timing.Patterns))
	patterns = append(patterns, mouse.Patterns...)
	patterns = append(patterns, keystroke.Patterns...)
	patterns = append(patterns, gaze.Patterns...)
	patterns = append(patterns, timing.Patterns...)

	risk := RiskLevelFor(score)
	return BehaviorAnalysisResult{
		AnomalyScore:     score,
		Confidence:       clamp(confidence, 0, 1),
		DetectedPatterns: patterns,
		RiskLevel:        risk,
		Recommendations:  recommendations(patterns, risk),
		Timestamp:        now,
	}
}

// recommendations derives proctor guidance from the detected patterns. The
// output is deterministic for a given pattern set and risk level.
func recommendations(patterns []PatternTag, risk RiskLevel) []string {
	has := make(map[PatternTag]bool, len(patterns))
	for _, p := range patterns {
		has[p] = true
	}

	recs := []string{}
	if has[TagRoboticMouseMovements] || has[TagRoboticTypingPattern] {
		recs = append(recs, "Automated behavior detected - consider manual verification")
	}
	if has[TagRapidTextInsertion] || has[TagSuspiciouslyFastAnswers] {
		recs = append(recs, "Unusual speed detected - review answer authenticity")
	}
	if has[TagLowAttentionDetected] || has[TagUnusualGazeFixation] {
		recs = append(recs, "Attention anomalies detected - consider proctoring intervention")
	}
	switch risk {
	case RiskCritical:
		recs = append(recs, "Critical risk level - immediate intervention recommended")
	case RiskHigh:
		recs = append(recs, "High risk level - close monitoring advised")
	}
	return recs
}
