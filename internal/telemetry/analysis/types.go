// Package analysis scores buffered telemetry for behavior anomalies. Each
// analyzer is a pure function of a sample slice and the session's threshold
// configuration; the aggregator and correlator combine their reports into a
// single risk-scored result.
package analysis

import (
	"fmt"
	"time"
)

// PatternTag names one detected behavior pattern. The literal values are a
// stable contract with downstream consumers (dashboards, alert routing) and
// must not change.
type PatternTag string

const (
	TagErraticMouseMovements    PatternTag = "erratic_mouse_movements"
	TagRoboticMouseMovements    PatternTag = "robotic_mouse_movements"
	TagSuddenMouseAcceleration  PatternTag = "sudden_mouse_acceleration"
	TagRoboticTypingPattern     PatternTag = "robotic_typing_pattern"
	TagExcessiveBackspacing     PatternTag = "excessive_backspacing"
	TagRapidTextInsertion       PatternTag = "rapid_text_insertion"
	TagLowAttentionDetected     PatternTag = "low_attention_detected"
	TagUnusualGazeFixation      PatternTag = "unusual_gaze_fixation"
	TagAbnormalBlinkRate        PatternTag = "abnormal_blink_rate"
	TagElevatedStressIndicators PatternTag = "elevated_stress_indicators"
	TagInconsistentTimePatterns PatternTag = "inconsistent_time_patterns"
	TagSuspiciouslyFastAnswers  PatternTag = "suspiciously_fast_answers"
	TagExcessiveHesitation      PatternTag = "excessive_hesitation"
	TagFrequentAnswerRevisions  PatternTag = "frequent_answer_revisions"
)

// TagCoordinatedCheating is appended when n other sessions of the same exam
// spiked within the synchronization window.
func TagCoordinatedCheating(n int) PatternTag {
	return PatternTag(fmt.Sprintf("coordinated_cheating_detected_%d_sessions", n))
}

// TagIdenticalMousePatterns is appended when another session's mouse trace is
// near-identical to the current one.
func TagIdenticalMousePatterns(sessionID string) PatternTag {
	return PatternTag("identical_mouse_patterns_" + sessionID)
}

// RiskLevel is the discrete judgment derived from the anomaly score.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskLevelFor maps an anomaly score to its risk level.
func RiskLevelFor(score float64) RiskLevel {
	switch {
	case score >= 80:
		return RiskCritical
	case score >= 60:
		return RiskHigh
	case score >= 40:
		return RiskMedium
	default:
		return RiskLow
	}
}

// SignalReport is one analyzer's verdict on a single signal buffer.
type SignalReport struct {
	Score      float64      `json:"score"`      // [0,100]
	Confidence float64      `json:"confidence"` // [0,1]
	Patterns   []PatternTag `json:"patterns,omitempty"`
}

// add records a detected pattern with its score and confidence contribution,
// keeping both within bounds.
func (r *SignalReport) add(tag PatternTag, score, confidence float64) {
	r.Patterns = append(r.Patterns, tag)
	r.Score = clamp(r.Score+score, 0, 100)
	r.Confidence = clamp(r.Confidence+confidence, 0, 1)
}

// BehaviorAnalysisResult is the engine's judgment for one session at one
// point in time.
type BehaviorAnalysisResult struct {
	AnomalyScore     float64      `json:"anomaly_score"` // [0,100]
	Confidence       float64      `json:"confidence"`    // [0,1]
	DetectedPatterns []PatternTag `json:"detected_patterns"`
	RiskLevel        RiskLevel    `json:"risk_level"`
	Recommendations  []string     `json:"recommendations"`
	Timestamp        time.Time    `json:"timestamp"`
}

// EmptyResult is returned for unknown sessions and for sessions with too
// little data on every signal. Insufficient data is never anomalous.
func EmptyResult(now time.Time) BehaviorAnalysisResult {
	return BehaviorAnalysisResult{
		DetectedPatterns: []PatternTag{},
		RiskLevel:        RiskLow,
		Recommendations:  []string{},
		Timestamp:        now,
	}
}
