// Package telemetry defines the normalized sample types ingested during a
// monitored exam session, plus the per-session threshold configuration that
// controls how the analyzers score them.
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// MouseSample is one normalized pointer reading. Velocity, acceleration and
// direction are derived from the previous sample in the same session; all
// three are zero for the first sample in a buffer.
type MouseSample struct {
	X            float64   `json:"x"`
	Y            float64   `json:"y"`
	Timestamp    time.Time `json:"ts"`
	Velocity     float64   `json:"velocity"`     // px/s
	Acceleration float64   `json:"acceleration"` // px/s^2
	Direction    float64   `json:"direction"`    // radians
}

// KeystrokeSample is one normalized key press. Interval is the time since the
// previous keystroke in the same session, 0 if there is none.
type KeystrokeSample struct {
	Key          string    `json:"key"`
	Timestamp    time.Time `json:"ts"`
	HoldDuration float64   `json:"hold_ms"`
	Interval     float64   `json:"interval_ms"`
	IsBackspace  bool      `json:"is_backspace"`
	IsModifier   bool      `json:"is_modifier"`
}

// GazeSample is one eye-tracker reading. Confidence and PupilDilation are
// normalized to [0,1]; BlinkRate is blinks per minute.
type GazeSample struct {
	X             float64   `json:"x"`
	Y             float64   `json:"y"`
	Timestamp     time.Time `json:"ts"`
	Confidence    float64   `json:"confidence"`
	PupilDilation float64   `json:"pupil_dilation"`
	BlinkRate     float64   `json:"blink_rate"`
}

// TimePatternSample captures how one question was answered.
type TimePatternSample struct {
	QuestionID      string    `json:"question_id"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	TimeSpentMs     int64     `json:"time_spent_ms"`
	AnswerLength    int       `json:"answer_length"`
	HesitationCount int       `json:"hesitation_count"`
	RevisionCount   int       `json:"revision_count"`
}

// ScoreWeights weights each signal's sub-score in the aggregate. Weights are
// not required to sum to 1; the aggregate is clamped to [0,100]. A zero
// weight means that signal contributes nothing.
type ScoreWeights struct {
	Mouse     float64 `json:"mouse"`
	Keystroke float64 `json:"keystroke"`
	Gaze      float64 `json:"gaze"`
	Time      float64 `json:"time"`
}

// ThresholdConfig is the per-session tuning for the analyzers.
type ThresholdConfig struct {
	MouseVelocityThreshold     float64      `json:"mouse_velocity_threshold"`     // variance of velocity, (px/s)^2
	KeystrokeIntervalThreshold float64      `json:"keystroke_interval_threshold"` // variance of inter-key interval, ms^2
	GazeAttentionThreshold     float64      `json:"gaze_attention_threshold"`     // mean tracker confidence floor
	TimePatternThreshold       float64      `json:"time_pattern_threshold"`       // variance of per-question time, ms^2
	Weights                    ScoreWeights `json:"anomaly_score_weight"`
}

// DefaultThresholdConfig returns the tuning used when a session is
// initialized without an explicit configuration.
func DefaultThresholdConfig() ThresholdConfig {
	return ThresholdConfig{
		MouseVelocityThreshold:     250000, // std dev ~500 px/s
		KeystrokeIntervalThreshold: 10,
		GazeAttentionThreshold:     0.6,
		TimePatternThreshold:       1e9, // std dev ~32 s
		Weights:                    ScoreWeights{Mouse: 1, Keystroke: 1, Gaze: 1, Time: 1},
	}
}

// Validate rejects configurations the engine cannot reconcile: negative
// thresholds and negative weights. Missing (zero) weights are legal and
// simply mute that signal.
func (c ThresholdConfig) Validate() error {
	switch {
	case c.MouseVelocityThreshold < 0:
		return fmt.Errorf("mouse velocity threshold must be >= 0, got %v", c.MouseVelocityThreshold)
	case c.KeystrokeIntervalThreshold < 0:
		return fmt.Errorf("keystroke interval threshold must be >= 0, got %v", c.KeystrokeIntervalThreshold)
	case c.GazeAttentionThreshold < 0:
		return fmt.Errorf("gaze attention threshold must be >= 0, got %v", c.GazeAttentionThreshold)
	case c.TimePatternThreshold < 0:
		return fmt.Errorf("time pattern threshold must be >= 0, got %v", c.TimePatternThreshold)
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"mouse", c.Weights.Mouse},
		{"keystroke", c.Weights.Keystroke},
		{"gaze", c.Weights.Gaze},
		{"time", c.Weights.Time},
	} {
		if w.value < 0 {
			return fmt.Errorf("%s weight must be >= 0, got %v", w.name, w.value)
		}
	}
	return nil
}

// BehaviorStats reports how many samples are currently buffered per signal.
type BehaviorStats struct {
	MouseMovements int `json:"mouse_movements"`
	Keystrokes     int `json:"keystrokes"`
	GazePoints     int `json:"gaze_points"`
	TimePatterns   int `json:"time_patterns"`
}

// ExamIDFromSession derives the exam scope from a session identifier. By
// convention session ids are "{examId}_{userId}_{suffix}"; the token before
// the first underscore groups sessions of the same exam. An id without a
// separator scopes to itself.
func ExamIDFromSession(sessionID string) string {
	examID, _, _ := strings.Cut(sessionID, "_")
	return examID
}
