// Package alert defines the anomaly record emitted to sinks when an analyzed
// session crosses the alerting threshold.
package alert

import (
	"time"

	"github.com/google/uuid"

	"github.com/examsentry/examsentry/internal/telemetry"
	"github.com/examsentry/examsentry/internal/telemetry/analysis"
)

// Alert is one high-risk analysis outcome, ready for fan-out.
type Alert struct {
	ID              string                `json:"id"`
	SessionID       string                `json:"session_id"`
	ExamID          string                `json:"exam_id"`
	AnomalyScore    float64               `json:"anomaly_score"`
	Confidence      float64               `json:"confidence"`
	RiskLevel       analysis.RiskLevel    `json:"risk_level"`
	Patterns        []analysis.PatternTag `json:"patterns"`
	Recommendations []string              `json:"recommendations"`
	DetectedAt      time.Time             `json:"detected_at"`
}

// FromResult builds an alert for sessionID from an analysis result.
func FromResult(sessionID string, res analysis.BehaviorAnalysisResult) Alert {
	return Alert{
		ID:              uuid.New().String(),
		SessionID:       sessionID,
		ExamID:          telemetry.ExamIDFromSession(sessionID),
		AnomalyScore:    res.AnomalyScore,
		Confidence:      res.Confidence,
		RiskLevel:       res.RiskLevel,
		Patterns:        res.DetectedPatterns,
		Recommendations: res.Recommendations,
		DetectedAt:      res.Timestamp,
	}
}
