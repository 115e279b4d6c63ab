// Package httpx is the thin HTTP facade over the behavior engine: session
// lifecycle, telemetry ingestion, on-demand analysis and stats.
package httpx

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/examsentry/examsentry/internal/alert"
	"github.com/examsentry/examsentry/internal/engine"
	"github.com/examsentry/examsentry/internal/metrics"
	"github.com/examsentry/examsentry/internal/telemetry"
	cfg "github.com/examsentry/examsentry/pkg/config"
)

type Env struct {
	Cfg     cfg.Config
	Store   *engine.SessionStore
	Engine  *engine.Engine
	Metrics *metrics.Metrics
	Emit    func(alert.Alert) // injected sink fan-out, nil disables alerting
}

// defaultThresholds builds the session tuning from service config.
func (e Env) defaultThresholds() telemetry.ThresholdConfig {
	return telemetry.ThresholdConfig{
		MouseVelocityThreshold:     e.Cfg.MouseVelocityThreshold,
		KeystrokeIntervalThreshold: e.Cfg.KeystrokeIntervalThreshold,
		GazeAttentionThreshold:     e.Cfg.GazeAttentionThreshold,
		TimePatternThreshold:       e.Cfg.TimePatternThreshold,
		Weights: telemetry.ScoreWeights{
			Mouse:     e.Cfg.MouseWeight,
			Keystroke: e.Cfg.KeystrokeWeight,
			Gaze:      e.Cfg.GazeWeight,
			Time:      e.Cfg.TimeWeight,
		},
	}
}

func (e Env) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (e Env) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

type sessionRequest struct {
	SessionID string                     `json:"session_id"`
	Config    *telemetry.ThresholdConfig `json:"config,omitempty"`
}

// InitSession handles POST /session/init. It registers a session for
// monitoring. Re-init replaces
// any prior state for the id.
func (e Env) InitSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !e.decodeJSON(w, r, &req) {
		return
	}

	tc := e.defaultThresholds()
	if req.Config != nil {
		tc = *req.Config
	}
	if err := e.Store.InitializeSession(req.SessionID, tc); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if e.Metrics != nil {
		e.Metrics.SetActiveSessions(e.Store.SessionCount())
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// CleanupSession handles POST /session/cleanup. It releases all state for a
// session. Idempotent.
func (e Env) CleanupSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if !e.decodeJSON(w, r, &req) {
		return
	}
	e.Store.CleanupSession(req.SessionID)
	if e.Metrics != nil {
		e.Metrics.SetActiveSessions(e.Store.SessionCount())
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// telemetryRecord is one wire-format sample. Kind selects which fields are
// read; the rest are ignored.
type telemetryRecord struct {
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"` // mouse, keystroke, gaze, time_pattern

	// mouse / gaze
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`

	// keystroke
	Key    string  `json:"key,omitempty"`
	HoldMs float64 `json:"hold_ms,omitempty"`

	// gaze
	Confidence    float64 `json:"confidence,omitempty"`
	PupilDilation float64 `json:"pupil_dilation,omitempty"`
	BlinkRate     float64 `json:"blink_rate,omitempty"`

	// time_pattern; timestamps are unix milliseconds
	QuestionID      string `json:"question_id,omitempty"`
	StartMs         int64  `json:"start_ms,omitempty"`
	EndMs           int64  `json:"end_ms,omitempty"`
	AnswerLength    int    `json:"answer_length,omitempty"`
	HesitationCount int    `json:"hesitation_count,omitempty"`
	RevisionCount   int    `json:"revision_count,omitempty"`
}

// Telemetry handles POST /telemetry. It accepts a single record or an array
// of records. Records
// for unknown sessions are silently dropped (telemetry races with teardown);
// records of unknown kind are not counted as accepted.
func (e Env) Telemetry(w http.ResponseWriter, r *http.Request) {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "application/json") {
		http.Error(w, "content-type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.Cfg.MaxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	var raw json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	accepted := 0
	if len(raw) > 0 && raw[0] == '[' {
		var records []telemetryRecord
		if err := json.Unmarshal(raw, &records); err != nil {
			http.Error(w, "invalid json array", http.StatusBadRequest)
			return
		}
		for _, rec := range records {
			if e.apply(rec) {
				accepted++
			}
		}
	} else {
		var rec telemetryRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			http.Error(w, "invalid json object", http.StatusBadRequest)
			return
		}
		if e.apply(rec) {
			accepted = 1
		}
	}

	writeJSON(w, http.StatusAccepted, map[string]any{"accepted": accepted, "status": "ok"})
}

// apply routes one record to its recorder. Returns false for unknown kinds.
func (e Env) apply(rec telemetryRecord) bool {
	switch rec.Kind {
	case "mouse":
		e.Store.RecordMouseMovement(rec.SessionID, rec.X, rec.Y)
	case "keystroke":
		e.Store.RecordKeystroke(rec.SessionID, rec.Key, rec.HoldMs)
	case "gaze":
		e.Store.RecordGazeData(rec.SessionID, rec.X, rec.Y, rec.Confidence, rec.PupilDilation, rec.BlinkRate)
	case "time_pattern":
		e.Store.RecordTimePattern(rec.SessionID, rec.QuestionID,
			time.UnixMilli(rec.StartMs), time.UnixMilli(rec.EndMs),
			rec.AnswerLength, rec.HesitationCount, rec.RevisionCount)
	default:
		return false
	}
	if e.Metrics != nil {
		e.Metrics.IncrementSamplesIngested(rec.Kind)
	}
	return true
}

// Analyze handles GET /analyze?session_id=. It runs an on-demand analysis
// and returns the
// result; emits an alert when the score reaches the configured floor.
func (e Env) Analyze(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result := e.Engine.AnalyzeBehavior(sessionID)
	if e.Metrics != nil {
		e.Metrics.ObserveAnalysisDuration(time.Since(start))
		e.Metrics.IncrementAnalysesRun(string(result.RiskLevel))
	}

	if e.Emit != nil && result.AnomalyScore >= e.Cfg.AlertScoreFloor {
		e.Emit(alert.FromResult(sessionID, result))
	}

	writeJSON(w, http.StatusOK, result)
}

// Stats handles GET /stats?session_id=. It reports buffered sample counts,
// zero-filled for unknown sessions.
func (e Env) Stats(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, e.Store.Stats(sessionID))
}

func (e Env) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, e.Cfg.MaxBodyBytes))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return false
	}
	if err := json.Unmarshal(body, v); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
