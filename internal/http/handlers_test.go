package httpx

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/examsentry/examsentry/internal/alert"
	"github.com/examsentry/examsentry/internal/engine"
	"github.com/examsentry/examsentry/internal/telemetry"
	"github.com/examsentry/examsentry/internal/telemetry/analysis"
	cfg "github.com/examsentry/examsentry/pkg/config"
)

func testConfig() cfg.Config {
	return cfg.Config{
		ServerAddr:      ":0",
		MaxBodyBytes:    1 << 20,
		Outputs:         []string{"log"},
		AlertScoreFloor: 60,

		MouseVelocityThreshold:     250000,
		KeystrokeIntervalThreshold: 10,
		GazeAttentionThreshold:     0.6,
		TimePatternThreshold:       1e9,
		MouseWeight:                1,
		KeystrokeWeight:            1,
		GazeWeight:                 1,
		TimeWeight:                 1,
	}
}

func newTestEnv() (Env, *[]alert.Alert) {
	store := engine.NewSessionStore()
	emitted := &[]alert.Alert{}
	env := Env{
		Cfg:    testConfig(),
		Store:  store,
		Engine: engine.NewEngine(store),
		Emit:   func(a alert.Alert) { *emitted = append(*emitted, a) },
	}
	return env, emitted
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoints(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)

	if w := do(t, h, http.MethodGet, "/healthz", ""); w.Code != http.StatusOK {
		t.Errorf("healthz = %d, want 200", w.Code)
	}
	if w := do(t, h, http.MethodGet, "/readyz", ""); w.Code != http.StatusOK {
		t.Errorf("readyz = %d, want 200", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)

	w := do(t, h, http.MethodOptions, "/telemetry", "")
	if w.Code != http.StatusNoContent {
		t.Errorf("preflight = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}
}

func TestInitSession(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)

	t.Run("valid id", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/session/init", `{"session_id":"examA_u1_s1"}`)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		if env.Store.SessionCount() != 1 {
			t.Errorf("session count = %d, want 1", env.Store.SessionCount())
		}
	})

	t.Run("custom thresholds", func(t *testing.T) {
		body := `{"session_id":"examA_u2_s1","config":{"gaze_attention_threshold":0.9,"anomaly_score_weight":{"mouse":1,"keystroke":1,"gaze":1,"time":1}}}`
		if w := do(t, h, http.MethodPost, "/session/init", body); w.Code != http.StatusOK {
			t.Errorf("status = %d, body %s", w.Code, w.Body.String())
		}
	})

	t.Run("empty id rejected", func(t *testing.T) {
		if w := do(t, h, http.MethodPost, "/session/init", `{"session_id":""}`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("negative weight rejected", func(t *testing.T) {
		body := `{"session_id":"bad","config":{"anomaly_score_weight":{"mouse":-1}}}`
		if w := do(t, h, http.MethodPost, "/session/init", body); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("malformed json rejected", func(t *testing.T) {
		if w := do(t, h, http.MethodPost, "/session/init", `{"session_id"`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestTelemetry(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)
	do(t, h, http.MethodPost, "/session/init", `{"session_id":"examA_u1_s1"}`)

	accepted := func(t *testing.T, w *httptest.ResponseRecorder) int {
		t.Helper()
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		var resp struct {
			Accepted int `json:"accepted"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return resp.Accepted
	}

	t.Run("single record", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/telemetry",
			`{"session_id":"examA_u1_s1","kind":"mouse","x":10,"y":20}`)
		if got := accepted(t, w); got != 1 {
			t.Errorf("accepted = %d, want 1", got)
		}
	})

	t.Run("batch of records", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/telemetry", `[
			{"session_id":"examA_u1_s1","kind":"mouse","x":11,"y":21},
			{"session_id":"examA_u1_s1","kind":"keystroke","key":"a","hold_ms":80},
			{"session_id":"examA_u1_s1","kind":"gaze","x":0.4,"y":0.5,"confidence":0.9,"blink_rate":15},
			{"session_id":"examA_u1_s1","kind":"time_pattern","question_id":"q1","start_ms":0,"end_ms":30000,"answer_length":120}
		]`)
		if got := accepted(t, w); got != 4 {
			t.Errorf("accepted = %d, want 4", got)
		}

		stats := env.Store.Stats("examA_u1_s1")
		if stats.MouseMovements != 2 || stats.Keystrokes != 1 || stats.GazePoints != 1 || stats.TimePatterns != 1 {
			t.Errorf("stats = %+v", stats)
		}
	})

	t.Run("unknown kind not counted", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/telemetry",
			`{"session_id":"examA_u1_s1","kind":"telepathy"}`)
		if got := accepted(t, w); got != 0 {
			t.Errorf("accepted = %d, want 0", got)
		}
	})

	t.Run("unknown session is a silent drop", func(t *testing.T) {
		w := do(t, h, http.MethodPost, "/telemetry",
			`{"session_id":"nobody","kind":"mouse","x":1,"y":1}`)
		if w.Code != http.StatusAccepted {
			t.Errorf("status = %d, want 202", w.Code)
		}
		if got := env.Store.Stats("nobody").MouseMovements; got != 0 {
			t.Errorf("unknown session buffered %d samples", got)
		}
	})

	t.Run("invalid json rejected", func(t *testing.T) {
		if w := do(t, h, http.MethodPost, "/telemetry", `{"kind"`); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("wrong content type rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/telemetry", strings.NewReader("kind=mouse"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusUnsupportedMediaType {
			t.Errorf("status = %d, want 415", w.Code)
		}
	})
}

func TestStats(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)
	do(t, h, http.MethodPost, "/session/init", `{"session_id":"examA_u1_s1"}`)
	do(t, h, http.MethodPost, "/telemetry", `{"session_id":"examA_u1_s1","kind":"mouse","x":1,"y":2}`)

	t.Run("counts buffered samples", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/stats?session_id=examA_u1_s1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var stats telemetry.BehaviorStats
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if stats.MouseMovements != 1 {
			t.Errorf("mouse = %d, want 1", stats.MouseMovements)
		}
	})

	t.Run("zero-filled for unknown sessions", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/stats?session_id=nobody", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var stats telemetry.BehaviorStats
		if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if stats != (telemetry.BehaviorStats{}) {
			t.Errorf("stats = %+v, want zeros", stats)
		}
	})

	t.Run("missing session_id rejected", func(t *testing.T) {
		if w := do(t, h, http.MethodGet, "/stats", ""); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func TestAnalyze(t *testing.T) {
	env, emitted := newTestEnv()
	h := NewMux(env)

	t.Run("missing session_id rejected", func(t *testing.T) {
		if w := do(t, h, http.MethodGet, "/analyze", ""); w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})

	t.Run("unknown session scores low without alerting", func(t *testing.T) {
		w := do(t, h, http.MethodGet, "/analyze?session_id=nobody", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var result analysis.BehaviorAnalysisResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.AnomalyScore != 0 || result.RiskLevel != analysis.RiskLow {
			t.Errorf("result = %v/%s, want 0/low", result.AnomalyScore, result.RiskLevel)
		}
		if len(*emitted) != 0 {
			t.Errorf("emitted %d alerts, want 0", len(*emitted))
		}
	})

	t.Run("robotic typing crosses the alert floor", func(t *testing.T) {
		do(t, h, http.MethodPost, "/session/init", `{"session_id":"examB_bot_s1"}`)
		// One batch ingested in a tight loop gives near-zero inter-key
		// intervals, which reads as machine-paced typing.
		records := make([]string, 30)
		for i := range records {
			records[i] = fmt.Sprintf(`{"session_id":"examB_bot_s1","kind":"keystroke","key":"a","hold_ms":%d}`, 50+i%3)
		}
		do(t, h, http.MethodPost, "/telemetry", "["+strings.Join(records, ",")+"]")

		w := do(t, h, http.MethodGet, "/analyze?session_id=examB_bot_s1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d", w.Code)
		}
		var result analysis.BehaviorAnalysisResult
		if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if result.AnomalyScore < 60 {
			t.Fatalf("score = %v, want >= 60 for machine-paced typing", result.AnomalyScore)
		}

		if len(*emitted) != 1 {
			t.Fatalf("emitted %d alerts, want 1", len(*emitted))
		}
		a := (*emitted)[0]
		if a.SessionID != "examB_bot_s1" {
			t.Errorf("alert session = %q", a.SessionID)
		}
		if a.ExamID != "examB" {
			t.Errorf("alert exam = %q, want examB", a.ExamID)
		}
		if a.AnomalyScore != result.AnomalyScore {
			t.Errorf("alert score = %v, result score = %v", a.AnomalyScore, result.AnomalyScore)
		}
	})
}

func TestCleanupSession(t *testing.T) {
	env, _ := newTestEnv()
	h := NewMux(env)
	do(t, h, http.MethodPost, "/session/init", `{"session_id":"examA_u1_s1"}`)
	do(t, h, http.MethodPost, "/telemetry", `{"session_id":"examA_u1_s1","kind":"mouse","x":1,"y":2}`)

	if w := do(t, h, http.MethodPost, "/session/cleanup", `{"session_id":"examA_u1_s1"}`); w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if env.Store.SessionCount() != 0 {
		t.Errorf("session count = %d, want 0", env.Store.SessionCount())
	}

	// Idempotent: cleaning an unknown session still succeeds.
	if w := do(t, h, http.MethodPost, "/session/cleanup", `{"session_id":"examA_u1_s1"}`); w.Code != http.StatusOK {
		t.Errorf("repeat cleanup status = %d, want 200", w.Code)
	}
}

func TestTelemetryBodyLimit(t *testing.T) {
	env, _ := newTestEnv()
	env.Cfg.MaxBodyBytes = 64
	h := NewMux(env)

	big := `{"session_id":"examA_u1_s1","kind":"mouse","x":1,"y":2,"pad":"` + strings.Repeat("x", 200) + `"}`
	w := do(t, h, http.MethodPost, "/telemetry", big)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", w.Code)
	}
}
