package main

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/examsentry/examsentry/internal/alert"
	"github.com/examsentry/examsentry/internal/engine"
	"github.com/examsentry/examsentry/internal/telemetry"
)

// runTestMode pushes synthetic exam sessions through the full pipeline so
// sinks can be verified without a live exam: one human-looking session, one
// robotic one, and a coordinated pair sharing an exam.
func runTestMode(store *engine.SessionStore, eng *engine.Engine, emit func(alert.Alert)) {
	sessions := []struct {
		id   string
		feed func(string)
	}{
		{"examdemo_human_" + uuid.New().String()[:8], func(id string) { feedHumanSession(store, id) }},
		{"examdemo_robot_" + uuid.New().String()[:8], func(id string) { feedRoboticSession(store, id) }},
		{"examcoord_u1_" + uuid.New().String()[:8], func(id string) { feedStraightMouse(store, id) }},
		{"examcoord_u2_" + uuid.New().String()[:8], func(id string) { feedStraightMouse(store, id) }},
	}

	cfg := telemetry.DefaultThresholdConfig()
	for _, s := range sessions {
		if err := store.InitializeSession(s.id, cfg); err != nil {
			log.Fatalf("test-mode: init %s: %v", s.id, err)
		}
		s.feed(s.id)
	}

	for _, s := range sessions {
		result := eng.AnalyzeBehavior(s.id)
		log.Printf("test-mode: %s score=%.1f risk=%s patterns=%v",
			s.id, result.AnomalyScore, result.RiskLevel, result.DetectedPatterns)
		if result.AnomalyScore > 0 {
			emit(alert.FromResult(s.id, result))
		}
		store.CleanupSession(s.id)
	}
}

// feedHumanSession writes plausibly human telemetry: wandering mouse, uneven
// typing, ordinary question timing.
func feedHumanSession(store *engine.SessionStore, id string) {
	xs := []float64{10, 35, 80, 120, 140, 130, 160, 210, 250, 240, 280, 330, 310, 360, 400}
	ys := []float64{20, 60, 45, 90, 150, 200, 180, 220, 210, 260, 300, 280, 330, 310, 350}
	for i := range xs {
		store.RecordMouseMovement(id, xs[i], ys[i])
		time.Sleep(2 * time.Millisecond)
	}
	keys := "the quick brown fox j"
	for _, k := range keys {
		store.RecordKeystroke(id, string(k), 80)
		time.Sleep(3 * time.Millisecond)
	}
	now := time.Now()
	for q := 0; q < 4; q++ {
		start := now.Add(time.Duration(q) * time.Minute)
		store.RecordTimePattern(id, uuid.New().String(), start, start.Add(45*time.Second), 80, 1, 0)
	}
}

// feedRoboticSession writes machine-looking telemetry: straight-line mouse
// and instant long answers.
func feedRoboticSession(store *engine.SessionStore, id string) {
	feedStraightMouse(store, id)
	now := time.Now()
	for q := 0; q < 4; q++ {
		start := now.Add(time.Duration(q) * time.Minute)
		store.RecordTimePattern(id, uuid.New().String(), start, start.Add(3*time.Second), 120, 0, 0)
	}
}

// feedStraightMouse writes a perfectly straight constant-speed trace.
func feedStraightMouse(store *engine.SessionStore, id string) {
	for i := 0; i < 15; i++ {
		store.RecordMouseMovement(id, float64(i*5), 100)
		time.Sleep(2 * time.Millisecond)
	}
}
