package analysis

import (
	"testing"
	"time"

	"github.com/examsentry/examsentry/internal/telemetry"
)

func mouseSamples(n int, f func(i int) telemetry.MouseSample) []telemetry.MouseSample {
	out := make([]telemetry.MouseSample, n)
	base := time.Unix(1700000000, 0)
	for i := range out {
		out[i] = f(i)
		out[i].Timestamp = base.Add(time.Duration(i) * 50 * time.Millisecond)
	}
	return out
}

func hasPattern(r SignalReport, tag PatternTag) bool {
	for _, p := range r.Patterns {
		if p == tag {
			return true
		}
	}
	return false
}

func TestAnalyzeMouse(t *testing.T) {
	cfg := telemetry.DefaultThresholdConfig()

	t.Run("below minimum samples yields zero report", func(t *testing.T) {
		samples := mouseSamples(MinMouseSamples-1, func(i int) telemetry.MouseSample {
			return telemetry.MouseSample{Velocity: 99999, Direction: 0}
		})
		r := AnalyzeMouse(samples, cfg)
		if r.Score != 0 || r.Confidence != 0 || len(r.Patterns) != 0 {
			t.Errorf("insufficient data must not be scored: %+v", r)
		}
	})

	t.Run("high velocity variance flags erratic movement", func(t *testing.T) {
		samples := mouseSamples(20, func(i int) telemetry.MouseSample {
			v := 0.0
			if i%2 == 0 {
				v = 3000
			}
			// Alternate direction so the straight-line check stays quiet.
			return telemetry.MouseSample{Velocity: v, Direction: float64(i%2) * 2}
		})
		r := AnalyzeMouse(samples, cfg)
		if !hasPattern(r, TagErraticMouseMovements) {
			t.Errorf("expected erratic_mouse_movements, got %v", r.Patterns)
		}
		if r.Score != 30 || r.Confidence != 0.8 {
			t.Errorf("score/confidence = %v/%v, want 30/0.8", r.Score, r.Confidence)
		}
	})

	t.Run("straight line runs flag robotic movement", func(t *testing.T) {
		samples := mouseSamples(15, func(i int) telemetry.MouseSample {
			return telemetry.MouseSample{Velocity: 100, Direction: 0}
		})
		r := AnalyzeMouse(samples, cfg)
		if !hasPattern(r, TagRoboticMouseMovements) {
			t.Errorf("expected robotic_mouse_movements, got %v", r.Patterns)
		}
		if r.Score < 25 {
			t.Errorf("score = %v, want >= 25", r.Score)
		}
	})

	t.Run("extreme acceleration flags sudden movement", func(t *testing.T) {
		samples := mouseSamples(12, func(i int) telemetry.MouseSample {
			return telemetry.MouseSample{Velocity: 100, Direction: float64(i)}
		})
		samples[6].Acceleration = -6000 // sign must not matter
		r := AnalyzeMouse(samples, cfg)
		if !hasPattern(r, TagSuddenMouseAcceleration) {
			t.Errorf("expected sudden_mouse_acceleration, got %v", r.Patterns)
		}
	})

	t.Run("calm human movement is clean", func(t *testing.T) {
		samples := mouseSamples(30, func(i int) telemetry.MouseSample {
			return telemetry.MouseSample{
				Velocity:     200 + float64(i%5)*30,
				Acceleration: float64(i%3) * 100,
				Direction:    float64(i) * 0.5,
			}
		})
		r := AnalyzeMouse(samples, cfg)
		if len(r.Patterns) != 0 {
			t.Errorf("expected no patterns, got %v", r.Patterns)
		}
	})
}
