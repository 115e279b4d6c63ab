package analysis

import (
	"math"

	"github.com/examsentry/examsentry/internal/telemetry"
)

// MinMouseSamples is the smallest buffer the mouse analyzer will score.
const MinMouseSamples = 10

const (
	straightLineRadians = 0.1  // direction delta below this counts as a straight move
	straightLineShare   = 0.3  // share of samples above which movement looks scripted
	maxHumanAccel       = 5000 // px/s^2
)

// AnalyzeMouse scores a mouse-movement buffer. High velocity variance reads
// as erratic, long straight runs as scripted, and accelerations beyond human
// motor limits as injected input.
func AnalyzeMouse(samples []telemetry.MouseSample, cfg telemetry.ThresholdConfig) SignalReport {
	if len(samples) < MinMouseSamples {
		return SignalReport{}
	}
	var report SignalReport

	velocities := make([]float64, 0, len(samples))
	for _, s := range samples {
		velocities = append(velocities, s.Velocity)
	}
	if _, variance := meanVariance(velocities); variance > cfg.MouseVelocityThreshold {
		report.add(TagErraticMouseMovements, 30, 0.8)
	}

	straight := 0
	for i := 1; i < len(samples); i++ {
		if math.Abs(samples[i].Direction-samples[i-1].Direction) < straightLineRadians {
			straight++
		}
	}
	if float64(straight) > straightLineShare*float64(len(samples)) {
		report.add(TagRoboticMouseMovements, 25, 0.7)
	}

	maxAccel := 0.0
	for _, s := range samples {
		if a := math.Abs(s.Acceleration); a > maxAccel {
			maxAccel = a
		}
	}
	if maxAccel > maxHumanAccel {
		report.add(TagSuddenMouseAcceleration, 20, 0.6)
	}

	return report
}
