package analysis

import (
	"math"

	"github.com/examsentry/examsentry/internal/telemetry"
)

// MinGazeSamples is the smallest buffer the gaze analyzer will score.
const MinGazeSamples = 5

const (
	fixationWindow     = 10  // samples per rolling window
	fixationRadius     = 10  // px from the window mean
	fixationShare      = 0.2 // share of the buffer covered by fixated windows
	blinkRateFloor     = 0.5 // blinks/min
	blinkRateCeiling   = 30  // blinks/min
	stressPupilCeiling = 0.8 // mean normalized dilation
)

// AnalyzeGaze scores an eye-tracking buffer. Low tracker confidence reads as
// the subject looking away from the screen, unnaturally still gaze as staring
// at an overlay or second display, and blink/pupil extremes as stress or a
// non-live feed.
func AnalyzeGaze(samples []telemetry.GazeSample, cfg telemetry.ThresholdConfig) SignalReport {
	if len(samples) < MinGazeSamples {
		return SignalReport{}
	}
	var report SignalReport

	confidences := make([]float64, 0, len(samples))
	blinks := make([]float64, 0, len(samples))
	pupils := make([]float64, 0, len(samples))
	for _, s := range samples {
		confidences = append(confidences, s.Confidence)
		blinks = append(blinks, s.BlinkRate)
		pupils = append(pupils, s.PupilDilation)
	}

	if mean(confidences) < cfg.GazeAttentionThreshold {
		report.add(TagLowAttentionDetected, 25, 0.7)
	}

	if float64(fixatedWindows(samples)) > fixationShare*float64(len(samples)) {
		report.add(TagUnusualGazeFixation, 20, 0.6)
	}

	if br := mean(blinks); br < blinkRateFloor || br > blinkRateCeiling {
		report.add(TagAbnormalBlinkRate, 15, 0.5)
	}

	if mean(pupils) > stressPupilCeiling {
		report.add(TagElevatedStressIndicators, 10, 0.4)
	}

	return report
}

// fixatedWindows counts rolling windows of fixationWindow samples whose x and
// y both stay within fixationRadius of the window mean.
func fixatedWindows(samples []telemetry.GazeSample) int {
	fixated := 0
	for i := 0; i+fixationWindow <= len(samples); i++ {
		window := samples[i : i+fixationWindow]
		var meanX, meanY float64
		for _, s := range window {
			meanX += s.X
			meanY += s.Y
		}
		meanX /= fixationWindow
		meanY /= fixationWindow

		still := true
		for _, s := range window {
			if math.Abs(s.X-meanX) > fixationRadius || math.Abs(s.Y-meanY) > fixationRadius {
				still = false
				break
			}
		}
		if still {
			fixated++
		}
	}
	return fixated
}
