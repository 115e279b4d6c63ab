package analysis

import (
	"github.com/examsentry/examsentry/internal/telemetry"
)

// MinKeystrokeSamples is the smallest buffer the keystroke analyzer will score.
const MinKeystrokeSamples = 20

const (
	roboticIntervalVariance = 10   // ms^2; human typing never stays this consistent
	backspaceRatioCeiling   = 0.15 // share of backspaces above which editing looks abnormal
	rapidIntervalMs         = 10   // intervals below this suggest injected text
	rapidWindow             = 6    // consecutive keystrokes per rapid burst
	rapidWindowShare        = 0.1  // share of the buffer covered by bursts
)

// AnalyzeKeystrokes scores a keystroke buffer. Near-zero interval variance
// reads as machine typing, heavy backspacing as abnormal editing, and bursts
// of sub-10ms intervals as clipboard-paste style insertion.
func AnalyzeKeystrokes(samples []telemetry.KeystrokeSample, cfg telemetry.ThresholdConfig) SignalReport {
	if len(samples) < MinKeystrokeSamples {
		return SignalReport{}
	}
	var report SignalReport

	intervals := make([]float64, 0, len(samples)-1)
	for _, s := range samples[1:] {
		intervals = append(intervals, s.Interval)
	}
	if _, variance := meanVariance(intervals); variance < roboticIntervalVariance {
		report.add(TagRoboticTypingPattern, 35, 0.9)
	}

	backspaces := 0
	for _, s := range samples {
		if s.IsBackspace {
			backspaces++
		}
	}
	if float64(backspaces)/float64(len(samples)) > backspaceRatioCeiling {
		report.add(TagExcessiveBackspacing, 20, 0.7)
	}

	if float64(rapidBursts(samples)) > rapidWindowShare*float64(len(samples)) {
		report.add(TagRapidTextInsertion, 30, 0.8)
	}

	return report
}

// rapidBursts counts sliding windows of rapidWindow consecutive keystrokes
// whose intervals are all below rapidIntervalMs.
func rapidBursts(samples []telemetry.KeystrokeSample) int {
	bursts := 0
	for i := 0; i+rapidWindow <= len(samples); i++ {
		allRapid := true
		for _, s := range samples[i : i+rapidWindow] {
			if s.Interval >= rapidIntervalMs {
				allRapid = false
				break
			}
		}
		if allRapid {
			bursts++
		}
	}
	return bursts
}
