package analysis

import (
	"github.com/examsentry/examsentry/internal/telemetry"
)

// MinTimeSamples is the smallest buffer the time-pattern analyzer will score.
const MinTimeSamples = 3

const (
	fastAnswerMs          = 5000 // answering faster than this is suspect...
	fastAnswerLength      = 50   // ...when the answer is this long
	fastAnswerShare       = 0.2  // share of samples above which speed looks coached
	hesitationMeanCeiling = 5
	revisionMeanCeiling   = 3
)

// AnalyzeTimePatterns scores per-question answering behavior. Wild variance
// in time spent reads as selective outside help, long answers produced in
// seconds as pre-known solutions, and heavy hesitation or revision as
// second-guessing under coaching.
func AnalyzeTimePatterns(samples []telemetry.TimePatternSample, cfg telemetry.ThresholdConfig) SignalReport {
	if len(samples) < MinTimeSamples {
		return SignalReport{}
	}
	var report SignalReport

	spent := make([]float64, 0, len(samples))
	hesitations := make([]float64, 0, len(samples))
	revisions := make([]float64, 0, len(samples))
	fast := 0
	for _, s := range samples {
		spent = append(spent, float64(s.TimeSpentMs))
		hesitations = append(hesitations, float64(s.HesitationCount))
		revisions = append(revisions, float64(s.RevisionCount))
		if s.TimeSpentMs < fastAnswerMs && s.AnswerLength > fastAnswerLength {
			fast++
		}
	}

	if _, variance := meanVariance(spent); variance > cfg.TimePatternThreshold {
		report.add(TagInconsistentTimePatterns, 25, 0.7)
	}

	if float64(fast) > fastAnswerShare*float64(len(samples)) {
		report.add(TagSuspiciouslyFastAnswers, 30, 0.8)
	}

	if mean(hesitations) > hesitationMeanCeiling {
		report.add(TagExcessiveHesitation, 15, 0.6)
	}

	if mean(revisions) > revisionMeanCeiling {
		report.add(TagFrequentAnswerRevisions, 20, 0.7)
	}

	return report
}
