package engine

import (
	"github.com/examsentry/examsentry/internal/telemetry"
	"github.com/examsentry/examsentry/internal/telemetry/analysis"
)

// Engine produces behavior judgments over a SessionStore.
type Engine struct {
	store *SessionStore
}

// NewEngine returns an engine reading from store.
func NewEngine(store *SessionStore) *Engine {
	return &Engine{store: store}
}

// AnalyzeBehavior scores sessionID's buffered telemetry and returns the
// result. Unknown sessions get the empty low-risk result. The returned
// result includes cross-session correlation findings, and that augmented
// result is what gets cached for future correlation against this session, so
// coordinated-cheating flags can cascade across an exam's sessions over
// repeated calls.
func (e *Engine) AnalyzeBehavior(sessionID string) analysis.BehaviorAnalysisResult {
	now := e.store.clock()

	snap, ok := e.store.snapshot(sessionID)
	if !ok {
		return analysis.EmptyResult(now)
	}

	mouse := analysis.AnalyzeMouse(snap.mouse, snap.cfg)
	keystrokes := analysis.AnalyzeKeystrokes(snap.keystrokes, snap.cfg)
	gaze := analysis.AnalyzeGaze(snap.gaze, snap.cfg)
	timing := analysis.AnalyzeTimePatterns(snap.timePatterns, snap.cfg)

	result := analysis.Aggregate(mouse, keystrokes, gaze, timing, snap.cfg.Weights, now)

	peers := e.store.peers(telemetry.ExamIDFromSession(sessionID), sessionID)
	analysis.Correlate(&result, snap.mouse, peers, now)

	e.store.setLastResult(sessionID, result)
	return result
}
