// Package engine owns per-session telemetry state and produces risk-scored
// behavior judgments. The SessionStore is the only shared mutable structure;
// recording is O(1) per sample, analysis snapshots buffers under a read lock
// and computes outside of it.
package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/examsentry/examsentry/internal/telemetry"
	"github.com/examsentry/examsentry/internal/telemetry/analysis"
)

// Buffer capacities per signal. Oldest samples are evicted first.
const (
	MouseBufferCap       = 1000
	KeystrokeBufferCap   = 500
	GazeBufferCap        = 200
	TimePatternBufferCap = 100
)

type sessionContext struct {
	cfg          telemetry.ThresholdConfig
	mouse        *ring[telemetry.MouseSample]
	keystrokes   *ring[telemetry.KeystrokeSample]
	gaze         *ring[telemetry.GazeSample]
	timePatterns *ring[telemetry.TimePatternSample]
	lastResult   *analysis.BehaviorAnalysisResult
}

func newSessionContext(cfg telemetry.ThresholdConfig) *sessionContext {
	return &sessionContext{
		cfg:          cfg,
		mouse:        newRing[telemetry.MouseSample](MouseBufferCap),
		keystrokes:   newRing[telemetry.KeystrokeSample](KeystrokeBufferCap),
		gaze:         newRing[telemetry.GazeSample](GazeBufferCap),
		timePatterns: newRing[telemetry.TimePatternSample](TimePatternBufferCap),
	}
}

// SessionStore is an in-memory registry of monitored exam sessions. It is
// safe for concurrent use. Recording against an unknown session is a silent
// no-op: telemetry legitimately races with session teardown.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*sessionContext
	clock    func() time.Time
}

// NewSessionStore returns an empty registry.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*sessionContext),
		clock:    time.Now,
	}
}

// InitializeSession registers a fresh context for sessionID, replacing any
// prior one. It rejects empty ids and configurations that fail validation; a
// zero-value config gets the defaults.
func (s *SessionStore) InitializeSession(sessionID string, cfg telemetry.ThresholdConfig) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id must not be empty")
	}
	if cfg == (telemetry.ThresholdConfig{}) {
		cfg = telemetry.DefaultThresholdConfig()
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid threshold config for session %q: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = newSessionContext(cfg)
	return nil
}

// CleanupSession releases all state for sessionID. Idempotent.
func (s *SessionStore) CleanupSession(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// SessionCount returns the number of active sessions.
func (s *SessionStore) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// RecordMouseMovement appends a pointer sample, deriving velocity,
// acceleration and direction from the buffer's current tail.
func (s *SessionStore) RecordMouseMovement(sessionID string, x, y float64) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	sample := telemetry.MouseSample{X: x, Y: y, Timestamp: now}
	if prev, ok := ctx.mouse.last(); ok {
		if dt := now.Sub(prev.Timestamp).Seconds(); dt > 0 {
			dx, dy := x-prev.X, y-prev.Y
			sample.Velocity = math.Hypot(dx, dy) / dt
			sample.Acceleration = (sample.Velocity - prev.Velocity) / dt
			sample.Direction = math.Atan2(dy, dx)
		}
	}
	ctx.mouse.push(sample)
}

// modifierKeys are key names that carry no answer content.
var modifierKeys = map[string]bool{
	"Shift": true, "Control": true, "Alt": true, "Meta": true,
	"CapsLock": true, "Tab": true, "Escape": true,
	"ArrowUp": true, "ArrowDown": true, "ArrowLeft": true, "ArrowRight": true,
}

// RecordKeystroke appends a key press, deriving the inter-key interval from
// the buffer's current tail.
func (s *SessionStore) RecordKeystroke(sessionID, key string, holdDurationMs float64) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return
	}

	sample := telemetry.KeystrokeSample{
		Key:          key,
		Timestamp:    now,
		HoldDuration: holdDurationMs,
		IsBackspace:  key == "Backspace",
		IsModifier:   modifierKeys[key],
	}
	if prev, ok := ctx.keystrokes.last(); ok {
		sample.Interval = float64(now.Sub(prev.Timestamp)) / float64(time.Millisecond)
	}
	ctx.keystrokes.push(sample)
}

// RecordGazeData appends an eye-tracker sample.
func (s *SessionStore) RecordGazeData(sessionID string, x, y, confidence, pupilDilation, blinkRate float64) {
	now := s.clock()

	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	ctx.gaze.push(telemetry.GazeSample{
		X:             x,
		Y:             y,
		Timestamp:     now,
		Confidence:    confidence,
		PupilDilation: pupilDilation,
		BlinkRate:     blinkRate,
	})
}

// RecordTimePattern appends one answered question's timing.
func (s *SessionStore) RecordTimePattern(sessionID, questionID string, start, end time.Time, answerLength, hesitationCount, revisionCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return
	}
	ctx.timePatterns.push(telemetry.TimePatternSample{
		QuestionID:      questionID,
		StartTime:       start,
		EndTime:         end,
		TimeSpentMs:     end.Sub(start).Milliseconds(),
		AnswerLength:    answerLength,
		HesitationCount: hesitationCount,
		RevisionCount:   revisionCount,
	})
}

// Stats reports buffered sample counts, zero-filled for unknown sessions.
func (s *SessionStore) Stats(sessionID string) telemetry.BehaviorStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return telemetry.BehaviorStats{}
	}
	return telemetry.BehaviorStats{
		MouseMovements: ctx.mouse.len(),
		Keystrokes:     ctx.keystrokes.len(),
		GazePoints:     ctx.gaze.len(),
		TimePatterns:   ctx.timePatterns.len(),
	}
}

// sessionSnapshot is a copy-out of one session's buffers and config, taken
// under the read lock so analysis can run without holding it.
type sessionSnapshot struct {
	cfg          telemetry.ThresholdConfig
	mouse        []telemetry.MouseSample
	keystrokes   []telemetry.KeystrokeSample
	gaze         []telemetry.GazeSample
	timePatterns []telemetry.TimePatternSample
}

func (s *SessionStore) snapshot(sessionID string) (sessionSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ctx, ok := s.sessions[sessionID]
	if !ok {
		return sessionSnapshot{}, false
	}
	return sessionSnapshot{
		cfg:          ctx.cfg,
		mouse:        ctx.mouse.snapshot(),
		keystrokes:   ctx.keystrokes.snapshot(),
		gaze:         ctx.gaze.snapshot(),
		timePatterns: ctx.timePatterns.snapshot(),
	}, true
}

// peers copies out the cached result and mouse trace of every other live
// session of the given exam.
func (s *SessionStore) peers(examID, excludeSessionID string) []analysis.PeerSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []analysis.PeerSession
	for id, ctx := range s.sessions {
		if id == excludeSessionID || telemetry.ExamIDFromSession(id) != examID {
			continue
		}
		peer := analysis.PeerSession{SessionID: id, Mouse: ctx.mouse.snapshot()}
		if ctx.lastResult != nil {
			res := *ctx.lastResult
			peer.Result = &res
		}
		out = append(out, peer)
	}
	return out
}

func (s *SessionStore) setLastResult(sessionID string, res analysis.BehaviorAnalysisResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ctx, ok := s.sessions[sessionID]; ok {
		ctx.lastResult = &res
	}
}
