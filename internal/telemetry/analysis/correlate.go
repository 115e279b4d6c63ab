package analysis

import (
	"math"
	"time"

	"github.com/examsentry/examsentry/internal/telemetry"
)

// MinTraceSamples is the smallest mouse trace the similarity check compares.
const MinTraceSamples = 10

const (
	syncWindow       = 5 * time.Minute
	syncScoreFloor   = 70.0
	similarityFloor  = 0.8
	coordinatedBoost = 25.0
)

// PeerSession is the read-only view of another live session of the same exam
// that the correlator compares against. Result is nil if the peer has never
// been analyzed.
type PeerSession struct {
	SessionID string
	Result    *BehaviorAnalysisResult
	Mouse     []telemetry.MouseSample
}

// Correlate augments result with collusion findings against peers: sessions
// of the same exam whose last analysis spiked inside the synchronization
// window raise the score by coordinatedBoost, and near-identical mouse traces
// are tagged per peer. The risk level is re-derived from the adjusted score.
func Correlate(result *BehaviorAnalysisResult, mouse []telemetry.MouseSample, peers []PeerSession, now time.Time) {
	synced := 0
	for _, p := range peers {
		if p.Result == nil {
			continue
		}
		age := now.Sub(p.Result.Timestamp)
		if age < 0 {
			age = -age
		}
		if age < syncWindow && p.Result.AnomalyScore > syncScoreFloor {
			synced++
		}
	}
	if synced > 0 {
		result.DetectedPatterns = append(result.DetectedPatterns, TagCoordinatedCheating(synced))
		result.AnomalyScore = clamp(result.AnomalyScore+coordinatedBoost, 0, 100)
		result.RiskLevel = RiskLevelFor(result.AnomalyScore)
	}

	if len(mouse) < MinTraceSamples {
		return
	}
	for _, p := range peers {
		if len(p.Mouse) < MinTraceSamples {
			continue
		}
		if TraceSimilarity(mouse, p.Mouse) >= similarityFloor {
			result.DetectedPatterns = append(result.DetectedPatterns, TagIdenticalMousePatterns(p.SessionID))
		}
	}
}

// TraceSimilarity compares two mouse traces by aligning their most recent
// min(len(a), len(b)) samples pairwise and averaging velocity agreement at
// each index. 1 means identical, 0 means fully dissimilar. Alignment is by
// index, not timestamp; phase-shifted traces compare as-is.
func TraceSimilarity(a, b []telemetry.MouseSample) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	a = a[len(a)-n:]
	b = b[len(b)-n:]

	sum := 0.0
	for i := 0; i < n; i++ {
		v1, v2 := a[i].Velocity, b[i].Velocity
		sum += 1 - math.Abs(v1-v2)/math.Max(math.Max(v1, v2), 1)
	}
	return sum / float64(n)
}
