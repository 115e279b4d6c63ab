package sink

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	_ "github.com/lib/pq"

	"github.com/examsentry/examsentry/internal/alert"
)

// identRe matches a safe Postgres identifier.
var identRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateTableName rejects identifiers that could smuggle SQL into the
// insert statement. Postgres identifiers are limited to 63 bytes.
func validateTableName(name string) error {
	if name == "" {
		return fmt.Errorf("table name must not be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("table name %q exceeds 63 characters", name)
	}
	if !identRe.MatchString(name) {
		return fmt.Errorf("table name %q contains invalid characters", name)
	}
	return nil
}

// PGSink writes alerts to a Postgres table.
type PGSink struct {
	dsn   string
	table string
	db    *sql.DB
}

// NewPGSinkFromEnv creates a PGSink from PG_DSN and PG_TABLE.
func NewPGSinkFromEnv() *PGSink {
	return NewPGSink(
		os.Getenv("PG_DSN"),
		getEnvOr("PG_TABLE", "anomaly_alerts"),
	)
}

// NewPGSink creates a PGSink with explicit configuration.
func NewPGSink(dsn, table string) *PGSink {
	return &PGSink{dsn: dsn, table: table}
}

const pgSchema = `CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	exam_id TEXT NOT NULL,
	anomaly_score DOUBLE PRECISION NOT NULL,
	confidence DOUBLE PRECISION NOT NULL,
	risk_level TEXT NOT NULL,
	patterns JSONB NOT NULL,
	recommendations JSONB NOT NULL,
	detected_at TIMESTAMPTZ NOT NULL
)`

func (s *PGSink) Start(ctx context.Context) error {
	if err := validateTableName(s.table); err != nil {
		return err
	}
	db, err := sql.Open("postgres", s.dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf(pgSchema, s.table)); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ensure alert table: %w", err)
	}
	s.db = db
	return nil
}

func (s *PGSink) Enqueue(a alert.Alert) error {
	if s.db == nil {
		return fmt.Errorf("postgres sink not started")
	}
	patterns, err := json.Marshal(a.Patterns)
	if err != nil {
		return fmt.Errorf("failed to serialize patterns: %w", err)
	}
	recommendations, err := json.Marshal(a.Recommendations)
	if err != nil {
		return fmt.Errorf("failed to serialize recommendations: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO %s
		(id, session_id, exam_id, anomaly_score, confidence, risk_level, patterns, recommendations, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`, s.table)
	if _, err := s.db.ExecContext(context.Background(), query,
		a.ID, a.SessionID, a.ExamID, a.AnomalyScore, a.Confidence,
		string(a.RiskLevel), patterns, recommendations, a.DetectedAt,
	); err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (s *PGSink) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PGSink) Name() string { return "postgres" }
