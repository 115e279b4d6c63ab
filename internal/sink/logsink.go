package sink

import (
	"context"
	"encoding/json"
	"log"

	"github.com/examsentry/examsentry/internal/alert"
)

// LogSink writes alerts to the process log. It is the default output.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Start(ctx context.Context) error { return nil }

func (s *LogSink) Enqueue(a alert.Alert) error {
	b, _ := json.Marshal(a)
	log.Printf("alert %s", string(b))
	return nil
}

func (s *LogSink) Close() error { return nil }

func (s *LogSink) Name() string { return "log" }
