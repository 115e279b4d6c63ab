// Package sink fans anomaly alerts out to configured destinations.
package sink

import (
	"context"
	"fmt"

	"github.com/examsentry/examsentry/internal/alert"
)

// Sink delivers alerts to one destination.
type Sink interface {
	Start(ctx context.Context) error
	Enqueue(a alert.Alert) error
	Close() error
	Name() string // sink name for metrics and logging
}

// ForOutputs builds the sinks named in outputs (log, kafka, postgres).
// Kafka and Postgres sinks read their settings from the environment.
func ForOutputs(outputs []string) ([]Sink, error) {
	var sinks []Sink
	for _, name := range outputs {
		switch name {
		case "log":
			sinks = append(sinks, NewLogSink())
		case "kafka":
			sinks = append(sinks, NewKafkaSinkFromEnv())
		case "postgres":
			sinks = append(sinks, NewPGSinkFromEnv())
		default:
			return nil, fmt.Errorf("unknown output %q", name)
		}
	}
	return sinks, nil
}
