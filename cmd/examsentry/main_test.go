package main

import (
	"context"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/examsentry/examsentry/internal/alert"
	"github.com/examsentry/examsentry/internal/metrics"
	"github.com/examsentry/examsentry/internal/sink"
)

// Mock sink for testing
type mockSink struct {
	name     string
	alerts   []alert.Alert
	startErr error
	enqErr   error
	closeErr error
}

func (m *mockSink) Start(ctx context.Context) error { return m.startErr }

func (m *mockSink) Enqueue(a alert.Alert) error {
	if m.enqErr != nil {
		return m.enqErr
	}
	m.alerts = append(m.alerts, a)
	return nil
}

func (m *mockSink) Close() error { return m.closeErr }

func (m *mockSink) Name() string { return m.name }

func testMetrics() *metrics.Metrics {
	return metrics.NewMetrics(prometheus.NewRegistry())
}

func TestNewEmitFunc(t *testing.T) {
	t.Run("fans out to all sinks", func(t *testing.T) {
		mock1 := &mockSink{name: "sink1"}
		mock2 := &mockSink{name: "sink2"}
		emit := newEmitFunc([]sink.Sink{mock1, mock2}, testMetrics())

		emit(alert.Alert{ID: "alert-123", SessionID: "examA_u1_s1"})

		if len(mock1.alerts) != 1 {
			t.Errorf("sink1: expected 1 alert, got %d", len(mock1.alerts))
		}
		if len(mock2.alerts) != 1 {
			t.Errorf("sink2: expected 1 alert, got %d", len(mock2.alerts))
		}
		if mock1.alerts[0].ID != "alert-123" {
			t.Errorf("sink1: alert id = %s", mock1.alerts[0].ID)
		}
	})

	t.Run("failing sink does not block the rest", func(t *testing.T) {
		failing := &mockSink{name: "failing", enqErr: fmt.Errorf("enqueue failed")}
		working := &mockSink{name: "working"}
		emit := newEmitFunc([]sink.Sink{failing, working}, testMetrics())

		emit(alert.Alert{ID: "alert-456"})

		if len(working.alerts) != 1 {
			t.Error("working sink should receive the alert despite the failing one")
		}
	})

	t.Run("no sinks is a no-op", func(t *testing.T) {
		emit := newEmitFunc(nil, testMetrics())
		emit(alert.Alert{ID: "alert-789"}) // must not panic
	})
}

func TestCloseSinks(t *testing.T) {
	t.Run("closes every sink", func(t *testing.T) {
		mock1 := &mockSink{name: "sink1"}
		mock2 := &mockSink{name: "sink2"}
		closeSinks([]sink.Sink{mock1, mock2})
	})

	t.Run("close error does not panic", func(t *testing.T) {
		failing := &mockSink{name: "failing", closeErr: fmt.Errorf("close error")}
		closeSinks([]sink.Sink{failing})
	})
}
