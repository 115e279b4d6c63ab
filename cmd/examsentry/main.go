package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/examsentry/examsentry/internal/alert"
	"github.com/examsentry/examsentry/internal/engine"
	httpx "github.com/examsentry/examsentry/internal/http"
	"github.com/examsentry/examsentry/internal/metrics"
	"github.com/examsentry/examsentry/internal/sink"
	"github.com/examsentry/examsentry/pkg/config"
)

func main() {
	testMode := flag.Bool("test-mode", false, "run synthetic exam sessions through the pipeline and exit")
	flag.Parse()

	cfg := config.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := engine.NewSessionStore()
	eng := engine.NewEngine(store)
	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	sinks, err := sink.ForOutputs(cfg.Outputs)
	if err != nil {
		log.Fatalf("invalid OUTPUTS: %v", err)
	}
	for _, s := range sinks {
		if err := s.Start(ctx); err != nil {
			log.Fatalf("failed to start %s sink: %v", s.Name(), err)
		}
		log.Printf("sink %s started", s.Name())
	}

	emit := newEmitFunc(sinks, m)

	if *testMode {
		runTestMode(store, eng, emit)
		closeSinks(sinks)
		return
	}

	metricsSrv := metrics.NewServer(metrics.LoadConfig())
	_ = metricsSrv.Start(ctx)

	env := httpx.Env{
		Cfg:     cfg,
		Store:   store,
		Engine:  eng,
		Metrics: m,
		Emit:    emit,
	}

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: httpx.NewMux(env),
	}

	go func() {
		log.Printf("examsentry listening on %s", cfg.ServerAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(shutdownCtx)
	_ = metricsSrv.Shutdown(shutdownCtx)
	closeSinks(sinks)
}

// newEmitFunc fans one alert out to every sink. A failing sink is counted
// and skipped; the rest still receive the alert.
func newEmitFunc(sinks []sink.Sink, m *metrics.Metrics) func(alert.Alert) {
	return func(a alert.Alert) {
		for _, s := range sinks {
			if err := s.Enqueue(a); err != nil {
				m.IncrementSinkErrors(s.Name(), "enqueue")
				log.Printf("sink %s: failed to enqueue alert %s: %v", s.Name(), a.ID, err)
				continue
			}
			m.IncrementAlertsEmitted(s.Name())
		}
	}
}

func closeSinks(sinks []sink.Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			log.Printf("sink %s: close: %v", s.Name(), err)
		}
	}
}
