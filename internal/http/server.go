package httpx

import (
	"net/http"
)

// NewMux wires the facade's routes with logging, metrics and CORS.
func NewMux(e Env) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", e.Healthz)
	mux.HandleFunc("GET /readyz", e.Readyz)
	mux.HandleFunc("POST /session/init", e.InitSession)
	mux.HandleFunc("POST /session/cleanup", e.CleanupSession)
	mux.HandleFunc("POST /telemetry", e.Telemetry)
	mux.HandleFunc("GET /analyze", e.Analyze)
	mux.HandleFunc("GET /stats", e.Stats)

	return RequestLogger(MetricsMiddleware(e.Metrics)(cors(mux)))
}
