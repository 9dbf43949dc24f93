package main

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreamware/lotto/internal/metrics"
)

// statusSource is the part of the lottery server the ops endpoints read.
type statusSource interface {
	FinishedAgencies() []int
	Released() bool
	ActiveConnections() int
}

// statusResponse is the body of GET /status.
type statusResponse struct {
	FinishedAgencies  []int `json:"finished_agencies"`
	ActiveConnections int   `json:"active_connections"`
	Released          bool  `json:"released"`
}

// newOpsHandler routes the operational HTTP endpoints.
//
// Endpoints:
//   - GET /health: 200 while the process is up
//   - GET /status: barrier progress and open connections as JSON
//   - GET /metrics: Prometheus metrics gathered from g
func newOpsHandler(src statusSource, g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		finished := src.FinishedAgencies()
		if finished == nil {
			finished = []int{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(statusResponse{
			FinishedAgencies:  finished,
			ActiveConnections: src.ActiveConnections(),
			Released:          src.Released(),
		})
	})

	mux.Handle("/metrics", metrics.Handler(g))

	return mux
}
