// Package debugsrv serves a scheduler's occupancy snapshot and Prometheus
// metrics over HTTP. It is entirely optional scaffolding: Run never starts
// one on its own, and nothing in sched depends on it.
package debugsrv

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/janneremes/fibersched/sched"
)

// Server exposes GET /debug/scheduler (a JSON Stats snapshot) and
// GET /metrics (the Prometheus exposition format) for one Scheduler.
type Server struct {
	httpServer *http.Server
	router     *mux.Router
	scheduler  *sched.Scheduler

	mu      sync.Mutex
	running bool
}

// New builds a Server bound to addr, routing against s. Call Start to
// begin listening.
func New(addr string, s *sched.Scheduler) *Server {
	r := mux.NewRouter()
	srv := &Server{
		httpServer: &http.Server{Addr: addr, Handler: r},
		router:     r,
		scheduler:  s,
	}
	r.HandleFunc("/debug/scheduler", srv.handleStats).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return srv
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := s.scheduler.Stats()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Start begins serving in the background and returns once the listener is
// up or startup fails. Calling Start twice returns an error.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("debugsrv: already running")
	}
	s.running = true

	errc := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		s.running = false
		return err
	case <-time.After(50 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts the server down, waiting up to 5 seconds for
// in-flight requests to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}
	s.running = false

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
