package admin

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"streamteam-launcher/internal/event"
	"streamteam-launcher/internal/launch"
	"streamteam-launcher/internal/logging"
)

// Server exposes the run and the process table of one launcher over HTTP.
type Server struct {
	Table *launch.ProcessTable

	mu  sync.RWMutex
	run event.RunRow
}

func NewServer(table *launch.ProcessTable) *Server {
	return &Server{Table: table}
}

// SetRun records the run row served at /run.
func (s *Server) SetRun(row event.RunRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.run = row
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/run", s.handleRun)
	mux.HandleFunc("/processes", s.handleProcesses)
	return mux
}

// Start serves until ctx is done, then shuts the listener down.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.routes(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logging.FromContext(ctx).Info("status server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "running": s.Table.Running()})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	run := s.run
	s.mu.RUnlock()
	if run.Phase == "" {
		http.Error(w, "no run yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(run)
}

func (s *Server) handleProcesses(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.Table.Sample())
}
