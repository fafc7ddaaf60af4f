// Package admin serves fleet status, metrics and a live event stream over HTTP.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"geostream-sim/internal/logging"
	"geostream-sim/internal/sim"
)

const shutdownTimeout = 5 * time.Second

//go:embed templates/index.html
var content embed.FS

type Server struct {
	Board    *sim.StatusBoard
	Hub      *Hub
	Gatherer prometheus.Gatherer
	tpl      *template.Template
}

// NewServer creates the admin server. A nil hub disables /ws and a nil
// gatherer falls back to the default registry.
func NewServer(board *sim.StatusBoard, hub *Hub, gatherer prometheus.Gatherer) *Server {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	return &Server{Board: board, Hub: hub, Gatherer: gatherer, tpl: tpl}
}

// Handler returns the admin routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /fleet-health", s.handleHealth)
	mux.HandleFunc("GET /vehicles", s.handleVehicles)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.Gatherer, promhttp.HandlerOpts{}))
	if s.Hub != nil {
		mux.Handle("GET /ws", s.Hub)
	}
	return mux
}

// Start serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	log := logging.FromContext(ctx)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		if s.Hub != nil {
			s.Hub.Close()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("admin server shutdown")
		}
	}()
	log.Info().Str("addr", addr).Msg("admin server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	data := struct {
		Health   sim.FleetHealth
		Vehicles []sim.VehicleStatus
		Live     bool
	}{
		Health:   s.Board.Health(),
		Vehicles: s.Board.Snapshot(),
		Live:     s.Hub != nil,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.tpl.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Board.Health())
}

func (s *Server) handleVehicles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.Board.Snapshot())
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
