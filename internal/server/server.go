package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"vacancy-vault/internal/config"
	"vacancy-vault/internal/detection"
	"vacancy-vault/internal/logging"
	"vacancy-vault/internal/parking"
)

type Server struct {
	httpServer *http.Server
	handler    *Handler
	log        zerolog.Logger
}

// NewServer wires the HTTP API. A nil gatherer serves the default
// Prometheus registry on /metrics.
func NewServer(cfg config.ServerConfig, serviceName string, lot *parking.Service, oracle *detection.Client, gatherer prometheus.Gatherer) *Server {
	handler := NewHandler(lot, oracle, serviceName)

	metrics := promhttp.Handler()
	if gatherer != nil {
		metrics = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(TracingMiddleware(serviceName))
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)

	r.Get("/health", handler.HealthCheck)
	r.Get("/metrics", metrics.ServeHTTP)

	r.Route("/api/parking-lot", func(r chi.Router) {
		r.Get("/slots", handler.GetSlots)
		r.Get("/stats", handler.GetStats)
		r.Post("/park", handler.ParkVehicle)
		r.Post("/leave", handler.LeaveSlot)
		r.Post("/reserve", handler.ReserveSlot)
		r.Delete("/reservations/{slot}", handler.CancelReservation)
		r.Get("/quote", handler.Quote)
		r.Get("/find/{number}", handler.FindVehicle)
		r.Get("/bills", handler.GetBills)
		r.Get("/holidays", handler.GetHolidays)
	})

	r.Route("/api/detection", func(r chi.Router) {
		r.Post("/start", handler.StartDetection)
		r.Get("/results", handler.DetectionResults)
		r.Post("/reset", handler.ResetDetection)
		r.Get("/health", handler.DetectionHealth)
		r.Post("/park", handler.ParkDetected)
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		handler:    handler,
		log:        logging.Component("http"),
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("starting HTTP server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return fmt.Sprintf("http://localhost%s", s.httpServer.Addr)
}
