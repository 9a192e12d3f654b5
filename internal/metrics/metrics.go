package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Loop metrics
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kwatch_ticks_total",
			Help: "Total enforcement loop ticks",
		},
		[]string{"session"},
	)

	// Redeem metrics
	RedeemResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kwatch_redeem_results_total",
			Help: "Redeem code check outcomes",
		},
		[]string{"status"},
	)

	// Budget metrics
	TimeSpentSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kwatch_time_spent_seconds",
			Help: "Seconds of usage recorded today",
		},
	)

	ExtraTimeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "kwatch_extra_time_seconds",
			Help: "Seconds of extra time granted today",
		},
	)

	ShutdownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "kwatch_shutdowns_total",
			Help: "Shutdowns issued by reason",
		},
		[]string{"reason"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		TicksTotal,
		RedeemResultsTotal,
		TimeSpentSeconds,
		ExtraTimeSeconds,
		ShutdownsTotal,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server *http.Server
	logger zerolog.Logger
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
