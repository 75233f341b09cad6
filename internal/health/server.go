// Package health serves liveness, readiness and Prometheus endpoints for the
// long-running scheduler process.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racing-form/internal/metrics"
)

const (
	statusOK       = "ok"
	statusNotReady = "not_ready"
)

// HealthChecker checks the settlement store is reachable
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// JobRunner reports on the scheduled jobs
type JobRunner interface {
	IsRunning() bool
	JobCount() int
}

// StatusResponse is the body of /health and /ready
type StatusResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Version   string            `json:"version,omitempty"`
	Jobs      int               `json:"jobs"`
	Checks    map[string]string `json:"checks,omitempty"`
	CheckedAt time.Time         `json:"checked_at"`
}

// Config holds the configuration for the health server.
type Config struct {
	ServiceName string
	Version     string
	Addr        string
	MetricsPath string
	Logger      *logrus.Logger
	DB          HealthChecker
	Jobs        JobRunner
}

// Server exposes process status next to the metrics registry
type Server struct {
	cfg    Config
	server *http.Server
	log    *logrus.Entry
}

// NewServer creates a new health server
func NewServer(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = ":9090"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	return &Server{
		cfg: cfg,
		log: cfg.Logger.WithField("component", "health"),
	}
}

// Handler returns the endpoint mux
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)
	mux.Handle(s.cfg.MetricsPath, metrics.Handler())
	return mux
}

// Start serves in the background and shuts down once ctx is cancelled
func (s *Server) Start(ctx context.Context) {
	s.server = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}

	go func() {
		s.log.WithField("addr", s.cfg.Addr).Info("Health server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("Health server stopped")
		}
	}()

	go func() {
		<-ctx.Done()
		if err := s.Shutdown(); err != nil {
			s.log.WithError(err).Warn("Health server shutdown failed")
		}
	}()
}

// Shutdown stops the listener, waiting up to five seconds for open requests
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) status() StatusResponse {
	resp := StatusResponse{
		Status:    statusOK,
		Service:   s.cfg.ServiceName,
		Version:   s.cfg.Version,
		CheckedAt: time.Now().UTC(),
	}
	if s.cfg.Jobs != nil {
		resp.Jobs = s.cfg.Jobs.JobCount()
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status())
}

// handleReady needs a running scheduler and a reachable database
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	resp := s.status()
	resp.Checks = make(map[string]string)

	if s.cfg.Jobs == nil || !s.cfg.Jobs.IsRunning() {
		resp.Checks["scheduler"] = "stopped"
		resp.Status = statusNotReady
	} else {
		resp.Checks["scheduler"] = statusOK
	}

	if s.cfg.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.cfg.DB.HealthCheck(ctx); err != nil {
			resp.Checks["database"] = "error: " + err.Error()
			resp.Status = statusNotReady
		} else {
			resp.Checks["database"] = statusOK
		}
	}

	code := http.StatusOK
	if resp.Status != statusOK {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
