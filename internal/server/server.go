// Package server exposes the dashboard over HTTP: a JSON API, detail table
// downloads and a minimal server-rendered page.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"html/template"
	"net"
	"net/http"
	"strconv"
	"time"

	"po-outstanding-dashboard/internal/dashboard"
	"po-outstanding-dashboard/internal/reconciler"
	"po-outstanding-dashboard/pkg/errors"
	"po-outstanding-dashboard/pkg/logger"

	"github.com/gorilla/mux"
)

// Config holds the HTTP server settings
type Config struct {
	Addr            string        `json:"addr"`
	CurrencyPrefix  string        `json:"currency_prefix"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// DefaultConfig returns the default server configuration
func DefaultConfig() *Config {
	return &Config{
		Addr:            ":8080",
		CurrencyPrefix:  dashboard.DefaultCurrencyPrefix,
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.ConfigurationError(errors.CodeMissingConfig, "server.addr", c.Addr, nil)
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server.addr", c.Addr, err)
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 || c.ShutdownTimeout < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "server.timeouts", c, nil).
			WithSuggestion("timeouts cannot be negative")
	}
	return nil
}

// Server serves dashboard snapshots from a cache
type Server struct {
	cache  *reconciler.Cache
	config *Config
	logger logger.Logger
	router *mux.Router
	page   *template.Template
}

// New creates a Server and registers its routes
func New(cache *reconciler.Cache, config *Config, log logger.Logger) (*Server, error) {
	if cache == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "cache", nil, nil)
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.GetGlobalLogger()
	}

	page, err := template.New("dashboard").Funcs(templateFuncs).Parse(pageTemplate)
	if err != nil {
		return nil, errors.InternalError(errors.CodeUnexpectedError, "page_template", err)
	}

	s := &Server{
		cache:  cache,
		config: config,
		logger: log.WithComponent("dashboard_server"),
		page:   page,
	}
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.logRequests)

	router.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	api.HandleFunc("/export.csv", s.handleExportCSV).Methods(http.MethodGet)
	api.HandleFunc("/export.xlsx", s.handleExportXLSX).Methods(http.MethodGet)

	return router
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled and then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return errors.NetworkError(errors.CodeListenFailed, s.config.Addr, err)
	}
	return s.Serve(ctx, listener)
}

// Serve accepts connections on listener until ctx is cancelled
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	httpServer := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(listener)
	}()

	s.logger.WithField("addr", listener.Addr().String()).Info("Dashboard server listening")

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return errors.NetworkError(errors.CodeListenFailed, listener.Addr().String(), err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down dashboard server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return errors.InternalError(errors.CodeUnexpectedError, "server_shutdown", err)
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		}).Debug("Request served")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// errorResponse is the JSON body of a failed request
type errorResponse struct {
	Error *errors.DashboardError `json:"error"`
}

// writeError maps err to a status code and a JSON body. Missing or
// unreadable sources are reported as 503 since the dashboard recovers once
// the files are in place.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	dashErr, ok := errors.AsDashboardError(err)
	if !ok {
		dashErr = errors.InternalError(errors.CodeUnexpectedError, "request", err)
	}

	status := http.StatusInternalServerError
	if dashErr.Category == errors.CategoryFile {
		status = http.StatusServiceUnavailable
	}

	s.logger.WithError(err).WithField("status", status).Error("Request failed")
	s.writeJSON(w, status, errorResponse{Error: dashErr})
}

// writeJSON encodes body before any header is sent, so an encoding failure
// still reaches the client as a 500.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")

		buf.Reset()
		status = http.StatusInternalServerError
		fallback := errorResponse{Error: errors.InternalError(errors.CodeUnexpectedError, "encode response", err)}
		if err := json.NewEncoder(&buf).Encode(fallback); err != nil {
			http.Error(w, http.StatusText(status), status)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.WithError(err).Warn("Response interrupted")
	}
}
