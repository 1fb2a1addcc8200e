// Package server exposes the scoring pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cast"
	"golang.org/x/sync/singleflight"

	"github.com/samyak-umathe/L-THackthon/pkg/cache"
	"github.com/samyak-umathe/L-THackthon/pkg/config"
	"github.com/samyak-umathe/L-THackthon/pkg/grid"
	gsio "github.com/samyak-umathe/L-THackthon/pkg/io"
	"github.com/samyak-umathe/L-THackthon/pkg/io/csv"
	"github.com/samyak-umathe/L-THackthon/pkg/metrics"
	"github.com/samyak-umathe/L-THackthon/pkg/pipeline"
	"github.com/samyak-umathe/L-THackthon/pkg/summary"
)

// Routes.
const (
	RouteScore   = "/v1/score"
	RouteSummary = "/v1/summary"
	RouteHealth  = "/health"
	RouteMetrics = "/metrics"
)

// CacheHeader reports whether a response was served from the result cache.
const CacheHeader = "X-Cache"

// ScoreResponse is the body of a successful score request.
type ScoreResponse struct {
	Report pipeline.Report  `json:"report"`
	Rows   []map[string]any `json:"rows"`
}

// SummaryResponse is the body of a successful summary request.
type SummaryResponse struct {
	Report  pipeline.Report  `json:"report"`
	Summary *summary.Summary `json:"summary"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server handles scoring requests.
type Server struct {
	pipeline *pipeline.Pipeline
	store    cache.Store
	flight   singleflight.Group
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
	sink     gsio.Sink
	logger   *slog.Logger
	maxBody  int64
	tariff   float64
	router   *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithCache serves repeated batches from store.
func WithCache(store cache.Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

// WithMetrics records request and pipeline metrics into m and serves g on
// /metrics.
func WithMetrics(m *metrics.Metrics, g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = g
	}
}

// WithSink delivers every freshly scored batch to sink.
func WithSink(sink gsio.Sink) Option {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMaxBodyBytes limits request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		s.maxBody = n
	}
}

// WithTariff sets the revenue tariff used by the summary route.
func WithTariff(rupees float64) Option {
	return func(s *Server) {
		s.tariff = rupees
	}
}

// New creates a Server around p.
func New(p *pipeline.Pipeline, opts ...Option) *Server {
	s := &Server{
		pipeline: p,
		store:    cache.Nop{},
		logger:   slog.Default(),
		maxBody:  32 << 20,
		tariff:   summary.DefaultTariff,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		reg := prometheus.NewRegistry()
		s.metrics = metrics.New(reg)
		s.gatherer = reg
	}

	r := mux.NewRouter()
	r.HandleFunc(RouteScore, s.handleScore).Methods(http.MethodPost)
	r.HandleFunc(RouteSummary, s.handleSummary).Methods(http.MethodPost)
	r.HandleFunc(RouteHealth, s.handleHealth).Methods(http.MethodGet)
	r.Handle(RouteMetrics, promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Use(s.observe)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", cfg.Addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	t, err := s.readBatch(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.serveCached(w, r, "score", []any{t, s.pipeline.Config()}, func(ctx context.Context) ([]byte, error) {
		out, rep, err := s.run(ctx, t)
		if err != nil {
			return nil, err
		}
		return json.Marshal(ScoreResponse{Report: rep, Rows: out.Records()})
	})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := cast.ToIntE(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	t, err := s.readBatch(w, r)
	if err != nil {
		s.fail(w, err)
		return
	}

	s.serveCached(w, r, "summary", []any{t, s.pipeline.Config(), s.tariff, limit}, func(ctx context.Context) ([]byte, error) {
		out, rep, err := s.run(ctx, t)
		if err != nil {
			return nil, err
		}
		sum, err := summary.Compute(out, summary.WithTariff(s.tariff), summary.WithLimit(limit))
		if err != nil {
			return nil, err
		}
		return json.Marshal(SummaryResponse{Report: rep, Summary: sum})
	})
}

func (s *Server) readBatch(w http.ResponseWriter, r *http.Request) (*grid.Table, error) {
	body := http.MaxBytesReader(w, r.Body, s.maxBody)
	t, err := csv.NewReader(body).Read()
	if err != nil {
		return nil, &badRequest{err: err}
	}
	return t, nil
}

// badRequest marks a body that could not be decoded.
type badRequest struct {
	err error
}

func (e *badRequest) Error() string { return e.err.Error() }
func (e *badRequest) Unwrap() error { return e.err }

// serveCached answers from the store when possible. Concurrent requests for
// the same key share one computation, which runs detached from the
// cancellation of whichever request started it.
func (s *Server) serveCached(w http.ResponseWriter, r *http.Request, kind string, parts []any, compute func(context.Context) ([]byte, error)) {
	ctx := r.Context()
	key, err := cache.Key(kind, parts...)
	if err != nil {
		// non-finite cells cannot be encoded; the pipeline rejects them
		body, err := compute(ctx)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeRaw(w, http.StatusOK, body)
		return
	}

	if body, ok, err := s.store.Get(ctx, key); err != nil {
		s.logger.Warn("cache get failed", "err", err)
	} else if ok {
		s.metrics.ObserveCache(true)
		w.Header().Set(CacheHeader, "hit")
		writeRaw(w, http.StatusOK, body)
		return
	}
	s.metrics.ObserveCache(false)

	v, err, _ := s.flight.Do(key, func() (any, error) {
		shared := context.WithoutCancel(ctx)
		body, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if err := s.store.Set(shared, key, body); err != nil {
			s.logger.Warn("cache set failed", "err", err)
		}
		return body, nil
	})
	if err != nil {
		s.fail(w, err)
		return
	}

	w.Header().Set(CacheHeader, "miss")
	writeRaw(w, http.StatusOK, v.([]byte))
}

func (s *Server) run(ctx context.Context, t *grid.Table) (*grid.Table, pipeline.Report, error) {
	out, rep, err := s.pipeline.Run(t)
	s.metrics.ObserveRun(rep, err)
	if err != nil {
		return nil, rep, err
	}
	if rep.Degraded() {
		s.logger.Warn("degraded run", "run_id", rep.RunID,
			"anomaly", rep.Anomaly.Reason, "risk", rep.Risk.Reason)
	}

	if s.sink != nil {
		if err := s.sink.Write(ctx, out); err != nil {
			s.logger.Error("sink write failed", "run_id", rep.RunID, "sink", s.sink.Name(), "err", err)
		}
	}
	return out, rep, nil
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, grid.ErrSchema), errors.Is(err, grid.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.As(err, new(*badRequest)):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeRaw(w, status, body)
}

func writeRaw(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
