// Package api exposes the management HTTP surface: ticker CRUD, sync and
// scan triggers, health and metrics.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"scannerpro/internal/metrics"
	"scannerpro/internal/model"
	"scannerpro/internal/store"
	"scannerpro/internal/syncer"
)

// TickerSyncer is the sync engine as the API consumes it.
type TickerSyncer interface {
	SyncTicker(ctx context.Context, t *model.Ticker) (int, error)
	SyncAll(ctx context.Context) []syncer.Result
}

// SignalEngine is the strategy engine as the API consumes it.
type SignalEngine interface {
	Signals(ctx context.Context, t *model.Ticker, strategy string) (*model.SignalRecord, error)
	ScanAll(ctx context.Context, strategy string) ([]*model.SignalRecord, error)
	Strategies() []string
}

// Server wires the HTTP routes to the engine components.
type Server struct {
	store    store.Store
	syncer   TickerSyncer
	engine   SignalEngine
	log      *zap.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
	router   *mux.Router
}

// NewServer creates the API server and registers all routes.
func NewServer(st store.Store, sy TickerSyncer, en SignalEngine, log *zap.Logger, m *metrics.Metrics) *Server {
	s := &Server{
		store:    st,
		syncer:   sy,
		engine:   en,
		log:      log,
		metrics:  m,
		validate: newValidator(),
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	// Mux middleware runs after route matching, so the handler sees the
	// request carrying the matched route context.
	s.router.Use(s.instrument)

	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/tickers", s.handleListTickers).Methods(http.MethodGet)
	api.HandleFunc("/tickers", s.handleCreateTicker).Methods(http.MethodPost)
	// /tickers/empty must be registered before the {id} route.
	api.HandleFunc("/tickers/empty", s.handleDeleteEmptyTickers).Methods(http.MethodDelete)
	api.HandleFunc("/tickers/{id:[0-9]+}", s.handleGetTicker).Methods(http.MethodGet)
	api.HandleFunc("/tickers/{id:[0-9]+}", s.handleDeleteTicker).Methods(http.MethodDelete)
	api.HandleFunc("/seed", s.handleSeedTickers).Methods(http.MethodPost)
	api.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc("/scan", s.handleScan).Methods(http.MethodGet)
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// statusRecorder captures the response status for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument records request counts and latencies labeled by the matched
// route template, so path parameters do not explode metric cardinality.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}
		next.ServeHTTP(rec, r)
		s.metrics.HTTPDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(started).Seconds())
		s.metrics.HTTPRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()
	})
}

// refreshGauges pushes current store counts to the gauge set. Failures are
// logged and ignored: gauge staleness must not fail the request.
func (s *Server) refreshGauges(ctx context.Context) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		s.log.Warn("refresh gauges", zap.Error(err))
		return
	}
	s.metrics.TotalTickers.Set(float64(st.TotalTickers))
	s.metrics.ActiveTickers.Set(float64(st.ActiveTickers))
	s.metrics.TotalPrices.Set(float64(st.TotalPrices))
}
