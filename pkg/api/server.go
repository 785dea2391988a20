// Package api is the admin HTTP surface: order monitoring, manual lifecycle
// events, metrics and health.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/joripage/order-manager/pkg/logging"
	"github.com/joripage/order-manager/pkg/oms/lifecycle"
	"github.com/joripage/order-manager/pkg/oms/model"
	"github.com/joripage/order-manager/pkg/oms/registry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	defaultListLimit   = 100
	defaultRecentLimit = 50

	// sourceHeader marks responses served from outside the live registry.
	sourceHeader = "X-Order-Source"
)

type OrderService interface {
	Get(id string) (model.Order, bool)
	List(filter model.OrderFilter) iter.Seq[model.Order]
	ApplyEvent(ctx context.Context, ev model.Event) (model.Order, error)
}

type RecentEvents interface {
	Recent(n int) []*model.OrderEvent
}

// OrderHistory answers for orders the registry no longer holds.
type OrderHistory interface {
	LookupOrder(ctx context.Context, id string) (model.Order, bool, error)
	SearchOrders(ctx context.Context, filter model.OrderFilter) ([]model.Order, error)
}

type ArchiveReader interface {
	ReadDay(ctx context.Context, day time.Time) ([]model.Order, error)
}

type Option func(*Server)

// WithHistory serves evicted orders from the read model.
func WithHistory(h OrderHistory) Option {
	return func(s *Server) { s.history = h }
}

// WithArchive serves archived days from the archive files.
func WithArchive(a ArchiveReader) Option {
	return func(s *Server) { s.archive = a }
}

type Config struct {
	ListenAddr     string   `yaml:"listen_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Server handles the admin REST API
type Server struct {
	cfg    Config
	orders OrderService
	recent RecentEvents
	live   func() int64

	history OrderHistory
	archive ArchiveReader

	router *mux.Router
	logger *zap.Logger
}

// NewServer wires the routes. recent and live may be nil; gatherer serves
// /metrics.
func NewServer(cfg Config, orders OrderService, recent RecentEvents, live func() int64, gatherer prometheus.Gatherer, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:    cfg,
		orders: orders,
		recent: recent,
		live:   live,
		router: mux.NewRouter(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.setupRoutes(gatherer)
	return s
}

func (s *Server) setupRoutes(gatherer prometheus.Gatherer) {
	s.router.Use(s.requestID)

	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/events", s.handleApplyEvent).Methods("POST")

	// Journal
	api.HandleFunc("/events/recent", s.handleRecentEvents).Methods("GET")

	// Evicted orders
	api.HandleFunc("/archive/orders", s.handleSearchArchive).Methods("GET")
	api.HandleFunc("/archive/days/{day}", s.handleArchiveDay).Methods("GET")

	if gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	s.router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
}

// Handler is the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "X-Request-Id"},
	})
	return c.Handler(s.router)
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin api listening", zap.String("addr", s.cfg.ListenAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-Id")
		if reqID == "" {
			reqID = logging.NewRequestID()
		}
		w.Header().Set("X-Request-Id", reqID)
		next.ServeHTTP(w, r.WithContext(logging.WithRequestID(r.Context(), reqID)))
	})
}

func parseFilter(r *http.Request) (model.OrderFilter, *ErrorResponse) {
	q := r.URL.Query()
	filter := model.OrderFilter{
		Instrument: q.Get("instrument"),
		Limit:      defaultListLimit,
	}
	for _, st := range q["state"] {
		for _, part := range strings.Split(st, ",") {
			state := model.OrderState(strings.ToUpper(strings.TrimSpace(part)))
			if !state.IsValid() {
				return filter, &ErrorResponse{Error: "invalid state", Message: part}
			}
			filter.States = append(filter.States, state)
		}
	}
	if v := q.Get("needs_review"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, &ErrorResponse{Error: "invalid needs_review", Message: err.Error()}
		}
		filter.NeedsReview = &b
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, &ErrorResponse{Error: "invalid limit", Message: v}
		}
		filter.Limit = n
	}
	return filter, nil
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	filter, bad := parseFilter(r)
	if bad != nil {
		respondError(w, http.StatusBadRequest, bad.Error, bad.Message)
		return
	}

	orders := []model.Order{}
	for o := range s.orders.List(filter) {
		orders = append(orders, o)
	}
	respondJSON(w, orders)
}

// handleGetOrder falls back to the read model once the registry has evicted
// the order.
func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if order, ok := s.orders.Get(id); ok {
		respondJSON(w, order)
		return
	}
	if s.history == nil {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}

	order, ok, err := s.history.LookupOrder(r.Context(), id)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("history lookup failed",
			zap.String("order_id", id), zap.Error(err))
		respondError(w, http.StatusBadGateway, "history unavailable", err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "order not found", id)
		return
	}
	w.Header().Set(sourceHeader, "history")
	respondJSON(w, order)
}

func (s *Server) handleSearchArchive(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		respondError(w, http.StatusNotFound, "history disabled", "no read model configured")
		return
	}
	filter, bad := parseFilter(r)
	if bad != nil {
		respondError(w, http.StatusBadRequest, bad.Error, bad.Message)
		return
	}

	orders, err := s.history.SearchOrders(r.Context(), filter)
	if err != nil {
		respondError(w, http.StatusBadGateway, "history unavailable", err.Error())
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	respondJSON(w, orders)
}

func (s *Server) handleArchiveDay(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		respondError(w, http.StatusNotFound, "archive disabled", "no archive configured")
		return
	}
	raw := mux.Vars(r)["day"]
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid day", raw)
		return
	}

	orders, err := s.archive.ReadDay(r.Context(), day)
	if err != nil {
		logging.FromContext(r.Context(), s.logger).Error("archive read failed",
			zap.String("day", raw), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "archive read failed", err.Error())
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	respondJSON(w, orders)
}

func (s *Server) handleApplyEvent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req EventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid body", err.Error())
		return
	}

	ev := model.Event{
		OrderID:  id,
		Kind:     model.ParseEventKind(req.Kind),
		Quantity: req.Quantity,
		Reason:   req.Reason,
	}
	if req.Timestamp != nil {
		ev.Timestamp = *req.Timestamp
	}
	if ev.Reason == "" {
		ev.Reason = "manual"
	}

	order, err := s.orders.ApplyEvent(r.Context(), ev)
	if err != nil {
		respondError(w, statusFor(err), "event rejected", err.Error())
		return
	}
	logging.FromContext(r.Context(), s.logger).Info("manual event applied",
		zap.String("order_id", id), zap.String("event", string(ev.Kind)))
	respondJSON(w, order)
}

func (s *Server) handleRecentEvents(w http.ResponseWriter, r *http.Request) {
	if s.recent == nil {
		respondJSON(w, []*model.OrderEvent{})
		return
	}
	n := defaultRecentLimit
	if v := r.URL.Query().Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid n", v)
			return
		}
		n = parsed
	}
	events := s.recent.Recent(n)
	if events == nil {
		events = []*model.OrderEvent{}
	}
	respondJSON(w, events)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok"}
	if s.live != nil {
		resp.LiveOrders = s.live()
	}
	respondJSON(w, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrUnknownEvent):
		return http.StatusBadRequest
	case errors.Is(err, lifecycle.ErrIllegalTransition),
		errors.Is(err, lifecycle.ErrStaleEvent),
		errors.Is(err, lifecycle.ErrInvalidFill):
		return http.StatusConflict
	case errors.Is(err, registry.ErrLockTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   error,
		Message: message,
	})
}
