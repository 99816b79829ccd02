// Package api serves predictions, director matching and the prediction log
// over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/boxoffice/internal/dataset"
	"github.com/sells-group/boxoffice/internal/metrics"
	"github.com/sells-group/boxoffice/internal/model"
	"github.com/sells-group/boxoffice/internal/pipeline"
	"github.com/sells-group/boxoffice/internal/resolve"
	"github.com/sells-group/boxoffice/internal/store"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultTop       = 5
	maxBodyBytes     = 1 << 16
)

// TableLoader loads a snapshot of both tables.
type TableLoader interface {
	LoadTables(ctx context.Context, directors, movies string) (*dataset.Tables, error)
}

// Options configures a Server.
type Options struct {
	Predictor pipeline.Predictor
	// Store is optional; without it predictions are not recorded and the
	// run endpoints answer 404.
	Store  store.Store
	Loader TableLoader
	// Directors and Movies are the locations reloaded by POST /v1/reload.
	Directors   string
	Movies      string
	CORSOrigins []string
	// Tables is the initial snapshot. It may be nil.
	Tables *dataset.Tables
	// Top is the default number of ranked matches.
	Top int
}

// Server is the HTTP API. Predictions read an immutable table snapshot that
// Reload swaps atomically.
type Server struct {
	opts   Options
	tables atomic.Pointer[dataset.Tables]
}

// NewServer creates a Server.
func NewServer(opts Options) *Server {
	if opts.Top <= 0 {
		opts.Top = defaultTop
	}
	s := &Server{opts: opts}
	if opts.Tables != nil {
		s.tables.Store(opts.Tables)
	}
	return s
}

// Tables returns the current snapshot, or nil before the first load.
func (s *Server) Tables() *dataset.Tables {
	return s.tables.Load()
}

// Reload loads both tables and swaps them in. The previous snapshot stays
// active when loading fails.
func (s *Server) Reload(ctx context.Context) (*dataset.Tables, error) {
	if s.opts.Loader == nil {
		return nil, eris.New("api: no table loader configured")
	}
	t, err := s.opts.Loader.LoadTables(ctx, s.opts.Directors, s.opts.Movies)
	if err != nil {
		return nil, eris.Wrap(err, "api: reload tables")
	}
	s.tables.Store(t)
	zap.L().Info("api: tables reloaded",
		zap.Int("directors", len(t.Registry.Directors)),
		zap.Int("movies", len(t.History.Movies)),
	)
	return t, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer)
	r.Use(requestID)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(metrics.Middleware())

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/predictions", s.handlePredict)
		r.Get("/predictions", s.handleListRuns)
		r.Get("/predictions/{id}", s.handleGetRun)
		r.Get("/directors/match", s.handleMatch)
		r.Post("/reload", s.handleReload)
	})
	return r
}

type healthResponse struct {
	Status    string     `json:"status"`
	Directors int        `json:"directors"`
	Movies    int        `json:"movies"`
	LoadedAt  *time.Time `json:"loaded_at,omitempty"`
	Store     string     `json:"store"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Store: "disabled"}
	if t := s.tables.Load(); t != nil {
		resp.Directors = len(t.Registry.Directors)
		resp.Movies = len(t.History.Movies)
		resp.LoadedAt = &t.LoadedAt
	}

	status := http.StatusOK
	if s.opts.Store != nil {
		resp.Store = "ok"
		if p, ok := s.opts.Store.(pinger); ok {
			if err := p.Ping(r.Context()); err != nil {
				zap.L().Warn("api: store ping failed", zap.Error(err))
				resp.Status = "degraded"
				resp.Store = "unreachable"
				status = http.StatusServiceUnavailable
			}
		}
	}
	writeJSON(w, status, resp)
}

type predictionResponse struct {
	model.PredictionResult
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	RunID   string `json:"run_id,omitempty"`
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req model.PredictionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be a JSON object with string fields director and budget")
		return
	}

	var reg *model.Registry
	var hist *model.History
	if t := s.tables.Load(); t != nil {
		reg, hist = t.Registry, t.History
	}

	res := s.opts.Predictor.Predict(reg, hist, req.DirectorQuery, req.BudgetText)
	metrics.ObservePrediction(res)

	resp := predictionResponse{PredictionResult: res, Message: pipeline.Message(res)}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}
	if s.opts.Store != nil {
		run, err := s.opts.Store.RecordPrediction(r.Context(), req, res)
		if err != nil {
			zap.L().Error("api: record prediction", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, "store_disabled", "prediction log is not enabled")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{Director: q.Get("director")}

	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 500")
		return
	}
	filter.Limit = limit

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "offset must be >= 0")
		return
	}
	filter.Offset = offset

	if o := q.Get("outcome"); o != "" {
		filter.Outcome = model.Outcome(o)
		if !filter.Outcome.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_request", "unknown outcome "+strconv.Quote(o))
			return
		}
	}

	runs, err := s.opts.Store.ListPredictions(r.Context(), filter)
	if err != nil {
		zap.L().Error("api: list predictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not list predictions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, http.StatusNotFound, "store_disabled", "prediction log is not enabled")
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.opts.Store.GetPrediction(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "prediction run "+id+" not found")
	case err != nil:
		zap.L().Error("api: get prediction", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", "could not load prediction run")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}

type matchResponse struct {
	Query   string          `json:"query"`
	Matches []resolve.Match `json:"matches"`
}

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "q is required")
		return
	}
	top, err := intParam(r.URL.Query().Get("top"), s.opts.Top)
	if err != nil || top < 1 {
		writeError(w, http.StatusBadRequest, "invalid_request", "top must be a positive integer")
		return
	}

	t := s.tables.Load()
	if t == nil {
		writeError(w, http.StatusServiceUnavailable, string(model.OutcomeDataNotLoaded), "tables are not loaded")
		return
	}

	matches := resolve.Rank(query, resolve.Candidates(t.Registry), top)
	writeJSON(w, http.StatusOK, matchResponse{Query: query, Matches: matches})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	t, err := s.Reload(r.Context())
	if err != nil {
		zap.L().Error("api: reload failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "reload_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:    "reloaded",
		Directors: len(t.Registry.Directors),
		Movies:    len(t.History.Movies),
		LoadedAt:  &t.LoadedAt,
		Store:     storeState(s.opts.Store),
	})
}

func storeState(st store.Store) string {
	if st == nil {
		return "disabled"
	}
	return "ok"
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// requestID stores a request ID in the context, keeping a caller-supplied
// X-Request-ID and otherwise minting a UUID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requestLogger emits one log line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("http_request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.Int("response_bytes", ww.BytesWritten()),
		)
	})
}

// jsonRecoverer turns a handler panic into a JSON 500.
func jsonRecoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				zap.L().Error("api: panic recovered",
					zap.Any("panic", rvr),
					zap.Stack("stacktrace"),
				)
				writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}
