// Package server exposes the pricing service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/meenmo/molattice/pricing"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 4 << 20

// Pricer is the subset of pricing.Service used by the handlers.
type Pricer interface {
	Price(ctx context.Context, req pricing.Request) (pricing.Result, error)
	PriceBatch(ctx context.Context, reqs []pricing.Request) pricing.BatchResult
}

// Server holds the handler dependencies.
type Server struct {
	Pricer  Pricer
	Metrics http.Handler
	Logger  zerolog.Logger
	limiter *rate.Limiter
}

// Option configures the handler.
type Option func(*Server)

// WithRateLimit admits at most perSecond valuation requests per second with
// the given burst. perSecond <= 0 disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Server) {
		if perSecond <= 0 {
			s.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// NewHandler builds the router:
//
//	POST /v1/price        one Request  -> Result
//	POST /v1/price/batch  []Request    -> BatchResult
//	GET  /healthz
//	GET  /metrics         when metrics is non-nil
func NewHandler(pricer Pricer, metrics http.Handler, logger zerolog.Logger, opts ...Option) http.Handler {
	s := &Server{Pricer: pricer, Metrics: metrics, Logger: logger}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(s.throttle)
		r.Post("/price", s.Price)
		r.Post("/price/batch", s.PriceBatch)
	})
	return r
}

// Price handles POST /v1/price.
func (s *Server) Price(w http.ResponseWriter, r *http.Request) {
	var req pricing.Request
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.Pricer.Price(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PriceBatch handles POST /v1/price/batch. Item failures are reported inside
// the batch and do not change the status code.
func (s *Server) PriceBatch(w http.ResponseWriter, r *http.Request) {
	var reqs []pricing.Request
	if err := decode(w, r, &reqs); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(reqs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("empty batch"))
		return
	}
	writeJSON(w, http.StatusOK, s.Pricer.PriceBatch(r.Context(), reqs))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Logger.Debug().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

func (s *Server) throttle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON input: %w", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("invalid JSON input: trailing data")
	}
	return nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, pricing.ErrUnknownInstrument):
		return http.StatusNotFound
	default:
		return http.StatusUnprocessableEntity
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
