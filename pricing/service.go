package pricing

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meenmo/molattice/instruments/options"
	"github.com/meenmo/molattice/lattice"
)

// DefaultSwaptionSteps is used when a swaption request leaves Steps at zero.
const DefaultSwaptionSteps = 200

// Limits bounds the discretization a request may ask for. A binomial tree
// holds O(steps^2) nodes, so TreeSteps also bounds memory per valuation.
type Limits struct {
	TreeSteps int
	FDPoints  int
	FDSteps   int
}

// DefaultLimits are used unless WithLimits overrides them.
var DefaultLimits = Limits{TreeSteps: 2000, FDPoints: 10001, FDSteps: 20000}

func (l Limits) check(req Request) error {
	if req.Steps < 0 || req.Points < 0 {
		return fmt.Errorf("steps %d, points %d must be non-negative: %w", req.Steps, req.Points, ErrInvalidRequest)
	}
	steps, maxSteps := req.Steps, l.TreeSteps
	switch {
	case req.engine() == EngineFD:
		maxSteps = l.FDSteps
		if steps == 0 {
			steps = options.DefaultFDSteps
		}
		points := req.Points
		if points == 0 {
			points = options.DefaultFDPoints
		}
		if l.FDPoints > 0 && points > l.FDPoints {
			return fmt.Errorf("points %d above limit %d: %w", points, l.FDPoints, ErrInvalidRequest)
		}
	case steps == 0 && req.instrument() == InstrumentSwaption:
		steps = DefaultSwaptionSteps
	case steps == 0:
		steps = options.DefaultTreeSteps
	}
	if maxSteps > 0 && steps > maxSteps {
		return fmt.Errorf("steps %d above limit %d: %w", steps, maxSteps, ErrInvalidRequest)
	}
	return nil
}

// Observer receives valuation outcomes, typically a metrics collector.
type Observer interface {
	ObserveValuation(instrument, engine string, seconds float64, err error)
	ObserveBatch(size int)
}

type nopObserver struct{}

func (nopObserver) ObserveValuation(string, string, float64, error) {}
func (nopObserver) ObserveBatch(int)                                {}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithObserver sets the valuation observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.observer = o
		}
	}
}

// WithMaxParallel bounds the concurrent valuations of a batch.
func WithMaxParallel(n int) Option {
	return func(s *Service) { s.maxParallel = n }
}

// WithLimits replaces DefaultLimits. A zero field disables that bound.
func WithLimits(l Limits) Option {
	return func(s *Service) { s.limits = l }
}

// WithPrecision sets the number of decimal places reported in Result.NPV.
func WithPrecision(places int32) Option {
	return func(s *Service) { s.precision = places }
}

// Service prices requests. It is safe for concurrent use.
type Service struct {
	logger      zerolog.Logger
	observer    Observer
	maxParallel int
	precision   int32
	limits      Limits
}

// NewService returns a service with a disabled logger and no observer.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger:      zerolog.Nop(),
		observer:    nopObserver{},
		maxParallel: 8,
		precision:   6,
		limits:      DefaultLimits,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Price values one request.
func (s *Service) Price(ctx context.Context, req Request) (Result, error) {
	res := Result{ID: req.ID, Instrument: req.instrument(), Engine: req.engine()}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	start := time.Now()
	npv, err := s.value(req)
	if err == nil && (math.IsNaN(npv) || math.IsInf(npv, 0)) {
		err = fmt.Errorf("npv %g: %w", npv, lattice.ErrNumericalDomain)
	}
	elapsed := time.Since(start)
	s.observer.ObserveValuation(res.Instrument, res.Engine, elapsed.Seconds(), err)

	log := s.logger.With().
		Str("id", req.ID).
		Str("instrument", res.Instrument).
		Str("engine", res.Engine).
		Int("steps", req.Steps).
		Dur("elapsed", elapsed).
		Logger()
	if err != nil {
		log.Warn().Err(err).Msg("valuation failed")
		return res, err
	}
	log.Info().Float64("npv", npv).Msg("valuation")
	res.NPV = decimal.NewFromFloat(npv).Round(s.precision)
	return res, nil
}

// PriceBatch values reqs concurrently. Failures are reported per result and
// never abort the other valuations.
func (s *Service) PriceBatch(ctx context.Context, reqs []Request) BatchResult {
	out := BatchResult{BatchID: uuid.NewString(), Results: make([]Result, len(reqs))}
	s.observer.ObserveBatch(len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if s.maxParallel > 0 {
		g.SetLimit(s.maxParallel)
	}
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Price(gctx, req)
			if err != nil {
				res.Error = err.Error()
			}
			out.Results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	s.logger.Debug().
		Str("batch_id", out.BatchID).
		Int("size", len(reqs)).
		Msg("batch priced")
	return out
}

func (s *Service) value(req Request) (float64, error) {
	if err := s.limits.check(req); err != nil {
		return 0, err
	}
	switch req.instrument() {
	case InstrumentEuropean:
		return s.vanilla(req, options.European)
	case InstrumentAmerican:
		return s.vanilla(req, options.American)
	case InstrumentShout:
		return s.vanilla(req, options.Shout)
	case InstrumentSwaption:
		return s.swaption(req)
	}
	return 0, fmt.Errorf("instrument %q: %w", req.Instrument, ErrUnknownInstrument)
}

func (s *Service) vanilla(req Request, style options.Style) (float64, error) {
	v, m, err := req.vanilla()
	if err != nil {
		return 0, err
	}
	switch req.engine() {
	case EngineTree:
		engine := options.TreeEngine{
			Kind:    options.TreeKind(req.Tree),
			Steps:   req.Steps,
			Options: []lattice.Option{lattice.WithLogger(s.logger)},
		}
		return engine.Price(style, v, m)
	case EngineFD:
		return options.FDEngine{Points: req.Points, Steps: req.Steps}.Price(style, v, m)
	}
	return 0, fmt.Errorf("engine %q: %w", req.Engine, ErrUnknownInstrument)
}

func (s *Service) swaption(req Request) (float64, error) {
	if req.engine() != EngineTree {
		return 0, fmt.Errorf("swaption on engine %q: %w", req.Engine, ErrUnknownInstrument)
	}
	if req.Swaption == nil {
		return 0, fmt.Errorf("swaption terms are required: %w", ErrInvalidRequest)
	}
	sw, curve, err := req.Swaption.terms()
	if err != nil {
		return 0, err
	}
	steps := req.Steps
	if steps == 0 {
		steps = DefaultSwaptionSteps
	}
	tree, err := sw.NewTree(curve, req.Swaption.MeanReversion, req.Swaption.VolPct/100.0, steps,
		lattice.WithLogger(s.logger))
	if err != nil {
		return 0, err
	}
	return sw.Price(tree)
}
