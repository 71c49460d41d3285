// Package pricing turns JSON valuation requests into lattice and finite
// difference valuations.
package pricing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/meenmo/molattice/calendar"
	"github.com/meenmo/molattice/instruments/options"
	"github.com/meenmo/molattice/instruments/swaption"
	"github.com/meenmo/molattice/termstructure"
	"github.com/meenmo/molattice/utils"
)

var (
	// ErrUnknownInstrument is returned for an instrument or engine the
	// service cannot price.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrInvalidRequest is returned for missing or malformed request fields.
	ErrInvalidRequest = errors.New("invalid request")
)

// Instrument names accepted in Request.Instrument.
const (
	InstrumentEuropean = "european"
	InstrumentAmerican = "american"
	InstrumentShout    = "shout"
	InstrumentSwaption = "swaption"
)

// Engine names accepted in Request.Engine.
const (
	EngineTree = "tree"
	EngineFD   = "fd"
)

// Request defines the JSON input schema of one valuation.
//
// Conventions:
// - rates, dividend yields and volatilities are in percent (e.g., 5.0 means 5%)
// - times are in years
type Request struct {
	ID         string `json:"id,omitempty"`
	Instrument string `json:"instrument"`       // european, american, shout, swaption
	Engine     string `json:"engine,omitempty"` // tree (default) or fd
	Steps      int    `json:"steps,omitempty"`  // time steps; engine default when 0
	Tree       string `json:"tree,omitempty"`   // CRR (default) or JR
	Points     int    `json:"points,omitempty"` // fd mesh size

	OptionType  string  `json:"option_type,omitempty"` // CALL or PUT
	Spot        float64 `json:"spot,omitempty"`
	Strike      float64 `json:"strike,omitempty"`
	Maturity    float64 `json:"maturity,omitempty"`
	RatePct     float64 `json:"rate,omitempty"`
	DividendPct float64 `json:"dividend,omitempty"`
	VolPct      float64 `json:"vol,omitempty"`

	Swaption *SwaptionRequest `json:"swaption,omitempty"`
}

// SwaptionRequest describes a swaption on a dated fixed-vs-float swap.
type SwaptionRequest struct {
	CurveDate       string `json:"curve_date"`              // "2025-12-15"
	StartDate       string `json:"start_date"`              // swap start before the spot lag
	SpotLagDays     int    `json:"spot_lag_days,omitempty"` // business days from start_date to the swap start
	TenorMonths     int    `json:"tenor_months"`
	FrequencyMonths int    `json:"frequency_months"`
	Calendar        string `json:"calendar,omitempty"`   // TARGET, USD, KRW, NONE
	Convention      string `json:"convention,omitempty"` // MF (default) or F
	DayCount        string `json:"day_count,omitempty"`  // defaults to ACT/365F

	Notional     float64 `json:"notional"`
	FixedRatePct float64 `json:"fixed_rate"`

	// Direction is from the holder's perspective once exercised:
	// - PAY (pay fixed, receive floating)
	// - REC (receive fixed, pay floating)
	Direction string `json:"direction"`

	// Bermudan allows exercise at every period start; otherwise only at
	// StartDate.
	Bermudan bool `json:"bermudan,omitempty"`

	MeanReversion float64 `json:"mean_reversion"`
	VolPct        float64 `json:"vol"` // Hull-White sigma in percent

	// ZeroRatesPct are continuously compounded zero rates keyed by tenor.
	ZeroRatesPct map[string]float64 `json:"zero_rates"`
}

// Result is the JSON output of one valuation.
type Result struct {
	ID         string          `json:"id,omitempty"`
	Instrument string          `json:"instrument"`
	Engine     string          `json:"engine"`
	NPV        decimal.Decimal `json:"npv"`
	Error      string          `json:"error,omitempty"`
}

// BatchResult is the JSON output of PriceBatch.
type BatchResult struct {
	BatchID string   `json:"batch_id"`
	Results []Result `json:"results"`
}

func (r Request) instrument() string { return strings.ToLower(strings.TrimSpace(r.Instrument)) }

func (r Request) engine() string {
	e := strings.ToLower(strings.TrimSpace(r.Engine))
	if e == "" {
		return EngineTree
	}
	return e
}

func (r Request) vanilla() (options.Vanilla, options.Market, error) {
	ty, err := options.ParseOptionType(r.OptionType)
	if err != nil {
		return options.Vanilla{}, options.Market{}, err
	}
	v := options.Vanilla{Type: ty, Strike: r.Strike, Maturity: r.Maturity}
	m := options.Market{
		Spot:     r.Spot,
		Rate:     r.RatePct / 100.0,
		Dividend: r.DividendPct / 100.0,
		Vol:      r.VolPct / 100.0,
	}
	if err := v.Validate(); err != nil {
		return v, m, err
	}
	return v, m, m.Validate()
}

func (r SwaptionRequest) terms() (swaption.TreeSwaption, termstructure.DiscountCurve, error) {
	ref, err := utils.ParseDate(r.CurveDate)
	if err != nil {
		return swaption.TreeSwaption{}, nil, fmt.Errorf("invalid curve_date: %w", err)
	}
	start, err := utils.ParseDate(r.StartDate)
	if err != nil {
		return swaption.TreeSwaption{}, nil, fmt.Errorf("invalid start_date: %w", err)
	}
	if len(r.ZeroRatesPct) == 0 {
		return swaption.TreeSwaption{}, nil, fmt.Errorf("zero_rates is required: %w", ErrInvalidRequest)
	}
	zeros := make(map[string]float64, len(r.ZeroRatesPct))
	for tenor, z := range r.ZeroRatesPct {
		zeros[tenor] = z / 100.0
	}
	curve, err := termstructure.NewFromZeroRates(zeros)
	if err != nil {
		return swaption.TreeSwaption{}, nil, err
	}

	cal := calendar.CalendarID(strings.ToUpper(strings.TrimSpace(r.Calendar)))
	if cal == "" {
		cal = calendar.NONE
	}
	dayCount := "ACT/365F"
	if strings.TrimSpace(r.DayCount) != "" {
		if dayCount, err = utils.ParseDayCount(r.DayCount); err != nil {
			return swaption.TreeSwaption{}, nil, err
		}
	}
	roll, err := calendar.ParseConvention(r.Convention)
	if err != nil {
		return swaption.TreeSwaption{}, nil, err
	}
	swap, err := swaption.Schedule{
		Reference:       ref,
		Start:           start,
		SpotLag:         r.SpotLagDays,
		TenorMonths:     r.TenorMonths,
		FrequencyMonths: r.FrequencyMonths,
		Calendar:        cal,
		Roll:            roll,
		DayCount:        dayCount,
	}.Terms()
	if err != nil {
		return swaption.TreeSwaption{}, nil, err
	}
	swap.Notional = r.Notional
	swap.FixedRate = r.FixedRatePct / 100.0

	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(r.Direction), "-", "_")) {
	case "PAY_FIXED", "PAY":
		swap.Position = swaption.PositionPay
	case "REC_FIXED", "REC":
		swap.Position = swaption.PositionReceive
	default:
		return swaption.TreeSwaption{}, nil, fmt.Errorf("invalid direction %q (use PAY or REC): %w", r.Direction, ErrInvalidRequest)
	}

	exercise := []float64{swap.StartTime}
	if r.Bermudan {
		exercise = swap.StartTimes()
	}
	return swaption.TreeSwaption{Swap: swap, ExerciseTimes: exercise}, curve, nil
}
