// Package swaption prices European and Bermudan swaptions on fitted
// short-rate trees.
package swaption

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/meenmo/molattice/calendar"
	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/termstructure"
	"github.com/meenmo/molattice/utils"
)

// ErrInvalidTerms is returned for malformed swap or exercise terms.
var ErrInvalidTerms = errors.New("invalid swaption terms")

// Position describes whether the underlying swap receives or pays the fixed leg.
type Position string

const (
	PositionReceive Position = "REC"
	PositionPay     Position = "PAY"
)

// sign is +1 when receiving fixed.
func (p Position) sign() float64 {
	if p == PositionPay {
		return -1
	}
	return 1
}

// SwapTerms is a fixed-vs-float swap on the lattice time axis. The floating
// leg is valued at par, so only the fixed leg is modelled explicitly.
//
// Period k accrues Accruals[k] from StartTime (k=0) or PaymentTimes[k-1] to
// PaymentTimes[k].
type SwapTerms struct {
	Notional     float64
	FixedRate    float64
	Position     Position
	StartTime    float64
	PaymentTimes []float64
	Accruals     []float64
}

// Validate checks the swap terms.
func (s SwapTerms) Validate() error {
	if !(s.Notional > 0) {
		return fmt.Errorf("notional %g: %w", s.Notional, ErrInvalidTerms)
	}
	if s.Position != PositionPay && s.Position != PositionReceive {
		return fmt.Errorf("position %q: %w", s.Position, ErrInvalidTerms)
	}
	if len(s.PaymentTimes) == 0 || len(s.PaymentTimes) != len(s.Accruals) {
		return fmt.Errorf("%d payment times vs %d accruals: %w", len(s.PaymentTimes), len(s.Accruals), ErrInvalidTerms)
	}
	if s.StartTime < 0 {
		return fmt.Errorf("start time %g: %w", s.StartTime, ErrInvalidTerms)
	}
	prev := s.StartTime
	for k, t := range s.PaymentTimes {
		if !(t > prev) {
			return fmt.Errorf("payment time %g after %g: %w", t, prev, ErrInvalidTerms)
		}
		if !(s.Accruals[k] > 0) {
			return fmt.Errorf("accrual %g of period %d: %w", s.Accruals[k], k, ErrInvalidTerms)
		}
		prev = t
	}
	return nil
}

// StartTimes returns the start time of every period.
func (s SwapTerms) StartTimes() []float64 {
	out := make([]float64, len(s.PaymentTimes))
	out[0] = s.StartTime
	copy(out[1:], s.PaymentTimes[:len(s.PaymentTimes)-1])
	return out
}

// Maturity returns the last payment time.
func (s SwapTerms) Maturity() float64 { return s.PaymentTimes[len(s.PaymentTimes)-1] }

// Coupon returns the fixed amount paid at PaymentTimes[k], principal excluded.
func (s SwapTerms) Coupon(k int) float64 {
	return s.Notional * s.FixedRate * s.Accruals[k]
}

// ForwardValue returns the value of the swap entered at period k's start,
// seen from time 0 on curve.
func (s SwapTerms) ForwardValue(curve termstructure.DiscountCurve, k int) float64 {
	bond := s.Notional * curve.Discount(s.Maturity())
	for i := k; i < len(s.PaymentTimes); i++ {
		bond += s.Coupon(i) * curve.Discount(s.PaymentTimes[i])
	}
	return s.Position.sign() * (bond - s.Notional*curve.Discount(s.StartTimes()[k]))
}

// ParRate returns the fixed rate setting ForwardValue to zero from period k.
func (s SwapTerms) ParRate(curve termstructure.DiscountCurve, k int) float64 {
	annuity := 0.0
	for i := k; i < len(s.PaymentTimes); i++ {
		annuity += s.Accruals[i] * curve.Discount(s.PaymentTimes[i])
	}
	return (curve.Discount(s.StartTimes()[k]) - curve.Discount(s.Maturity())) / annuity
}

// Schedule is a dated fixed-leg schedule.
//
// The swap starts SpotLag business days after Start on Calendar. Period ends
// are rolled every FrequencyMonths from that spot date for TenorMonths and
// adjusted by Roll. Times and accruals use DayCount from Reference.
type Schedule struct {
	Reference       time.Time
	Start           time.Time
	SpotLag         int
	TenorMonths     int
	FrequencyMonths int
	Calendar        calendar.CalendarID
	Roll            calendar.Convention
	DayCount        string
}

// Terms builds the swap terms of the schedule. Notional, rate and position
// are left for the caller.
func (sc Schedule) Terms() (SwapTerms, error) {
	if sc.FrequencyMonths <= 0 || sc.TenorMonths <= 0 || sc.TenorMonths%sc.FrequencyMonths != 0 {
		return SwapTerms{}, fmt.Errorf("Schedule.Terms: tenor %dM by %dM: %w", sc.TenorMonths, sc.FrequencyMonths, ErrInvalidTerms)
	}
	if sc.SpotLag < 0 {
		return SwapTerms{}, fmt.Errorf("Schedule.Terms: spot lag %d: %w", sc.SpotLag, ErrInvalidTerms)
	}
	if sc.Start.Before(sc.Reference) {
		return SwapTerms{}, fmt.Errorf("Schedule.Terms: start %s before reference %s: %w",
			sc.Start.Format("2006-01-02"), sc.Reference.Format("2006-01-02"), ErrInvalidTerms)
	}
	start := sc.Start
	if sc.SpotLag > 0 {
		start = calendar.AddBusinessDays(sc.Calendar, calendar.AdjustFollowing(sc.Calendar, start), sc.SpotLag)
	}
	adjStart := calendar.AdjustWith(sc.Calendar, sc.Roll, start)
	terms := SwapTerms{StartTime: utils.YearFraction(sc.Reference, adjStart, sc.DayCount)}
	prev := adjStart
	for m := sc.FrequencyMonths; m <= sc.TenorMonths; m += sc.FrequencyMonths {
		end := calendar.AdjustWith(sc.Calendar, sc.Roll, utils.AddMonth(start, m))
		terms.PaymentTimes = append(terms.PaymentTimes, utils.YearFraction(sc.Reference, end, sc.DayCount))
		terms.Accruals = append(terms.Accruals, utils.YearFraction(prev, end, sc.DayCount))
		prev = end
	}
	return terms, nil
}

// ScheduleFromDates builds swap terms starting on start with no spot lag,
// adjusted Modified Following on cal.
func ScheduleFromDates(ref, start time.Time, tenorMonths, freqMonths int, cal calendar.CalendarID, dayCount string) (SwapTerms, error) {
	return Schedule{
		Reference:       ref,
		Start:           start,
		TenorMonths:     tenorMonths,
		FrequencyMonths: freqMonths,
		Calendar:        cal,
		Roll:            calendar.ModifiedFollowing,
		DayCount:        dayCount,
	}.Terms()
}

// matchTimes returns the period index of every exercise time.
func (s SwapTerms) matchTimes(exercise []float64) ([]int, error) {
	tol := config.GetConfig().TimeTolerance
	starts := s.StartTimes()
	out := make([]int, 0, len(exercise))
	for _, t := range exercise {
		k := -1
		for i, st := range starts {
			if math.Abs(st-t) <= tol {
				k = i
				break
			}
		}
		if k < 0 {
			return nil, fmt.Errorf("exercise time %g is not a period start: %w", t, ErrInvalidTerms)
		}
		out = append(out, k)
	}
	return out, nil
}
