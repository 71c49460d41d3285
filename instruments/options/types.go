// Package options prices vanilla equity options with European, American and
// shout exercise on binomial trees and finite difference grids.
package options

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrInvalidContract is returned for malformed contract or market inputs.
var ErrInvalidContract = errors.New("invalid option contract")

// OptionType is CALL or PUT.
type OptionType string

const (
	Call OptionType = "CALL"
	Put  OptionType = "PUT"
)

// Style is the exercise right of the holder.
type Style string

const (
	European Style = "EUROPEAN"
	American Style = "AMERICAN"
	// Shout lets the holder lock in the intrinsic value once before
	// maturity and keep the upside.
	Shout Style = "SHOUT"
)

// ParseOptionType accepts CALL/PUT in any case.
func ParseOptionType(s string) (OptionType, error) {
	switch OptionType(strings.ToUpper(strings.TrimSpace(s))) {
	case Call:
		return Call, nil
	case Put:
		return Put, nil
	}
	return "", fmt.Errorf("ParseOptionType: %q: %w", s, ErrInvalidContract)
}

// ParseStyle accepts EUROPEAN/AMERICAN/SHOUT in any case.
func ParseStyle(s string) (Style, error) {
	switch st := Style(strings.ToUpper(strings.TrimSpace(s))); st {
	case European, American, Shout:
		return st, nil
	}
	return "", fmt.Errorf("ParseStyle: %q: %w", s, ErrInvalidContract)
}

// Vanilla is a plain call or put expiring at Maturity years.
type Vanilla struct {
	Type     OptionType
	Strike   float64
	Maturity float64
}

// Payoff returns the exercise value at underlying level s.
func (v Vanilla) Payoff(s float64) float64 {
	if v.Type == Call {
		return math.Max(s-v.Strike, 0)
	}
	return math.Max(v.Strike-s, 0)
}

// Validate checks the contract terms.
func (v Vanilla) Validate() error {
	if v.Type != Call && v.Type != Put {
		return fmt.Errorf("option type %q: %w", v.Type, ErrInvalidContract)
	}
	if !(v.Strike > 0) {
		return fmt.Errorf("strike %g: %w", v.Strike, ErrInvalidContract)
	}
	if !(v.Maturity > 0) {
		return fmt.Errorf("maturity %g: %w", v.Maturity, ErrInvalidContract)
	}
	return nil
}

// Market holds the Black-Scholes inputs of the underlying. Rate and Dividend
// are continuously compounded.
type Market struct {
	Spot     float64
	Rate     float64
	Dividend float64
	Vol      float64
}

// Validate checks the market inputs.
func (m Market) Validate() error {
	if !(m.Spot > 0) {
		return fmt.Errorf("spot %g: %w", m.Spot, ErrInvalidContract)
	}
	if !(m.Vol > 0) {
		return fmt.Errorf("vol %g: %w", m.Vol, ErrInvalidContract)
	}
	return nil
}

func validate(v Vanilla, m Market) error {
	if err := v.Validate(); err != nil {
		return err
	}
	return m.Validate()
}
