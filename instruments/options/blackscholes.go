package options

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// BlackScholes returns the closed-form price of a European vanilla.
func BlackScholes(v Vanilla, m Market) (float64, error) {
	if err := validate(v, m); err != nil {
		return 0, fmt.Errorf("BlackScholes: %w", err)
	}
	n := distuv.UnitNormal
	sd := m.Vol * math.Sqrt(v.Maturity)
	fwd := m.Spot * math.Exp((m.Rate-m.Dividend)*v.Maturity)
	df := math.Exp(-m.Rate * v.Maturity)
	d1 := (math.Log(fwd/v.Strike) + 0.5*sd*sd) / sd
	d2 := d1 - sd
	if v.Type == Call {
		return df * (fwd*n.CDF(d1) - v.Strike*n.CDF(d2)), nil
	}
	return df * (v.Strike*n.CDF(-d2) - fwd*n.CDF(-d1)), nil
}
