package main

import (
	"fmt"

	"github.com/meenmo/molattice/instruments/options"
	"github.com/meenmo/molattice/instruments/swaption"
	"github.com/meenmo/molattice/termstructure"
)

func main() {
	put := options.Vanilla{Type: options.Put, Strike: 100, Maturity: 1}
	market := options.Market{Spot: 100, Rate: 0.05, Dividend: 0, Vol: 0.20}

	european, _ := options.BlackScholes(put, market)
	tree := options.TreeEngine{Kind: options.CRR, Steps: 500}
	american, err := tree.American(put, market)
	if err != nil {
		fmt.Println("american:", err)
		return
	}
	shout, _ := tree.Shout(put, market)
	grid, _ := options.FDEngine{}.American(put, market)

	fmt.Printf("European put (BS):  %.4f\n", european)
	fmt.Printf("American put (CRR): %.4f\n", american)
	fmt.Printf("American put (FD):  %.4f\n", grid)
	fmt.Printf("Shout put (CRR):    %.4f\n", shout)

	curve, err := termstructure.NewFromZeroRates(map[string]float64{
		"1Y": 0.0280, "2Y": 0.0290, "5Y": 0.0310, "10Y": 0.0330,
	})
	if err != nil {
		fmt.Println("curve:", err)
		return
	}

	swap := swaption.SwapTerms{
		Notional:     10000000,
		Position:     swaption.PositionPay,
		StartTime:    1,
		PaymentTimes: []float64{2, 3, 4, 5, 6},
		Accruals:     []float64{1, 1, 1, 1, 1},
	}
	swap.FixedRate = swap.ParRate(curve, 0)
	bermudan := swaption.TreeSwaption{Swap: swap, ExerciseTimes: swap.StartTimes()}
	hw, err := bermudan.NewTree(curve, 0.03, 0.01, 200)
	if err != nil {
		fmt.Println("tree:", err)
		return
	}
	pv, err := bermudan.Price(hw)
	if err != nil {
		fmt.Println("swaption:", err)
		return
	}
	fmt.Printf("ATM 1x5 Bermudan payer (%.4f%%): %.2f\n", swap.FixedRate*100, pv)
}
