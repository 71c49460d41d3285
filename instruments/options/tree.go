package options

import (
	"fmt"
	"strings"

	"github.com/meenmo/molattice/lattice"
	"github.com/meenmo/molattice/stepcondition"
)

// TreeKind selects the binomial parametrisation.
type TreeKind string

const (
	CRR        TreeKind = "CRR"
	JarrowRudd TreeKind = "JR"
)

// DefaultTreeSteps is used when TreeEngine.Steps is zero.
const DefaultTreeSteps = 500

// TreeEngine prices vanillas by backward induction on a binomial tree.
type TreeEngine struct {
	Kind    TreeKind
	Steps   int
	Options []lattice.Option
}

// Price values v under m with the given exercise style.
func (e TreeEngine) Price(style Style, v Vanilla, m Market) (float64, error) {
	if err := validate(v, m); err != nil {
		return 0, fmt.Errorf("TreeEngine.Price: %w", err)
	}
	tree, err := e.tree(v, m)
	if err != nil {
		return 0, fmt.Errorf("TreeEngine.Price: %w", err)
	}

	grid := tree.Grid()
	inner := stepcondition.InnerValueFunc(func(k int, t float64) float64 {
		return v.Payoff(tree.Underlying(grid.ClosestIndex(t), k))
	})
	var conds []stepcondition.Standard
	switch style {
	case European:
	case American:
		conds = append(conds, stepcondition.NewAmerican(inner))
	case Shout:
		conds = append(conds, stepcondition.NewShout(inner, m.Rate, v.Maturity))
	default:
		return 0, fmt.Errorf("TreeEngine.Price: style %q: %w", style, ErrInvalidContract)
	}

	asset, err := lattice.PayoffAsset(tree.Tree, v.Maturity, v.Payoff, conds...)
	if err != nil {
		return 0, fmt.Errorf("TreeEngine.Price: %w", err)
	}
	if err := asset.Initialize(tree, v.Maturity); err != nil {
		return 0, fmt.Errorf("TreeEngine.Price: %w", err)
	}
	return asset.PresentValue()
}

// European values v with exercise at maturity only.
func (e TreeEngine) European(v Vanilla, m Market) (float64, error) { return e.Price(European, v, m) }

// American values v with exercise at every tree time.
func (e TreeEngine) American(v Vanilla, m Market) (float64, error) { return e.Price(American, v, m) }

// Shout values v with a single shout right at every tree time.
func (e TreeEngine) Shout(v Vanilla, m Market) (float64, error) { return e.Price(Shout, v, m) }

func (e TreeEngine) tree(v Vanilla, m Market) (*lattice.BinomialTree, error) {
	steps := e.Steps
	if steps == 0 {
		steps = DefaultTreeSteps
	}
	switch TreeKind(strings.ToUpper(string(e.Kind))) {
	case CRR, "":
		return lattice.NewCRRTree(m.Spot, m.Vol, m.Rate, m.Dividend, v.Maturity, steps, e.Options...)
	case JarrowRudd:
		return lattice.NewJarrowRuddTree(m.Spot, m.Vol, m.Rate, m.Dividend, v.Maturity, steps, e.Options...)
	}
	return nil, fmt.Errorf("tree kind %q: %w", e.Kind, ErrInvalidContract)
}
