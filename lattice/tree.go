// Package lattice implements recombining trees over a time grid and the
// backward induction used to value discretized assets on them.
//
// A Tree owns the node topology (descendants and branching probabilities per
// column) while a Scheme supplies what varies between tree families: the
// one-step discount factor of a node and the mapping from a node's branching
// index j to its position in the column.
package lattice

import (
	"fmt"
	"math"
	"sync"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"

	"github.com/meenmo/molattice/config"
	"github.com/meenmo/molattice/timegrid"
)

// Scheme is the family-specific part of a tree.
type Scheme interface {
	// Discount is the one-step discount factor from column i to i+1 at node j.
	Discount(i, j int) float64
	// NodeIndex maps branching index j to its position in column i.
	NodeIndex(i, j int) int
}

// StateScheme is implemented by schemes whose nodes carry a state value,
// such as a spot price or a short-rate deviation.
type StateScheme interface {
	Scheme
	Underlying(i, j int) float64
}

// Node is one lattice point. Descendants hold branching indices in the next
// column, resolved through Scheme.NodeIndex.
type Node struct {
	Descendants   []int
	Probabilities []float64
	J             int
	StatePrice    float64

	next []int // resolved positions of Descendants in column i+1
}

// Column is the set of nodes at one grid time, ordered by J.
type Column []Node

// Option configures a Tree.
type Option func(*Tree)

// WithLogger sets the logger used for construction and rollback tracing.
func WithLogger(l zerolog.Logger) Option {
	return func(t *Tree) { t.logger = l }
}

// WithParallelThreshold sets the column size from which continuation values
// are computed concurrently. Zero or less disables parallel rollback.
func WithParallelThreshold(n int) Option {
	return func(t *Tree) { t.parallelThreshold = n }
}

// WithMaxWorkers bounds the goroutines of a parallel rollback step. Zero
// picks one worker per chunk of ParallelThreshold nodes.
func WithMaxWorkers(n int) Option {
	return func(t *Tree) { t.maxWorkers = n }
}

// Tree is a recombining lattice with a fixed number of branches per node.
//
// State prices are materialised lazily, column by column. Once column i is
// computed it is never written again, so concurrent valuations may share a
// tree after construction.
type Tree struct {
	grid    timegrid.Grid
	arity   int
	scheme  Scheme
	columns []Column

	logger            zerolog.Logger
	parallelThreshold int
	maxWorkers        int

	mu               sync.Mutex
	statePricesLimit int
}

// NewTree creates a tree with arity branches per node on grid. Column 0 holds
// a single node with state price 1. Further columns are added by Grow.
func NewTree(grid timegrid.Grid, arity int, scheme Scheme, opts ...Option) (*Tree, error) {
	if arity <= 0 {
		return nil, fmt.Errorf("NewTree: %d branches per node: %w", arity, ErrConstruction)
	}
	if grid.Len() == 0 {
		return nil, fmt.Errorf("NewTree: empty time grid: %w", ErrConstruction)
	}
	if scheme == nil {
		return nil, fmt.Errorf("NewTree: nil scheme: %w", ErrConstruction)
	}
	cfg := config.GetConfig()
	t := &Tree{
		grid:              grid,
		arity:             arity,
		scheme:            scheme,
		columns:           []Column{{{J: 0, StatePrice: 1}}},
		logger:            zerolog.Nop(),
		parallelThreshold: cfg.ParallelThreshold,
		maxWorkers:        cfg.MaxWorkers,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Grow builds columns 1..N-1 of the grid. For each i, build fills the
// branching of column i in place and returns column i+1 ordered by J. The
// scheme must be able to resolve NodeIndex(i+1, ·) once build returns.
func (t *Tree) Grow(build func(i int, col Column) (Column, error)) error {
	tol := config.GetConfig().ProbabilityTolerance
	for i := len(t.columns) - 1; i < t.grid.Len()-1; i++ {
		col := t.columns[i]
		next, err := build(i, col)
		if err != nil {
			return fmt.Errorf("Grow: column %d: %w", i, err)
		}
		if len(next) == 0 {
			return fmt.Errorf("Grow: column %d is empty: %w", i+1, ErrConstruction)
		}
		for k := 1; k < len(next); k++ {
			if next[k].J <= next[k-1].J {
				return fmt.Errorf("Grow: column %d not ordered by J: %w", i+1, ErrConstruction)
			}
		}
		for k := range col {
			if err := t.resolve(i, &col[k], next, tol); err != nil {
				return err
			}
		}
		t.columns = append(t.columns, next)
	}
	t.logger.Debug().
		Int("columns", len(t.columns)).
		Int("arity", t.arity).
		Int("last_size", len(t.columns[len(t.columns)-1])).
		Msg("lattice built")
	return nil
}

func (t *Tree) resolve(i int, n *Node, next Column, tol float64) error {
	if len(n.Descendants) != t.arity || len(n.Probabilities) != t.arity {
		return fmt.Errorf("Grow: node (%d,%d) has %d descendants and %d probabilities, want %d: %w",
			i, n.J, len(n.Descendants), len(n.Probabilities), t.arity, ErrConstruction)
	}
	sum := 0.0
	for _, p := range n.Probabilities {
		if p < -tol || math.IsNaN(p) {
			return fmt.Errorf("Grow: node (%d,%d) has probability %g: %w", i, n.J, p, ErrNumericalDomain)
		}
		sum += p
	}
	if math.Abs(sum-1) > tol {
		return fmt.Errorf("Grow: node (%d,%d) probabilities sum to %.15g: %w", i, n.J, sum, ErrNumericalDomain)
	}
	n.next = make([]int, t.arity)
	for l, d := range n.Descendants {
		k := t.scheme.NodeIndex(i+1, d)
		if k < 0 || k >= len(next) || next[k].J != d {
			return fmt.Errorf("Grow: node (%d,%d) branch %d to j=%d outside column %d: %w",
				i, n.J, l, d, i+1, ErrConstruction)
		}
		n.next[l] = k
	}
	return nil
}

// Grid returns the time grid of the tree.
func (t *Tree) Grid() timegrid.Grid { return t.grid }

// Arity returns the number of branches per node.
func (t *Tree) Arity() int { return t.arity }

// Len returns the number of columns built so far.
func (t *Tree) Len() int { return len(t.columns) }

// Size returns the number of nodes in column i.
func (t *Tree) Size(i int) int { return len(t.columns[i]) }

// JMin returns the smallest branching index of column i.
func (t *Tree) JMin(i int) int { return t.columns[i][0].J }

// JMax returns the largest branching index of column i.
func (t *Tree) JMax(i int) int { return t.columns[i][len(t.columns[i])-1].J }

// Node returns a copy of the branching of node j in column i. State prices
// are read through StatePrice.
func (t *Tree) Node(i, j int) (Node, error) {
	if i < 0 || i >= len(t.columns) {
		return Node{}, fmt.Errorf("Node: column %d of %d: %w", i, len(t.columns), ErrShapeMismatch)
	}
	k := t.scheme.NodeIndex(i, j)
	if k < 0 || k >= len(t.columns[i]) {
		return Node{}, fmt.Errorf("Node: j=%d outside column %d: %w", j, i, ErrShapeMismatch)
	}
	n := t.columns[i][k]
	n.Descendants = append([]int(nil), n.Descendants...)
	n.Probabilities = append([]float64(nil), n.Probabilities...)
	n.StatePrice = 0
	n.next = nil
	return n, nil
}

// Column returns a copy of the branching of column i.
func (t *Tree) Column(i int) (Column, error) {
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("Column: column %d of %d: %w", i, len(t.columns), ErrShapeMismatch)
	}
	out := make(Column, len(t.columns[i]))
	for k, n := range t.columns[i] {
		out[k] = Node{
			J:             n.J,
			Descendants:   append([]int(nil), n.Descendants...),
			Probabilities: append([]float64(nil), n.Probabilities...),
		}
	}
	return out, nil
}

// States returns the state value of every node of column i in column order.
func (t *Tree) States(i int) ([]float64, error) {
	s, ok := t.scheme.(StateScheme)
	if !ok {
		return nil, ErrNoState
	}
	if i < 0 || i >= len(t.columns) {
		return nil, fmt.Errorf("States: column %d of %d: %w", i, len(t.columns), ErrShapeMismatch)
	}
	out := make([]float64, len(t.columns[i]))
	for k, n := range t.columns[i] {
		out[k] = s.Underlying(i, n.J)
	}
	return out, nil
}

// ComputeStatePrices extends the materialised state prices up to column
// until. Columns already computed are left untouched.
func (t *Tree) ComputeStatePrices(until int) error {
	if until < 0 || until >= len(t.columns) {
		return fmt.Errorf("ComputeStatePrices: column %d of %d: %w", until, len(t.columns), ErrShapeMismatch)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := t.statePricesLimit; i < until; i++ {
		next := t.columns[i+1]
		for _, n := range t.columns[i] {
			q := n.StatePrice * t.scheme.Discount(i, n.J)
			for l, k := range n.next {
				next[k].StatePrice += q * n.Probabilities[l]
			}
		}
		t.statePricesLimit = i + 1
	}
	return nil
}

// StatePrice returns the Arrow-Debreu price of node j in column i.
func (t *Tree) StatePrice(i, j int) (float64, error) {
	if err := t.ComputeStatePrices(i); err != nil {
		return 0, err
	}
	k := t.scheme.NodeIndex(i, j)
	if k < 0 || k >= len(t.columns[i]) {
		return 0, fmt.Errorf("StatePrice: j=%d outside column %d: %w", j, i, ErrShapeMismatch)
	}
	return t.columns[i][k].StatePrice, nil
}

// StatePrices returns the state prices of column i in column order.
func (t *Tree) StatePrices(i int) ([]float64, error) {
	if err := t.ComputeStatePrices(i); err != nil {
		return nil, err
	}
	out := make([]float64, len(t.columns[i]))
	for k, n := range t.columns[i] {
		out[k] = n.StatePrice
	}
	return out, nil
}

// StatePriceSum returns the sum of the state prices of column i, the price of
// a zero-coupon bond paying 1 at t_i.
func (t *Tree) StatePriceSum(i int) (float64, error) {
	q, err := t.StatePrices(i)
	if err != nil {
		return 0, err
	}
	return floats.Sum(q), nil
}

// Initialize positions asset on the column closest to time and lets it fill
// its terminal values.
func (t *Tree) Initialize(asset Asset, time float64) error {
	i := t.grid.ClosestIndex(time)
	if i < 0 || i >= len(t.columns) {
		return fmt.Errorf("Initialize: t=%g beyond built columns: %w", time, ErrConstruction)
	}
	size := len(t.columns[i])
	asset.SetTime(t.grid.At(i))
	asset.Reset(size)
	if got := len(asset.Values()); got != size {
		return fmt.Errorf("Initialize: %d values for column %d of size %d: %w", got, i, size, ErrShapeMismatch)
	}
	return nil
}

// Rollback moves asset back to time to, applying its conditions at every
// column reached, the destination included.
func (t *Tree) Rollback(asset Asset, to float64) error {
	return t.rollback([]Asset{asset}, to, true)
}

// PartialRollback is Rollback without applying conditions at the destination
// column.
func (t *Tree) PartialRollback(asset Asset, to float64) error {
	return t.rollback([]Asset{asset}, to, false)
}

// RollbackAll moves several assets back together. Each step computes the
// continuation of every asset first, then applies their conditions in slice
// order, so a condition may read another asset's values on the same column.
func (t *Tree) RollbackAll(assets []Asset, to float64) error {
	return t.rollback(assets, to, true)
}

// PresentValue rolls asset back to the first grid time and returns the
// value of the root node.
func (t *Tree) PresentValue(asset Asset) (float64, error) {
	if err := t.Rollback(asset, t.grid.At(0)); err != nil {
		return 0, err
	}
	v := asset.Values()
	if len(v) != 1 {
		return 0, fmt.Errorf("PresentValue: root column holds %d values: %w", len(v), ErrShapeMismatch)
	}
	return v[0], nil
}

// PresentValueByStatePrices values asset on its current column as the sum of
// its values weighted by state prices, without rolling it back.
func (t *Tree) PresentValueByStatePrices(asset Asset) (float64, error) {
	i, err := t.grid.Index(asset.Time())
	if err != nil {
		return 0, fmt.Errorf("PresentValueByStatePrices: %w", err)
	}
	q, err := t.StatePrices(i)
	if err != nil {
		return 0, err
	}
	v := asset.Values()
	if len(v) != len(q) {
		return 0, fmt.Errorf("PresentValueByStatePrices: %d values for column %d of size %d: %w",
			len(v), i, len(q), ErrShapeMismatch)
	}
	return floats.Dot(v, q), nil
}

func (t *Tree) rollback(assets []Asset, to float64, applyLast bool) error {
	if len(assets) == 0 {
		return nil
	}
	tol := config.GetConfig().TimeTolerance
	from := assets[0].Time()
	for _, a := range assets[1:] {
		if math.Abs(a.Time()-from) > tol {
			return fmt.Errorf("Rollback: assets at t=%g and t=%g: %w", from, a.Time(), ErrShapeMismatch)
		}
	}
	if math.Abs(from-to) <= tol {
		return nil
	}
	if to > from {
		return fmt.Errorf("Rollback: from t=%g to t=%g: %w", from, to, ErrRollbackDirection)
	}
	iFrom, err := t.grid.Index(from)
	if err != nil {
		return fmt.Errorf("Rollback: %w", err)
	}
	iTo, err := t.grid.Index(to)
	if err != nil {
		return fmt.Errorf("Rollback: %w", err)
	}
	if iFrom >= len(t.columns) {
		return fmt.Errorf("Rollback: column %d not built: %w", iFrom, ErrShapeMismatch)
	}
	for _, a := range assets {
		if got, want := len(a.Values()), len(t.columns[iFrom]); got != want {
			return fmt.Errorf("Rollback: %d values for column %d of size %d: %w", got, iFrom, want, ErrShapeMismatch)
		}
	}

	for i := iFrom - 1; i >= iTo; i-- {
		for _, a := range assets {
			values := t.stepback(i, a.Values())
			a.SetTime(t.grid.At(i))
			a.SetValues(values)
		}
		if i != iTo || applyLast {
			for _, a := range assets {
				a.ApplyCondition()
			}
		}
	}
	t.logger.Debug().
		Float64("from", from).
		Float64("to", to).
		Int("assets", len(assets)).
		Msg("rollback")
	return nil
}

// stepback returns the discounted expectation on column i of values held on
// column i+1.
func (t *Tree) stepback(i int, values []float64) []float64 {
	col := t.columns[i]
	out := make([]float64, len(col))
	compute := func(lo, hi int) {
		for k := lo; k < hi; k++ {
			n := &col[k]
			v := 0.0
			for l, next := range n.next {
				v += n.Probabilities[l] * values[next]
			}
			out[k] = v * t.scheme.Discount(i, n.J)
		}
	}

	if t.parallelThreshold <= 0 || len(col) < t.parallelThreshold {
		compute(0, len(col))
		return out
	}
	chunk := t.parallelThreshold
	if t.maxWorkers > 0 {
		if c := (len(col) + t.maxWorkers - 1) / t.maxWorkers; c > chunk {
			chunk = c
		}
	}
	var wg sync.WaitGroup
	for lo := 0; lo < len(col); lo += chunk {
		hi := min(lo+chunk, len(col))
		wg.Go(func() { compute(lo, hi) })
	}
	wg.Wait()
	return out
}
