package lattice

import "errors"

var (
	// ErrConstruction is returned when a lattice cannot be built: no branches
	// per node, an empty grid, or an inconsistent branching range.
	ErrConstruction = errors.New("lattice construction")

	// ErrShapeMismatch is returned when a value array does not match the size
	// of the column it is rolled onto.
	ErrShapeMismatch = errors.New("value array shape mismatch")

	// ErrNumericalDomain is returned for negative branching probabilities or
	// probabilities that do not sum to one.
	ErrNumericalDomain = errors.New("numerical domain")

	// ErrRollbackDirection is returned when an asset is rolled to a time later
	// than its current one.
	ErrRollbackDirection = errors.New("rollback towards a later time")

	// ErrNoState is returned when the lattice scheme carries no state variable.
	ErrNoState = errors.New("lattice has no state variable")
)
