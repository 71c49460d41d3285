package config

// Config holds the numerical tolerances and execution knobs shared by the
// lattice, grid and instrument packages.
type Config struct {
	// TimeTolerance is the absolute tolerance used whenever two times are
	// compared (grid lookup, rollback termination, date-gated conditions).
	TimeTolerance float64 `yaml:"time_tolerance"`

	// ProbabilityTolerance bounds |Σp - 1| for every node's branching
	// probabilities. Probabilities below -ProbabilityTolerance are rejected.
	ProbabilityTolerance float64 `yaml:"probability_tolerance"`

	// StatePriceTolerance is the relative tolerance a fitted short-rate tree
	// must meet: the state prices of each column sum to the discount factor to
	// that column.
	StatePriceTolerance float64 `yaml:"state_price_tolerance"`

	// ParallelThreshold is the column size at or above which a rollback step
	// computes continuation values on several goroutines. Zero disables it.
	ParallelThreshold int `yaml:"parallel_threshold"`

	// MaxWorkers caps the goroutines used by one parallel rollback step. Zero
	// starts one goroutine per ParallelThreshold nodes.
	MaxWorkers int `yaml:"max_workers"`
}

// DefaultConfig provides production-ready default values.
var DefaultConfig = Config{
	TimeTolerance:        1e-10,
	ProbabilityTolerance: 1e-10,
	StatePriceTolerance:  1e-10,
	ParallelThreshold:    2048,
	MaxWorkers:           0,
}

// cfg is the active configuration. Defaults to DefaultConfig.
var cfg = DefaultConfig

// SetConfig replaces the active configuration.
func SetConfig(c Config) {
	cfg = c
}

// GetConfig returns the active configuration.
func GetConfig() Config {
	return cfg
}
