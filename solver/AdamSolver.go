package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// AdamConfig describes a configuration of the Adam solver. Epsilon is
// the smoothing term added to the second moment estimate, and Beta1
// and Beta2 are the decay rates of the first and second moments.
type AdamConfig struct {
	StepSize float64
	Epsilon  float64
	Beta1    float64
	Beta2    float64
	Batch    int
}

// NewDefaultAdam returns an Adam Solver with the moment decay rates
// of Kingma and Ba (2015) and a smoothing term of 1e-8
func NewDefaultAdam(stepSize float64, batchSize int) (*Solver, error) {
	return NewAdam(stepSize, 1e-8, 0.9, 0.999, batchSize)
}

// NewAdam returns a new Adam Solver
func NewAdam(stepSize, epsilon, beta1, beta2 float64,
	batchSize int) (*Solver, error) {
	adam := AdamConfig{
		StepSize: stepSize,
		Epsilon:  epsilon,
		Beta1:    beta1,
		Beta2:    beta2,
		Batch:    batchSize,
	}
	if err := adam.Validate(); err != nil {
		return nil, fmt.Errorf("newAdam: %v", err)
	}

	return newSolver(Adam, adam)
}

// Validate returns an error if the configuration cannot create a
// solver
func (a AdamConfig) Validate() error {
	if a.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, have(%v)",
			a.StepSize)
	}
	if a.Epsilon <= 0 {
		return fmt.Errorf("validate: epsilon must be positive, have(%v)",
			a.Epsilon)
	}
	for _, beta := range []float64{a.Beta1, a.Beta2} {
		if beta < 0 || beta >= 1 {
			return fmt.Errorf("validate: moment decay %v not in [0, 1)",
				beta)
		}
	}
	if a.Batch < 1 {
		return fmt.Errorf("validate: batch must be positive, have(%v)",
			a.Batch)
	}
	return nil
}

// Create returns a new Gorgonia Adam Solver as described by the
// AdamConfig
func (a AdamConfig) Create() G.Solver {
	return G.NewAdamSolver(
		G.WithLearnRate(a.StepSize),
		G.WithEps(a.Epsilon),
		G.WithBeta1(a.Beta1),
		G.WithBeta2(a.Beta2),
		G.WithBatchSize(float64(a.Batch)),
	)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (a AdamConfig) ValidType(t Type) bool {
	return t == Adam
}
