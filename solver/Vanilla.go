package solver

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// VanillaConfig describes stochastic gradient descent without momentum.
// Gradients are averaged over Batch samples and, if Clip is positive,
// clipped elementwise to [-Clip, Clip] before the step is taken.
type VanillaConfig struct {
	StepSize float64
	Batch    int
	Clip     float64
}

// NewVanilla returns a new Vanilla Solver. A non-positive clip disables
// gradient clipping.
func NewVanilla(stepSize float64, batchSize int,
	clip float64) (*Solver, error) {
	vanilla := VanillaConfig{
		StepSize: stepSize,
		Batch:    batchSize,
		Clip:     clip,
	}
	if err := vanilla.Validate(); err != nil {
		return nil, fmt.Errorf("newVanilla: %v", err)
	}

	return newSolver(Vanilla, vanilla)
}

// Validate returns an error if the configuration cannot create a
// solver
func (v VanillaConfig) Validate() error {
	if v.StepSize <= 0 {
		return fmt.Errorf("validate: step size must be positive, have(%v)",
			v.StepSize)
	}
	if v.Batch < 1 {
		return fmt.Errorf("validate: batch must be positive, have(%v)",
			v.Batch)
	}
	return nil
}

// Create returns a Gorgonia Vanilla Solver as described by the
// VanillaConfig
func (v VanillaConfig) Create() G.Solver {
	opts := []G.SolverOpt{
		G.WithLearnRate(v.StepSize),
		G.WithBatchSize(float64(v.Batch)),
	}
	if v.Clip > 0 {
		opts = append(opts, G.WithClip(v.Clip))
	}
	return G.NewVanillaSolver(opts...)
}

// ValidType returns if the given Solver type is a valid type to be
// created with this config.
func (v VanillaConfig) ValidType(t Type) bool {
	return t == Vanilla
}
