// Package policy implements action selection policies for agents
// with discrete actions.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/agent"
	"golang.org/x/exp/rand"
)

// Config describes the exploration schedule of an EGreedy policy.
//
// Epsilon is EpsInitial for the first ReplayStartSize frames, then
// decreases linearly to EpsFinal over AnnealingFrames frames, and then
// decreases linearly to EpsFinalFrame at frame MaxFrames. In evaluation
// mode, epsilon is EpsEvaluation.
type Config struct {
	EpsInitial      float64
	EpsFinal        float64
	EpsFinalFrame   float64
	EpsEvaluation   float64
	AnnealingFrames int
	ReplayStartSize int
	MaxFrames       int
}

// DefaultConfig returns the exploration schedule of the Dueling DQN
// Atari experiments
func DefaultConfig() Config {
	return Config{
		EpsInitial:      1.0,
		EpsFinal:        0.1,
		EpsFinalFrame:   0.01,
		EpsEvaluation:   0.0,
		AnnealingFrames: 1_000_000,
		ReplayStartSize: 50_000,
		MaxFrames:       30_000_000,
	}
}

// Validate checks a Config to ensure it is a valid exploration
// schedule
func (c Config) Validate() error {
	for _, eps := range []float64{c.EpsInitial, c.EpsFinal, c.EpsFinalFrame,
		c.EpsEvaluation} {
		if eps < 0 || eps > 1 {
			return fmt.Errorf("validate: epsilon %v not in [0, 1]", eps)
		}
	}
	if c.AnnealingFrames < 1 {
		return fmt.Errorf("validate: annealing frames must be positive, "+
			"have(%v)", c.AnnealingFrames)
	}
	if c.ReplayStartSize < 0 {
		return fmt.Errorf("validate: replay start size must be "+
			"non-negative, have(%v)", c.ReplayStartSize)
	}
	if c.MaxFrames <= c.ReplayStartSize+c.AnnealingFrames {
		return fmt.Errorf("validate: max frames %v must exceed replay start "+
			"size plus annealing frames %v", c.MaxFrames,
			c.ReplayStartSize+c.AnnealingFrames)
	}
	return nil
}

// EGreedy implements an ε-greedy policy with a piecewise-linear
// annealing schedule on ε
type EGreedy struct {
	Config
	numActions int

	slope, intercept   float64
	slope2, intercept2 float64

	rng *rand.Rand
}

// NewEGreedy returns a new EGreedy policy over numActions actions
func NewEGreedy(c Config, numActions int, seed uint64) (*EGreedy, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newEGreedy: %v", err)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("newEGreedy: at least one action is "+
			"required, have(%v)", numActions)
	}

	slope := -(c.EpsInitial - c.EpsFinal) / float64(c.AnnealingFrames)
	intercept := c.EpsInitial - slope*float64(c.ReplayStartSize)

	remaining := c.MaxFrames - c.AnnealingFrames - c.ReplayStartSize
	slope2 := -(c.EpsFinal - c.EpsFinalFrame) / float64(remaining)
	intercept2 := c.EpsFinalFrame - slope2*float64(c.MaxFrames)

	return &EGreedy{
		Config:     c,
		numActions: numActions,
		slope:      slope,
		intercept:  intercept,
		slope2:     slope2,
		intercept2: intercept2,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Epsilon returns the probability of selecting a random action at
// the given frame number
func (e *EGreedy) Epsilon(frame int, eval bool) float64 {
	switch {
	case eval:
		return e.EpsEvaluation
	case frame < e.ReplayStartSize:
		return e.EpsInitial
	case frame < e.ReplayStartSize+e.AnnealingFrames:
		return e.slope*float64(frame) + e.intercept
	default:
		return e.slope2*float64(frame) + e.intercept2
	}
}

// NumActions returns the number of actions the policy selects from
func (e *EGreedy) NumActions() int {
	return e.numActions
}

// SelectAction selects an action in state. With probability
// Epsilon(frame, eval) the action is selected uniformly at random,
// otherwise greedy chooses the action. The greedy policy is only
// queried when it is needed.
func (e *EGreedy) SelectAction(frame int, state []float64, eval bool,
	greedy agent.Greedy) (int, error) {
	if e.rng.Float64() < e.Epsilon(frame, eval) {
		return e.rng.Intn(e.numActions), nil
	}

	action, err := greedy.BestAction(state)
	if err != nil {
		return 0, fmt.Errorf("selectAction: %v", err)
	}
	return action, nil
}
