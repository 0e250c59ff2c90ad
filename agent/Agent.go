// Package agent defines the interfaces of agents that learn to play
// pixel games from stacks of frames.
package agent

import (
	"github.com/samuelfneumann/ddqn/timestep"
)

// Agent determines the implementation details of an agent or algorithm
//
// An Agent is composed of a Learner, which learns weights, and a Policy
// which chooses actions in each state. The Policy chooses which actions
// are taken, and the Learner uses these actions to update the Policy.
type Agent interface {
	Learner
	Policy
	Checkpointable
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	// Observe records that an action lead to some timestep
	Observe(action int, step timestep.TimeStep) error

	// Step performs any updates scheduled for the given frame number.
	// The frame number counts environment steps taken in training.
	Step(frame int) (Update, error)
}

// Update reports the learning performed on a single call to
// Learner.Step()
type Update struct {
	Learned       bool    // Whether a gradient step was taken
	Loss          float64 // Loss of the gradient step, if any
	TargetUpdated bool    // Whether the target network was updated
}

// Policy represents a policy that an agent can have.
//
// Policies determine how agents select actions in a state given as the
// stacked, scaled frames of the environment. In evaluation mode, the
// policy usually acts (nearly) greedily.
type Policy interface {
	SelectAction(frame int, state []float64, eval bool) (int, error)
}

// Greedy selects the action of highest estimated value in a state
type Greedy interface {
	BestAction(state []float64) (int, error)
}

// Checkpointable is an agent whose learned weights can be saved to and
// restored from disk
type Checkpointable interface {
	Save(filename string) error
	Load(filename string) error
}

// Parameterized is an agent whose learnable parameters can be
// inspected, for example to summarise them as histograms
type Parameterized interface {
	Parameters() map[string][]float64
}
