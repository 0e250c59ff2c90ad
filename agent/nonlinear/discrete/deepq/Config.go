package deepq

import (
	"encoding/json"
	"fmt"

	"github.com/samuelfneumann/ddqn/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/ddqn/network"
	"github.com/samuelfneumann/ddqn/solver"
)

// LearnMode determines which network evaluates the action selected in
// the next state when computing the update target
type LearnMode string

const (
	// DoubleQ selects the next action with the online network and
	// evaluates it with the target network
	DoubleQ LearnMode = "DoubleQ"

	// SingleNetwork selects and evaluates the next action with the
	// online network
	SingleNetwork LearnMode = "SingleNetwork"
)

// UnmarshalJSON implements the json.Unmarshaler interface
func (l *LearnMode) UnmarshalJSON(data []byte) error {
	var mode string
	if err := json.Unmarshal(data, &mode); err != nil {
		return err
	}
	switch LearnMode(mode) {
	case DoubleQ, SingleNetwork:
		*l = LearnMode(mode)
		return nil
	}
	return fmt.Errorf("unmarshalJSON: unknown learn mode %q", mode)
}

// Config implements a configuration for a DeepQ agent
type Config struct {
	Network network.Config
	Solver  *solver.Solver // Solver for learning weights

	BatchSize int
	Discount  float64

	// Frames between gradient steps, and between hard target network
	// updates, counted once learning has started
	UpdateFreq       int
	TargetUpdateFreq int

	// Tau is the polyak averaging constant of target network updates.
	// A Tau of 1 copies the online network.
	Tau float64

	ReplayStartSize int // Frames before learning starts
	MemorySize      int // Capacity of the replay memory

	Mode        LearnMode
	HuberDelta  float64
	ClipRewards bool // Whether rewards are clipped to their sign

	Exploration policy.Config
}

// DefaultConfig returns the configuration of the Dueling Double DQN
// Atari experiments with a final convolution of 1024 filters.
func DefaultConfig() Config {
	s, err := solver.NewDefaultAdam(1e-5, 1)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		Network:          network.DefaultConfig(1024),
		Solver:           s,
		BatchSize:        32,
		Discount:         0.99,
		UpdateFreq:       4,
		TargetUpdateFreq: 10_000,
		Tau:              1.0,
		ReplayStartSize:  50_000,
		MemorySize:       1_000_000,
		Mode:             DoubleQ,
		HuberDelta:       1.0,
		ClipRewards:      true,
		Exploration:      policy.DefaultConfig(),
	}
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ agent.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return fmt.Errorf("validate: invalid network: %v", err)
	}
	if c.Solver == nil || c.Solver.Solver == nil {
		return fmt.Errorf("validate: no solver given")
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.BatchSize)
	}
	if c.Discount < 0 || c.Discount > 1 {
		return fmt.Errorf("validate: discount must be in [0, 1], have(%v)",
			c.Discount)
	}
	if c.UpdateFreq < 1 {
		return fmt.Errorf("validate: gradient steps must happen at positive "+
			"frame intervals \n\twant(>0) \n\thave(%v)", c.UpdateFreq)
	}
	if c.TargetUpdateFreq < 1 {
		return fmt.Errorf("validate: target networks must be updated at "+
			"positive frame intervals \n\twant(>0) \n\thave(%v)",
			c.TargetUpdateFreq)
	}
	if c.Tau <= 0 || c.Tau > 1 {
		return fmt.Errorf("validate: tau must be in (0, 1], have(%v)", c.Tau)
	}
	if c.MemorySize <= c.Network.History {
		return fmt.Errorf("validate: memory size %v must exceed history %v",
			c.MemorySize, c.Network.History)
	}
	if c.ReplayStartSize < 0 {
		return fmt.Errorf("validate: replay start size must be "+
			"non-negative, have(%v)", c.ReplayStartSize)
	}
	if c.Mode != DoubleQ && c.Mode != SingleNetwork {
		return fmt.Errorf("validate: unknown learn mode %q", c.Mode)
	}
	if c.HuberDelta <= 0 {
		return fmt.Errorf("validate: huber delta must be positive, have(%v)",
			c.HuberDelta)
	}
	// The exploration schedule always starts annealing at ReplayStartSize
	exploration := c.Exploration
	exploration.ReplayStartSize = c.ReplayStartSize
	if err := exploration.Validate(); err != nil {
		return fmt.Errorf("validate: invalid exploration: %v", err)
	}
	return nil
}
