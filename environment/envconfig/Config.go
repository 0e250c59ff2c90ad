// Package envconfig provides configuration structs for configuring
// wrapped pixel environments. Environment configurations in this
// package are JSON serializable.
package envconfig

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/environment"
	"github.com/samuelfneumann/ddqn/environment/atari"
	"github.com/samuelfneumann/ddqn/environment/gym"
	"github.com/samuelfneumann/ddqn/environment/squash"
)

// EnvName stores the name of emulators that can be configured with
// this package
type EnvName string

// Emulators available for configuration
const (
	// Squash is the native paddle game of package squash
	Squash EnvName = "Squash"

	// Gym is any Atari environment of OpenAI Gym, named by GymID
	Gym EnvName = "Gym"
)

// Config implements a specific configuration of an emulator and the
// Atari wrapper around it
type Config struct {
	Environment EnvName
	GymID       string `json:",omitempty"`

	Squash squash.Config
	Atari  atari.Config
}

// DefaultConfig returns the default configuration of the Squash game
func DefaultConfig() Config {
	return Config{
		Environment: Squash,
		Squash:      squash.DefaultConfig(),
		Atari:       atari.DefaultConfig(),
	}
}

// NewGymConfig returns the configuration of a Gym Atari environment
func NewGymConfig(id string) Config {
	return Config{
		Environment: Gym,
		GymID:       id,
		Atari:       atari.DefaultConfig(),
	}
}

// Validate returns an error if the configuration is invalid
func (c Config) Validate() error {
	switch c.Environment {
	case Squash:
		if err := c.Squash.Validate(); err != nil {
			return fmt.Errorf("validate: %v", err)
		}
	case Gym:
		if c.GymID == "" {
			return fmt.Errorf("validate: no gym environment ID given")
		}
	default:
		return fmt.Errorf("validate: unknown environment %q", c.Environment)
	}

	if err := c.Atari.Validate(); err != nil {
		return fmt.Errorf("validate: %v", err)
	}
	return nil
}

// Create returns the wrapped environment described by the Config
func (c Config) Create(seed uint64) (*atari.Atari, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	var emulator environment.Emulator
	var err error
	switch c.Environment {
	case Squash:
		emulator, err = squash.New(c.Squash, seed)
	case Gym:
		emulator, err = gym.New(c.GymID, gym.FrameHeight, gym.FrameWidth,
			seed)
	}
	if err != nil {
		return nil, fmt.Errorf("create: could not create %v: %v",
			c.Environment, err)
	}

	wrapped, err := atari.New(emulator, c.Atari, seed+1)
	if err != nil {
		emulator.Close()
		return nil, fmt.Errorf("create: %v", err)
	}
	return wrapped, nil
}
