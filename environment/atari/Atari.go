// Package atari wraps raw pixel games with the frame preprocessing and
// frame stacking used by DQN agents on the Atari suite.
package atari

import (
	"fmt"
	"image"

	"github.com/samuelfneumann/ddqn/environment"
	ts "github.com/samuelfneumann/ddqn/timestep"
	"golang.org/x/exp/rand"
)

// maxResetAttempts bounds the number of emulator resets of a single
// evaluation reset
const maxResetAttempts = 100

// Config implements the configuration of an Atari wrapper
type Config struct {
	// Maximum number of FIRE actions taken at the start of an
	// evaluation episode
	NoOpSteps int

	History   int // Frames stacked into a single state
	Processor ProcessorConfig
}

// DefaultConfig returns the default wrapper configuration
func DefaultConfig() Config {
	return Config{
		NoOpSteps: 10,
		History:   4,
		Processor: DefaultProcessorConfig(),
	}
}

// Validate returns an error if the configuration is invalid
func (c Config) Validate() error {
	if c.NoOpSteps < 1 {
		return fmt.Errorf("validate: at least one no-op step required, "+
			"have(%v)", c.NoOpSteps)
	}
	if c.History < 1 {
		return fmt.Errorf("validate: history must be positive, have(%v)",
			c.History)
	}
	return c.Processor.Validate()
}

// Atari wraps an Emulator. It keeps the stack of the last History
// processed frames, which forms the state of the agent, and reports
// whenever a life is lost.
type Atari struct {
	environment.Emulator
	config    Config
	processor *FrameProcessor
	rng       *rand.Rand

	frames    [][]uint8 // Oldest frame first
	lastLives int
	number    int
}

// New returns a new Atari wrapper around emulator
func New(emulator environment.Emulator, c Config, seed uint64) (*Atari,
	error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	processor, err := NewFrameProcessor(c.Processor)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Atari{
		Emulator:  emulator,
		config:    c,
		processor: processor,
		rng:       rand.New(rand.NewSource(seed)),
		frames:    make([][]uint8, c.History),
	}, nil
}

// Config returns the configuration of the wrapper
func (a *Atari) Config() Config {
	return a.config
}

// FrameHeight returns the height of processed frames
func (a *Atari) FrameHeight() int {
	return a.processor.Height()
}

// FrameWidth returns the width of processed frames
func (a *Atari) FrameWidth() int {
	return a.processor.Width()
}

// Reset starts a new episode. In evaluation mode, between 1 and
// NoOpSteps FIRE actions are taken first so that evaluation episodes
// start from different states. The state is filled with copies of the
// first processed frame, and the returned step always reports a lost
// life.
func (a *Atari) Reset(eval bool) (ts.TimeStep, error) {
	frame, err := a.start(eval)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	a.lastLives = 0
	a.number = 0

	processed, err := a.processor.Process(frame)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("reset: %v", err)
	}
	for i := range a.frames {
		a.frames[i] = processed
	}

	return ts.New(ts.First, 0, processed, frame, true, 0), nil
}

// start resets the emulator and, in evaluation, takes the initial FIRE
// actions. The emulator is reset again whenever a game ends during the
// FIRE actions, up to maxResetAttempts times.
func (a *Atari) start(eval bool) (image.Image, error) {
	for attempt := 0; attempt < maxResetAttempts; attempt++ {
		frame, err := a.Emulator.Reset()
		if err != nil {
			return nil, fmt.Errorf("could not reset emulator: %v", err)
		}
		if !eval {
			return frame, nil
		}

		done := false
		steps := 1 + a.rng.Intn(a.config.NoOpSteps)
		for i := 0; i < steps && !done; i++ {
			frame, _, done, err = a.Emulator.Step(environment.Fire)
			if err != nil {
				return nil, fmt.Errorf("could not take no-op step: %v", err)
			}
		}
		if !done {
			return frame, nil
		}
	}
	return nil, fmt.Errorf("every game of %v ended during no-op steps",
		maxResetAttempts)
}

// Step takes a single action. LifeLost is set on the returned step if
// a life was lost or the episode ended.
func (a *Atari) Step(action int) (ts.TimeStep, error) {
	if action < 0 || action >= a.NumActions() {
		return ts.TimeStep{}, fmt.Errorf("step: action %v out of range "+
			"[0, %v)", action, a.NumActions())
	}

	frame, reward, done, err := a.Emulator.Step(action)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("step: could not step emulator: %v",
			err)
	}

	lives := a.Emulator.Lives()
	lifeLost := done || (lives >= 0 && lives < a.lastLives)
	a.lastLives = lives

	processed, err := a.processor.Process(frame)
	if err != nil {
		return ts.TimeStep{}, fmt.Errorf("step: %v", err)
	}
	copy(a.frames, a.frames[1:])
	a.frames[len(a.frames)-1] = processed

	a.number++
	stepType := ts.Mid
	if done {
		stepType = ts.Last
	}
	return ts.New(stepType, reward, processed, frame, lifeLost, a.number), nil
}

// State returns the current state: the last History processed frames,
// oldest first, scaled to [0, 1]
func (a *Atari) State() []float64 {
	size := a.processor.Height() * a.processor.Width()
	state := make([]float64, len(a.frames)*size)
	for i, frame := range a.frames {
		for j, pixel := range frame {
			state[i*size+j] = float64(pixel) / 255.0
		}
	}
	return state
}
