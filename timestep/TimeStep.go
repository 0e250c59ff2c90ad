// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"
	"image"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in a pixel environment.
//
// Observation holds the processed (greyscale, cropped and resized)
// frame of the step, one byte per pixel in row-major order. Frame is
// the raw emulator frame, which is kept for rendering. LifeLost is
// true whenever a life was lost on the step, the episode ended, or the
// episode has just begun.
type TimeStep struct {
	stepType    StepType
	Reward      float64
	Observation []uint8
	Frame       image.Image
	LifeLost    bool
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o []uint8, frame image.Image,
	lifeLost bool, n int) TimeStep {
	return TimeStep{t, r, o, frame, lifeLost, n}
}

// StepType returns the type of the TimeStep
func (t *TimeStep) StepType() StepType {
	return t.stepType
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.stepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.stepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.stepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Life Lost: %v  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.stepType, t.Reward, t.LifeLost, t.Number)
}

// Transition is a single (s, a, r, s', terminal) tuple. States are
// stacked frames scaled to [0, 1] in channel-major order.
type Transition struct {
	State     []float64
	Action    int
	Reward    float64
	NextState []float64
	Terminal  bool
}

// TerminalValue returns 1 if the transition is terminal and 0
// otherwise
func (t Transition) TerminalValue() float64 {
	if t.Terminal {
		return 1
	}
	return 0
}
