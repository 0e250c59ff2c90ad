// Package gym provides access to OpenAI Gym's Atari environments as
// Emulators.
//
// This is made possible through the Go bindings for OpenAI Gym,
// found at https://github.com/samuelfneumann/GoGym. Gym does not
// report the number of lives left through GoGym, so life loss is only
// detected at the end of an episode.
package gym

import (
	"fmt"
	"image"
	"math"

	"github.com/samuelfneumann/gogym"
	"gonum.org/v1/gonum/mat"
)

// Default frame size of Atari environments
const (
	FrameHeight = 210
	FrameWidth  = 160
)

// Gym implements an Emulator over a Gym environment
type Gym struct {
	gogym.Environment

	height, width int
	numActions    int
	action        *mat.VecDense
}

// New returns a new Gym emulator with the given name, which must be a
// legal Gym environment ID with a discrete action space and RGB
// observations of height x width pixels, such as
// "BreakoutNoFrameskip-v4".
func New(name string, height, width int, seed uint64) (*Gym, error) {
	env, err := gogym.Make(name)
	if err != nil {
		return nil, fmt.Errorf("new: could not create environment: %v", err)
	}
	env.Seed(int(seed))

	space, ok := env.ActionSpace().(*gogym.DiscreteSpace)
	if !ok {
		env.Close()
		return nil, fmt.Errorf("new: environment %v does not have a "+
			"discrete action space", name)
	}

	return &Gym{
		Environment: env,
		height:      height,
		width:       width,
		numActions:  int(space.High()[0].AtVec(0)) + 1,
		action:      mat.NewVecDense(1, nil),
	}, nil
}

// Reset starts a new episode
func (g *Gym) Reset() (image.Image, error) {
	obs, err := g.Environment.Reset()
	if err != nil {
		return nil, fmt.Errorf("reset: could not reset environment: %v", err)
	}

	frame, err := ToImage(obs, g.height, g.width)
	if err != nil {
		return nil, fmt.Errorf("reset: %v", err)
	}
	return frame, nil
}

// Step takes a single environmental step
func (g *Gym) Step(action int) (image.Image, float64, bool, error) {
	g.action.SetVec(0, float64(action))
	obs, reward, done, err := g.Environment.Step(g.action)
	if err != nil {
		return nil, 0, true, fmt.Errorf("step: could not step GoGym "+
			"environment: %v", err)
	}

	frame, err := ToImage(obs, g.height, g.width)
	if err != nil {
		return nil, 0, true, fmt.Errorf("step: %v", err)
	}
	return frame, reward, done, nil
}

// Lives implements the environment.Emulator interface. Lives are not
// tracked, so -1 is always returned.
func (g *Gym) Lives() int {
	return -1
}

// NumActions returns the number of actions of the environment
func (g *Gym) NumActions() int {
	return g.numActions
}

// Close performs resource cleanup after the environment is no longer
// needed
func (g *Gym) Close() error {
	g.Environment.Close()
	return nil
}

// ToImage converts a flattened height x width x 3 RGB observation
// into an image
func ToImage(obs mat.Vector, height, width int) (*image.RGBA, error) {
	if obs.Len() != height*width*3 {
		return nil, fmt.Errorf("toImage: cannot reshape observation of "+
			"length %v to (%v, %v, 3)", obs.Len(), height, width)
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < height*width; i++ {
		for c := 0; c < 3; c++ {
			img.Pix[4*i+c] = uint8(math.Round(obs.AtVec(3*i + c)))
		}
		img.Pix[4*i+3] = 255
	}
	return img, nil
}
