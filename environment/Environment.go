// Package environment outlines the interfaces needed to implement
// concrete pixel environments
package environment

import "image"

// Emulator implements a raw pixel game. Frames are returned exactly as
// rendered by the game, before any preprocessing.
type Emulator interface {
	// Reset starts a new game and returns its first frame
	Reset() (image.Image, error)

	// Step takes one action in the game, returning the next frame, the
	// reward for the action, and whether the game is over
	Step(action int) (frame image.Image, reward float64, done bool,
		err error)

	// Lives returns the number of lives left in the game, or -1 if the
	// game does not track lives
	Lives() int

	// NumActions returns the number of discrete actions of the game
	NumActions() int

	Close() error
}

// Actions shared by the Atari games
const (
	NoOp = iota
	Fire
)
