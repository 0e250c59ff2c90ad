package tracker

import (
	"encoding/gob"
	"fmt"
	"os"

	ts "github.com/samuelfneumann/ddqn/timestep"
)

// Return tracks and saves the episodic return in an experiment. When
// an environment returns a TimeStep, this Tracker will extract the
// reward and accumulate the return for each episode in the experiment.
//
// Note: rewards are tracked exactly as returned by the environment,
// before any clipping by the agent.
//
// Note: An episode must finish for this Tracker to save its return.
// Episodes that are cut off before their last timestep can be recorded
// with Truncate.
type Return struct {
	lastTimeStep   int
	currentReturn  float64
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{lastTimeStep: -1, filename: filename}
}

// Track tracks the rewards seen on a timestep. A first timestep starts
// a new episode, discarding the return of an unfinished episode.
//
// Track panics if it is called for non-sequential timesteps within an
// episode.
func (r *Return) Track(step ts.TimeStep) {
	if step.First() {
		r.currentReturn = 0.0
		r.lastTimeStep = step.Number
		return
	}

	if r.lastTimeStep+1 != step.Number {
		msg := fmt.Sprintf("track: last two timesteps tracked are not "+
			"sequential: timestep %v --> timestep %v were tracked",
			r.lastTimeStep, step.Number)
		panic(msg)
	}

	r.currentReturn += step.Reward
	r.lastTimeStep = step.Number

	// Episode has ended, save the return and begin tracking the
	// return for a new episode
	if step.Last() {
		r.episodeReturns = append(r.episodeReturns, r.currentReturn)
		r.currentReturn = 0.0
		r.lastTimeStep = -1
	}
}

// Truncate records the return of the current, unfinished episode as
// if the episode had ended
func (r *Return) Truncate() {
	if r.lastTimeStep < 0 {
		return
	}
	r.episodeReturns = append(r.episodeReturns, r.currentReturn)
	r.currentReturn = 0.0
	r.lastTimeStep = -1
}

// Current returns the return accumulated so far in the current episode
func (r *Return) Current() float64 {
	return r.currentReturn
}

// Returns returns the returns of all finished episodes
func (r *Return) Returns() []float64 {
	return r.episodeReturns
}

// Episodes returns the number of finished episodes
func (r *Return) Episodes() int {
	return len(r.episodeReturns)
}

// Reset forgets all tracked returns
func (r *Return) Reset() {
	r.episodeReturns = nil
	r.currentReturn = 0.0
	r.lastTimeStep = -1
}

// Save saves the data tracked by the Return Tracker to disk.
func (r *Return) Save() error {
	file, err := os.Create(r.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(r.episodeReturns); err != nil {
		return fmt.Errorf("save: could not encode return data: %v", err)
	}
	return nil
}
