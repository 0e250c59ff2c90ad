// Package expreplay implements the experience replay memory of the
// deep Q-learning agents.
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/timestep"
	"golang.org/x/exp/rand"
)

// maxSampleAttempts bounds the number of random indices drawn per
// sample before giving up on finding a valid one
const maxSampleAttempts = 10000

// Config implements a specific configuration of a ReplayMemory
type Config struct {
	Size      int
	BatchSize int
}

// Create creates and returns the ReplayMemory described by the Config
// over frames of size height x width stacked history deep.
func (c Config) Create(height, width, history int,
	seed uint64) (*ReplayMemory, error) {
	return New(c.Size, height, width, history, c.BatchSize, seed)
}

// Batch is a minibatch of transitions drawn from a ReplayMemory.
//
// States and NextStates hold BatchSize states each, laid out in
// (batch, history, height, width) order and scaled to [0, 1].
// Terminals hold 1 for terminal transitions and 0 otherwise.
type Batch struct {
	States     []float64
	NextStates []float64
	Actions    []int
	Rewards    []float64
	Terminals  []float64
}

// Len returns the number of transitions in the batch
func (b Batch) Len() int {
	return len(b.Actions)
}

// Transition returns transition i of the batch
func (b Batch) Transition(i int) timestep.Transition {
	stateSize := len(b.States) / b.Len()
	start, end := i*stateSize, (i+1)*stateSize

	return timestep.Transition{
		State:     b.States[start:end],
		Action:    b.Actions[i],
		Reward:    b.Rewards[i],
		NextState: b.NextStates[start:end],
		Terminal:  b.Terminals[i] != 0,
	}
}

// ReplayMemory is a ring buffer of single processed frames together
// with the action, reward, and terminal flag of the step that produced
// each frame. States are rebuilt from history consecutive frames, so
// each frame is stored only once.
type ReplayMemory struct {
	size, height, width, history, batchSize int

	actions   []int
	rewards   []float64
	frames    []uint8
	terminals []bool

	count   int
	current int

	rng *rand.Rand
}

// New returns a new ReplayMemory holding at most size frames of size
// height x width, returning minibatches of batchSize transitions
// between states of history frames.
func New(size, height, width, history, batchSize int,
	seed uint64) (*ReplayMemory, error) {
	if history < 1 {
		return nil, fmt.Errorf("new: history must be positive, have(%v)",
			history)
	}
	if size <= history {
		return nil, fmt.Errorf("new: size %v must exceed history %v", size,
			history)
	}
	if batchSize < 1 {
		return nil, fmt.Errorf("new: batch size must be positive, have(%v)",
			batchSize)
	}
	if height < 1 || width < 1 {
		return nil, fmt.Errorf("new: frames must be non-empty, have(%v x "+
			"%v)", height, width)
	}

	return &ReplayMemory{
		size:      size,
		height:    height,
		width:     width,
		history:   history,
		batchSize: batchSize,
		actions:   make([]int, size),
		rewards:   make([]float64, size),
		frames:    make([]uint8, size*height*width),
		terminals: make([]bool, size),
		rng:       rand.New(rand.NewSource(seed)),
	}, nil
}

// AddExperience stores a single transition: the action taken, the
// processed frame that resulted, the reward received, and whether the
// step was terminal. The oldest transition is overwritten once the
// memory is full.
func (r *ReplayMemory) AddExperience(action int, frame []uint8,
	reward float64, terminal bool) error {
	frameSize := r.height * r.width
	if len(frame) != frameSize {
		return fmt.Errorf("addExperience: dimension of frame is wrong "+
			"\n\twant(%v) \n\thave(%v)", frameSize, len(frame))
	}

	r.actions[r.current] = action
	copy(r.frames[r.current*frameSize:(r.current+1)*frameSize], frame)
	r.rewards[r.current] = reward
	r.terminals[r.current] = terminal

	if r.current+1 > r.count {
		r.count = r.current + 1
	}
	r.current = (r.current + 1) % r.size
	return nil
}

// Count returns the number of transitions stored
func (r *ReplayMemory) Count() int {
	return r.count
}

// MaxCount returns the maximum number of transitions that can be
// stored
func (r *ReplayMemory) MaxCount() int {
	return r.size
}

// BatchSize returns the number of transitions in each minibatch
func (r *ReplayMemory) BatchSize() int {
	return r.batchSize
}

// History returns the number of frames in each state
func (r *ReplayMemory) History() int {
	return r.history
}

// StateSize returns the number of values in each state
func (r *ReplayMemory) StateSize() int {
	return r.history * r.height * r.width
}

// state writes the state ending at frame index into dst, scaled to
// [0, 1]
func (r *ReplayMemory) state(index int, dst []float64) error {
	if r.count == 0 {
		return &ExpReplayError{Op: "state", Err: errEmptyCache}
	}
	if index < r.history-1 {
		return fmt.Errorf("state: index must be at least %v, have(%v)",
			r.history-1, index)
	}

	frameSize := r.height * r.width
	start := (index - r.history + 1) * frameSize
	for i, pixel := range r.frames[start : (index+1)*frameSize] {
		dst[i] = float64(pixel) / 255.0
	}
	return nil
}

// validIndices draws batchSize indices uniformly at random. Each index
// is such that the state ending just before it and the state ending at
// it are both well-defined: the index lies in [history, count-1], the
// states do not straddle the write pointer, and no episode ends within
// the history window preceding the index.
func (r *ReplayMemory) validIndices() ([]int, error) {
	indices := make([]int, r.batchSize)
	for i := range indices {
		found := false
		for attempt := 0; attempt < maxSampleAttempts; attempt++ {
			index := r.history + r.rng.Intn(r.count-r.history)

			if index >= r.current && index-r.history <= r.current {
				continue
			}
			if r.anyTerminal(index-r.history, index) {
				continue
			}

			indices[i] = index
			found = true
			break
		}
		if !found {
			return nil, &ExpReplayError{Op: "validIndices",
				Err: errInsufficientSamples}
		}
	}
	return indices, nil
}

// anyTerminal returns whether any terminal flag is set in [start, end)
func (r *ReplayMemory) anyTerminal(start, end int) bool {
	for _, terminal := range r.terminals[start:end] {
		if terminal {
			return true
		}
	}
	return false
}

// Minibatch returns a minibatch of BatchSize() transitions sampled
// uniformly from the memory. An *ExpReplayError satisfying
// IsInsufficientSamples is returned if the memory does not yet hold
// enough frames to build a single transition, or if no valid index
// was found within maxSampleAttempts draws.
func (r *ReplayMemory) Minibatch() (Batch, error) {
	if r.count == 0 {
		return Batch{}, &ExpReplayError{Op: "minibatch", Err: errEmptyCache}
	}
	if r.count <= r.history {
		return Batch{}, &ExpReplayError{Op: "minibatch",
			Err: errInsufficientSamples}
	}

	indices, err := r.validIndices()
	if err != nil {
		return Batch{}, err
	}

	stateSize := r.StateSize()
	batch := Batch{
		States:     make([]float64, r.batchSize*stateSize),
		NextStates: make([]float64, r.batchSize*stateSize),
		Actions:    make([]int, r.batchSize),
		Rewards:    make([]float64, r.batchSize),
		Terminals:  make([]float64, r.batchSize),
	}

	for i, index := range indices {
		start, end := i*stateSize, (i+1)*stateSize
		if err := r.state(index-1, batch.States[start:end]); err != nil {
			return Batch{}, fmt.Errorf("minibatch: %v", err)
		}
		if err := r.state(index, batch.NextStates[start:end]); err != nil {
			return Batch{}, fmt.Errorf("minibatch: %v", err)
		}

		batch.Actions[i] = r.actions[index]
		batch.Rewards[i] = r.rewards[index]
		if r.terminals[index] {
			batch.Terminals[i] = 1
		}
	}

	return batch, nil
}
