// Package checkpointer implements checkpointers, which periodically
// save objects during an experiment
package checkpointer

// Saver is an object that can be saved to a file
type Saver interface {
	Save(filename string) error
}

// Checkpointer checkpoints/saves objects based on the number of frames
// seen in an experiment
type Checkpointer interface {
	Checkpoint(frame int) error
}
