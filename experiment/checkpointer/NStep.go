package checkpointer

import "fmt"

// nStep implements checkpointing every N frames
type nStep struct {
	interval  int
	lastSaved int
	object    Saver // Object to save

	// filename returns the string filename of the file to save the object
	// in at a given frame.
	//
	// If each checkpoint should be saved in a separate file named by
	// the frame number (e.g. model-1000.gob, model-2000.gob), then
	// simply use the static function FrameFilename.
	filename func(frame int) string
}

// NewNStep returns a checkpointer that checkpoints whenever at least n
// frames have passed since the last checkpoint. The first call to
// Checkpoint always saves the object.
func NewNStep(n int, object Saver,
	filename func(frame int) string) (Checkpointer, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive, "+
			"have(%v)", n)
	}
	return &nStep{
		interval:  n,
		lastSaved: -n,
		object:    object,
		filename:  filename,
	}, nil
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method
func (n *nStep) Checkpoint(frame int) error {
	if frame-n.lastSaved < n.interval {
		return nil
	}
	if err := n.object.Save(n.filename(frame)); err != nil {
		return fmt.Errorf("checkpoint: %v", err)
	}
	n.lastSaved = frame
	return nil
}
