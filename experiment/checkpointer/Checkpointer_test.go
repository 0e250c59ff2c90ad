package checkpointer

import (
	"os"
	"path/filepath"
	"testing"
)

type fileSaver struct {
	saved []string
}

func (f *fileSaver) Save(filename string) error {
	f.saved = append(f.saved, filename)
	return os.WriteFile(filename, []byte("checkpoint"), 0o644)
}

func TestNStep(t *testing.T) {
	dir := t.TempDir()
	saver := &fileSaver{}
	c, err := NewNStep(100, saver, FrameFilename(dir, "model"))
	if err != nil {
		t.Fatalf("newNStep: %v", err)
	}

	for _, frame := range []int{0, 50, 120, 150, 250} {
		if err := c.Checkpoint(frame); err != nil {
			t.Fatalf("checkpoint %v: %v", frame, err)
		}
	}

	want := []string{
		filepath.Join(dir, "model-0.gob"),
		filepath.Join(dir, "model-120.gob"),
		filepath.Join(dir, "model-250.gob"),
	}
	if len(saver.saved) != len(want) {
		t.Fatalf("checkpoint: want(%v) have(%v)", want, saver.saved)
	}
	for i := range want {
		if saver.saved[i] != want[i] {
			t.Errorf("checkpoint %v: want(%v) have(%v)", i, want[i],
				saver.saved[i])
		}
	}

	if _, err := NewNStep(0, saver, FrameFilename(dir, "model")); err == nil {
		t.Errorf("newNStep: expected error for zero interval")
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	if _, _, err := Latest(dir, "model"); err == nil {
		t.Errorf("latest: expected error for empty directory")
	}

	for _, name := range []string{"model-99.gob", "model-1000.gob",
		"model-200.gob", "other-5000.gob", "model-final.gob",
		"model-3000.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil,
			0o644); err != nil {
			t.Fatal(err)
		}
	}

	filename, frame, err := Latest(dir, "model")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if frame != 1000 {
		t.Errorf("latest: want frame(1000) have(%v)", frame)
	}
	if want := filepath.Join(dir, "model-1000.gob"); filename != want {
		t.Errorf("latest: want(%v) have(%v)", want, filename)
	}
}
