package checkpointer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Extension of checkpoint files
const Extension = ".gob"

// FrameFilename returns a function which returns the filename of the
// checkpoint of model at a given frame: <dir>/<model>-<frame>.gob
func FrameFilename(dir, model string) func(frame int) string {
	return func(frame int) string {
		return filepath.Join(dir, fmt.Sprintf("%v-%d%v", model, frame,
			Extension))
	}
}

// Latest returns the filename and frame number of the checkpoint of
// model in dir with the highest frame number
func Latest(dir, model string) (string, int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", 0, fmt.Errorf("latest: could not read directory: %v", err)
	}

	prefix := model + "-"
	latest := -1
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) ||
			!strings.HasSuffix(name, Extension) {
			continue
		}

		number := strings.TrimSuffix(strings.TrimPrefix(name, prefix),
			Extension)
		frame, err := strconv.Atoi(number)
		if err != nil || frame < 0 {
			continue
		}
		if frame > latest {
			latest = frame
		}
	}

	if latest < 0 {
		return "", 0, fmt.Errorf("latest: no checkpoint of %v in %v", model,
			dir)
	}
	return FrameFilename(dir, model)(latest), latest, nil
}
