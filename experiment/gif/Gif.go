// Package gif renders recorded evaluation games as animated GIFs
package gif

import (
	"fmt"
	"image"
	"image/color"
	"image/color/palette"
	"image/gif"
	"os"
	"path/filepath"
	"strconv"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"
)

// Size of the frames of generated GIFs
const (
	Height = 420
	Width  = 320

	// Delay between frames in 100ths of a second
	Delay = 3
)

// Filename returns the name of the GIF of a game with the given reward
// evaluated at the given frame number
func Filename(frame int, reward float64) string {
	return fmt.Sprintf("ATARI_frame_%d_reward_%v.gif", frame,
		strconv.FormatFloat(reward, 'f', -1, 64))
}

// Generate writes the frames of a game to a GIF in dir and returns its
// filename. Frames are resized to Height x Width with nearest
// neighbour interpolation and the running score is drawn on each.
// scores holds the score after each frame and may be nil.
func Generate(frame int, frames []image.Image, scores []float64,
	reward float64, dir string) (string, error) {
	if len(frames) == 0 {
		return "", fmt.Errorf("generate: no frames given")
	}
	if scores != nil && len(scores) != len(frames) {
		return "", fmt.Errorf("generate: number of scores %v and frames %v "+
			"differ", len(scores), len(frames))
	}

	anim := &gif.GIF{
		Image: make([]*image.Paletted, len(frames)),
		Delay: make([]int, len(frames)),
	}
	for i, f := range frames {
		var score *float64
		if scores != nil {
			score = &scores[i]
		}
		anim.Image[i] = render(f, score)
		anim.Delay[i] = Delay
	}

	filename := filepath.Join(dir, Filename(frame, reward))
	file, err := os.Create(filename)
	if err != nil {
		return "", fmt.Errorf("generate: could not create file: %v", err)
	}
	defer file.Close()

	if err := gif.EncodeAll(file, anim); err != nil {
		return "", fmt.Errorf("generate: could not encode gif: %v", err)
	}
	return filename, nil
}

// render resizes a frame, draws score on it if given, and converts it
// to a paletted image
func render(frame image.Image, score *float64) *image.Paletted {
	dc := gg.NewContext(Width, Height)
	resized := dc.Image().(*image.RGBA)
	draw.NearestNeighbor.Scale(resized, resized.Bounds(), frame,
		frame.Bounds(), draw.Src, nil)

	if score != nil {
		dc.SetColor(color.White)
		dc.DrawStringAnchored(
			strconv.FormatFloat(*score, 'f', -1, 64),
			Width-8, 8, 1, 1,
		)
	}

	out := image.NewPaletted(image.Rect(0, 0, Width, Height), palette.Plan9)
	draw.Draw(out, out.Bounds(), dc.Image(), image.Point{}, draw.Src)
	return out
}
