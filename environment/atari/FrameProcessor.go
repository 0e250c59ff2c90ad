package atari

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// ProcessorConfig describes how raw frames are preprocessed. Raw
// frames are converted to greyscale, cropped to the square of side
// CropSize whose top edge lies CropTop rows below the top of the frame,
// and resized with nearest neighbour interpolation to Height x Width.
type ProcessorConfig struct {
	CropTop  int
	CropSize int
	Height   int
	Width    int
}

// DefaultProcessorConfig returns the preprocessing used for Atari
// frames of 210 x 160 pixels
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		CropTop:  34,
		CropSize: 160,
		Height:   84,
		Width:    84,
	}
}

// Validate returns an error if the configuration is invalid
func (c ProcessorConfig) Validate() error {
	if c.CropTop < 0 {
		return fmt.Errorf("validate: crop offset must be non-negative, "+
			"have(%v)", c.CropTop)
	}
	if c.CropSize <= 0 || c.Height <= 0 || c.Width <= 0 {
		return fmt.Errorf("validate: frame sizes must be positive "+
			"\n\tcrop(%v) \n\toutput(%v x %v)", c.CropSize, c.Height, c.Width)
	}
	return nil
}

// FrameProcessor converts raw frames into the frames seen by an agent
type FrameProcessor struct {
	config ProcessorConfig
	dst    *image.Gray
}

// NewFrameProcessor returns a new FrameProcessor
func NewFrameProcessor(c ProcessorConfig) (*FrameProcessor, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newFrameProcessor: %v", err)
	}
	return &FrameProcessor{
		config: c,
		dst:    image.NewGray(image.Rect(0, 0, c.Width, c.Height)),
	}, nil
}

// Height returns the height of processed frames
func (f *FrameProcessor) Height() int {
	return f.config.Height
}

// Width returns the width of processed frames
func (f *FrameProcessor) Width() int {
	return f.config.Width
}

// Process returns the processed frame as Height x Width grey values in
// row-major order. The returned slice is owned by the caller.
func (f *FrameProcessor) Process(frame image.Image) ([]uint8, error) {
	bounds := frame.Bounds()
	crop := image.Rect(
		bounds.Min.X,
		bounds.Min.Y+f.config.CropTop,
		bounds.Min.X+f.config.CropSize,
		bounds.Min.Y+f.config.CropTop+f.config.CropSize,
	)
	if !crop.In(bounds) {
		return nil, fmt.Errorf("process: crop %v exceeds frame bounds %v",
			crop, bounds)
	}

	// Nearest neighbour sampling commutes with the per-pixel greyscale
	// conversion, which the Gray destination performs
	draw.NearestNeighbor.Scale(f.dst, f.dst.Bounds(), frame, crop, draw.Src,
		nil)

	out := make([]uint8, f.config.Height*f.config.Width)
	for y := 0; y < f.config.Height; y++ {
		row := f.dst.Pix[y*f.dst.Stride : y*f.dst.Stride+f.config.Width]
		copy(out[y*f.config.Width:], row)
	}
	return out, nil
}
