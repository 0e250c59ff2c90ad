package network

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/initwfn"
)

// ConvConfig describes a single square convolution with valid padding
type ConvConfig struct {
	Filters int
	Kernel  int
	Stride  int
}

// OutputSize returns the side length of the output of the convolution
// when applied to an input of side length size.
func (c ConvConfig) OutputSize(size int) int {
	if size < c.Kernel {
		return 0
	}
	return (size-c.Kernel)/c.Stride + 1
}

// Config describes the topology of a dueling convolutional Q-network.
//
// Inputs are stacks of History frames of size Height x Width. Each of
// Layers is applied in sequence, followed by the activation. The
// output of the final layer is split evenly along the channel axis
// into a value stream and an advantage stream, so its number of
// filters must be even.
type Config struct {
	Height, Width, History int
	Layers                 []ConvConfig
	Activation             *Activation
	InitWFn                *initwfn.InitWFn
}

// DefaultConfig returns the network of Wang et al. (2016) with a final
// convolution of hidden filters, for 84 x 84 frames stacked 4 deep.
func DefaultConfig(hidden int) Config {
	init, err := initwfn.NewVarianceScaling(2.0, 0)
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		Height:  84,
		Width:   84,
		History: 4,
		Layers: []ConvConfig{
			{Filters: 32, Kernel: 8, Stride: 4},
			{Filters: 64, Kernel: 4, Stride: 2},
			{Filters: 64, Kernel: 3, Stride: 1},
			{Filters: hidden, Kernel: 7, Stride: 1},
		},
		Activation: ReLU(),
		InitWFn:    init,
	}
}

// Features returns the number of inputs in a single state
func (c Config) Features() int {
	return c.History * c.Height * c.Width
}

// Validate returns an error if the Config does not describe a valid
// network.
func (c Config) Validate() error {
	if c.Height <= 0 || c.Width <= 0 || c.History <= 0 {
		return fmt.Errorf("validate: input dimensions must be positive, "+
			"have(%v x %v x %v)", c.History, c.Height, c.Width)
	}
	if len(c.Layers) == 0 {
		return fmt.Errorf("validate: at least one convolution is required")
	}

	for i, layer := range c.Layers {
		if layer.Filters <= 0 || layer.Kernel <= 0 || layer.Stride <= 0 {
			return fmt.Errorf("validate: layer %v has non-positive "+
				"dimensions %+v", i, layer)
		}
	}

	if f := c.Layers[len(c.Layers)-1].Filters; f%2 != 0 {
		return fmt.Errorf("validate: final layer must have an even number "+
			"of filters to split into value and advantage streams, have(%v)",
			f)
	}

	h, w, _ := c.OutputShape()
	if h <= 0 || w <= 0 {
		return fmt.Errorf("validate: convolutions reduce %v x %v input to "+
			"nothing", c.Height, c.Width)
	}
	return nil
}

// OutputShape returns the height, width, and number of channels of the
// output of the final convolution.
func (c Config) OutputShape() (height, width, channels int) {
	height, width, channels = c.Height, c.Width, c.History
	for _, layer := range c.Layers {
		height = layer.OutputSize(height)
		width = layer.OutputSize(width)
		channels = layer.Filters
	}
	return
}

// StreamFeatures returns the number of features flowing into each of
// the value and advantage heads.
func (c Config) StreamFeatures() int {
	h, w, ch := c.OutputShape()
	return h * w * ch / 2
}
