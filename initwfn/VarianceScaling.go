package initwfn

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// VarianceScalingConfig implements a configuration of a truncated
// normal weight initializer whose standard deviation is
// sqrt(Scale / fanIn). With a scale of 2 this is the He initialization
// used for ReLU networks.
//
// The fan-in is computed for the two weight layouts used in this
// module: (in, out) matrices of dense layers and (out, in, kh, kw)
// convolution filters.
type VarianceScalingConfig struct {
	Scale float64
	Seed  uint64
}

// NewVarianceScaling returns a new variance scaling weight initializer.
func NewVarianceScaling(scale float64, seed uint64) (*InitWFn, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("newVarianceScaling: scale must be "+
			"positive, have(%v)", scale)
	}
	config := VarianceScalingConfig{
		Scale: scale,
		Seed:  seed,
	}

	return newInitWFn(config)
}

// Type returns the type of initialization algorithm described by
// the configuration.
func (v VarianceScalingConfig) Type() Type {
	return VarianceScaling
}

// Create returns the weight initialization algorithm as a Gorgonia
// InitWFn. Every InitWFn created shares a single random stream so
// that successive layers receive different weights.
func (v VarianceScalingConfig) Create() G.InitWFn {
	rng := rand.New(rand.NewSource(v.Seed))

	return func(dt tensor.Dtype, s ...int) interface{} {
		size := tensor.Shape(s).TotalSize()
		std := math.Sqrt(v.Scale / float64(FanIn(s...)))

		// Truncated at two standard deviations, corrected so that the
		// truncated distribution keeps the requested variance
		std /= 0.87962566103423978

		switch dt {
		case tensor.Float64:
			weights := make([]float64, size)
			for i := range weights {
				weights[i] = truncatedNormal(rng) * std
			}
			return weights

		case tensor.Float32:
			weights := make([]float32, size)
			for i := range weights {
				weights[i] = float32(truncatedNormal(rng) * std)
			}
			return weights

		default:
			panic(fmt.Sprintf("varianceScaling: dtype %v not supported", dt))
		}
	}
}

// FanIn returns the number of inputs connected to each output unit
// of a weight tensor of the given shape
func FanIn(s ...int) int {
	switch len(s) {
	case 0:
		return 1
	case 1:
		return s[0]
	case 2:
		return s[0]
	default:
		fanIn := s[1]
		for _, dim := range s[2:] {
			fanIn *= dim
		}
		return fanIn
	}
}

// truncatedNormal samples a standard normal variate, resampling until
// it lies within two standard deviations of the mean
func truncatedNormal(rng *rand.Rand) float64 {
	for {
		if x := rng.NormFloat64(); math.Abs(x) <= 2 {
			return x
		}
	}
}
