// Package network implements the convolutional Q-networks used by the
// deep Q-learning agents, built on Gorgonia computational graphs.
package network

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// NeuralNet is a Q-network over stacked frames. Each NeuralNet owns
// its computational graph; reading Output(), Value(), or Advantage()
// requires running a VM over Graph() after SetInput().
type NeuralNet interface {
	Graph() *G.ExprGraph
	CloneWithBatch(int) (NeuralNet, error)
	BatchSize() int
	Features() int
	Outputs() int
	SetInput([]float64) error
	Set(NeuralNet) error
	Polyak(NeuralNet, float64) error
	Learnables() G.Nodes
	Model() []G.ValueGrad
	Prediction() *G.Node
	Output() G.Value
	Value() G.Value
	Advantage() G.Value
}

// ToMatrix converts a batched network output into a matrix with one
// row per sample in the batch.
func ToMatrix(v G.Value, rows, cols int) (*mat.Dense, error) {
	if v == nil {
		return nil, fmt.Errorf("toMatrix: value has not been computed")
	}
	data, ok := v.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("toMatrix: expected []float64 data but got "+
			"%T", v.Data())
	}
	if len(data) != rows*cols {
		return nil, fmt.Errorf("toMatrix: cannot reshape %v values to "+
			"(%v, %v)", len(data), rows, cols)
	}
	backing := make([]float64, len(data))
	copy(backing, data)
	return mat.NewDense(rows, cols, backing), nil
}

// QValues returns the last computed action values of net as a matrix
// of shape (net.BatchSize(), net.Outputs()).
func QValues(net NeuralNet) (*mat.Dense, error) {
	return ToMatrix(net.Output(), net.BatchSize(), net.Outputs())
}

// BestActions returns the row-wise arg-max of q. Ties are broken in
// favour of the lowest index.
func BestActions(q mat.Matrix) []int {
	rows, cols := q.Dims()
	actions := make([]int, rows)
	for i := 0; i < rows; i++ {
		best := 0
		for j := 1; j < cols; j++ {
			if q.At(i, j) > q.At(i, best) {
				best = j
			}
		}
		actions[i] = best
	}
	return actions
}

// set sets each learnable of dest to a copy of the index-aligned
// learnable of source.
func set(dest, source G.Nodes) error {
	if len(dest) != len(source) {
		return fmt.Errorf("set: number of learnables differ \n\twant(%v) "+
			"\n\thave(%v)", len(dest), len(source))
	}
	for i := range dest {
		if !dest[i].Shape().Eq(source[i].Shape()) {
			return fmt.Errorf("set: shape mismatch at learnable %v (%v) "+
				"\n\twant(%v) \n\thave(%v)", i, dest[i].Name(),
				dest[i].Shape(), source[i].Shape())
		}
		value, ok := source[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("set: learnable %v (%v) has no dense value",
				i, source[i].Name())
		}
		if err := G.Let(dest[i], value.Clone().(*tensor.Dense)); err != nil {
			return fmt.Errorf("set: could not set learnable %v: %v", i, err)
		}
	}
	return nil
}

// polyak sets each learnable of dest to the polyak average
// (1 - tau) * dest + tau * source.
func polyak(dest, source G.Nodes, tau float64) error {
	if len(dest) != len(source) {
		return fmt.Errorf("polyak: number of learnables differ \n\twant(%v) "+
			"\n\thave(%v)", len(dest), len(source))
	}
	for i := range dest {
		weights, ok := dest[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("polyak: learnable %v has no dense value", i)
		}
		sourceWeights, ok := source[i].Value().(*tensor.Dense)
		if !ok {
			return fmt.Errorf("polyak: learnable %v has no dense value", i)
		}
		if !weights.Shape().Eq(sourceWeights.Shape()) {
			return fmt.Errorf("polyak: shape mismatch at learnable %v "+
				"\n\twant(%v) \n\thave(%v)", i, weights.Shape(),
				sourceWeights.Shape())
		}

		weights, err := weights.MulScalar(1-tau, true)
		if err != nil {
			return err
		}

		sourceWeights, err = sourceWeights.MulScalar(tau, true)
		if err != nil {
			return err
		}

		newWeights, err := weights.Add(sourceWeights)
		if err != nil {
			return err
		}

		if err := G.Let(dest[i], newWeights); err != nil {
			return err
		}
	}
	return nil
}
