package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights of a new fully connected layer to the
// graph g
func newFCLayer(g *G.ExprGraph, in, out int, bias bool, act *Activation,
	init G.InitWFn, name string) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"_W"),
		G.WithInit(init),
	)

	var b *G.Node
	if bias {
		b = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(1, out),
			G.WithName(name+"_b"),
			G.WithInit(G.Zeroes()),
		)
	}

	return &fcLayer{weights: weights, bias: b, act: act}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}
	if f.bias != nil {
		// Broadcast the bias weights to all samples along the batch
		// dimension
		x, err = G.BroadcastAdd(x, f.bias, nil, []byte{0})
		if err != nil {
			return nil, fmt.Errorf("fwd: %v", err)
		}
	}
	if f.act == nil || f.act.IsIdentity() {
		return x, nil
	}
	return f.act.fwd(x)
}

func (f *fcLayer) learnables() G.Nodes {
	if f.bias == nil {
		return G.Nodes{f.weights}
	}
	return G.Nodes{f.weights, f.bias}
}

// convLayer implements a square convolution with valid padding and no
// bias
type convLayer struct {
	filter *G.Node
	ConvConfig
	act *Activation
}

// newConvLayer adds the filter of a new convolution layer to the graph
// g. The filter has shape (filters, inChannels, kernel, kernel).
func newConvLayer(g *G.ExprGraph, inChannels int, c ConvConfig,
	act *Activation, init G.InitWFn, name string) *convLayer {
	filter := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(c.Filters, inChannels, c.Kernel, c.Kernel),
		G.WithName(name+"_filter"),
		G.WithInit(init),
	)

	return &convLayer{filter: filter, ConvConfig: c, act: act}
}

// fwd adds the forward pass of the convLayer to the computational graph
func (c *convLayer) fwd(x *G.Node) (*G.Node, error) {
	x, err := G.Conv2d(
		x,
		c.filter,
		tensor.Shape{c.Kernel, c.Kernel},
		[]int{0, 0},
		[]int{c.Stride, c.Stride},
		[]int{1, 1},
	)
	if err != nil {
		return nil, fmt.Errorf("fwd: %v", err)
	}
	if c.act == nil || c.act.IsIdentity() {
		return x, nil
	}
	return c.act.fwd(x)
}
