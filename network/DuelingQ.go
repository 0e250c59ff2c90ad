package network

import (
	"bytes"
	"encoding/gob"
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DuelingQ implements the dueling convolutional Q-network of Wang et
// al. (2016). A convolutional trunk maps a stack of frames to a feature
// volume which is split along its channels into a value stream and an
// advantage stream. The value head predicts V(s), the advantage head
// predicts A(s, a) for each action, and the two are combined as
//
//	Q(s, a) = V(s) + (A(s, a) - mean_a' A(s, a'))
//
// The split is realised by giving the final convolution two filter
// banks of half the configured filters each, which is equivalent to a
// single convolution followed by a channel split since the convolution
// has no bias and the activation is elementwise.
type DuelingQ struct {
	g          *G.ExprGraph
	config     Config
	numActions int
	batchSize  int

	input      *G.Node
	trunk      []*convLayer
	valueConv  *convLayer
	advConv    *convLayer
	valueHead  *fcLayer
	advHead    *fcLayer
	learnables G.Nodes
	model      []G.ValueGrad

	value      *G.Node
	advantage  *G.Node
	prediction *G.Node

	// Read targets live behind a pointer so that copies of a DuelingQ
	// observe the values computed on the graph
	out *outputs
}

// outputs holds the values read back from the graph of a DuelingQ
type outputs struct {
	value, advantage, prediction G.Value
}

// NewDuelingQ creates a new dueling Q-network with numActions outputs,
// taking batches of batch states as input. The graph g is populated
// with the network.
func NewDuelingQ(c Config, numActions, batch int,
	g *G.ExprGraph) (*DuelingQ, error) {
	if c.InitWFn == nil {
		return nil, fmt.Errorf("newDuelingQ: no weight initializer given")
	}
	return newDuelingQ(c, numActions, batch, g, c.InitWFn.InitWFn())
}

// newDuelingQ creates a new dueling Q-network with weights initialized
// by init.
func newDuelingQ(c Config, numActions, batch int, g *G.ExprGraph,
	init G.InitWFn) (*DuelingQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newDuelingQ: %v", err)
	}
	if numActions < 1 {
		return nil, fmt.Errorf("newDuelingQ: at least one action is "+
			"required, have(%v)", numActions)
	}
	if batch < 1 {
		return nil, fmt.Errorf("newDuelingQ: batch size must be positive, "+
			"have(%v)", batch)
	}
	if c.Activation == nil {
		c.Activation = ReLU()
	}

	input := G.NewTensor(
		g,
		tensor.Float64,
		4,
		G.WithShape(batch, c.History, c.Height, c.Width),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// Trunk layers, all but the final convolution
	inChannels := c.History
	last := len(c.Layers) - 1
	trunk := make([]*convLayer, 0, last)
	for i, layer := range c.Layers[:last] {
		trunk = append(trunk, newConvLayer(g, inChannels, layer,
			c.Activation, init, fmt.Sprintf("conv%d", i)))
		inChannels = layer.Filters
	}

	half := c.Layers[last]
	half.Filters /= 2
	valueConv := newConvLayer(g, inChannels, half, c.Activation, init,
		fmt.Sprintf("conv%d_value", last))
	advConv := newConvLayer(g, inChannels, half, c.Activation, init,
		fmt.Sprintf("conv%d_advantage", last))

	features := c.StreamFeatures()
	valueHead := newFCLayer(g, features, 1, true, Identity(), init, "value")
	advHead := newFCLayer(g, features, numActions, true, Identity(), init,
		"advantage")

	net := &DuelingQ{
		g:          g,
		config:     c,
		numActions: numActions,
		batchSize:  batch,
		input:      input,
		trunk:      trunk,
		valueConv:  valueConv,
		advConv:    advConv,
		valueHead:  valueHead,
		advHead:    advHead,
		out:        &outputs{},
	}

	if err := net.fwd(); err != nil {
		return nil, fmt.Errorf("newDuelingQ: could not compute forward "+
			"pass: %v", err)
	}
	return net, nil
}

// fwd adds the forward pass of the network to its graph
func (d *DuelingQ) fwd() error {
	x := d.input
	var err error
	for i, layer := range d.trunk {
		if x, err = layer.fwd(x); err != nil {
			return fmt.Errorf("fwd: could not compute layer %v: %v", i, err)
		}
	}

	valueStream, err := d.valueConv.fwd(x)
	if err != nil {
		return fmt.Errorf("fwd: could not compute value stream: %v", err)
	}
	advStream, err := d.advConv.fwd(x)
	if err != nil {
		return fmt.Errorf("fwd: could not compute advantage stream: %v", err)
	}

	features := d.config.StreamFeatures()
	valueStream, err = G.Reshape(valueStream, tensor.Shape{d.batchSize,
		features})
	if err != nil {
		return fmt.Errorf("fwd: could not flatten value stream: %v", err)
	}
	advStream, err = G.Reshape(advStream, tensor.Shape{d.batchSize, features})
	if err != nil {
		return fmt.Errorf("fwd: could not flatten advantage stream: %v", err)
	}

	value, err := d.valueHead.fwd(valueStream)
	if err != nil {
		return fmt.Errorf("fwd: could not compute value head: %v", err)
	}
	value, err = G.Reshape(value, tensor.Shape{d.batchSize})
	if err != nil {
		return fmt.Errorf("fwd: could not reshape value: %v", err)
	}

	advantage, err := d.advHead.fwd(advStream)
	if err != nil {
		return fmt.Errorf("fwd: could not compute advantage head: %v", err)
	}

	// Q = V + (A - mean(A)), broadcasting the per-sample scalars along
	// the action dimension
	meanAdv, err := G.Mean(advantage, 1)
	if err != nil {
		return fmt.Errorf("fwd: could not compute mean advantage: %v", err)
	}
	centred, err := G.BroadcastSub(advantage, meanAdv, nil, []byte{1})
	if err != nil {
		return fmt.Errorf("fwd: could not centre advantage: %v", err)
	}
	q, err := G.BroadcastAdd(centred, value, nil, []byte{1})
	if err != nil {
		return fmt.Errorf("fwd: could not combine streams: %v", err)
	}

	d.value = value
	d.advantage = advantage
	d.prediction = q

	G.Read(d.value, &d.out.value)
	G.Read(d.advantage, &d.out.advantage)
	G.Read(d.prediction, &d.out.prediction)

	return nil
}

// Graph returns the computational graph of the network
func (d *DuelingQ) Graph() *G.ExprGraph {
	return d.g
}

// Config returns the topology of the network
func (d *DuelingQ) Config() Config {
	return d.config
}

// CloneWithBatch clones the network onto a new graph with the given
// input batch size. The clone's weights are copies of the weights of
// d, and the two networks can subsequently be updated independently.
func (d *DuelingQ) CloneWithBatch(batch int) (NeuralNet, error) {
	clone, err := newDuelingQ(d.config, d.numActions, batch, G.NewGraph(),
		G.Zeroes())
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	if err := clone.Set(d); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %v", err)
	}
	return clone, nil
}

// BatchSize returns the batch size of inputs to the network
func (d *DuelingQ) BatchSize() int {
	return d.batchSize
}

// Features returns the number of features in a single state
func (d *DuelingQ) Features() int {
	return d.config.Features()
}

// Outputs returns the number of actions the network predicts values
// for
func (d *DuelingQ) Outputs() int {
	return d.numActions
}

// SetInput sets the value of the input node before running the forward
// pass. The input must be BatchSize() states laid out in (batch,
// history, height, width) order.
func (d *DuelingQ) SetInput(input []float64) error {
	if len(input) != d.Features()*d.batchSize {
		return fmt.Errorf("setInput: invalid number of inputs \n\twant(%v)"+
			"\n\thave(%v)", d.Features()*d.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(d.input.Shape()...),
	)
	return G.Let(d.input, inputTensor)
}

// Set sets the weights of d to be copies of the weights of source.
// The two networks must have the same topology, but may have different
// batch sizes.
func (d *DuelingQ) Set(source NeuralNet) error {
	return set(d.Learnables(), source.Learnables())
}

// Polyak sets the weights of d to the polyak average of its own
// weights and those of source: (1 - tau) * d + tau * source.
func (d *DuelingQ) Polyak(source NeuralNet, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("polyak: tau must be in [0, 1], have(%v)", tau)
	}
	return polyak(d.Learnables(), source.Learnables(), tau)
}

// Learnables returns the learnable nodes of the network. The order is
// fixed: trunk filters, value and advantage filters, then the value
// and advantage head weights and biases.
func (d *DuelingQ) Learnables() G.Nodes {
	if d.learnables == nil {
		learnables := make(G.Nodes, 0, len(d.trunk)+6)
		for _, layer := range d.trunk {
			learnables = append(learnables, layer.filter)
		}
		learnables = append(learnables, d.valueConv.filter, d.advConv.filter)
		learnables = append(learnables, d.valueHead.learnables()...)
		learnables = append(learnables, d.advHead.learnables()...)
		d.learnables = learnables
	}
	return d.learnables
}

// Model returns the learnables nodes with their gradients.
func (d *DuelingQ) Model() []G.ValueGrad {
	if d.model == nil {
		model := make([]G.ValueGrad, 0, len(d.Learnables()))
		for _, node := range d.Learnables() {
			model = append(model, node)
		}
		d.model = model
	}
	return d.model
}

// Prediction returns the node of the computational graph that stores
// the action values, of shape (batch, actions)
func (d *DuelingQ) Prediction() *G.Node {
	return d.prediction
}

// Output returns the last computed action values
func (d *DuelingQ) Output() G.Value {
	return d.out.prediction
}

// Value returns the last computed state values, of shape (batch)
func (d *DuelingQ) Value() G.Value {
	return d.out.value
}

// Advantage returns the last computed advantages, of shape
// (batch, actions)
func (d *DuelingQ) Advantage() G.Value {
	return d.out.advantage
}

// duelingQTopology is the gob-serializable description of a DuelingQ
// topology
type duelingQTopology struct {
	Height, Width, History int
	Layers                 []ConvConfig
	Activation             *Activation
	NumActions             int
	BatchSize              int
}

// GobEncode implements the gob.GobEncoder interface
func (d *DuelingQ) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)

	topology := duelingQTopology{
		Height:     d.config.Height,
		Width:      d.config.Width,
		History:    d.config.History,
		Layers:     d.config.Layers,
		Activation: d.config.Activation,
		NumActions: d.numActions,
		BatchSize:  d.batchSize,
	}
	if err := enc.Encode(topology); err != nil {
		return nil, fmt.Errorf("gobencode: could not encode topology: %v",
			err)
	}

	for i, learnable := range d.Learnables() {
		value, ok := learnable.Value().(*tensor.Dense)
		if !ok {
			return nil, fmt.Errorf("gobencode: learnable %v has no dense "+
				"value", i)
		}
		if err := enc.Encode(value); err != nil {
			return nil, fmt.Errorf("gobencode: could not encode learnable "+
				"%v: %v", i, err)
		}
	}

	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface
func (d *DuelingQ) GobDecode(in []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(in))

	var topology duelingQTopology
	if err := dec.Decode(&topology); err != nil {
		return fmt.Errorf("gobdecode: could not decode topology: %v", err)
	}

	config := Config{
		Height:     topology.Height,
		Width:      topology.Width,
		History:    topology.History,
		Layers:     topology.Layers,
		Activation: topology.Activation,
	}
	net, err := newDuelingQ(config, topology.NumActions, topology.BatchSize,
		G.NewGraph(), G.Zeroes())
	if err != nil {
		return fmt.Errorf("gobdecode: could not construct network: %v", err)
	}

	for i, learnable := range net.Learnables() {
		value := &tensor.Dense{}
		if err := dec.Decode(value); err != nil {
			return fmt.Errorf("gobdecode: could not decode learnable %v: %v",
				i, err)
		}
		if !value.Shape().Eq(learnable.Shape()) {
			return fmt.Errorf("gobdecode: learnable %v shape mismatch "+
				"\n\twant(%v) \n\thave(%v)", i, learnable.Shape(),
				value.Shape())
		}
		if err := G.Let(learnable, value); err != nil {
			return fmt.Errorf("gobdecode: could not set learnable %v: %v",
				i, err)
		}
	}

	*d = *net
	return nil
}
