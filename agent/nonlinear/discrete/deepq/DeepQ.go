// Package deepq implements Dueling Double DQN: deep Q-learning with a
// dueling convolutional Q-network, an experience replay memory, a
// periodically updated target network, and double Q-learning targets.
package deepq

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/ddqn/agent"
	"github.com/samuelfneumann/ddqn/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/ddqn/expreplay"
	"github.com/samuelfneumann/ddqn/network"
	"github.com/samuelfneumann/ddqn/solver"
	ts "github.com/samuelfneumann/ddqn/timestep"
	"github.com/samuelfneumann/ddqn/utils/floatutils"
	"github.com/samuelfneumann/ddqn/utils/op"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DeepQ implements the Dueling Double DQN algorithm.
//
// Four copies of the Q-network are kept, each on its own graph. The
// training network takes batches of states and is the only network
// whose weights are adapted by the solver. The selection network is a
// copy of the training network used to select greedy next actions for
// the update target, and the acting network is a copy with batch size
// 1 used to select actions in the environment. Both are synchronised
// with the training network after each gradient step. The target
// network evaluates next actions and is only updated on target updates.
type DeepQ struct {
	config     Config
	numActions int

	// Online network whose weights are adapted
	trainNet        *network.DuelingQ
	trainNetVM      G.VM
	solver          *solver.Solver
	selectedActions *G.Node // One-hot actions taken in the batch
	updateTargets   *G.Node
	loss            *G.Node
	lossVal         G.Value

	// Online network used to select next actions for the update target
	selectNet   network.NeuralNet
	selectNetVM G.VM

	// Target network evaluating next actions for the update target
	targetNet     network.NeuralNet
	targetNetVM   G.VM
	targetUpdater *TargetUpdater

	// Online network used for acting
	actNet   network.NeuralNet
	actNetVM G.VM

	replay *expreplay.ReplayMemory
	policy *policy.EGreedy

	gradientSteps int
	targetUpdates int
}

// New creates and returns a new DeepQ agent acting over numActions
// actions.
func New(c Config, numActions int, seed uint64) (*DeepQ, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	c.Exploration.ReplayStartSize = c.ReplayStartSize

	batchSize := c.BatchSize
	g := G.NewGraph()
	trainNet, err := network.NewDuelingQ(c.Network, numActions, batchSize, g)
	if err != nil {
		return nil, fmt.Errorf("new: could not create training network: %v",
			err)
	}

	// Compute the Huber loss between the predicted values of the
	// actions taken and the update targets
	selectedActions := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithName("actionSelected"),
		G.WithShape(batchSize, numActions),
		G.WithInit(G.Zeroes()),
	)
	updateTargets := G.NewVector(
		g,
		tensor.Float64,
		G.WithName("updateTarget"),
		G.WithShape(batchSize),
		G.WithInit(G.Zeroes()),
	)
	selectedActionsValue := G.Must(G.HadamardProd(trainNet.Prediction(),
		selectedActions))
	selectedActionsValue = G.Must(G.Sum(selectedActionsValue, 1))

	loss, err := op.Huber(selectedActionsValue, updateTargets, c.HuberDelta)
	if err != nil {
		return nil, fmt.Errorf("new: could not compute loss: %v", err)
	}

	d := &DeepQ{
		config:          c,
		numActions:      numActions,
		trainNet:        trainNet,
		solver:          c.Solver,
		selectedActions: selectedActions,
		updateTargets:   updateTargets,
		loss:            loss,
	}
	G.Read(d.loss, &d.lossVal)

	if _, err = G.Grad(loss, trainNet.Learnables()...); err != nil {
		msg := fmt.Sprintf("new: could not compute gradient: %v", err)
		panic(msg)
	}
	d.trainNetVM = G.NewTapeMachine(
		g,
		G.BindDualValues(trainNet.Learnables()...),
	)

	// Create the clones of the online network
	if d.selectNet, err = trainNet.CloneWithBatch(batchSize); err != nil {
		return nil, fmt.Errorf("new: could not create selection network: %v",
			err)
	}
	d.selectNetVM = G.NewTapeMachine(d.selectNet.Graph())

	if d.targetNet, err = trainNet.CloneWithBatch(batchSize); err != nil {
		return nil, fmt.Errorf("new: could not create target network: %v",
			err)
	}
	d.targetNetVM = G.NewTapeMachine(d.targetNet.Graph())

	d.targetUpdater, err = NewTargetUpdater(trainNet, d.targetNet, c.Tau)
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if d.actNet, err = trainNet.CloneWithBatch(1); err != nil {
		return nil, fmt.Errorf("new: could not create acting network: %v",
			err)
	}
	d.actNetVM = G.NewTapeMachine(d.actNet.Graph())

	d.replay, err = expreplay.New(c.MemorySize, c.Network.Height,
		c.Network.Width, c.Network.History, batchSize, seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create replay memory: %v", err)
	}

	d.policy, err = policy.NewEGreedy(c.Exploration, numActions, seed+1)
	if err != nil {
		return nil, fmt.Errorf("new: could not create policy: %v", err)
	}

	return d, nil
}

// Config returns the configuration of the agent
func (d *DeepQ) Config() Config {
	return d.config
}

// NumActions returns the number of actions the agent selects between
func (d *DeepQ) NumActions() int {
	return d.numActions
}

// Online returns the online network whose weights are learned
func (d *DeepQ) Online() network.NeuralNet {
	return d.trainNet
}

// Target returns the target network
func (d *DeepQ) Target() network.NeuralNet {
	return d.targetNet
}

// Replay returns the replay memory of the agent
func (d *DeepQ) Replay() *expreplay.ReplayMemory {
	return d.replay
}

// Policy returns the exploration policy of the agent
func (d *DeepQ) Policy() *policy.EGreedy {
	return d.policy
}

// GradientSteps returns the number of gradient steps taken so far
func (d *DeepQ) GradientSteps() int {
	return d.gradientSteps
}

// Observe stores the transition to a new step in the replay memory.
// The frame of step is the processed frame that resulted from taking
// action, and step.LifeLost is stored as the terminal flag so that
// losing a life ends bootstrapping.
func (d *DeepQ) Observe(action int, step ts.TimeStep) error {
	if action < 0 || action >= d.numActions {
		return fmt.Errorf("observe: action %v out of range [0, %v)", action,
			d.numActions)
	}
	if step.First() {
		fmt.Fprintf(os.Stderr, "Warning: Observe() should not be called "+
			"on the first timestep (current timestep = %d)\n", step.Number)
	}

	reward := step.Reward
	if d.config.ClipRewards {
		reward = floatutils.Sign(reward)
	}

	if err := d.replay.AddExperience(action, step.Observation, reward,
		step.LifeLost); err != nil {
		return fmt.Errorf("observe: %v", err)
	}
	return nil
}

// Step performs the updates scheduled for the given frame number. Once
// more than ReplayStartSize frames have been seen, a gradient step is
// taken every UpdateFreq frames and the target network is updated
// every TargetUpdateFreq frames.
func (d *DeepQ) Step(frame int) (agent.Update, error) {
	var update agent.Update
	if frame <= d.config.ReplayStartSize {
		return update, nil
	}

	if frame%d.config.UpdateFreq == 0 {
		loss, err := d.Learn()
		switch {
		case expreplay.IsInsufficientSamples(err), expreplay.IsEmptyBuffer(err):
			// Not enough experience yet
		case err != nil:
			return update, fmt.Errorf("step: %v", err)
		default:
			update.Learned = true
			update.Loss = loss
		}
	}

	if frame%d.config.TargetUpdateFreq == 0 {
		if err := d.UpdateTarget(); err != nil {
			return update, fmt.Errorf("step: %v", err)
		}
		update.TargetUpdated = true
	}

	return update, nil
}

// Learn draws a minibatch from the replay memory and takes a single
// gradient step on the online network, returning the loss of the
// minibatch. Errors from the replay memory are returned unchanged, so
// that expreplay.IsInsufficientSamples() can be used to detect that
// the memory could not yet be sampled.
func (d *DeepQ) Learn() (float64, error) {
	batch, err := d.replay.Minibatch()
	if err != nil {
		return 0, err
	}

	selectQ, evalQ, err := d.nextActionValues(batch.NextStates)
	if err != nil {
		return 0, fmt.Errorf("learn: %v", err)
	}

	targets, err := Targets(batch.Rewards, batch.Terminals, selectQ, evalQ,
		d.config.Discount)
	if err != nil {
		return 0, fmt.Errorf("learn: %v", err)
	}

	return d.train(batch.States, batch.Actions, targets)
}

// nextActionValues returns the next-state action values used to
// select and to evaluate the greedy next action
func (d *DeepQ) nextActionValues(nextStates []float64) (selectQ,
	evalQ *mat.Dense, err error) {
	selectQ, err = predict(d.selectNet, d.selectNetVM, nextStates)
	if err != nil {
		return nil, nil, fmt.Errorf("could not predict with online "+
			"network: %v", err)
	}

	switch d.config.Mode {
	case SingleNetwork:
		evalQ = selectQ

	default:
		evalQ, err = predict(d.targetNet, d.targetNetVM, nextStates)
		if err != nil {
			return nil, nil, fmt.Errorf("could not predict with target "+
				"network: %v", err)
		}
	}
	return selectQ, evalQ, nil
}

// train takes a single gradient step on the online network towards
// the targets for the actions taken in states
func (d *DeepQ) train(states []float64, actions []int,
	targets []float64) (float64, error) {
	batchSize := d.config.BatchSize
	oneHot := make([]float64, batchSize*d.numActions)
	for i, action := range actions {
		oneHot[i*d.numActions+action] = 1.0
	}

	actionTensor := tensor.New(
		tensor.WithShape(batchSize, d.numActions),
		tensor.WithBacking(oneHot),
	)
	if err := G.Let(d.selectedActions, actionTensor); err != nil {
		return 0, fmt.Errorf("train: could not set actions: %v", err)
	}

	targetTensor := tensor.New(
		tensor.WithShape(batchSize),
		tensor.WithBacking(targets),
	)
	if err := G.Let(d.updateTargets, targetTensor); err != nil {
		return 0, fmt.Errorf("train: could not set targets: %v", err)
	}

	if err := d.trainNet.SetInput(states); err != nil {
		return 0, fmt.Errorf("train: could not set input: %v", err)
	}

	if err := d.trainNetVM.RunAll(); err != nil {
		d.trainNetVM.Reset()
		return 0, fmt.Errorf("train: could not run training graph: %v", err)
	}
	if err := d.solver.Step(d.trainNet.Model()); err != nil {
		d.trainNetVM.Reset()
		return 0, fmt.Errorf("train: could not step solver: %v", err)
	}
	loss := d.lossVal.Data().(float64)
	d.trainNetVM.Reset()
	d.gradientSteps++

	if err := d.syncOnline(); err != nil {
		return 0, fmt.Errorf("train: %v", err)
	}

	return loss, nil
}

// syncOnline copies the weights of the training network into the
// other online networks
func (d *DeepQ) syncOnline() error {
	if err := d.selectNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("could not sync selection network: %v", err)
	}
	if err := d.actNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("could not sync acting network: %v", err)
	}
	return nil
}

// UpdateTarget updates the target network towards the online network
func (d *DeepQ) UpdateTarget() error {
	if err := d.targetUpdater.Update(); err != nil {
		return fmt.Errorf("updateTarget: %v", err)
	}
	d.targetUpdates++
	return nil
}

// SelectAction selects an action in a state, represented as stacked
// frames scaled to [0, 1], following the ε-greedy schedule at the
// given frame number.
func (d *DeepQ) SelectAction(frame int, state []float64,
	eval bool) (int, error) {
	return d.policy.SelectAction(frame, state, eval, d)
}

// BestAction returns the greedy action in state, breaking ties in favour
// of the lowest action index.
func (d *DeepQ) BestAction(state []float64) (int, error) {
	q, err := predict(d.actNet, d.actNetVM, state)
	if err != nil {
		return 0, fmt.Errorf("bestAction: %v", err)
	}
	return network.BestActions(q)[0], nil
}

// ActionValues returns the online network's action values in state
func (d *DeepQ) ActionValues(state []float64) ([]float64, error) {
	q, err := predict(d.actNet, d.actNetVM, state)
	if err != nil {
		return nil, fmt.Errorf("actionValues: %v", err)
	}
	return q.RawRowView(0), nil
}

// Parameters returns copies of the online network's learnable
// parameters, keyed by node name
func (d *DeepQ) Parameters() map[string][]float64 {
	params := make(map[string][]float64)
	for _, node := range d.trainNet.Learnables() {
		data := node.Value().Data().([]float64)
		params[node.Name()] = append([]float64(nil), data...)
	}
	return params
}

// Save saves the online network to a file
func (d *DeepQ) Save(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("save: could not create file: %v", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(d.trainNet); err != nil {
		return fmt.Errorf("save: could not encode network: %v", err)
	}
	return nil
}

// Load restores the online network from a file written by Save and
// synchronises the target network and all online copies with it.
func (d *DeepQ) Load(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("load: could not open file: %v", err)
	}
	defer file.Close()

	loaded := &network.DuelingQ{}
	if err := gob.NewDecoder(file).Decode(loaded); err != nil {
		return fmt.Errorf("load: could not decode network: %v", err)
	}

	if err := d.trainNet.Set(loaded); err != nil {
		return fmt.Errorf("load: incompatible network: %v", err)
	}
	if err := d.syncOnline(); err != nil {
		return fmt.Errorf("load: %v", err)
	}
	if err := d.targetNet.Set(d.trainNet); err != nil {
		return fmt.Errorf("load: could not sync target network: %v", err)
	}
	return nil
}

// Close closes all VMs of the agent
func (d *DeepQ) Close() error {
	for _, vm := range []G.VM{d.trainNetVM, d.selectNetVM, d.targetNetVM,
		d.actNetVM} {
		if err := vm.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}

// predict runs net on input and returns its action values
func predict(net network.NeuralNet, vm G.VM, input []float64) (*mat.Dense,
	error) {
	if err := net.SetInput(input); err != nil {
		return nil, err
	}
	defer vm.Reset()

	if err := vm.RunAll(); err != nil {
		return nil, err
	}
	return network.QValues(net)
}
