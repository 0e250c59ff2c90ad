package network

import (
	"bytes"
	"encoding/gob"
	"math"
	"testing"

	"github.com/samuelfneumann/ddqn/initwfn"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	G "gorgonia.org/gorgonia"
)

const (
	testActions = 3
	tolerance   = 1e-9
)

// testConfig returns a small network over 12 x 12 frames stacked 2
// deep: 12 -> 5 -> 1
func testConfig(t *testing.T, seed uint64) Config {
	init, err := initwfn.NewVarianceScaling(2.0, seed)
	if err != nil {
		t.Fatalf("could not create initializer: %v", err)
	}
	return Config{
		Height:  12,
		Width:   12,
		History: 2,
		Layers: []ConvConfig{
			{Filters: 4, Kernel: 3, Stride: 2},
			{Filters: 8, Kernel: 5, Stride: 1},
		},
		Activation: ReLU(),
		InitWFn:    init,
	}
}

func randomStates(seed uint64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	states := make([]float64, n)
	for i := range states {
		states[i] = rng.Float64()
	}
	return states
}

func run(t *testing.T, net NeuralNet, input []float64) *mat.Dense {
	t.Helper()
	if err := net.SetInput(input); err != nil {
		t.Fatalf("could not set input: %v", err)
	}
	vm := G.NewTapeMachine(net.Graph())
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run network: %v", err)
	}
	q, err := QValues(net)
	if err != nil {
		t.Fatalf("could not read q-values: %v", err)
	}
	return q
}

func TestStreamCentring(t *testing.T) {
	const batch = 4
	net, err := NewDuelingQ(testConfig(t, 1), testActions, batch, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}

	q := run(t, net, randomStates(2, batch*net.Features()))
	if r, c := q.Dims(); r != batch || c != testActions {
		t.Fatalf("q shape: want(%v, %v) have(%v, %v)", batch, testActions,
			r, c)
	}

	value := net.Value().Data().([]float64)
	adv, err := ToMatrix(net.Advantage(), batch, testActions)
	if err != nil {
		t.Fatalf("could not read advantages: %v", err)
	}

	for i := 0; i < batch; i++ {
		var meanQ, meanA float64
		for j := 0; j < testActions; j++ {
			meanQ += q.At(i, j)
			meanA += adv.At(i, j)
		}
		meanQ /= testActions
		meanA /= testActions

		// The mean over actions of Q(s, .) is exactly V(s)
		if math.Abs(meanQ-value[i]) > tolerance {
			t.Errorf("row %v: mean Q want(%v) have(%v)", i, value[i], meanQ)
		}

		// Q(s, a) - V(s) is the centred advantage
		for j := 0; j < testActions; j++ {
			want := adv.At(i, j) - meanA
			have := q.At(i, j) - value[i]
			if math.Abs(want-have) > tolerance {
				t.Errorf("(%v, %v): centred advantage want(%v) have(%v)",
					i, j, want, have)
			}
		}
	}
}

func TestCloneWithBatch(t *testing.T) {
	net, err := NewDuelingQ(testConfig(t, 3), testActions, 2, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	states := randomStates(4, 2*net.Features())
	q := run(t, net, states)

	clone, err := net.CloneWithBatch(1)
	if err != nil {
		t.Fatalf("could not clone: %v", err)
	}
	if clone.BatchSize() != 1 {
		t.Errorf("clone batch: want(1) have(%v)", clone.BatchSize())
	}
	if clone.Graph() == net.Graph() {
		t.Errorf("clone should own a new graph")
	}

	// The clone acts on the second state of the batch identically
	cloneQ := run(t, clone, states[net.Features():])
	for j := 0; j < testActions; j++ {
		if math.Abs(cloneQ.At(0, j)-q.At(1, j)) > tolerance {
			t.Errorf("action %v: want(%v) have(%v)", j, q.At(1, j),
				cloneQ.At(0, j))
		}
	}
}

func TestSetAndPolyak(t *testing.T) {
	source, err := NewDuelingQ(testConfig(t, 5), testActions, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	dest, err := NewDuelingQ(testConfig(t, 6), testActions, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}

	// Polyak averaging with tau = 0.5 lands half-way between weights
	before := dest.Learnables()[0].Value().Data().([]float64)
	before = append([]float64(nil), before...)
	sourceW := source.Learnables()[0].Value().Data().([]float64)
	if err := dest.Polyak(source, 0.5); err != nil {
		t.Fatalf("polyak: %v", err)
	}
	after := dest.Learnables()[0].Value().Data().([]float64)
	for i := range after {
		want := 0.5*before[i] + 0.5*sourceW[i]
		if math.Abs(after[i]-want) > tolerance {
			t.Fatalf("polyak weight %v: want(%v) have(%v)", i, want, after[i])
		}
	}

	if err := dest.Set(source); err != nil {
		t.Fatalf("set: %v", err)
	}
	for i, learnable := range dest.Learnables() {
		want := source.Learnables()[i].Value().Data().([]float64)
		have := learnable.Value().Data().([]float64)
		for j := range want {
			if want[j] != have[j] {
				t.Fatalf("learnable %v: weights differ after set", i)
			}
		}
	}

	// Set copies, so changing the source afterwards leaves dest alone
	copied := append([]float64(nil),
		dest.Learnables()[0].Value().Data().([]float64)...)
	other, err := NewDuelingQ(testConfig(t, 7), testActions, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	if err := source.Polyak(other, 1.0); err != nil {
		t.Fatalf("polyak: %v", err)
	}
	have := dest.Learnables()[0].Value().Data().([]float64)
	for i := range copied {
		if have[i] != copied[i] {
			t.Fatalf("weight %v changed after the source was updated", i)
		}
	}

	if err := dest.Polyak(source, 1.5); err == nil {
		t.Errorf("polyak: expected error for tau > 1")
	}
}

func TestSetTopologyMismatch(t *testing.T) {
	a, err := NewDuelingQ(testConfig(t, 1), testActions, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	b, err := NewDuelingQ(testConfig(t, 1), testActions+1, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	if err := a.Set(b); err == nil {
		t.Errorf("set: expected error for mismatched action count")
	}
}

func TestGob(t *testing.T) {
	net, err := NewDuelingQ(testConfig(t, 9), testActions, 1, G.NewGraph())
	if err != nil {
		t.Fatalf("could not create network: %v", err)
	}
	states := randomStates(10, net.Features())
	want := run(t, net, states)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(net); err != nil {
		t.Fatalf("could not encode: %v", err)
	}
	decoded := &DuelingQ{}
	if err := gob.NewDecoder(&buf).Decode(decoded); err != nil {
		t.Fatalf("could not decode: %v", err)
	}

	have := run(t, decoded, states)
	if !mat.EqualApprox(want, have, tolerance) {
		t.Errorf("decoded network predicts \n%v\n want \n%v", mat.Formatted(have),
			mat.Formatted(want))
	}
}

func TestValidate(t *testing.T) {
	c := testConfig(t, 1)
	c.Layers[1].Filters = 7
	if err := c.Validate(); err == nil {
		t.Errorf("validate: expected error for odd final filters")
	}

	c = testConfig(t, 1)
	c.Height = 4
	if err := c.Validate(); err == nil {
		t.Errorf("validate: expected error for too small input")
	}

	c = DefaultConfig(1024)
	if err := c.Validate(); err != nil {
		t.Errorf("validate: default config invalid: %v", err)
	}
	if h, w, ch := c.OutputShape(); h != 1 || w != 1 || ch != 1024 {
		t.Errorf("default output shape: want(1, 1, 1024) have(%v, %v, %v)",
			h, w, ch)
	}
}

func TestBestActions(t *testing.T) {
	q := mat.NewDense(3, 3, []float64{
		1, 2, 2,
		5, 0, 1,
		0, 0, 0,
	})
	want := []int{1, 0, 0}
	have := BestActions(q)
	for i := range want {
		if have[i] != want[i] {
			t.Errorf("row %v: want(%v) have(%v)", i, want[i], have[i])
		}
	}
}
