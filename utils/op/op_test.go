package op

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func TestHuber(t *testing.T) {
	g := G.NewGraph()
	predVals := []float64{0.5, 3.0, -2.0, 0.0}
	targetVals := []float64{0.0, 0.0, 0.0, 0.0}

	pred := G.NewVector(g, tensor.Float64, G.WithShape(len(predVals)),
		G.WithValue(tensor.New(tensor.WithBacking(predVals))),
		G.WithName("pred"))
	target := G.NewVector(g, tensor.Float64, G.WithShape(len(targetVals)),
		G.WithValue(tensor.New(tensor.WithBacking(targetVals))),
		G.WithName("target"))

	loss, err := Huber(pred, target, 1.0)
	if err != nil {
		t.Fatalf("could not construct loss: %v", err)
	}
	var lossVal G.Value
	G.Read(loss, &lossVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run graph: %v", err)
	}

	// 0.125, 2.5, 1.5, 0
	want := (0.125 + 2.5 + 1.5 + 0.0) / 4
	have := lossVal.Data().(float64)
	if math.Abs(have-want) > 1e-9 {
		t.Errorf("huber: want(%v) have(%v)", want, have)
	}
}

func TestHuberShapeMismatch(t *testing.T) {
	g := G.NewGraph()
	pred := G.NewVector(g, tensor.Float64, G.WithShape(3), G.WithName("p"))
	target := G.NewVector(g, tensor.Float64, G.WithShape(2), G.WithName("t"))
	if _, err := Huber(pred, target, 1.0); err == nil {
		t.Errorf("huber: expected error on shape mismatch")
	}
}
