package solver

import (
	"encoding/json"
	"testing"

	G "gorgonia.org/gorgonia"
)

func TestUnmarshalAdam(t *testing.T) {
	data := []byte(`{"Type": "Adam", "Config": {"StepSize": 1e-5, ` +
		`"Epsilon": 1e-8, "Beta1": 0.9, "Beta2": 0.999, "Batch": 1}}`)

	var s Solver
	if err := json.Unmarshal(data, &s); err != nil {
		t.Fatalf("could not unmarshal: %v", err)
	}
	if s.Type != Adam {
		t.Errorf("type: want(%v) have(%v)", Adam, s.Type)
	}
	config, ok := s.Config.(AdamConfig)
	if !ok {
		t.Fatalf("config: want(AdamConfig) have(%T)", s.Config)
	}
	if config.StepSize != 1e-5 {
		t.Errorf("step size: want(1e-5) have(%v)", config.StepSize)
	}
	if _, ok := s.Solver.(*G.AdamSolver); !ok {
		t.Errorf("solver: want(*G.AdamSolver) have(%T)", s.Solver)
	}
}

func TestRoundTripRMSProp(t *testing.T) {
	in, err := NewDQNRMSProp(2.5e-4)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("could not marshal: %v", err)
	}

	var out Solver
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("could not unmarshal: %v", err)
	}
	if out.Config != in.Config {
		t.Errorf("config: want(%v) have(%v)", in.Config, out.Config)
	}
	if _, ok := out.Solver.(*G.RMSPropSolver); !ok {
		t.Errorf("solver: want(*G.RMSPropSolver) have(%T)", out.Solver)
	}
}

func TestInvalidType(t *testing.T) {
	if _, err := newSolver(Vanilla, AdamConfig{}); err == nil {
		t.Errorf("newSolver: expected error for mismatched type")
	}

	data := []byte(`{"Type": "SGD", "Config": {}}`)
	var s Solver
	if err := json.Unmarshal(data, &s); err == nil {
		t.Errorf("unmarshal: expected error for unknown type")
	}
}

func TestRoundTripVanilla(t *testing.T) {
	in, err := NewVanilla(0.1, 4, 5)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("could not marshal: %v", err)
	}

	var out Solver
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("could not unmarshal: %v", err)
	}
	if out.Config != (VanillaConfig{StepSize: 0.1, Batch: 4, Clip: 5}) {
		t.Errorf("config: want(%v) have(%v)", in.Config, out.Config)
	}
	if _, ok := out.Solver.(*G.VanillaSolver); !ok {
		t.Errorf("solver: want(*G.VanillaSolver) have(%T)", out.Solver)
	}
}

func TestValidateConfigs(t *testing.T) {
	if _, err := NewVanilla(0, 1, -1); err == nil {
		t.Errorf("newVanilla: expected error for zero step size")
	}
	if _, err := NewVanilla(0.1, 0, -1); err == nil {
		t.Errorf("newVanilla: expected error for zero batch")
	}
	if _, err := NewAdam(1e-3, 1e-8, 1, 0.999, 1); err == nil {
		t.Errorf("newAdam: expected error for beta1 of 1")
	}
	if _, err := NewAdam(1e-3, 0, 0.9, 0.999, 1); err == nil {
		t.Errorf("newAdam: expected error for zero epsilon")
	}
	if _, err := NewDefaultAdam(1e-5, 32); err != nil {
		t.Errorf("newDefaultAdam: %v", err)
	}
}
