package deepq

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/network"
)

// TargetUpdater updates the weights of a target network towards the
// weights of an online network of the same topology.
type TargetUpdater struct {
	online, target network.NeuralNet
	tau            float64
}

// NewTargetUpdater returns a new TargetUpdater. A tau of 1 copies the
// online weights into the target network on each update, while a tau
// in (0, 1) performs a polyak average. The two networks must have
// index-aligned learnables of identical shapes.
func NewTargetUpdater(online, target network.NeuralNet,
	tau float64) (*TargetUpdater, error) {
	if tau <= 0 || tau > 1 {
		return nil, fmt.Errorf("newTargetUpdater: tau must be in (0, 1], "+
			"have(%v)", tau)
	}

	onlineParams := online.Learnables()
	targetParams := target.Learnables()
	if len(onlineParams) != len(targetParams) {
		return nil, fmt.Errorf("newTargetUpdater: number of learnables "+
			"differ \n\tonline(%v) \n\ttarget(%v)", len(onlineParams),
			len(targetParams))
	}
	for i := range onlineParams {
		if !onlineParams[i].Shape().Eq(targetParams[i].Shape()) {
			return nil, fmt.Errorf("newTargetUpdater: shapes of learnable %v "+
				"differ \n\tonline(%v) \n\ttarget(%v)", i,
				onlineParams[i].Shape(), targetParams[i].Shape())
		}
	}

	return &TargetUpdater{online: online, target: target, tau: tau}, nil
}

// Update updates the target network
func (t *TargetUpdater) Update() error {
	if t.tau == 1.0 {
		if err := t.target.Set(t.online); err != nil {
			return fmt.Errorf("update: %v", err)
		}
		return nil
	}

	if err := t.target.Polyak(t.online, t.tau); err != nil {
		return fmt.Errorf("update: %v", err)
	}
	return nil
}
