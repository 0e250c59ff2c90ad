// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/gold on GitHub
package op

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Min returns the min value between the nodes. If values are equal
// the first value is returned
func Min(a *G.Node, b *G.Node) (retVal *G.Node, err error) {
	aMask, err := G.Lte(a, b, true)
	if err != nil {
		return nil, err
	}
	aVal, err := G.HadamardProd(a, aMask)
	if err != nil {
		return nil, err
	}

	bMask, err := G.Lt(b, a, true)
	if err != nil {
		return nil, err
	}
	bVal, err := G.HadamardProd(b, bMask)
	if err != nil {
		return nil, err
	}
	return G.Add(aVal, bVal)
}

// Huber returns the mean Huber loss between the prediction and target
// nodes, which must have the same shape. For an error d = pred - target
// each element contributes
//
//	0.5 * d²                   if |d| <= delta
//	delta * (|d| - 0.5*delta)  otherwise
//
// which is computed as 0.5*q² + delta*(|d| - q) with q = min(|d|, delta).
func Huber(pred, target *G.Node, delta float64) (*G.Node, error) {
	if delta <= 0 {
		return nil, fmt.Errorf("huber: delta must be positive, have(%v)",
			delta)
	}
	if !pred.Shape().Eq(target.Shape()) {
		return nil, fmt.Errorf("huber: shape mismatch \n\tpred(%v) "+
			"\n\ttarget(%v)", pred.Shape(), target.Shape())
	}

	g := pred.Graph()
	deltaNode := G.NewScalar(g, pred.Dtype(), G.WithValue(delta),
		G.WithName("huber_delta"))
	half := G.NewConstant(0.5)

	diff, err := G.Sub(pred, target)
	if err != nil {
		return nil, fmt.Errorf("huber: %v", err)
	}
	absDiff, err := G.Abs(diff)
	if err != nil {
		return nil, fmt.Errorf("huber: %v", err)
	}

	quadratic, err := Min(absDiff, deltaNode)
	if err != nil {
		return nil, fmt.Errorf("huber: %v", err)
	}
	linear, err := G.Sub(absDiff, quadratic)
	if err != nil {
		return nil, fmt.Errorf("huber: %v", err)
	}

	sq := G.Must(G.Square(quadratic))
	sq = G.Must(G.HadamardProd(sq, half))
	linear = G.Must(G.HadamardProd(linear, deltaNode))

	loss := G.Must(G.Add(sq, linear))
	return G.Mean(loss)
}
