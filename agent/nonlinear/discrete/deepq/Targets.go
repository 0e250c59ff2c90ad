package deepq

import (
	"fmt"

	"github.com/samuelfneumann/ddqn/network"
	"gonum.org/v1/gonum/mat"
)

// Targets computes the update targets of a batch of transitions:
//
//	a*_i      = argmax_a selectQ[i, a]
//	target_i  = r_i + gamma * evalQ[i, a*_i] * (1 - terminal_i)
//
// selectQ holds the next-state action values used to choose the
// greedy next action and evalQ the values used to evaluate it. When
// both are computed by the same network this is the ordinary
// Q-learning target; with the online network selecting and the target
// network evaluating it is the double Q-learning target. Terminal
// transitions have targets of exactly r_i.
func Targets(rewards, terminals []float64, selectQ, evalQ mat.Matrix,
	gamma float64) ([]float64, error) {
	rows, cols := selectQ.Dims()
	evalRows, evalCols := evalQ.Dims()
	if rows != evalRows || cols != evalCols {
		return nil, fmt.Errorf("targets: action value shapes differ "+
			"\n\tselect(%v, %v) \n\teval(%v, %v)", rows, cols, evalRows,
			evalCols)
	}
	if len(rewards) != rows || len(terminals) != rows {
		return nil, fmt.Errorf("targets: batch sizes differ \n\tq(%v) "+
			"\n\trewards(%v) \n\tterminals(%v)", rows, len(rewards),
			len(terminals))
	}

	bestActions := network.BestActions(selectQ)
	targets := make([]float64, rows)
	for i := range targets {
		if terminals[i] != 0 {
			targets[i] = rewards[i]
			continue
		}
		next := evalQ.At(i, bestActions[i])
		targets[i] = rewards[i] + gamma*next*(1-terminals[i])
	}
	return targets, nil
}
