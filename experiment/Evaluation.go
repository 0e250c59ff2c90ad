package experiment

import (
	"fmt"
	"image"

	"github.com/aunum/log"
	"github.com/samuelfneumann/ddqn/environment"
	"github.com/samuelfneumann/ddqn/experiment/gif"
	"github.com/samuelfneumann/ddqn/utils/floatutils"
)

// Evaluate runs an evaluation epoch of EvalSteps frames and returns
// the mean score of the games that finished within the epoch.
//
// Actions are selected in evaluation mode, except that FIRE is taken
// whenever a life was just lost or a game just started. The first game
// finished is written to a GIF. The agent is checkpointed at the
// current training frame after every epoch. ErrNoEvalGame is returned
// if no game finished, in which case no score is logged.
func (d *Driver) Evaluate() (float64, error) {
	bar := d.newProgressBar("Evaluating", d.config.EvalSteps)

	var (
		scores    []float64
		recording = true
		frames    []image.Image
		running   []float64

		terminal = true
		lifeLost bool
		score    float64
	)
	for i := 0; i < d.config.EvalSteps; i++ {
		if terminal {
			step, err := d.env.Reset(true)
			if err != nil {
				return 0, fmt.Errorf("evaluate: %v", err)
			}
			lifeLost = step.LifeLost
			score = 0
			terminal = false
		}

		action := environment.Fire
		if !lifeLost {
			var err error
			action, err = d.agent.SelectAction(d.frame, d.env.State(), true)
			if err != nil {
				return 0, fmt.Errorf("evaluate: %v", err)
			}
		}

		step, err := d.env.Step(action)
		if err != nil {
			return 0, fmt.Errorf("evaluate: %v", err)
		}
		score += step.Reward
		lifeLost, terminal = step.LifeLost, step.Last()

		if recording {
			frames = append(frames, step.Frame)
			running = append(running, score)
		}
		if terminal {
			scores = append(scores, score)
			recording = false
		}

		if bar != nil {
			bar.Set(i + 1)
			bar.Display()
		}
	}
	if bar != nil {
		bar.Close()
	}

	if err := d.checkpointer.Checkpoint(d.frame); err != nil {
		return 0, fmt.Errorf("evaluate: %v", err)
	}

	if len(scores) == 0 {
		return 0, ErrNoEvalGame
	}

	mean := floatutils.Mean(scores)
	if frames[0] != nil {
		filename, err := gif.Generate(d.frame, frames, running, scores[0],
			d.config.Path)
		if err != nil {
			return mean, fmt.Errorf("evaluate: %v", err)
		}
		log.Infof("wrote %v", filename)
	}

	if err := d.summaries.AddScalar("evaluation_score", d.frame,
		mean); err != nil {
		return mean, fmt.Errorf("evaluate: %v", err)
	}
	if err := d.summaries.Flush(); err != nil {
		return mean, fmt.Errorf("evaluate: %v", err)
	}
	if err := d.evalLog.Append(d.frame, mean); err != nil {
		return mean, fmt.Errorf("evaluate: %v", err)
	}
	return mean, nil
}
