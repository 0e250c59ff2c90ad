package experiment

import (
	"fmt"
	"sort"

	"github.com/aunum/log"
	"github.com/samuelfneumann/ddqn/utils/floatutils"
)

// Train runs a training epoch: full episodes of at most
// MaxEpisodeLength frames are run until at least EvalFrequency frames
// have been taken in the epoch. Every transition is observed by the
// agent and the agent is stepped once per frame.
func (d *Driver) Train() error {
	bar := d.newProgressBar("Training", d.config.EvalFrequency)
	defer func() {
		if bar != nil {
			bar.Close()
		}
	}()

	epochFrame := 0
	for epochFrame < d.config.EvalFrequency {
		frames, err := d.RunEpisode()
		if err != nil {
			return fmt.Errorf("train: %v", err)
		}
		epochFrame += frames
		if bar != nil {
			bar.Set(epochFrame)
			bar.Display()
		}
	}
	return nil
}

// RunEpisode runs a single training episode and returns the number of
// frames taken
func (d *Driver) RunEpisode() (int, error) {
	step, err := d.env.Reset(false)
	if err != nil {
		return 0, fmt.Errorf("runEpisode: %v", err)
	}
	d.returns.Track(step)

	frames := 0
	for frames < d.config.MaxEpisodeLength {
		action, err := d.agent.SelectAction(d.frame, d.env.State(), false)
		if err != nil {
			return frames, fmt.Errorf("runEpisode: %v", err)
		}

		step, err = d.env.Step(action)
		if err != nil {
			return frames, fmt.Errorf("runEpisode: %v", err)
		}
		d.frame++
		frames++
		d.returns.Track(step)

		if err := d.agent.Observe(action, step); err != nil {
			return frames, fmt.Errorf("runEpisode: %v", err)
		}
		update, err := d.agent.Step(d.frame)
		if err != nil {
			return frames, fmt.Errorf("runEpisode: %v", err)
		}
		if update.Learned {
			d.losses = append(d.losses, update.Loss)
		}

		if step.Last() {
			break
		}
	}
	if !step.Last() {
		d.returns.Truncate()
	}

	episodes := d.returns.Returns()
	d.window.Add(episodes[len(episodes)-1])
	if len(episodes)%d.config.SummaryEvery == 0 {
		if err := d.summarise(); err != nil {
			return frames, fmt.Errorf("runEpisode: %v", err)
		}
	}
	return frames, nil
}

// summarise logs the mean reward of recent episodes and writes the
// training summaries
func (d *Driver) summarise() error {
	episodes := d.returns.Episodes()
	mean := d.window.Mean()

	if d.frame > d.config.Agent.ReplayStartSize && len(d.losses) > 0 {
		if err := d.summaries.AddScalar("loss", d.frame,
			floatutils.Mean(d.losses)); err != nil {
			return fmt.Errorf("summarise: %v", err)
		}
		if err := d.summaries.AddScalar("reward", d.frame, mean); err != nil {
			return fmt.Errorf("summarise: %v", err)
		}
		d.losses = d.losses[:0]
	}

	params := d.agent.Parameters()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := d.summaries.AddHistogram(name, d.frame,
			params[name]); err != nil {
			return fmt.Errorf("summarise: %v", err)
		}
	}
	if err := d.summaries.Flush(); err != nil {
		return fmt.Errorf("summarise: %v", err)
	}

	log.Infof("%d %d %v", episodes, d.frame, mean)
	if err := d.trainLog.Append(episodes, d.frame, mean); err != nil {
		return fmt.Errorf("summarise: %v", err)
	}
	return nil
}
