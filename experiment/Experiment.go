// Package experiment implements the driver of Dueling Double DQN
// experiments, which alternates training epochs with evaluation epochs
// until a budget of frames is exhausted.
package experiment

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aunum/log"
	"github.com/samuelfneumann/ddqn/agent"
	"github.com/samuelfneumann/ddqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/ddqn/environment/envconfig"
	"github.com/samuelfneumann/ddqn/experiment/checkpointer"
	"github.com/samuelfneumann/ddqn/experiment/summary"
	"github.com/samuelfneumann/ddqn/experiment/tracker"
	ts "github.com/samuelfneumann/ddqn/timestep"
	"github.com/samuelfneumann/ddqn/utils/progressbar"
)

// ErrNoEvalGame is returned by Evaluate when no evaluation game
// finished within the evaluation epoch
var ErrNoEvalGame = errors.New("No evaluation game finished")

// SummaryFile is the name of the summary page written to the
// experiment path
const SummaryFile = "summaries.html"

// Agent is a learning agent whose parameters can be summarised
type Agent interface {
	agent.Agent
	agent.Parameterized
}

// Environment is a pixel environment whose state is the stack of the
// most recent processed frames
type Environment interface {
	Reset(eval bool) (ts.TimeStep, error)
	Step(action int) (ts.TimeStep, error)
	State() []float64
	NumActions() int
	Close() error
}

// Config represents a configuration of an experiment.
type Config struct {
	MaxFrames        int // Training frames of the experiment
	EvalFrequency    int // Training frames between evaluations
	EvalSteps        int // Frames of each evaluation
	MaxEpisodeLength int // Maximum frames of a training episode

	SummaryEvery  int // Training episodes between summaries
	RewardWindow  int // Episodes in the mean reward
	HistogramBins int

	Path      string // Directory of logs, summaries, GIFs and checkpoints
	ModelName string
	Progress  bool // Whether to display a progress bar of each epoch

	Agent deepq.Config
	Env   envconfig.Config
}

// DefaultConfig returns the configuration of the Atari experiments of
// Dueling Double DQN on the Squash game
func DefaultConfig() Config {
	return Config{
		MaxFrames:        30_000_000,
		EvalFrequency:    200_000,
		EvalSteps:        10_000,
		MaxEpisodeLength: 18_000,
		SummaryEvery:     10,
		RewardWindow:     100,
		HistogramBins:    30,
		Path:             "output",
		ModelName:        "my_model",
		Progress:         true,
		Agent:            deepq.DefaultConfig(),
		Env:              envconfig.DefaultConfig(),
	}
}

// Validate returns an error if the configuration is invalid
func (c Config) Validate() error {
	for _, v := range []struct {
		name  string
		value int
	}{
		{"MaxFrames", c.MaxFrames},
		{"EvalFrequency", c.EvalFrequency},
		{"EvalSteps", c.EvalSteps},
		{"MaxEpisodeLength", c.MaxEpisodeLength},
		{"SummaryEvery", c.SummaryEvery},
		{"RewardWindow", c.RewardWindow},
		{"HistogramBins", c.HistogramBins},
	} {
		if v.value < 1 {
			return fmt.Errorf("validate: %v must be positive, have(%v)",
				v.name, v.value)
		}
	}
	if c.ModelName == "" {
		return fmt.Errorf("validate: no model name given")
	}

	if err := c.Agent.Validate(); err != nil {
		return fmt.Errorf("validate: invalid agent: %v", err)
	}
	if err := c.Env.Validate(); err != nil {
		return fmt.Errorf("validate: invalid environment: %v", err)
	}

	network, processed := c.Agent.Network, c.Env.Atari.Processor
	if network.History != c.Env.Atari.History ||
		network.Height != processed.Height || network.Width != processed.Width {
		return fmt.Errorf("validate: network input (%v x %v x %v) does not "+
			"match environment states (%v x %v x %v)", network.History,
			network.Height, network.Width, c.Env.Atari.History,
			processed.Height, processed.Width)
	}
	return nil
}

// Driver runs an experiment. The driver owns its agent and environment
// and closes both in Close.
type Driver struct {
	config Config
	agent  Agent
	env    Environment

	summaries    summary.Writer
	trainLog     *tracker.RewardLog
	evalLog      *tracker.RewardLog
	checkpointer checkpointer.Checkpointer

	frame   int
	returns *tracker.Return
	window  *tracker.Window
	losses  []float64
}

// Create creates the agent and environment described by c and returns
// a Driver running them.
func Create(c Config, seed uint64) (*Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	env, err := c.Env.Create(seed)
	if err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	a, err := deepq.New(c.Agent, env.NumActions(), seed+1)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("create: %v", err)
	}

	if err := os.MkdirAll(c.Path, 0o755); err != nil {
		env.Close()
		a.Close()
		return nil, fmt.Errorf("create: could not create path: %v", err)
	}
	summaries, err := summary.NewHTMLWriter(filepath.Join(c.Path,
		SummaryFile), c.HistogramBins, 5)
	if err != nil {
		env.Close()
		a.Close()
		return nil, fmt.Errorf("create: %v", err)
	}

	d, err := New(c, a, env, summaries)
	if err != nil {
		env.Close()
		a.Close()
		return nil, fmt.Errorf("create: %v", err)
	}
	return d, nil
}

// New returns a new Driver running agent on env. Logs, GIFs and
// checkpoints are written to c.Path, which must exist.
func New(c Config, a Agent, env Environment,
	summaries summary.Writer) (*Driver, error) {
	if c.Path == "" {
		c.Path = "."
	}
	check, err := checkpointer.NewNStep(1, a,
		checkpointer.FrameFilename(c.Path, c.ModelName))
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	return &Driver{
		config:       c,
		agent:        a,
		env:          env,
		summaries:    summaries,
		trainLog:     tracker.NewRewardLog(filepath.Join(c.Path, tracker.TrainLog)),
		evalLog:      tracker.NewRewardLog(filepath.Join(c.Path, tracker.EvalLog)),
		checkpointer: check,
		returns:      tracker.NewReturn(filepath.Join(c.Path, "returns.bin")),
		window:       tracker.NewWindow(c.RewardWindow),
	}, nil
}

// Frame returns the number of training frames taken so far
func (d *Driver) Frame() int {
	return d.frame
}

// Returns returns the tracker of training episode returns
func (d *Driver) Returns() *tracker.Return {
	return d.returns
}

// Restore loads the latest checkpoint of the model in path and
// continues counting frames from the checkpoint's frame number.
func (d *Driver) Restore(path string) error {
	filename, frame, err := checkpointer.Latest(path, d.config.ModelName)
	if err != nil {
		return fmt.Errorf("restore: %v", err)
	}
	if err := d.agent.Load(filename); err != nil {
		return fmt.Errorf("restore: %v", err)
	}

	d.frame = frame
	log.Infof("restored %v at frame %d", filename, frame)
	return nil
}

// Run alternates training and evaluation epochs until MaxFrames
// training frames have been taken. An evaluation epoch in which no
// game finishes is logged and does not end the run.
func (d *Driver) Run() error {
	for d.frame < d.config.MaxFrames {
		if err := d.Train(); err != nil {
			return fmt.Errorf("run: %v", err)
		}

		score, err := d.Evaluate()
		switch {
		case errors.Is(err, ErrNoEvalGame):
			log.Errorf("%v", err)
		case err != nil:
			return fmt.Errorf("run: %v", err)
		default:
			log.Successf("Evaluation score: %v", score)
		}
	}

	if err := d.returns.Save(); err != nil {
		return fmt.Errorf("run: %v", err)
	}
	return nil
}

// Close closes the environment and, if it can be closed, the agent
func (d *Driver) Close() error {
	if err := d.env.Close(); err != nil {
		return fmt.Errorf("close: %v", err)
	}
	if closer, ok := d.agent.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}

// newProgressBar returns a progress bar over max frames, or nil if
// progress is not displayed
func (d *Driver) newProgressBar(label string,
	max int) *progressbar.ManualProgressBar {
	if !d.config.Progress {
		return nil
	}
	return progressbar.NewManualProgressBar(label, 40, max)
}
