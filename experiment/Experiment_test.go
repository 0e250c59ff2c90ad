package experiment

import (
	"errors"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/ddqn/agent"
	"github.com/samuelfneumann/ddqn/agent/nonlinear/discrete/deepq"
	"github.com/samuelfneumann/ddqn/agent/nonlinear/discrete/policy"
	"github.com/samuelfneumann/ddqn/environment"
	"github.com/samuelfneumann/ddqn/initwfn"
	"github.com/samuelfneumann/ddqn/network"
	"github.com/samuelfneumann/ddqn/solver"
	ts "github.com/samuelfneumann/ddqn/timestep"
	"github.com/stretchr/testify/require"
)

const side = 12

// fakeEnv ends every episode after episodeLength steps with a reward
// of 1 per step
type fakeEnv struct {
	episodeLength int
	t             int
	eval          bool
	evalActions   [][]int // Actions of each evaluation episode
}

func (f *fakeEnv) timestep(t ts.StepType, reward float64,
	lifeLost bool) ts.TimeStep {
	frame := image.NewRGBA(image.Rect(0, 0, 16, 21))
	return ts.New(t, reward, make([]uint8, side*side), frame, lifeLost, f.t)
}

func (f *fakeEnv) Reset(eval bool) (ts.TimeStep, error) {
	f.t = 0
	f.eval = eval
	if eval {
		f.evalActions = append(f.evalActions, nil)
	}
	return f.timestep(ts.First, 0, true), nil
}

func (f *fakeEnv) Step(action int) (ts.TimeStep, error) {
	if f.eval {
		last := len(f.evalActions) - 1
		f.evalActions[last] = append(f.evalActions[last], action)
	}
	f.t++
	if f.t >= f.episodeLength {
		return f.timestep(ts.Last, 1, true), nil
	}
	return f.timestep(ts.Mid, 1, false), nil
}

func (f *fakeEnv) State() []float64 { return make([]float64, 2*side*side) }
func (f *fakeEnv) NumActions() int  { return 3 }
func (f *fakeEnv) Close() error     { return nil }

// fakeAgent always selects action 2
type fakeAgent struct {
	observed int
	frames   []int
	loaded   string
}

func (f *fakeAgent) Observe(int, ts.TimeStep) error {
	f.observed++
	return nil
}

func (f *fakeAgent) Step(frame int) (agent.Update, error) {
	f.frames = append(f.frames, frame)
	return agent.Update{Learned: true, Loss: 0.5}, nil
}

func (f *fakeAgent) SelectAction(int, []float64, bool) (int, error) {
	return 2, nil
}

func (f *fakeAgent) Save(filename string) error {
	return os.WriteFile(filename, []byte("model"), 0o644)
}

func (f *fakeAgent) Load(filename string) error {
	f.loaded = filename
	return nil
}

func (f *fakeAgent) Parameters() map[string][]float64 {
	return map[string][]float64{"w": {1, 2, 3}, "b": {0}}
}

// fakeWriter records the summaries written
type fakeWriter struct {
	scalars    map[string][]float64
	histograms map[string]int
	flushes    int
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{
		scalars:    make(map[string][]float64),
		histograms: make(map[string]int),
	}
}

func (f *fakeWriter) AddScalar(tag string, _ int, value float64) error {
	f.scalars[tag] = append(f.scalars[tag], value)
	return nil
}

func (f *fakeWriter) AddHistogram(tag string, _ int, _ []float64) error {
	f.histograms[tag]++
	return nil
}

func (f *fakeWriter) Flush() error {
	f.flushes++
	return nil
}

func testConfig(dir string) Config {
	c := DefaultConfig()
	c.MaxFrames = 30
	c.EvalFrequency = 10
	c.EvalSteps = 12
	c.MaxEpisodeLength = 100
	c.SummaryEvery = 2
	c.RewardWindow = 3
	c.Path = dir
	c.Progress = false
	c.Agent.ReplayStartSize = 0
	return c
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	env := &fakeEnv{episodeLength: 4}
	a := &fakeAgent{}
	w := newFakeWriter()

	d, err := New(testConfig(dir), a, env, w)
	require.NoError(t, err)
	require.NoError(t, d.Run())

	// Three epochs of three episodes each
	require.Equal(t, 36, d.Frame())
	require.Equal(t, 36, a.observed)
	require.Len(t, a.frames, 36)
	require.Equal(t, 1, a.frames[0])
	require.Equal(t, 36, a.frames[35])
	require.Equal(t, 9, d.Returns().Episodes())
	for _, r := range d.Returns().Returns() {
		require.Equal(t, 4.0, r)
	}

	trainLog, err := os.ReadFile(filepath.Join(dir, "rewards.dat"))
	require.NoError(t, err)
	require.Equal(t, "2 8 4\n4 16 4\n6 24 4\n8 32 4\n", string(trainLog))

	evalLog, err := os.ReadFile(filepath.Join(dir, "rewardsEval.dat"))
	require.NoError(t, err)
	require.Equal(t, "12 4\n24 4\n36 4\n", string(evalLog))

	for _, name := range []string{"my_model-12.gob", "my_model-24.gob",
		"my_model-36.gob", "ATARI_frame_12_reward_4.gif"} {
		_, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
	}

	require.Len(t, w.scalars["loss"], 4)
	require.Len(t, w.scalars["reward"], 4)
	require.Equal(t, []float64{4, 4, 4}, w.scalars["evaluation_score"])
	require.Equal(t, 4, w.histograms["w"])

	_, err = os.Stat(filepath.Join(dir, "returns.bin"))
	require.NoError(t, err)
}

func TestEvaluateFiresAfterLifeLoss(t *testing.T) {
	dir := t.TempDir()
	env := &fakeEnv{episodeLength: 4}
	d, err := New(testConfig(dir), &fakeAgent{}, env, newFakeWriter())
	require.NoError(t, err)

	score, err := d.Evaluate()
	require.NoError(t, err)
	require.Equal(t, 4.0, score)

	require.Len(t, env.evalActions, 3)
	for _, actions := range env.evalActions {
		require.Equal(t, []int{environment.Fire, 2, 2, 2}, actions)
	}
}

func TestNoEvaluationGame(t *testing.T) {
	dir := t.TempDir()
	c := testConfig(dir)
	c.MaxFrames = 10
	c.EvalFrequency = 5
	c.MaxEpisodeLength = 5
	c.EvalSteps = 10
	env := &fakeEnv{episodeLength: 1000}
	w := newFakeWriter()

	d, err := New(c, &fakeAgent{}, env, w)
	require.NoError(t, err)

	require.NoError(t, d.Train())
	_, err = d.Evaluate()
	require.True(t, errors.Is(err, ErrNoEvalGame))
	require.Equal(t, "No evaluation game finished", err.Error())

	// The checkpoint is still written but no score is recorded
	_, err = os.Stat(filepath.Join(dir, "my_model-5.gob"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "rewardsEval.dat"))
	require.True(t, os.IsNotExist(err))
	require.Empty(t, w.scalars["evaluation_score"])

	// Truncated training episodes still count towards the returns
	require.Equal(t, 1, d.Returns().Episodes())
	require.Equal(t, 5.0, d.Returns().Returns()[0])

	require.NoError(t, d.Run())
	require.Equal(t, 10, d.Frame())
}

func TestRestore(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"my_model-5.gob", "my_model-50.gob"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	a := &fakeAgent{}
	d, err := New(testConfig(dir), a, &fakeEnv{episodeLength: 4},
		newFakeWriter())
	require.NoError(t, err)
	require.NoError(t, d.Restore(dir))
	require.Equal(t, 50, d.Frame())
	require.Equal(t, filepath.Join(dir, "my_model-50.gob"), a.loaded)

	require.Error(t, d.Restore(t.TempDir()))
}

func TestValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.Env.Atari.History = 2
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.EvalSteps = 0
	require.Error(t, c.Validate())
}

func TestDeepQAgent(t *testing.T) {
	init, err := initwfn.NewVarianceScaling(2.0, 1)
	require.NoError(t, err)
	s, err := solver.NewDefaultAdam(1e-4, 1)
	require.NoError(t, err)

	exploration := policy.DefaultConfig()
	exploration.AnnealingFrames = 20
	exploration.MaxFrames = 100

	agentConfig := deepq.Config{
		Network: network.Config{
			Height:  side,
			Width:   side,
			History: 2,
			Layers: []network.ConvConfig{
				{Filters: 4, Kernel: 3, Stride: 2},
				{Filters: 8, Kernel: 5, Stride: 1},
			},
			Activation: network.ReLU(),
			InitWFn:    init,
		},
		Solver:           s,
		BatchSize:        4,
		Discount:         0.99,
		UpdateFreq:       2,
		TargetUpdateFreq: 6,
		Tau:              1,
		ReplayStartSize:  8,
		MemorySize:       100,
		Mode:             deepq.DoubleQ,
		HuberDelta:       1,
		ClipRewards:      true,
		Exploration:      exploration,
	}
	a, err := deepq.New(agentConfig, 3, 1)
	require.NoError(t, err)

	dir := t.TempDir()
	c := testConfig(dir)
	c.Agent = agentConfig
	c.MaxFrames = 20
	w := newFakeWriter()

	d, err := New(c, a, &fakeEnv{episodeLength: 5}, w)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.Run())
	require.NotEmpty(t, w.scalars["loss"])
	require.Greater(t, a.GradientSteps(), 0)

	require.NoError(t, d.Restore(dir))
	require.Equal(t, 20, d.Frame())
}
