package expreplay

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// fill adds n transitions whose frame values, actions, and rewards all
// encode the insertion step
func fill(t *testing.T, r *ReplayMemory, start, n int, terminal func(int) bool) {
	t.Helper()
	for i := start; i < start+n; i++ {
		frame := []uint8{uint8(i), uint8(i)}
		require.NoError(t, r.AddExperience(i, frame, float64(i), terminal(i)))
	}
}

func never(int) bool { return false }

func TestMinibatchErrors(t *testing.T) {
	r, err := New(10, 1, 2, 3, 2, 1)
	require.NoError(t, err)

	_, err = r.Minibatch()
	require.True(t, IsEmptyBuffer(err), "want empty buffer error, got %v", err)

	fill(t, r, 0, 3, never)
	_, err = r.Minibatch()
	require.True(t, IsInsufficientSamples(err),
		"want insufficient samples error, got %v", err)

	err = r.AddExperience(0, []uint8{1, 2, 3}, 0, false)
	require.Error(t, err)
	require.Equal(t, 3, r.Count())
}

func TestMinibatchStates(t *testing.T) {
	const history = 3
	r, err := New(50, 1, 2, history, 16, 2)
	require.NoError(t, err)
	fill(t, r, 0, 20, never)

	for trial := 0; trial < 20; trial++ {
		batch, err := r.Minibatch()
		require.NoError(t, err)
		require.Equal(t, 16, batch.Len())

		for i := 0; i < batch.Len(); i++ {
			tr := batch.Transition(i)
			index := tr.Action
			require.GreaterOrEqual(t, index, history)
			require.Less(t, index, 20)
			require.Equal(t, float64(index), tr.Reward)
			require.False(t, tr.Terminal)
			require.Len(t, tr.State, history*2)

			// The state holds frames index-history .. index-1, and the
			// next state is shifted by one frame
			for c := 0; c < history; c++ {
				wantState := float64(index-history+c) / 255.0
				wantNext := float64(index-history+1+c) / 255.0
				require.InDelta(t, wantState, tr.State[2*c], 1e-12)
				require.InDelta(t, wantState, tr.State[2*c+1], 1e-12)
				require.InDelta(t, wantNext, tr.NextState[2*c], 1e-12)
			}
		}
	}
}

func TestMinibatchSkipsEpisodeBoundaries(t *testing.T) {
	const history = 2
	r, err := New(30, 1, 2, history, 32, 3)
	require.NoError(t, err)

	terminalAt := func(i int) bool { return i == 8 || i == 15 }
	fill(t, r, 0, 25, terminalAt)

	for trial := 0; trial < 20; trial++ {
		batch, err := r.Minibatch()
		require.NoError(t, err)
		for _, index := range batch.Actions {
			for j := index - history; j < index; j++ {
				require.False(t, terminalAt(j),
					"index %v samples across terminal frame %v", index, j)
			}
		}
	}
}

func TestMinibatchAvoidsWritePointer(t *testing.T) {
	const history, size = 2, 12
	r, err := New(size, 1, 2, history, 32, 4)
	require.NoError(t, err)

	// Wrap around so the write pointer sits in the middle of the memory
	fill(t, r, 0, size+5, never)
	require.Equal(t, size, r.Count())

	current := 5
	for trial := 0; trial < 20; trial++ {
		batch, err := r.Minibatch()
		require.NoError(t, err)
		for i := range batch.Actions {
			tr := batch.Transition(i)

			// Stored actions encode the insertion step, so a valid
			// transition always has consecutive frames
			index := tr.Action % size
			require.False(t, index >= current && index-history <= current,
				"index %v straddles write pointer", index)
		}
	}
}

func TestMinibatchAllTerminal(t *testing.T) {
	r, err := New(10, 1, 2, 2, 1, 5)
	require.NoError(t, err)
	fill(t, r, 0, 6, func(int) bool { return true })

	_, err = r.Minibatch()
	require.True(t, IsInsufficientSamples(err),
		"want insufficient samples error, got %v", err)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(3, 1, 1, 4, 1, 0)
	require.Error(t, err)
	_, err = New(10, 1, 1, 4, 0, 0)
	require.Error(t, err)
}
