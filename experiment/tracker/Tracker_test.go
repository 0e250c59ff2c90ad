package tracker

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	ts "github.com/samuelfneumann/ddqn/timestep"
	"github.com/stretchr/testify/require"
)

func TestReturn(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	r := NewReturn(filename)

	r.Track(ts.New(ts.First, 0, nil, nil, true, 0))
	r.Track(ts.New(ts.Mid, 1, nil, nil, false, 1))
	r.Track(ts.New(ts.Mid, 2, nil, nil, false, 2))
	r.Track(ts.New(ts.Last, 3, nil, nil, true, 3))
	require.Equal(t, []float64{6}, r.Returns())

	r.Track(ts.New(ts.First, 0, nil, nil, true, 0))
	r.Track(ts.New(ts.Mid, 4, nil, nil, false, 1))
	require.Equal(t, 4.0, r.Current())
	r.Truncate()
	require.Equal(t, []float64{6, 4}, r.Returns())

	// Truncating with no episode in progress records nothing
	r.Truncate()
	require.Equal(t, 2, r.Episodes())

	require.NoError(t, r.Save())
	data, err := LoadData(filename)
	require.NoError(t, err)
	require.Equal(t, []float64{6, 4}, data)

	r.Track(ts.New(ts.First, 0, nil, nil, true, 0))
	require.Panics(t, func() {
		r.Track(ts.New(ts.Mid, 4, nil, nil, false, 5))
	})
}

func TestWindow(t *testing.T) {
	w := NewWindow(3)
	require.True(t, math.IsNaN(w.Mean()))

	for _, v := range []float64{1, 2, 3, 4, 5} {
		w.Add(v)
	}
	require.Equal(t, 3, w.Len())
	require.Equal(t, 4.0, w.Mean())

	w.Clear()
	require.Zero(t, w.Len())
	require.Panics(t, func() { NewWindow(0) })
}

func TestRewardLog(t *testing.T) {
	filename := filepath.Join(t.TempDir(), TrainLog)
	l := NewRewardLog(filename)

	require.NoError(t, l.Append(10, 5432, 1.5))
	require.NoError(t, NewRewardLog(filename).Append(20, 9000, 2.25))

	data, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Equal(t, "10 5432 1.5\n20 9000 2.25\n", string(data))
}
