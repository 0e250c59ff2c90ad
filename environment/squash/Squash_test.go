package squash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func (s *Squash) ballX() float64 {
	x, _ := worldToPixel(s.ball.GetPosition())
	return x
}

func newTestGame(t *testing.T) *Squash {
	t.Helper()
	s, err := New(DefaultConfig(), 1)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestReset(t *testing.T) {
	s := newTestGame(t)
	frame, err := s.Reset()
	require.NoError(t, err)
	require.Equal(t, Width, frame.Bounds().Dx())
	require.Equal(t, Height, frame.Bounds().Dy())
	require.Equal(t, 5, s.Lives())
	require.Equal(t, 4, s.NumActions())

	// The ball rests on the paddle and follows it until FIRE is taken
	for i := 0; i < 5; i++ {
		_, reward, done, err := s.Step(Right)
		require.NoError(t, err)
		require.Zero(t, reward)
		require.False(t, done)
	}
	require.True(t, s.held)
	require.InDelta(t, s.paddleX, s.ballX(), 1e-9)
	require.Greater(t, s.paddleX, Width/2.0)

	_, _, _, err = s.Step(4)
	require.Error(t, err)
}

func TestTrackingReturnsBall(t *testing.T) {
	s := newTestGame(t)
	_, err := s.Reset()
	require.NoError(t, err)

	total := 0.0
	for i := 0; i < 500; i++ {
		action := NoOp
		switch {
		case s.held:
			action = Fire
		case s.ballX() > s.paddleX+2:
			action = Right
		case s.ballX() < s.paddleX-2:
			action = Left
		}
		_, reward, done, err := s.Step(action)
		require.NoError(t, err)
		require.False(t, done)
		total += reward
	}
	require.Greater(t, total, 0.0)
	require.Equal(t, total, s.Score())
	require.Equal(t, 5, s.Lives())
}

func TestAvoidingLosesGame(t *testing.T) {
	s := newTestGame(t)
	_, err := s.Reset()
	require.NoError(t, err)

	lives := s.Lives()
	done := false
	for i := 0; i < 20_000 && !done; i++ {
		action := Right
		switch {
		case s.held:
			action = Fire
		case s.ballX() > s.paddleX:
			action = Left
		}

		_, _, done, err = s.Step(action)
		require.NoError(t, err)
		require.LessOrEqual(t, s.Lives(), lives)
		lives = s.Lives()
	}
	require.True(t, done)
	require.Zero(t, s.Lives())

	_, _, _, err = s.Step(NoOp)
	require.Error(t, err)

	_, err = s.Reset()
	require.NoError(t, err)
	require.Equal(t, 5, s.Lives())
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.PaddleWidth = Width
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.FrameSkip = 0
	require.Error(t, c.Validate())
}
