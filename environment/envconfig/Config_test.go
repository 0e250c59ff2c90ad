package envconfig

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateSquash(t *testing.T) {
	env, err := DefaultConfig().Create(7)
	require.NoError(t, err)
	defer env.Close()

	step, err := env.Reset(false)
	require.NoError(t, err)
	require.Len(t, step.Observation, 84*84)
	require.Equal(t, 4, env.NumActions())
	require.Len(t, env.State(), 4*84*84)
}

func TestJSON(t *testing.T) {
	data := []byte(`{
		"Environment": "Gym",
		"GymID": "PongNoFrameskip-v4",
		"Atari": {
			"NoOpSteps": 30,
			"History": 4,
			"Processor": {"CropTop": 34, "CropSize": 160, "Height": 84, "Width": 84}
		}
	}`)

	var c Config
	require.NoError(t, json.Unmarshal(data, &c))
	require.Equal(t, Gym, c.Environment)
	require.Equal(t, 30, c.Atari.NoOpSteps)
	require.NoError(t, c.Validate())
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.Environment = "Pinball"
	require.Error(t, c.Validate())

	c = NewGymConfig("")
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.Atari.History = 0
	_, err := c.Create(0)
	require.Error(t, err)
}
