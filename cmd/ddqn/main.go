// Command ddqn trains a Dueling Double DQN agent on a pixel game.
//
// Each run writes its logs, summaries, GIFs and checkpoints to a new
// directory under the configured path, named by a random run id. A
// run can be continued from the latest checkpoint of a previous run
// with -restore.
package main

import (
	"encoding/json"
	"flag"
	"os"
	"path/filepath"

	"github.com/aunum/log"
	"github.com/google/uuid"
	"github.com/samuelfneumann/ddqn/environment/envconfig"
	"github.com/samuelfneumann/ddqn/experiment"
)

// ConfigFile is the name of the configuration written to each run
// directory
const ConfigFile = "config.json"

func main() {
	configFile := flag.String("config", "", "JSON configuration file, "+
		"fields not given take their default values")
	restore := flag.String("restore", "", "run directory to continue from")
	seed := flag.Uint64("seed", 0, "seed of the agent and environment")
	gymID := flag.String("gym", "", "OpenAI Gym environment to play instead "+
		"of the configured game")
	dump := flag.Bool("dump", false, "print the configuration and exit")
	flag.Parse()

	c := experiment.DefaultConfig()
	if *restore != "" {
		*configFile = filepath.Join(*restore, ConfigFile)
	}
	if *configFile != "" {
		data, err := os.ReadFile(*configFile)
		if err != nil {
			log.Fatalf("could not read configuration: %v", err)
		}
		if err := json.Unmarshal(data, &c); err != nil {
			log.Fatalf("could not parse configuration: %v", err)
		}
	}
	if *gymID != "" {
		c.Env.Environment = envconfig.Gym
		c.Env.GymID = *gymID
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		log.Fatal(err)
	}
	if *dump {
		os.Stdout.Write(append(data, '\n'))
		return
	}

	if *restore != "" {
		c.Path = *restore
	} else {
		id := uuid.New().String()
		c.Path = filepath.Join(c.Path, id)
		log.Infof("starting run %v", id)
	}

	d, err := experiment.Create(c, *seed)
	if err != nil {
		log.Fatal(err)
	}
	defer d.Close()

	if *restore != "" {
		if err := d.Restore(*restore); err != nil {
			log.Fatal(err)
		}
	} else if err := os.WriteFile(filepath.Join(c.Path, ConfigFile), data,
		0o644); err != nil {
		log.Fatal(err)
	}

	if err := d.Run(); err != nil {
		log.Fatal(err)
	}
	log.Successf("finished %d frames in %v", d.Frame(), c.Path)
}
