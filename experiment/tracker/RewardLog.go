package tracker

import (
	"fmt"
	"os"
	"strings"
)

// Names of the reward logs written during an experiment
const (
	TrainLog = "rewards.dat"
	EvalLog  = "rewardsEval.dat"
)

// RewardLog is an append-only text log with one record per line and
// space-separated fields. Records written before the log was opened
// are kept, so that a restored experiment continues the same log.
type RewardLog struct {
	filename string
}

// NewRewardLog returns a RewardLog which appends records to filename
func NewRewardLog(filename string) *RewardLog {
	return &RewardLog{filename: filename}
}

// Filename returns the name of the file the log appends to
func (r *RewardLog) Filename() string {
	return r.filename
}

// Append appends a single record to the log
func (r *RewardLog) Append(fields ...interface{}) error {
	file, err := os.OpenFile(r.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0o644)
	if err != nil {
		return fmt.Errorf("append: could not open log: %v", err)
	}

	line := make([]string, len(fields))
	for i, field := range fields {
		line[i] = fmt.Sprint(field)
	}
	if _, err := fmt.Fprintln(file, strings.Join(line, " ")); err != nil {
		file.Close()
		return fmt.Errorf("append: could not write record: %v", err)
	}
	return file.Close()
}
