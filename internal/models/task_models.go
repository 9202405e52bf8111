package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Task string

const (
	TaskSentiment Task = "sentiment"
	TaskEmotion   Task = "emotion"
	TaskSummary   Task = "summary"
)

var Tasks = []Task{TaskSentiment, TaskEmotion, TaskSummary}

func (t Task) Valid() bool {
	switch t {
	case TaskSentiment, TaskEmotion, TaskSummary:
		return true
	default:
		return false
	}
}

func (t Task) String() string {
	return string(t)
}

// ParseTask accepts task names case-insensitively. An unrecognized name is
// returned as-is together with an error so callers can report it.
func ParseTask(s string) (Task, error) {
	t := Task(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return Task(s), fmt.Errorf("unknown task %q", s)
	}
	return t, nil
}

type Classification struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type (
	ResponseStatus string

	// Request is the outbound envelope sent to an out-of-process executor.
	Request struct {
		ID   string `json:"id"`
		Task Task   `json:"task"`
		Text string `json:"text"`
	}

	// Response is the inbound envelope. Result carries the executor's raw
	// output when Status is complete, Error its description otherwise.
	Response struct {
		ID     string          `json:"id"`
		Status ResponseStatus  `json:"status"`
		Result json.RawMessage `json:"result,omitempty"`
		Error  string          `json:"error,omitempty"`
	}
)

const (
	StatusComplete ResponseStatus = "complete"
	StatusError    ResponseStatus = "error"
)
