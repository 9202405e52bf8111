package models

// SourceDemo tags output of the opt-in demo backend. Results carrying it are
// marked Degraded.
const SourceDemo = "demo"

// RawOutput is the tagged form of whatever a backend produced. Exactly one of
// Classes or Summary is meaningful, selected by Task.
type RawOutput struct {
	Task    Task             `json:"task"`
	Classes []Classification `json:"classes,omitempty"`
	Summary *string          `json:"summary,omitempty"`
	Source  string           `json:"source,omitempty"`
}

func ClassesOutput(task Task, classes ...Classification) RawOutput {
	return RawOutput{Task: task, Classes: classes}
}

func SummaryOutput(text string) RawOutput {
	return RawOutput{Task: TaskSummary, Summary: &text}
}

// Result is the normalized contract handed to callers.
type Result struct {
	Task    Task             `json:"task"`
	Classes []Classification `json:"classes,omitempty"`
	Summary string           `json:"summary,omitempty"`
	Source  string           `json:"source,omitempty"`
	// Degraded marks canned demo output, never a real model result.
	Degraded bool `json:"degraded,omitempty"`
}

func (r Result) Top() (Classification, bool) {
	if len(r.Classes) == 0 {
		return Classification{}, false
	}
	return r.Classes[0], true
}
