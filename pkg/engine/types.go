package engine

import "strings"

// Result accumulates the outcome of one reconciliation pass. Messages are
// appended in action order and joined with commas for the process exit
// contract ("package uploaded,package installed").
type Result struct {
	// Changed reports whether any action was taken, or would have been
	// taken in check mode.
	Changed bool `json:"changed"`

	// Messages lists one entry per action, in the order actions ran.
	Messages []string `json:"messages,omitempty"`

	// RunID identifies the invocation in logs and traces.
	RunID string `json:"run_id,omitempty"`
}

// Record marks the result changed and appends an action message.
func (r *Result) Record(message string) {
	r.Changed = true
	r.Messages = append(r.Messages, message)
}

// Message returns the comma-joined action messages. Empty when nothing
// changed.
func (r *Result) Message() string {
	return strings.Join(r.Messages, ",")
}

// Merge folds another result into this one, preserving action order.
func (r *Result) Merge(other *Result) {
	if other == nil {
		return
	}
	if other.Changed {
		r.Changed = true
	}
	r.Messages = append(r.Messages, other.Messages...)
}
