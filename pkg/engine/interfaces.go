package engine

import "context"

// Resource is the contract every cqctl module implements: observe the
// remote state, then apply the minimal set of actions to converge on the
// desired state. Observation is always re-derived per invocation; nothing
// is cached between calls.
type Resource interface {
	// Reconcile performs one full observe-compare-apply pass and returns
	// the accumulated result. In check mode implementations still observe
	// but suppress every mutating call, reporting the same Changed value a
	// live run would.
	Reconcile(ctx context.Context) (*Result, error)
}
