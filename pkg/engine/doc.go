// Package engine provides the shared reconciliation vocabulary for cqctl.
//
// # Overview
//
// Every cqctl resource module follows the same pass: observe the current
// state on the instance, compare it with the desired state, and apply the
// minimal set of remote actions that converge the two. This package holds
// everything those modules share:
//
//   - Resource: the contract a resource module implements (one Reconcile
//     method, one pass, no retained state)
//   - Result: the accumulated outcome of a pass — whether anything
//     changed and the comma-joined action messages callers print
//   - Error: the classified operation error, carrying an ErrorKind, the
//     failed operation and the offending HTTP response where one exists
//   - Retry: the fixed-interval, wall-clock-bounded retry loop used for
//     every flaky remote operation
//
// # Error Classification
//
// Errors are classified by ErrorKind so callers can react without string
// matching: KindTimeout for an exhausted retry budget, KindRequest for
// transport and HTTP failures, KindUpload and KindInstall for the package
// phases, KindDecode for malformed responses, KindFileNotFound for a
// missing local file, and KindOperation for rejected remote commands.
// KindTransient marks an attempt failure that Retry is allowed to repeat;
// it never escapes to callers — whoever runs the loop wraps an exhausted
// transient error into the terminal kind that names the failed phase.
//
// # Retrying
//
// Retry re-runs an attempt on a fixed interval until it succeeds, returns
// a non-retryable error, the wall-clock budget elapses, or the context is
// cancelled. The budget is checked before sleeping: an attempt is only
// scheduled when there is room for the pause in front of it. The instance
// answers 503 and malformed bodies while it processes packages in the
// background, which is why the interval is long and fixed rather than
// exponential.
package engine
