// Package packages implements the package reconciler: it compares the
// observed installation state of a named package on a CQ/AEM instance with
// the desired state and converges by uploading, installing, uninstalling
// and deleting through the package manager HTTP API, tolerating the
// instance's asynchronous, failure-prone package processing with
// fixed-interval, wall-clock-bounded retries.
package packages

import "fmt"

// State is the desired installation state of a package.
type State string

const (
	// StatePresent means uploaded and installed.
	StatePresent State = "present"

	// StateAbsent means uninstalled and removed from the package manager.
	StateAbsent State = "absent"

	// StateUploaded means present in the package manager, installed or not.
	StateUploaded State = "uploaded"

	// StateUninstalled means not installed; the package may stay uploaded.
	StateUninstalled State = "uninstalled"
)

// ParseState converts a CLI state argument into a State.
func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePresent, StateAbsent, StateUploaded, StateUninstalled:
		return State(s), nil
	}
	return "", fmt.Errorf("unknown package state %q (want present, absent, uploaded or uninstalled)", s)
}

// Entry is one package in the package manager listing.
type Entry struct {
	// Name is the package name as registered in the package manager.
	Name string `json:"name"`

	// Group is the namespace the package is registered under; it is
	// discovered from the listing, never supplied by the caller, and is
	// required to build install/uninstall/delete URLs.
	Group string `json:"group"`

	// DownloadName is the package filename, which is how callers usually
	// identify a package.
	DownloadName string `json:"downloadName,omitempty"`

	// Version is the package version, informational only.
	Version string `json:"version,omitempty"`

	// LastUnpacked is the install timestamp. A non-empty value is the
	// sole signal that the package is installed.
	LastUnpacked string `json:"lastUnpacked,omitempty"`
}

// Installed reports whether the entry carries an install timestamp.
func (e Entry) Installed() bool {
	return e.LastUnpacked != ""
}

// Matches reports whether the entry is identified by name, either as its
// package name or its download filename.
func (e Entry) Matches(name string) bool {
	return e.Name == name || e.DownloadName == name
}

// Listing is the decoded package manager listing.
type Listing struct {
	// Results holds the listed packages in listing order.
	Results []Entry `json:"results"`

	// Total is the entry count reported by the flat listing format.
	Total int `json:"total,omitempty"`
}

// Lookup is the outcome of searching a listing for a named package.
// Absence is a first-class non-error outcome, not an exception.
type Lookup struct {
	// Entry is the matching package. Only meaningful when Found is true.
	Entry Entry

	// Found reports whether a matching entry exists.
	Found bool
}

// Find searches the listing for the entry identified by name.
func (l *Listing) Find(name string) Lookup {
	for _, e := range l.Results {
		if e.Matches(name) {
			return Lookup{Entry: e, Found: true}
		}
	}
	return Lookup{}
}

// Observed is the installation state derived fresh from the listing on
// every invocation; it is never cached across invocations.
type Observed struct {
	// Uploaded reports whether the package exists in the package manager.
	Uploaded bool

	// Installed reports whether the package carries an install timestamp.
	Installed bool

	// Group is the discovered package group, empty when not uploaded.
	Group string
}
