// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package plugin

// State is a lifecycle stage of a tracked plugin. Progression is strictly
// ordered; the only backward transition is Started/Starting falling back to
// Loaded when the owning host channel disconnects.
type State int

// Lifecycle stages in order.
const (
	StateInitializing State = iota
	StateLoading
	StateLoaded
	StateStarting
	StateStarted
)

// String returns the stage name for logs.
func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateStarting:
		return "starting"
	case StateStarted:
		return "started"
	default:
		return "unknown"
	}
}
