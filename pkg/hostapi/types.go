// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package hostapi defines the wire types and service contract shared between
// the runtime and host executables. Backend hosts receive these over
// go-plugin's net/rpc protocol; the frontend host implements the same
// contract in process.
package hostapi

import "context"

// PluginName is the go-plugin dispense key for the host service.
const PluginName = "host"

// APICapability describes one capability of the extension API surface
// exposed to plugins running under a host.
type APICapability struct {
	Name    string
	Version string
}

// InitParams is the one-time initialization handshake payload: everything a
// freshly created host needs before any plugin starts.
type InitParams struct {
	Preferences      map[string]string
	GlobalStorage    map[string]string
	WorkspaceStorage map[string]string
	API              []APICapability
}

// StartRequest is the minimized per-plugin start payload. Contribution and
// activation-event data is consumed runtime-side and stripped here to keep
// cross-channel messages small.
type StartRequest struct {
	ID      string
	Name    string
	Version string
	Host    string
	Entry   string
}

// HostService is the RPC surface of an execution host.
type HostService interface {
	// Init performs the one-time initialization handshake.
	Init(ctx context.Context, params InitParams) error

	// StartPlugins starts a batch of plugins, replaying the accumulated
	// activation events so late-connecting hosts catch up.
	StartPlugins(ctx context.Context, reqs []StartRequest, firedEvents []string) error

	// ActivateByEvent activates any plugin waiting on the event.
	ActivateByEvent(ctx context.Context, event string) error

	// StopPlugin stops a started plugin. Stopping an unknown plugin is a
	// harmless no-op.
	StopPlugin(ctx context.Context, id string) error
}

// Request envelopes for the net/rpc transport. Every message is tagged with
// the channel's session identifier so a host can reject calls from a stale
// session after a reconnect.

// InitRequest wraps InitParams.
type InitRequest struct {
	Session string
	Params  InitParams
}

// StartPluginsRequest wraps a batched start.
type StartPluginsRequest struct {
	Session     string
	Requests    []StartRequest
	FiredEvents []string
}

// ActivateRequest wraps an activation event.
type ActivateRequest struct {
	Session string
	Event   string
}

// StopRequest wraps a plugin stop.
type StopRequest struct {
	Session string
	ID      string
}
