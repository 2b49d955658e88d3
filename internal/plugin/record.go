// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package plugin defines the core model of the plugin runtime: deployment
// records, lifecycle states, disposables, and the contracts of external
// collaborators (deployment source, metadata reader, contribution applier,
// preference and storage providers).
package plugin

// ID uniquely identifies a deployed plugin (publisher.name form).
type ID string

// HostKey identifies the execution host a plugin runs under. The frontend
// host is a fixed well-known key; backend hosts are named.
type HostKey string

// FrontendHost is the host key for frontend-hosted plugins.
const FrontendHost HostKey = "frontend"

// IsFrontend reports whether the key names the frontend host.
func (k HostKey) IsFrontend() bool { return k == FrontendHost }

// CommandContribution declares a command a plugin contributes statically.
type CommandContribution struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title,omitempty"`
}

// ViewContribution declares a view a plugin contributes statically.
type ViewContribution struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name,omitempty"`
}

// Contributions holds everything a plugin registers before its code runs.
type Contributions struct {
	Commands          []CommandContribution `yaml:"commands,omitempty"`
	Views             []ViewContribution    `yaml:"views,omitempty"`
	DebugTypes        []string              `yaml:"debug-types,omitempty"`
	TaskTypes         []string              `yaml:"task-types,omitempty"`
	WorkspaceContains []string              `yaml:"workspace-contains,omitempty"`
}

// Record is the immutable deployment metadata of one plugin, produced by a
// MetadataReader and owned by the deployment registry.
type Record struct {
	ID               ID
	Name             string
	Version          string
	Target           HostKey
	FrontendEntry    string
	BackendEntry     string
	ActivationEvents []string
	Contributions    Contributions
}

// StartHost derives the host a record starts under. A plugin with a frontend
// entry point always starts under the frontend host, regardless of its
// declared default target.
func (r *Record) StartHost() HostKey {
	if r.FrontendEntry != "" {
		return FrontendHost
	}
	if r.Target != "" {
		return r.Target
	}
	return FrontendHost
}

// Entry returns the entry point matching the start host.
func (r *Record) Entry() string {
	if r.StartHost().IsFrontend() {
		return r.FrontendEntry
	}
	return r.BackendEntry
}

// Snapshot is one wholesale report of what is deployed, partitioned by
// target family. It is replaced, never merged: an id absent from the latest
// snapshot is authoritative for removal.
type Snapshot struct {
	Frontend []ID
	Backend  []ID
}

// All returns frontend then backend ids, preserving order within each family.
func (s Snapshot) All() []ID {
	out := make([]ID, 0, len(s.Frontend)+len(s.Backend))
	out = append(out, s.Frontend...)
	out = append(out, s.Backend...)
	return out
}

// Contains reports whether id is present in either family.
func (s Snapshot) Contains(id ID) bool {
	for _, v := range s.Frontend {
		if v == id {
			return true
		}
	}
	for _, v := range s.Backend {
		if v == id {
			return true
		}
	}
	return false
}
