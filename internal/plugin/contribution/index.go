// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package contribution indexes the static contributions of loaded plugins:
// commands, views, debug and task types. It is the default
// ContributionApplier and the command-ownership lookup used by the
// activation interceptor.
package contribution

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// Index registers contributions keyed by their owning plugin. Safe for
// concurrent use.
type Index struct {
	mu         sync.RWMutex
	commands   map[string]plugin.ID
	views      map[string]plugin.ID
	debugTypes map[string]plugin.ID
	taskTypes  map[string]plugin.ID
	applied    map[string]struct{}
}

// NewIndex creates an empty contribution index.
func NewIndex() *Index {
	return &Index{
		commands:   make(map[string]plugin.ID),
		views:      make(map[string]plugin.ID),
		debugTypes: make(map[string]plugin.ID),
		taskTypes:  make(map[string]plugin.ID),
		applied:    make(map[string]struct{}),
	}
}

// Apply implements plugin.ContributionApplier. Applying twice for the same
// client id before disposing the first registration is a caller error.
// Contribution conflicts between plugins are logged, first wins.
func (x *Index) Apply(clientID string, rec *plugin.Record) (plugin.Disposable, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	if _, ok := x.applied[clientID]; ok {
		return nil, fmt.Errorf("contributions already applied for %s", clientID)
	}
	x.applied[clientID] = struct{}{}

	owner := rec.ID
	var undo []func()
	claim := func(kind string, m map[string]plugin.ID, key string) {
		if prev, ok := m[key]; ok {
			slog.Warn("contribution conflict: keeping existing registration",
				"kind", kind,
				"id", key,
				"owner", string(prev),
				"claimant", string(owner))
			return
		}
		m[key] = owner
		undo = append(undo, func() { delete(m, key) })
	}

	for _, c := range rec.Contributions.Commands {
		claim("command", x.commands, c.ID)
	}
	for _, v := range rec.Contributions.Views {
		claim("view", x.views, v.ID)
	}
	for _, d := range rec.Contributions.DebugTypes {
		claim("debug", x.debugTypes, d)
	}
	for _, tt := range rec.Contributions.TaskTypes {
		claim("task", x.taskTypes, tt)
	}

	return plugin.DisposableFunc(func() {
		x.mu.Lock()
		defer x.mu.Unlock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		delete(x.applied, clientID)
	}), nil
}

// CommandOwner returns the plugin that contributed the command.
func (x *Index) CommandOwner(commandID string) (plugin.ID, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.commands[commandID]
	return id, ok
}

// ViewOwner returns the plugin that contributed the view.
func (x *Index) ViewOwner(viewID string) (plugin.ID, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.views[viewID]
	return id, ok
}

// Commands returns all registered command ids.
func (x *Index) Commands() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]string, 0, len(x.commands))
	for id := range x.commands {
		out = append(out, id)
	}
	return out
}
