// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package lifecycle tracks each deployed plugin through its contribution
// lifecycle: discovery, static contribution registration, and process start.
package lifecycle

import (
	"log/slog"
	"sync"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// Entry is the tracked lifecycle state of one deployed plugin. It owns the
// record and a disposal list released when the plugin is unloaded. Entries
// reference their host channel by key only, never by pointer.
type Entry struct {
	Record      *plugin.Record
	Disposables *plugin.DisposableCollection

	state plugin.State
	mu    sync.Mutex
}

// State returns the current lifecycle stage.
func (e *Entry) State() plugin.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Entry) setState(s plugin.State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

// Tracker is the contribution lifecycle state machine. All mutation happens
// on the reconciliation loop; reads are safe from anywhere.
type Tracker struct {
	mu        sync.RWMutex
	entries   map[plugin.ID]*Entry
	onChanged func()
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{entries: make(map[plugin.ID]*Entry)}
}

// OnChanged registers the callback fired after any Sync that added or
// removed entries. At most one call per Sync, regardless of batch size.
func (t *Tracker) OnChanged(fn func()) {
	t.mu.Lock()
	t.onChanged = fn
	t.mu.Unlock()
}

// Sync reconciles tracked entries against the deployed id set. Entries whose
// id disappeared are disposed and dropped immediately; new ids get an entry
// in the initializing state, with their record resolved through fetch. An id
// whose record cannot be resolved is skipped silently.
func (t *Tracker) Sync(deployed []plugin.ID, fetch func(plugin.ID) (*plugin.Record, bool)) (added, removed int) {
	want := make(map[plugin.ID]struct{}, len(deployed))
	for _, id := range deployed {
		want[id] = struct{}{}
	}

	t.mu.Lock()
	var toDispose []*Entry
	for id, e := range t.entries {
		if _, ok := want[id]; !ok {
			toDispose = append(toDispose, e)
			delete(t.entries, id)
			removed++
		}
	}
	for _, id := range deployed {
		if _, ok := t.entries[id]; ok {
			continue
		}
		rec, ok := fetch(id)
		if !ok {
			continue
		}
		t.entries[id] = &Entry{
			Record:      rec,
			Disposables: &plugin.DisposableCollection{},
			state:       plugin.StateInitializing,
		}
		added++
	}
	changed := t.onChanged
	t.mu.Unlock()

	// Removal guarantees: the disposal list runs to completion before this
	// call returns, so before the next reconciliation pass begins.
	for _, e := range toDispose {
		slog.Info("unloading plugin", "plugin", string(e.Record.ID))
		e.Disposables.Dispose()
	}

	if (added > 0 || removed > 0) && changed != nil {
		changed()
	}
	return added, removed
}

// LoadContributions advances every initializing entry through contribution
// registration and stages loaded entries for start, together with entries
// left starting by a failed start. It never fails: one
// malformed plugin must not block others, so per-entry errors are logged and
// the entry is left where it was. Returns entries to start grouped by host.
func (t *Tracker) LoadContributions(applier plugin.ContributionApplier, superseded func() bool) map[plugin.HostKey][]*Entry {
	t.mu.RLock()
	entries := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entries = append(entries, e)
	}
	t.mu.RUnlock()

	for _, e := range entries {
		if superseded() {
			return nil
		}
		if e.State() != plugin.StateInitializing {
			continue
		}
		e.setState(plugin.StateLoading)
		id := e.Record.ID
		e.Disposables.PushFunc(func() {
			slog.Debug("plugin contributions released", "plugin", string(id))
		})
		disp, err := applier.Apply(string(id), e.Record)
		if err != nil {
			slog.Error("failed to register plugin contributions",
				"plugin", string(id),
				"error", err)
			e.setState(plugin.StateInitializing)
			continue
		}
		e.Disposables.Push(disp)
		e.setState(plugin.StateLoaded)
	}

	// Passes are serialized, so an entry still in the starting state here is
	// a failed start from an earlier pass; stage it again.
	byHost := make(map[plugin.HostKey][]*Entry)
	for _, e := range entries {
		if superseded() {
			return nil
		}
		switch e.State() {
		case plugin.StateLoaded, plugin.StateStarting:
		default:
			continue
		}
		e.setState(plugin.StateStarting)
		host := e.Record.StartHost()
		byHost[host] = append(byHost[host], e)
	}
	return byHost
}

// MarkStarted records a successful process start for the entry.
func (t *Tracker) MarkStarted(e *Entry) {
	e.setState(plugin.StateStarted)
}

// Downgrade returns every started or starting entry under host to the loaded
// state. Contributions stay registered; only the process-level start must be
// redone. Entries under other hosts are untouched.
func (t *Tracker) Downgrade(host plugin.HostKey) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, e := range t.entries {
		if e.Record.StartHost() != host {
			continue
		}
		switch e.State() {
		case plugin.StateStarting, plugin.StateStarted:
			e.setState(plugin.StateLoaded)
			n++
		}
	}
	return n
}

// Entry returns the tracked entry for id, if any.
func (t *Tracker) Entry(id plugin.ID) (*Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	return e, ok
}

// IDs returns the ids of all tracked entries.
func (t *Tracker) IDs() []plugin.ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]plugin.ID, 0, len(t.entries))
	for id := range t.entries {
		ids = append(ids, id)
	}
	return ids
}
