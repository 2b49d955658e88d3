// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package registry holds the set of plugins currently reported as deployed,
// partitioned by execution target family.
package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// Registry is the deployment registry. Snapshots replace prior state
// wholesale; records are keyed by id with first registration winning.
// Two readiness gates (frontend, backend) close exactly once, on the first
// update covering that family, even when it deploys zero plugins.
type Registry struct {
	mu       sync.RWMutex
	snapshot plugin.Snapshot
	records  map[plugin.ID]*plugin.Record

	frontendReady chan struct{}
	backendReady  chan struct{}
	frontendOnce  sync.Once
	backendOnce   sync.Once
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		records:       make(map[plugin.ID]*plugin.Record),
		frontendReady: make(chan struct{}),
		backendReady:  make(chan struct{}),
	}
}

// Update replaces the deployment snapshot and registers any new records.
// Re-registering a known id is a no-op: first registration wins, which keeps
// repeated deploy triggers from producing duplicate side effects.
func (r *Registry) Update(snap plugin.Snapshot, recs []*plugin.Record) {
	r.mu.Lock()
	r.snapshot = snap
	for _, rec := range recs {
		if rec == nil {
			continue
		}
		if _, ok := r.records[rec.ID]; ok {
			continue
		}
		r.records[rec.ID] = rec
		slog.Debug("plugin deployed",
			"plugin", string(rec.ID),
			"version", rec.Version,
			"host", string(rec.StartHost()))
	}
	// Drop records for ids no longer deployed so a re-deploy of the same id
	// later is treated as a fresh registration.
	for id := range r.records {
		if !snap.Contains(id) {
			delete(r.records, id)
		}
	}
	r.mu.Unlock()

	r.frontendOnce.Do(func() { close(r.frontendReady) })
	r.backendOnce.Do(func() { close(r.backendReady) })
}

// DeployedIDs returns the ordered ids of the latest snapshot. An empty host
// key returns both families, frontend first.
func (r *Registry) DeployedIDs(target plugin.HostKey) []plugin.ID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case target == "":
		return r.snapshot.All()
	case target.IsFrontend():
		return append([]plugin.ID(nil), r.snapshot.Frontend...)
	default:
		return append([]plugin.ID(nil), r.snapshot.Backend...)
	}
}

// Deployed returns the record for id, if deployed.
func (r *Registry) Deployed(id plugin.ID) (*plugin.Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	return rec, ok
}

// FrontendReady is closed after the first deployment pass.
func (r *Registry) FrontendReady() <-chan struct{} { return r.frontendReady }

// BackendReady is closed after the first deployment pass.
func (r *Registry) BackendReady() <-chan struct{} { return r.backendReady }

// FrontendMetadata blocks until the first deployment pass completes, then
// returns the latest frontend records synchronously.
func (r *Registry) FrontendMetadata(ctx context.Context) ([]*plugin.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.frontendReady:
	}
	return r.metadataFor(plugin.FrontendHost), nil
}

// BackendMetadata blocks until the first deployment pass completes, then
// returns the latest backend records synchronously.
func (r *Registry) BackendMetadata(ctx context.Context) ([]*plugin.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-r.backendReady:
	}
	return r.metadataFor(""), nil
}

func (r *Registry) metadataFor(target plugin.HostKey) []*plugin.Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.snapshot.Backend
	if target.IsFrontend() {
		ids = r.snapshot.Frontend
	}
	out := make([]*plugin.Record, 0, len(ids))
	for _, id := range ids {
		if rec, ok := r.records[id]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// Ready reports whether the first deployment pass has completed. Used as the
// readiness probe for the observability server.
func (r *Registry) Ready() bool {
	select {
	case <-r.frontendReady:
		return true
	default:
		return false
	}
}
