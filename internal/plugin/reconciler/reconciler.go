// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package reconciler drives the runtime: every deploy, connect, and
// reconnect signal funnels into one serialized, coalescing loop that syncs
// the deployment registry against the lifecycle tracker, registers static
// contributions, and starts host channels. Two passes never run
// concurrently.
package reconciler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/activation"
	"github.com/lodestar-ide/lodestar/internal/plugin/channel"
	"github.com/lodestar-ide/lodestar/internal/plugin/lifecycle"
	"github.com/lodestar-ide/lodestar/internal/plugin/probe"
	"github.com/lodestar-ide/lodestar/internal/plugin/registry"
	"github.com/lodestar-ide/lodestar/pkg/errutil"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// Reconciler is the single logical reconciliation driver. Signals coalesce
// through a capacity-one kick channel: the first signal runs immediately,
// bursts arriving during a pass collapse into exactly one follow-up pass.
// A pass in flight when a newer signal arrives is not aborted mid-step; it
// checks a superseded flag before each externally-visible action and bails
// silently.
type Reconciler struct {
	source     plugin.DeploymentSource
	applier    plugin.ContributionApplier
	registry   *registry.Registry
	tracker    *lifecycle.Tracker
	channels   *channel.Manager
	dispatcher *activation.Dispatcher
	prober     *probe.Prober

	layoutReady func(ctx context.Context) error

	want atomic.Uint64
	kick chan struct{}

	mu         sync.Mutex
	downgrades []plugin.HostKey
	probed     map[plugin.ID]bool
	stopHooked map[plugin.ID]bool

	probeWG sync.WaitGroup
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithLayoutReady sets a wait executed after contribution loading and before
// any host starts (e.g. for the shell layout to settle). The wait is skipped
// when the pass is superseded.
func WithLayoutReady(wait func(ctx context.Context) error) Option {
	return func(r *Reconciler) { r.layoutReady = wait }
}

// New creates a reconciler over its collaborators and wires the channel
// manager's disconnect handling back into the loop.
func New(
	source plugin.DeploymentSource,
	applier plugin.ContributionApplier,
	reg *registry.Registry,
	tracker *lifecycle.Tracker,
	channels *channel.Manager,
	dispatcher *activation.Dispatcher,
	prober *probe.Prober,
	opts ...Option,
) *Reconciler {
	r := &Reconciler{
		source:     source,
		applier:    applier,
		registry:   reg,
		tracker:    tracker,
		channels:   channels,
		dispatcher: dispatcher,
		prober:     prober,
		kick:       make(chan struct{}, 1),
		probed:     make(map[plugin.ID]bool),
		stopHooked: make(map[plugin.ID]bool),
	}
	for _, opt := range opts {
		opt(r)
	}
	channels.OnDisconnect(r.handleDisconnect)
	return r
}

// Schedule requests a reconciliation pass. Safe from any goroutine; rapid
// repeated calls collapse into one pass.
func (r *Reconciler) Schedule() {
	r.want.Add(1)
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run executes the loop until ctx is cancelled. It must be called exactly
// once; all tracked-state mutation happens on this goroutine.
func (r *Reconciler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			r.probeWG.Wait()
			r.channels.Close()
			return
		case <-r.kick:
			r.runPass(ctx)
		}
	}
}

// handleDisconnect runs on a transport watcher goroutine. The downgrade is
// queued and applied at the head of the next pass so tracker mutation stays
// on the loop.
func (r *Reconciler) handleDisconnect(host plugin.HostKey) {
	r.mu.Lock()
	r.downgrades = append(r.downgrades, host)
	r.mu.Unlock()
	r.Schedule()
}

func (r *Reconciler) runPass(ctx context.Context) {
	gen := r.want.Load()
	superseded := func() bool { return r.want.Load() != gen }
	start := time.Now()
	defer func() {
		PassDuration.Observe(time.Since(start).Seconds())
	}()

	r.applyDowngrades()

	ids, err := r.source.DeployedIDs(ctx)
	if err != nil {
		errutil.LogError(slog.Default(), "failed to read deployed plugin ids", err)
		Passes.WithLabelValues(StatusError).Inc()
		return
	}
	recs, err := r.source.DeployedRecords(ctx, ids)
	if err != nil {
		errutil.LogError(slog.Default(), "failed to read deployed plugin records", err)
		Passes.WithLabelValues(StatusError).Inc()
		return
	}

	r.registry.Update(snapshotOf(ids, recs), recs)

	if superseded() {
		Passes.WithLabelValues(StatusSuperseded).Inc()
		return
	}

	added, removed := r.tracker.Sync(r.registry.DeployedIDs(""), func(id plugin.ID) (*plugin.Record, bool) {
		return r.registry.Deployed(id)
	})
	r.pruneRemoved()
	TrackedPlugins.Set(float64(len(r.tracker.IDs())))
	if added > 0 || removed > 0 {
		slog.Info("plugins changed", "added", added, "removed", removed)
	}

	byHost := r.tracker.LoadContributions(r.applier, superseded)
	if superseded() {
		Passes.WithLabelValues(StatusSuperseded).Inc()
		return
	}

	if r.layoutReady != nil {
		if err := r.layoutReady(ctx); err != nil {
			errutil.LogError(slog.Default(), "layout-ready wait failed", err)
			Passes.WithLabelValues(StatusError).Inc()
			return
		}
		if superseded() {
			Passes.WithLabelValues(StatusSuperseded).Inc()
			return
		}
	}

	// One concurrent start per host; a failing host never blocks the rest.
	var wg sync.WaitGroup
	for host, entries := range byHost {
		wg.Add(1)
		go func(host plugin.HostKey, entries []*lifecycle.Entry) {
			defer wg.Done()
			r.startHost(ctx, host, entries, superseded)
		}(host, entries)
	}
	wg.Wait()

	r.scheduleProbes(ctx)

	Passes.WithLabelValues(StatusSuccess).Inc()
}

// applyDowngrades drains queued disconnect downgrades. Entries that were
// started or starting under the disconnected host fall back to loaded; they
// are not destroyed unless the deployment snapshot also dropped them, which
// the following sync handles.
func (r *Reconciler) applyDowngrades() {
	r.mu.Lock()
	hosts := r.downgrades
	r.downgrades = nil
	r.mu.Unlock()

	for _, host := range hosts {
		n := r.tracker.Downgrade(host)
		if n > 0 {
			slog.Info("downgraded plugins after host disconnect",
				"host", string(host),
				"count", n)
		}
	}
}

// startHost obtains (or creates) the host channel and issues one batched
// start call. On failure the entries stay in the starting state and remain
// eligible for retry on the next pass.
func (r *Reconciler) startHost(ctx context.Context, host plugin.HostKey, entries []*lifecycle.Entry, superseded func() bool) {
	ch, err := r.channels.Obtain(ctx, host, superseded)
	if err != nil {
		errutil.LogError(slog.Default(), "failed to obtain host channel", err)
		HostStarts.WithLabelValues(string(host), StatusError).Inc()
		return
	}
	if ch == nil {
		// Superseded mid-handshake.
		return
	}
	if superseded() {
		return
	}

	reqs := make([]hostapi.StartRequest, len(entries))
	for i, e := range entries {
		reqs[i] = hostapi.StartRequest{
			ID:      string(e.Record.ID),
			Name:    e.Record.Name,
			Version: e.Record.Version,
			Host:    string(host),
			Entry:   e.Record.Entry(),
		}
	}

	if err := ch.StartPlugins(ctx, reqs, r.dispatcher.FiredEvents()); err != nil {
		errutil.LogError(slog.Default(), "failed to start plugins on host", err)
		HostStarts.WithLabelValues(string(host), StatusError).Inc()
		return
	}

	for _, e := range entries {
		r.tracker.MarkStarted(e)
		r.hookStop(host, e)
		slog.Info("plugin started",
			"plugin", string(e.Record.ID),
			"host", string(host))
	}
	HostStarts.WithLabelValues(string(host), StatusSuccess).Inc()
}

// hookStop registers the teardown stop call once per tracked entry. The
// disposable resolves the channel by host key at disposal time, so a channel
// replaced across reconnects is never referenced stale and a missing channel
// makes the stop a no-op.
func (r *Reconciler) hookStop(host plugin.HostKey, e *lifecycle.Entry) {
	id := e.Record.ID

	r.mu.Lock()
	if r.stopHooked[id] {
		r.mu.Unlock()
		return
	}
	r.stopHooked[id] = true
	r.mu.Unlock()

	e.Disposables.PushFunc(func() {
		ch, ok := r.channels.Get(host)
		if !ok {
			return
		}
		if err := ch.StopPlugin(context.Background(), id); err != nil {
			slog.Warn("failed to stop plugin",
				"plugin", string(id),
				"host", string(host),
				"error", err)
		}
	})
}

// scheduleProbes launches workspace-contains probing for entries not yet
// probed. Probing is async and unordered relative to later passes; a late
// activation after a plugin stopped is a harmless no-op.
func (r *Reconciler) scheduleProbes(ctx context.Context) {
	if r.prober == nil {
		return
	}
	for _, id := range r.tracker.IDs() {
		e, ok := r.tracker.Entry(id)
		if !ok || len(e.Record.Contributions.WorkspaceContains) == 0 {
			continue
		}
		r.mu.Lock()
		done := r.probed[id]
		if !done {
			r.probed[id] = true
		}
		r.mu.Unlock()
		if done {
			continue
		}

		rec := e.Record
		r.probeWG.Add(1)
		go func() {
			defer r.probeWG.Done()
			r.prober.Probe(ctx, rec)
		}()
	}
}

// pruneRemoved forgets per-plugin bookkeeping for ids no longer tracked.
func (r *Reconciler) pruneRemoved() {
	tracked := make(map[plugin.ID]struct{})
	for _, id := range r.tracker.IDs() {
		tracked[id] = struct{}{}
	}
	r.mu.Lock()
	for id := range r.probed {
		if _, ok := tracked[id]; !ok {
			delete(r.probed, id)
		}
	}
	for id := range r.stopHooked {
		if _, ok := tracked[id]; !ok {
			delete(r.stopHooked, id)
		}
	}
	r.mu.Unlock()
}

// snapshotOf partitions deployed ids by target family, preserving source
// order.
func snapshotOf(ids []plugin.ID, recs []*plugin.Record) plugin.Snapshot {
	byID := make(map[plugin.ID]*plugin.Record, len(recs))
	for _, rec := range recs {
		if rec != nil {
			byID[rec.ID] = rec
		}
	}
	var snap plugin.Snapshot
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			continue
		}
		if rec.StartHost().IsFrontend() {
			snap.Frontend = append(snap.Frontend, id)
		} else {
			snap.Backend = append(snap.Backend, id)
		}
	}
	return snap
}
