// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package probe speculatively activates plugins whose declared
// workspace-content triggers match the open workspace. Pattern searches are
// bounded: a slow search fails open into unconditional activation.
package probe

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/activation"
)

// DefaultTimeout bounds a pattern search before the prober fails open.
const DefaultTimeout = 7 * time.Second

// Probe outcome labels.
const (
	OutcomeMatch   = "match"
	OutcomeNoMatch = "no_match"
	OutcomeTimeout = "timeout"
)

// Probes is the counter for workspace-contains probe outcomes.
// Use RegisterMetrics to register this with a Prometheus registry.
var Probes = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lodestar_workspace_probes_total",
		Help: "Total number of workspace-contains probes by outcome",
	},
	[]string{"outcome"},
)

// RegisterMetrics registers probe metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Probes)
}

// Searcher checks workspace contents. Implementations must honor ctx
// cancellation promptly.
type Searcher interface {
	// ExistsAny reports whether any of the exact relative paths exists in
	// an open workspace root. One batched check for all paths.
	ExistsAny(ctx context.Context, paths []string) (bool, error)

	// Search reports whether any workspace file matches the glob-like
	// pattern. A single result is sufficient.
	Search(ctx context.Context, pattern string) (bool, error)
}

// Activator fires an activation event. Satisfied by
// activation.Dispatcher.ActivateByEvent.
type Activator func(ctx context.Context, event string) error

// Prober evaluates workspace-contains triggers.
type Prober struct {
	searcher Searcher
	activate Activator
	timeout  time.Duration
}

// NewProber creates a prober. timeout <= 0 selects DefaultTimeout.
func NewProber(searcher Searcher, activate Activator, timeout time.Duration) *Prober {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Prober{searcher: searcher, activate: activate, timeout: timeout}
}

// Probe evaluates rec's workspace-contains triggers and fires the plugin's
// install event at most once if any branch matches. Late calls after the
// plugin stopped are harmless: the install event is idempotent and a stopped
// plugin ignores it.
func (p *Prober) Probe(ctx context.Context, rec *plugin.Record) {
	triggers := rec.Contributions.WorkspaceContains
	if len(triggers) == 0 {
		return
	}

	var paths, patterns []string
	for _, t := range triggers {
		if isPattern(t) {
			patterns = append(patterns, t)
		} else {
			paths = append(paths, t)
		}
	}

	if len(paths) > 0 {
		ok, err := p.searcher.ExistsAny(ctx, paths)
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Warn("workspace existence check failed",
				"plugin", string(rec.ID),
				"error", err)
		}
		if ok {
			Probes.WithLabelValues(OutcomeMatch).Inc()
			p.fire(ctx, rec.ID)
			return
		}
	}

	if len(patterns) > 0 && p.searchAny(ctx, rec.ID, patterns) {
		p.fire(ctx, rec.ID)
		return
	}

	Probes.WithLabelValues(OutcomeNoMatch).Inc()
}

// searchAny runs the bounded pattern search. On timer expiry the search is
// cancelled and the plugin activates unconditionally: a possibly-unnecessary
// activation is preferred over never activating.
func (p *Prober) searchAny(ctx context.Context, id plugin.ID, patterns []string) bool {
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		matched bool
		err     error
	}
	results := make(chan result, len(patterns))
	for _, pattern := range patterns {
		go func() {
			matched, err := p.searcher.Search(searchCtx, pattern)
			results <- result{matched: matched, err: err}
		}()
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()

	pending := len(patterns)
	for pending > 0 {
		select {
		case <-timer.C:
			cancel()
			slog.Warn("workspace search timed out, activating eagerly",
				"plugin", string(id),
				"timeout", p.timeout)
			Probes.WithLabelValues(OutcomeTimeout).Inc()
			return true
		case r := <-results:
			pending--
			switch {
			case r.err != nil && !errors.Is(r.err, context.Canceled):
				// Non-cancellation search errors degrade to "no match"
				// for that branch only.
				slog.Warn("workspace search failed",
					"plugin", string(id),
					"error", r.err)
			case r.matched:
				cancel()
				Probes.WithLabelValues(OutcomeMatch).Inc()
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
	return false
}

func (p *Prober) fire(ctx context.Context, id plugin.ID) {
	if err := p.activate(ctx, activation.InstallEvent(string(id))); err != nil {
		slog.Error("failed to fire install event",
			"plugin", string(id),
			"error", err)
	}
}

// isPattern reports whether a trigger is glob-like rather than an exact
// relative path.
func isPattern(trigger string) bool {
	return strings.ContainsAny(trigger, "*?[{")
}
