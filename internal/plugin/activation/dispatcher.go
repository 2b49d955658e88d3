// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package activation

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lodestar-ide/lodestar/internal/plugin/channel"
)

// Activations is the counter for dispatched activation events.
// Use RegisterMetrics to register this with a Prometheus registry.
var Activations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lodestar_activation_events_total",
		Help: "Total number of activation events dispatched by namespace",
	},
	[]string{"namespace"},
)

// RegisterMetrics registers activation metrics with the given registry.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Activations)
}

// ChannelLister lists the currently-live host channels.
type ChannelLister interface {
	Live() []*channel.HostChannel
}

// Dispatcher owns the process-wide set of activation events already fired.
// Firing is idempotent; re-dispatch of a known event is a no-op. The
// accumulated set is replayed wholesale to hosts that connect later via the
// batched start call.
type Dispatcher struct {
	channels ChannelLister

	mu    sync.Mutex
	fired map[string]struct{}
	order []string
}

// NewDispatcher creates a dispatcher over the given channel lister.
func NewDispatcher(channels ChannelLister) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		fired:    make(map[string]struct{}),
	}
}

// ActivateByEvent fires an activation event. A no-op if the event already
// fired; otherwise every live host channel is notified concurrently and all
// notifications are awaited before returning, so callers gating an action on
// activation can block on this.
func (d *Dispatcher) ActivateByEvent(ctx context.Context, event string) error {
	d.mu.Lock()
	if _, ok := d.fired[event]; ok {
		d.mu.Unlock()
		return nil
	}
	d.fired[event] = struct{}{}
	d.order = append(d.order, event)
	d.mu.Unlock()

	Activations.WithLabelValues(namespaceOf(event)).Inc()

	live := d.channels.Live()
	errs := make([]error, len(live))
	var wg sync.WaitGroup
	for i, ch := range live {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ch.ActivateByEvent(ctx, event); err != nil {
				slog.Error("failed to propagate activation event",
					"host", string(ch.Key()),
					"event", event,
					"error", err)
				errs[i] = err
			}
		}()
	}
	wg.Wait()
	return errors.Join(errs...)
}

// ActivateByCommand fires the activation event for a command id.
func (d *Dispatcher) ActivateByCommand(ctx context.Context, commandID string) error {
	return d.ActivateByEvent(ctx, OnCommand(commandID))
}

// ActivateByLanguage fires the activation event for a language id.
func (d *Dispatcher) ActivateByLanguage(ctx context.Context, languageID string) error {
	return d.ActivateByEvent(ctx, OnLanguage(languageID))
}

// ActivateByView fires the activation event for a view id.
func (d *Dispatcher) ActivateByView(ctx context.Context, viewID string) error {
	return d.ActivateByEvent(ctx, OnView(viewID))
}

// ActivateByDebug fires the activation event for a debug type.
func (d *Dispatcher) ActivateByDebug(ctx context.Context, debugType string) error {
	return d.ActivateByEvent(ctx, OnDebug(debugType))
}

// Fired reports whether the event has already been dispatched.
func (d *Dispatcher) Fired(event string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.fired[event]
	return ok
}

// FiredEvents returns the accumulated event set in firing order. The slice
// is a copy.
func (d *Dispatcher) FiredEvents() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.order...)
}

func namespaceOf(event string) string {
	if i := strings.IndexByte(event, ':'); i > 0 {
		return event[:i]
	}
	return "other"
}
