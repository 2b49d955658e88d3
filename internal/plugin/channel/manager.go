// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package channel

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/samber/oops"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// HostChannel is the live channel to one execution host. At most one exists
// per host key at a time; a new one is created only after the previous is
// fully torn down. Entries reference channels by host key, never by pointer.
type HostChannel struct {
	key     plugin.HostKey
	session string
	proxy   HostProxy
	dead    atomic.Bool
}

// Key returns the host key.
func (c *HostChannel) Key() plugin.HostKey { return c.key }

// Session returns the channel's session identifier.
func (c *HostChannel) Session() string { return c.session }

// Alive reports whether the channel is still usable.
func (c *HostChannel) Alive() bool { return !c.dead.Load() }

// StartPlugins issues the batched start call with the accumulated activation
// events.
func (c *HostChannel) StartPlugins(ctx context.Context, reqs []hostapi.StartRequest, firedEvents []string) error {
	return c.proxy.StartPlugins(ctx, reqs, firedEvents)
}

// ActivateByEvent notifies the host of an activation event.
func (c *HostChannel) ActivateByEvent(ctx context.Context, event string) error {
	return c.proxy.ActivateByEvent(ctx, event)
}

// StopPlugin stops one plugin on the host.
func (c *HostChannel) StopPlugin(ctx context.Context, id plugin.ID) error {
	return c.proxy.StopPlugin(ctx, string(id))
}

// Manager owns the channel registry: lazy creation with a one-time
// initialization handshake, and teardown that frees the slot so a later
// Obtain dials fresh.
type Manager struct {
	factory TransportFactory
	prefs   plugin.PreferenceSource
	storage plugin.StorageSource
	api     []hostapi.APICapability

	mu           sync.Mutex
	channels     map[plugin.HostKey]*HostChannel
	onDisconnect func(plugin.HostKey)
}

// ManagerOption configures the Manager.
type ManagerOption func(*Manager)

// WithAPI sets the extension-API capability surface described to hosts at
// initialization.
func WithAPI(api []hostapi.APICapability) ManagerOption {
	return func(m *Manager) { m.api = api }
}

// NewManager creates a channel manager.
func NewManager(factory TransportFactory, prefs plugin.PreferenceSource, storage plugin.StorageSource, opts ...ManagerOption) *Manager {
	m := &Manager{
		factory:  factory,
		prefs:    prefs,
		storage:  storage,
		channels: make(map[plugin.HostKey]*HostChannel),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnDisconnect registers the callback invoked when a channel's transport
// dies. The callback runs on the transport watcher goroutine; it must not
// mutate tracker state directly.
func (m *Manager) OnDisconnect(fn func(plugin.HostKey)) {
	m.mu.Lock()
	m.onDisconnect = fn
	m.mu.Unlock()
}

// Obtain returns the live channel for key, creating it if absent. Entries
// share the channel: an existing channel is returned unchanged. If the
// in-flight reconciliation is superseded before the handshake completes, the
// partially-constructed channel is discarded and (nil, nil) is returned.
func (m *Manager) Obtain(ctx context.Context, key plugin.HostKey, superseded func() bool) (*HostChannel, error) {
	m.mu.Lock()
	if ch, ok := m.channels[key]; ok && ch.Alive() {
		m.mu.Unlock()
		return ch, nil
	}
	m.mu.Unlock()

	if superseded() {
		return nil, nil
	}

	session := newSessionID()
	proxy, err := m.factory.Dial(ctx, key, session)
	if err != nil {
		return nil, oops.Code("CHANNEL_DIAL_FAILED").
			With("host", string(key)).
			Wrapf(err, "dial host %s", key)
	}

	params, err := m.initParams(ctx)
	if err != nil {
		_ = proxy.Close()
		return nil, err
	}
	if err := proxy.Init(ctx, params); err != nil {
		_ = proxy.Close()
		return nil, oops.Code("CHANNEL_INIT_FAILED").
			With("host", string(key)).
			Wrapf(err, "initialize host %s", key)
	}

	// Superseded mid-handshake: discard, never promote to live.
	if superseded() {
		_ = proxy.Close()
		return nil, nil
	}

	ch := &HostChannel{key: key, session: session, proxy: proxy}
	m.mu.Lock()
	m.channels[key] = ch
	m.mu.Unlock()

	go m.watch(ch)

	slog.Info("host channel established",
		"host", string(key),
		"session", session)
	return ch, nil
}

// initParams assembles the handshake payload: merged preferences, global and
// workspace-scoped storage values, and the API capability surface.
func (m *Manager) initParams(ctx context.Context) (hostapi.InitParams, error) {
	prefs, err := m.prefs.Preferences(ctx)
	if err != nil {
		return hostapi.InitParams{}, oops.Code("CHANNEL_PREFS_FAILED").Wrapf(err, "load preferences")
	}
	global, err := m.storage.Values(ctx, plugin.ScopeGlobal)
	if err != nil {
		return hostapi.InitParams{}, oops.Code("CHANNEL_STORAGE_FAILED").Wrapf(err, "load global storage")
	}
	workspace, err := m.storage.Values(ctx, plugin.ScopeWorkspace)
	if err != nil {
		return hostapi.InitParams{}, oops.Code("CHANNEL_STORAGE_FAILED").Wrapf(err, "load workspace storage")
	}
	return hostapi.InitParams{
		Preferences:      prefs,
		GlobalStorage:    global,
		WorkspaceStorage: workspace,
		API:              m.api,
	}, nil
}

// watch waits for the transport to die, then retires the channel.
func (m *Manager) watch(ch *HostChannel) {
	<-ch.proxy.Done()
	if ch.dead.Swap(true) {
		return
	}

	m.mu.Lock()
	if m.channels[ch.key] == ch {
		delete(m.channels, ch.key)
	}
	fn := m.onDisconnect
	m.mu.Unlock()

	slog.Warn("host channel disconnected",
		"host", string(ch.key),
		"session", ch.session)
	if fn != nil {
		fn(ch.key)
	}
}

// Get returns the live channel for key, if any.
func (m *Manager) Get(key plugin.HostKey) (*HostChannel, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch, ok := m.channels[key]
	if !ok || !ch.Alive() {
		return nil, false
	}
	return ch, true
}

// Live returns all currently-live channels.
func (m *Manager) Live() []*HostChannel {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*HostChannel, 0, len(m.channels))
	for _, ch := range m.channels {
		if ch.Alive() {
			out = append(out, ch)
		}
	}
	return out
}

// Dispose tears down the channel for key, closing the transport and freeing
// the slot so a later Obtain dials fresh.
func (m *Manager) Dispose(key plugin.HostKey) {
	m.mu.Lock()
	ch, ok := m.channels[key]
	if ok {
		delete(m.channels, key)
	}
	m.mu.Unlock()

	if !ok {
		return
	}
	ch.dead.Store(true)
	if err := ch.proxy.Close(); err != nil {
		slog.Warn("failed to close host channel",
			"host", string(key),
			"error", err)
	}
}

// Close disposes every channel.
func (m *Manager) Close() {
	m.mu.Lock()
	keys := make([]plugin.HostKey, 0, len(m.channels))
	for key := range m.channels {
		keys = append(keys, key)
	}
	m.mu.Unlock()

	for _, key := range keys {
		m.Dispose(key)
	}
}
