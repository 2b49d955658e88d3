// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package activation_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/activation"
	"github.com/lodestar-ide/lodestar/internal/plugin/channel"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// eventSink is a fake host that records activation events it receives.
type eventSink struct {
	mu     sync.Mutex
	events []string
}

func (s *eventSink) Init(context.Context, hostapi.InitParams) error { return nil }
func (s *eventSink) StartPlugins(context.Context, []hostapi.StartRequest, []string) error {
	return nil
}
func (s *eventSink) StopPlugin(context.Context, string) error { return nil }

func (s *eventSink) ActivateByEvent(_ context.Context, event string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *eventSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.events...)
}

// sinkFactory dials in-process proxies over a shared eventSink.
type sinkFactory struct {
	sink *eventSink
}

func (f *sinkFactory) Dial(context.Context, plugin.HostKey, string) (channel.HostProxy, error) {
	return channel.NewInProcessProxy(f.sink), nil
}

func liveManager(t *testing.T, sink *eventSink, keys ...plugin.HostKey) *channel.Manager {
	t.Helper()
	m := channel.NewManager(&sinkFactory{sink: sink}, plugin.StaticPreferences{}, plugin.StaticStorage{})
	for _, key := range keys {
		_, err := m.Obtain(context.Background(), key, func() bool { return false })
		require.NoError(t, err)
	}
	return m
}

func TestDispatcher_ActivateByEventPropagates(t *testing.T) {
	sink := &eventSink{}
	m := liveManager(t, sink, plugin.FrontendHost, "node")
	d := activation.NewDispatcher(m)

	err := d.ActivateByEvent(context.Background(), "onLanguage:go")
	require.NoError(t, err)

	// Both channels share the sink, so the event arrives twice.
	assert.Equal(t, []string{"onLanguage:go", "onLanguage:go"}, sink.received())
	assert.True(t, d.Fired("onLanguage:go"))
}

func TestDispatcher_ActivateByEventIdempotent(t *testing.T) {
	sink := &eventSink{}
	m := liveManager(t, sink, plugin.FrontendHost)
	d := activation.NewDispatcher(m)

	require.NoError(t, d.ActivateByEvent(context.Background(), "onCommand:fmt.run"))
	require.NoError(t, d.ActivateByEvent(context.Background(), "onCommand:fmt.run"))

	assert.Equal(t, []string{"onCommand:fmt.run"}, sink.received())
}

func TestDispatcher_FiredEventsPreservesOrder(t *testing.T) {
	d := activation.NewDispatcher(liveManager(t, &eventSink{}))

	ctx := context.Background()
	require.NoError(t, d.ActivateByLanguage(ctx, "go"))
	require.NoError(t, d.ActivateByCommand(ctx, "fmt.run"))
	require.NoError(t, d.ActivateByView(ctx, "outline"))
	require.NoError(t, d.ActivateByDebug(ctx, "dlv"))
	require.NoError(t, d.ActivateByEvent(ctx, activation.InstallEvent("pub.tools")))

	assert.Equal(t, []string{
		"onLanguage:go",
		"onCommand:fmt.run",
		"onView:outline",
		"onDebug:dlv",
		"onPlugin:pub.tools",
	}, d.FiredEvents())

	// The returned slice is a copy.
	events := d.FiredEvents()
	events[0] = "mutated"
	assert.Equal(t, "onLanguage:go", d.FiredEvents()[0])
}

func TestDispatcher_ConcurrentSameEvent(t *testing.T) {
	sink := &eventSink{}
	m := liveManager(t, sink, plugin.FrontendHost)
	d := activation.NewDispatcher(m)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.ActivateByEvent(context.Background(), "onView:explorer")
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"onView:explorer"}, sink.received())
	assert.Len(t, d.FiredEvents(), 1)
}
