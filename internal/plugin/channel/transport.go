// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package channel owns one bidirectional RPC channel per execution host:
// lazy creation, a one-time initialization handshake, and teardown on
// disconnect. The frontend host runs in process; named backend hosts run as
// go-plugin subprocesses reached over net/rpc with session-tagged envelopes.
package channel

import (
	"context"
	"sync"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// HostProxy is a live transport to one execution host. Done is closed when
// the transport dies; Close tears it down explicitly.
type HostProxy interface {
	hostapi.HostService

	// Done is closed when the transport is no longer usable.
	Done() <-chan struct{}

	// Close tears down the transport. Idempotent.
	Close() error
}

// TransportFactory dials a transport for a host key. It is the seam that
// lets tests substitute fake transports.
type TransportFactory interface {
	Dial(ctx context.Context, key plugin.HostKey, session string) (HostProxy, error)
}

// InProcessProxy adapts an in-process HostService (the frontend host) to the
// HostProxy contract. Calls pass straight through; the worker owns its own
// synchronization.
type InProcessProxy struct {
	service hostapi.HostService

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewInProcessProxy wraps an in-process host service.
func NewInProcessProxy(service hostapi.HostService) *InProcessProxy {
	return &InProcessProxy{
		service: service,
		done:    make(chan struct{}),
	}
}

// Init implements hostapi.HostService.
func (p *InProcessProxy) Init(ctx context.Context, params hostapi.InitParams) error {
	return p.service.Init(ctx, params)
}

// StartPlugins implements hostapi.HostService.
func (p *InProcessProxy) StartPlugins(ctx context.Context, reqs []hostapi.StartRequest, firedEvents []string) error {
	return p.service.StartPlugins(ctx, reqs, firedEvents)
}

// ActivateByEvent implements hostapi.HostService.
func (p *InProcessProxy) ActivateByEvent(ctx context.Context, event string) error {
	return p.service.ActivateByEvent(ctx, event)
}

// StopPlugin implements hostapi.HostService.
func (p *InProcessProxy) StopPlugin(ctx context.Context, id string) error {
	return p.service.StopPlugin(ctx, id)
}

// Done implements HostProxy.
func (p *InProcessProxy) Done() <-chan struct{} { return p.done }

// Close implements HostProxy.
func (p *InProcessProxy) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	return nil
}
