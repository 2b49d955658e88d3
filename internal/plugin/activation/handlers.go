// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package activation

import "sync"

// HandlerRegistry reports when a command handler becomes available. The
// command interceptor races activation against handler registration through
// this contract.
type HandlerRegistry interface {
	// HasHandler reports whether a handler is registered for the command.
	HasHandler(commandID string) bool

	// HandlerReady returns a channel closed once a handler is registered
	// for the command. Already-registered commands get a closed channel.
	HandlerReady(commandID string) <-chan struct{}
}

// HandlerTable is the default HandlerRegistry: plugins register command
// handlers as they start, waiters are released on registration. Safe for
// concurrent use.
type HandlerTable struct {
	mu      sync.Mutex
	ready   map[string]chan struct{}
	present map[string]struct{}
}

// NewHandlerTable creates an empty handler table.
func NewHandlerTable() *HandlerTable {
	return &HandlerTable{
		ready:   make(map[string]chan struct{}),
		present: make(map[string]struct{}),
	}
}

// Register marks a handler as available and releases any waiters.
// Registering twice is a no-op.
func (t *HandlerTable) Register(commandID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.present[commandID]; ok {
		return
	}
	t.present[commandID] = struct{}{}
	if ch, ok := t.ready[commandID]; ok {
		close(ch)
		delete(t.ready, commandID)
	}
}

// HasHandler implements HandlerRegistry.
func (t *HandlerTable) HasHandler(commandID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.present[commandID]
	return ok
}

// HandlerReady implements HandlerRegistry.
func (t *HandlerTable) HandlerReady(commandID string) <-chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.present[commandID]; ok {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	ch, ok := t.ready[commandID]
	if !ok {
		ch = make(chan struct{})
		t.ready[commandID] = ch
	}
	return ch
}
