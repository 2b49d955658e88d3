// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package plugin

import "sync"

// Disposable releases a resource registered against a plugin entry.
type Disposable interface {
	Dispose()
}

// DisposableFunc adapts a func to Disposable.
type DisposableFunc func()

// Dispose calls the func.
func (f DisposableFunc) Dispose() { f() }

// DisposableCollection accumulates disposables and releases them in reverse
// registration order. Dispose is idempotent; a disposed collection silently
// drops further pushes after running them immediately, so late registrants
// never leak.
type DisposableCollection struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Push registers a disposable. If the collection is already disposed the
// disposable runs immediately.
func (c *DisposableCollection) Push(d Disposable) {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		d.Dispose()
		return
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// PushFunc registers a func as a disposable.
func (c *DisposableCollection) PushFunc(f func()) {
	c.Push(DisposableFunc(f))
}

// Dispose releases all registered disposables in reverse order.
func (c *DisposableCollection) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i].Dispose()
	}
}

// Disposed reports whether Dispose has run.
func (c *DisposableCollection) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}
