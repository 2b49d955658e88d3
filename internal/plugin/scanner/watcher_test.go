// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package scanner_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-ide/lodestar/internal/plugin/scanner"
)

func TestWatcher_NotifiesOnDeploy(t *testing.T) {
	pluginsDir := t.TempDir()
	notified := make(chan struct{}, 1)

	w, err := scanner.NewWatcher(pluginsDir, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}, scanner.WithSettle(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	deployPlugin(t, pluginsDir, "fresh", "acme.fresh")

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("deploy never signalled")
	}
}

func TestWatcher_NotifiesOnRemoval(t *testing.T) {
	pluginsDir := t.TempDir()
	deployPlugin(t, pluginsDir, "gone", "acme.gone")
	notified := make(chan struct{}, 1)

	w, err := scanner.NewWatcher(pluginsDir, func() {
		select {
		case notified <- struct{}{}:
		default:
		}
	}, scanner.WithSettle(20*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	require.NoError(t, os.RemoveAll(filepath.Join(pluginsDir, "gone")))

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("removal never signalled")
	}
}

func TestWatcher_BurstSettlesToOneNotification(t *testing.T) {
	pluginsDir := t.TempDir()
	notified := make(chan struct{}, 16)

	w, err := scanner.NewWatcher(pluginsDir, func() {
		notified <- struct{}{}
	}, scanner.WithSettle(100*time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, w.Close()) })

	// A deploy writes several entries back to back.
	for i := range 5 {
		deployPlugin(t, pluginsDir, "burst"+string(rune('a'+i)), "acme.burst")
	}

	select {
	case <-notified:
	case <-time.After(2 * time.Second):
		t.Fatal("burst never signalled")
	}
	// The quiet window folded the burst; no second notification follows.
	select {
	case <-notified:
		t.Fatal("burst signalled more than once")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_MissingDirFails(t *testing.T) {
	_, err := scanner.NewWatcher(filepath.Join(t.TempDir(), "nope"), func() {})
	assert.Error(t, err)
}
