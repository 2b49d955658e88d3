// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Command echo is a minimal backend host used for development and in
// integration setups. It accepts every runtime call, logs it to stderr, and
// tracks which plugins it has been asked to start.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/lodestar-ide/lodestar/pkg/hostapi"
	"github.com/lodestar-ide/lodestar/pkg/hostsdk"
)

// EchoHost implements hostapi.HostService by logging every call.
type EchoHost struct {
	mu      sync.Mutex
	started map[string]hostapi.StartRequest
}

// Init records the handshake parameters.
func (h *EchoHost) Init(_ context.Context, params hostapi.InitParams) error {
	slog.Info("host initialized",
		"preferences", len(params.Preferences),
		"global_storage", len(params.GlobalStorage),
		"workspace_storage", len(params.WorkspaceStorage),
		"api_capabilities", len(params.API),
	)
	return nil
}

// StartPlugins marks the requested plugins as started.
func (h *EchoHost) StartPlugins(_ context.Context, reqs []hostapi.StartRequest, firedEvents []string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, req := range reqs {
		if _, ok := h.started[req.ID]; ok {
			continue
		}
		h.started[req.ID] = req
		slog.Info("plugin started", "plugin", req.ID, "version", req.Version, "entry", req.Entry)
	}
	slog.Info("replayed activation events", "count", len(firedEvents))
	return nil
}

// ActivateByEvent logs the event.
func (h *EchoHost) ActivateByEvent(_ context.Context, event string) error {
	slog.Info("activation event", "event", event)
	return nil
}

// StopPlugin forgets a started plugin. Unknown plugins are a no-op.
func (h *EchoHost) StopPlugin(_ context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.started[id]; !ok {
		return nil
	}
	delete(h.started, id)
	slog.Info("plugin stopped", "plugin", id)
	return nil
}

func main() {
	// go-plugin claims stdout for its handshake; logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	fmt.Fprintln(os.Stderr, "echo host starting")
	hostsdk.Serve(&hostsdk.ServeConfig{
		Service: &EchoHost{started: make(map[string]hostapi.StartRequest)},
	})
}
