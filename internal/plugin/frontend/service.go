// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package frontend implements the in-process frontend host. It receives the
// same service calls a backend host receives over RPC, tracks which plugins
// are running, and treats late or redundant calls as no-ops.
package frontend

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// Service is the frontend host implementation of hostapi.HostService.
type Service struct {
	mu      sync.Mutex
	inited  bool
	params  hostapi.InitParams
	started map[string]hostapi.StartRequest
	onStart func(hostapi.StartRequest)
}

// Option configures the Service.
type Option func(*Service)

// WithStartHook sets a hook invoked for every plugin start, after the
// plugin is recorded as running. The surrounding application uses this to
// wire plugin code into its own surfaces.
func WithStartHook(fn func(hostapi.StartRequest)) Option {
	return func(s *Service) { s.onStart = fn }
}

// NewService creates a frontend host service.
func NewService(opts ...Option) *Service {
	s := &Service{started: make(map[string]hostapi.StartRequest)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init implements hostapi.HostService. Re-initialization after a reconnect
// replaces the previous parameters.
func (s *Service) Init(_ context.Context, params hostapi.InitParams) error {
	s.mu.Lock()
	s.inited = true
	s.params = params
	s.mu.Unlock()

	slog.Debug("frontend host initialized",
		"preferences", len(params.Preferences),
		"api_capabilities", len(params.API))
	return nil
}

// StartPlugins implements hostapi.HostService. Starting an already-running
// plugin is a no-op.
func (s *Service) StartPlugins(_ context.Context, reqs []hostapi.StartRequest, firedEvents []string) error {
	var hook func(hostapi.StartRequest)
	var fresh []hostapi.StartRequest

	s.mu.Lock()
	for _, req := range reqs {
		if _, ok := s.started[req.ID]; ok {
			continue
		}
		s.started[req.ID] = req
		fresh = append(fresh, req)
	}
	hook = s.onStart
	s.mu.Unlock()

	for _, req := range fresh {
		slog.Info("frontend plugin started",
			"plugin", req.ID,
			"version", req.Version,
			"replayed_events", len(firedEvents))
		if hook != nil {
			hook(req)
		}
	}
	return nil
}

// ActivateByEvent implements hostapi.HostService.
func (s *Service) ActivateByEvent(_ context.Context, event string) error {
	slog.Debug("frontend activation event", "event", event)
	return nil
}

// StopPlugin implements hostapi.HostService. Stopping an unknown plugin is
// a harmless no-op.
func (s *Service) StopPlugin(_ context.Context, id string) error {
	s.mu.Lock()
	_, ok := s.started[id]
	delete(s.started, id)
	s.mu.Unlock()

	if ok {
		slog.Info("frontend plugin stopped", "plugin", id)
	}
	return nil
}

// Running returns the ids of plugins currently started on the frontend.
func (s *Service) Running() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.started))
	for id := range s.started {
		out = append(out, id)
	}
	return out
}
