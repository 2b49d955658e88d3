// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package frontend_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-ide/lodestar/internal/plugin/frontend"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

func startReq(id string) hostapi.StartRequest {
	return hostapi.StartRequest{ID: id, Name: id, Version: "1.0.0", Host: "frontend", Entry: "main.js"}
}

func TestService_StartPlugins(t *testing.T) {
	var hooked []string
	s := frontend.NewService(frontend.WithStartHook(func(req hostapi.StartRequest) {
		hooked = append(hooked, req.ID)
	}))

	require.NoError(t, s.Init(context.Background(), hostapi.InitParams{}))
	require.NoError(t, s.StartPlugins(context.Background(), []hostapi.StartRequest{
		startReq("acme.a"),
		startReq("acme.b"),
	}, nil))

	assert.ElementsMatch(t, []string{"acme.a", "acme.b"}, s.Running())
	assert.Equal(t, []string{"acme.a", "acme.b"}, hooked)
}

func TestService_StartPluginsAlreadyRunningIsNoop(t *testing.T) {
	hookCalls := 0
	s := frontend.NewService(frontend.WithStartHook(func(hostapi.StartRequest) { hookCalls++ }))

	require.NoError(t, s.StartPlugins(context.Background(), []hostapi.StartRequest{startReq("acme.a")}, nil))
	require.NoError(t, s.StartPlugins(context.Background(), []hostapi.StartRequest{startReq("acme.a")}, nil))

	assert.Equal(t, []string{"acme.a"}, s.Running())
	assert.Equal(t, 1, hookCalls)
}

func TestService_StopPlugin(t *testing.T) {
	s := frontend.NewService()
	require.NoError(t, s.StartPlugins(context.Background(), []hostapi.StartRequest{startReq("acme.a")}, nil))

	require.NoError(t, s.StopPlugin(context.Background(), "acme.a"))
	assert.Empty(t, s.Running())

	// Stopping an unknown plugin is harmless.
	require.NoError(t, s.StopPlugin(context.Background(), "acme.ghost"))
}

func TestService_ActivateByEvent(t *testing.T) {
	s := frontend.NewService()
	assert.NoError(t, s.ActivateByEvent(context.Background(), "onLanguage:go"))
}
