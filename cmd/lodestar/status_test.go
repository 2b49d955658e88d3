// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryRuntimeStatus_Running(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/healthz/liveness":
			w.WriteHeader(http.StatusOK)
		case "/healthz/readiness":
			w.WriteHeader(http.StatusServiceUnavailable)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	status := queryRuntimeStatus(addr)

	assert.True(t, status.Running)
	assert.True(t, status.Live)
	assert.False(t, status.Ready)
	assert.Empty(t, status.Error)
}

func TestQueryRuntimeStatus_Ready(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	status := queryRuntimeStatus(strings.TrimPrefix(srv.URL, "http://"))
	assert.True(t, status.Running)
	assert.True(t, status.Ready)
}

func TestQueryRuntimeStatus_NotRunning(t *testing.T) {
	// A closed server refuses connections.
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := strings.TrimPrefix(srv.URL, "http://")
	srv.Close()

	status := queryRuntimeStatus(addr)
	assert.False(t, status.Running)
	assert.NotEmpty(t, status.Error)
}

func TestFormatStatus(t *testing.T) {
	tests := []struct {
		name   string
		status RuntimeStatus
		want   string
	}{
		{
			name:   "not running",
			status: RuntimeStatus{Addr: "127.0.0.1:9600", Error: "failed to connect: refused"},
			want:   "not running",
		},
		{
			name:   "running and ready",
			status: RuntimeStatus{Addr: "127.0.0.1:9600", Running: true, Live: true, Ready: true},
			want:   "ready",
		},
		{
			name:   "running but not ready",
			status: RuntimeStatus{Addr: "127.0.0.1:9600", Running: true, Live: true},
			want:   "not ready",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatStatus(tt.status)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestStatusCommand_JSONOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cmd := newStatusCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--addr", strings.TrimPrefix(srv.URL, "http://"), "--json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), `"running": true`)
}
