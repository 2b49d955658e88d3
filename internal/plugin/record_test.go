// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

func TestRecord_StartHost(t *testing.T) {
	tests := []struct {
		name string
		rec  plugin.Record
		want plugin.HostKey
	}{
		{
			name: "frontend entry wins over backend target",
			rec: plugin.Record{
				Target:        plugin.HostKey("node"),
				FrontendEntry: "dist/main.js",
				BackendEntry:  "dist/server.js",
			},
			want: plugin.FrontendHost,
		},
		{
			name: "backend target without frontend entry",
			rec: plugin.Record{
				Target:       plugin.HostKey("node"),
				BackendEntry: "dist/server.js",
			},
			want: plugin.HostKey("node"),
		},
		{
			name: "no target defaults to frontend",
			rec:  plugin.Record{FrontendEntry: "dist/main.js"},
			want: plugin.FrontendHost,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.StartHost())
		})
	}
}

func TestRecord_Entry(t *testing.T) {
	rec := plugin.Record{
		Target:        plugin.HostKey("node"),
		FrontendEntry: "dist/main.js",
		BackendEntry:  "dist/server.js",
	}
	// Frontend entry forces the frontend host, so the frontend entry is used.
	assert.Equal(t, "dist/main.js", rec.Entry())

	rec.FrontendEntry = ""
	assert.Equal(t, "dist/server.js", rec.Entry())
}

func TestSnapshot_All(t *testing.T) {
	s := plugin.Snapshot{
		Frontend: []plugin.ID{"a.one", "a.two"},
		Backend:  []plugin.ID{"b.three"},
	}
	assert.Equal(t, []plugin.ID{"a.one", "a.two", "b.three"}, s.All())
}

func TestSnapshot_Contains(t *testing.T) {
	s := plugin.Snapshot{
		Frontend: []plugin.ID{"a.one"},
		Backend:  []plugin.ID{"b.two"},
	}
	assert.True(t, s.Contains("a.one"))
	assert.True(t, s.Contains("b.two"))
	assert.False(t, s.Contains("c.three"))
}

func TestHostKey_IsFrontend(t *testing.T) {
	assert.True(t, plugin.FrontendHost.IsFrontend())
	assert.False(t, plugin.HostKey("node").IsFrontend())
}
