// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package registry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/registry"
)

func frontendRecord(id plugin.ID) *plugin.Record {
	return &plugin.Record{ID: id, Name: string(id), Version: "1.0.0", FrontendEntry: "dist/main.js"}
}

func backendRecord(id plugin.ID, host plugin.HostKey) *plugin.Record {
	return &plugin.Record{ID: id, Name: string(id), Version: "1.0.0", Target: host, BackendEntry: "dist/server.js"}
}

func TestRegistry_UpdateAndDeployed(t *testing.T) {
	r := registry.New()
	r.Update(plugin.Snapshot{
		Frontend: []plugin.ID{"pub.front"},
		Backend:  []plugin.ID{"pub.back"},
	}, []*plugin.Record{
		frontendRecord("pub.front"),
		backendRecord("pub.back", "node"),
	})

	rec, ok := r.Deployed("pub.front")
	require.True(t, ok)
	assert.Equal(t, plugin.FrontendHost, rec.StartHost())

	assert.Equal(t, []plugin.ID{"pub.front"}, r.DeployedIDs(plugin.FrontendHost))
	assert.Equal(t, []plugin.ID{"pub.back"}, r.DeployedIDs("node"))
	assert.Equal(t, []plugin.ID{"pub.front", "pub.back"}, r.DeployedIDs(""))
}

func TestRegistry_FirstRegistrationWins(t *testing.T) {
	r := registry.New()
	first := frontendRecord("pub.p")
	r.Update(plugin.Snapshot{Frontend: []plugin.ID{"pub.p"}}, []*plugin.Record{first})

	second := frontendRecord("pub.p")
	second.Version = "2.0.0"
	r.Update(plugin.Snapshot{Frontend: []plugin.ID{"pub.p"}}, []*plugin.Record{second})

	rec, ok := r.Deployed("pub.p")
	require.True(t, ok)
	assert.Equal(t, "1.0.0", rec.Version)
}

func TestRegistry_RemovalPrunesRecord(t *testing.T) {
	r := registry.New()
	r.Update(plugin.Snapshot{Frontend: []plugin.ID{"pub.p"}}, []*plugin.Record{frontendRecord("pub.p")})

	r.Update(plugin.Snapshot{}, nil)
	_, ok := r.Deployed("pub.p")
	assert.False(t, ok)

	// A later re-deploy of the same id registers fresh metadata.
	fresh := frontendRecord("pub.p")
	fresh.Version = "2.0.0"
	r.Update(plugin.Snapshot{Frontend: []plugin.ID{"pub.p"}}, []*plugin.Record{fresh})

	rec, ok := r.Deployed("pub.p")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", rec.Version)
}

func TestRegistry_ReadyAfterFirstUpdate(t *testing.T) {
	r := registry.New()
	assert.False(t, r.Ready())

	// An empty deployment still completes the first pass.
	r.Update(plugin.Snapshot{}, nil)
	assert.True(t, r.Ready())
}

func TestRegistry_MetadataBlocksUntilFirstPass(t *testing.T) {
	r := registry.New()

	got := make(chan []*plugin.Record, 1)
	go func() {
		recs, err := r.FrontendMetadata(context.Background())
		if err == nil {
			got <- recs
		}
	}()

	select {
	case <-got:
		t.Fatal("FrontendMetadata returned before the first deployment pass")
	case <-time.After(20 * time.Millisecond):
	}

	r.Update(plugin.Snapshot{Frontend: []plugin.ID{"pub.p"}}, []*plugin.Record{frontendRecord("pub.p")})

	select {
	case recs := <-got:
		require.Len(t, recs, 1)
		assert.Equal(t, plugin.ID("pub.p"), recs[0].ID)
	case <-time.After(time.Second):
		t.Fatal("FrontendMetadata did not unblock after the first pass")
	}
}

func TestRegistry_MetadataContextCancelled(t *testing.T) {
	r := registry.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.BackendMetadata(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
