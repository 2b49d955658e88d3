// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package probe_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/probe"
)

// fakeSearcher scripts ExistsAny and per-pattern Search results.
type fakeSearcher struct {
	exists     bool
	existsErr  error
	matches    map[string]bool
	searchErr  map[string]error
	hang       bool // Search blocks until ctx is cancelled
	existsFor  []string
	searchedMu sync.Mutex
	searched   []string
}

func (s *fakeSearcher) ExistsAny(_ context.Context, paths []string) (bool, error) {
	s.existsFor = paths
	return s.exists, s.existsErr
}

func (s *fakeSearcher) Search(ctx context.Context, pattern string) (bool, error) {
	s.searchedMu.Lock()
	s.searched = append(s.searched, pattern)
	s.searchedMu.Unlock()

	if s.hang {
		<-ctx.Done()
		return false, ctx.Err()
	}
	if err := s.searchErr[pattern]; err != nil {
		return false, err
	}
	return s.matches[pattern], nil
}

// collectActivator records fired events.
type collectActivator struct {
	mu     sync.Mutex
	events []string
}

func (a *collectActivator) fire(_ context.Context, event string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, event)
	return nil
}

func (a *collectActivator) fired() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.events...)
}

func recordWith(triggers ...string) *plugin.Record {
	return &plugin.Record{
		ID:            "pub.tools",
		Version:       "1.0.0",
		FrontendEntry: "main.js",
		Contributions: plugin.Contributions{WorkspaceContains: triggers},
	}
}

func TestProber_NoTriggersIsNoop(t *testing.T) {
	act := &collectActivator{}
	p := probe.NewProber(&fakeSearcher{}, act.fire, time.Second)

	p.Probe(context.Background(), recordWith())
	assert.Empty(t, act.fired())
}

func TestProber_ExactPathMatch(t *testing.T) {
	s := &fakeSearcher{exists: true}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, time.Second)

	p.Probe(context.Background(), recordWith("go.mod", "cmd/main.go"))

	assert.Equal(t, []string{"onPlugin:pub.tools"}, act.fired())
	assert.Equal(t, []string{"go.mod", "cmd/main.go"}, s.existsFor)
	// No pattern among the triggers, so no search ran.
	assert.Empty(t, s.searched)
}

func TestProber_PatternMatch(t *testing.T) {
	s := &fakeSearcher{matches: map[string]bool{"**/*.tf": true}}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, time.Second)

	p.Probe(context.Background(), recordWith("**/*.tf"))
	assert.Equal(t, []string{"onPlugin:pub.tools"}, act.fired())
}

func TestProber_NoMatch(t *testing.T) {
	s := &fakeSearcher{matches: map[string]bool{}}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, time.Second)

	p.Probe(context.Background(), recordWith("go.mod", "**/*.tf"))
	assert.Empty(t, act.fired())
}

func TestProber_TimeoutFailsOpen(t *testing.T) {
	s := &fakeSearcher{hang: true}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, 30*time.Millisecond)

	start := time.Now()
	p.Probe(context.Background(), recordWith("**/*.tf"))

	// A slow search activates eagerly instead of never activating.
	assert.Equal(t, []string{"onPlugin:pub.tools"}, act.fired())
	assert.Less(t, time.Since(start), time.Second)
}

func TestProber_SearchErrorTreatedAsNoMatch(t *testing.T) {
	s := &fakeSearcher{
		matches:   map[string]bool{"**/b": true},
		searchErr: map[string]error{"**/a": errors.New("walk failed")},
	}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, time.Second)

	// The failing branch degrades to no-match; the other branch still wins.
	p.Probe(context.Background(), recordWith("**/a", "**/b"))
	assert.Equal(t, []string{"onPlugin:pub.tools"}, act.fired())
}

func TestProber_CancelledContextDoesNotActivate(t *testing.T) {
	s := &fakeSearcher{hang: true}
	act := &collectActivator{}
	p := probe.NewProber(s, act.fire, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p.Probe(ctx, recordWith("**/*.tf"))
	assert.Empty(t, act.fired())
}
