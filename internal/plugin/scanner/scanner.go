// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package scanner reports what is deployed on disk: one subdirectory per
// plugin under a plugins directory. It is the default DeploymentSource
// implementation.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// Scanner scans a plugins directory. Every call re-reads the directory and
// returns a complete snapshot; nothing is cached between calls except the
// id-to-directory mapping needed to resolve records.
type Scanner struct {
	pluginsDir string
	reader     plugin.MetadataReader

	mu   sync.Mutex
	dirs map[plugin.ID]string
}

// New creates a scanner over pluginsDir using reader to resolve manifests.
func New(pluginsDir string, reader plugin.MetadataReader) *Scanner {
	return &Scanner{
		pluginsDir: pluginsDir,
		reader:     reader,
		dirs:       make(map[plugin.ID]string),
	}
}

// DeployedIDs implements plugin.DeploymentSource. Ids are ordered by
// directory name for deterministic output. A missing plugins directory is an
// empty deployment, not an error.
func (s *Scanner) DeployedIDs(ctx context.Context) ([]plugin.ID, error) {
	entries, err := os.ReadDir(s.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	dirs := make(map[plugin.ID]string)
	var ids []plugin.ID
	for _, name := range names {
		dir := filepath.Join(s.pluginsDir, name)
		rec, err := s.reader.Read(ctx, dir, false)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		if _, ok := dirs[rec.ID]; ok {
			// Two directories claiming the same id: first wins.
			continue
		}
		dirs[rec.ID] = dir
		ids = append(ids, rec.ID)
	}

	s.mu.Lock()
	s.dirs = dirs
	s.mu.Unlock()
	return ids, nil
}

// DeployedRecords implements plugin.DeploymentSource. Ids that cannot be
// resolved are omitted.
func (s *Scanner) DeployedRecords(ctx context.Context, ids []plugin.ID) ([]*plugin.Record, error) {
	s.mu.Lock()
	dirs := make(map[plugin.ID]string, len(s.dirs))
	for id, dir := range s.dirs {
		dirs[id] = dir
	}
	s.mu.Unlock()

	out := make([]*plugin.Record, 0, len(ids))
	for _, id := range ids {
		dir, ok := dirs[id]
		if !ok {
			continue
		}
		rec, err := s.reader.Read(ctx, dir, true)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}
