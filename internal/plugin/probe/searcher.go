// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package probe

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
)

// FSSearcher checks workspace contents against the filesystem roots of the
// open workspace. Patterns compile with gobwas/glob using '/' as the segment
// separator: '*' stays within one path segment, '**' crosses segments.
type FSSearcher struct {
	roots []string
}

// NewFSSearcher creates a searcher over the given workspace roots.
func NewFSSearcher(roots []string) *FSSearcher {
	return &FSSearcher{roots: roots}
}

// ExistsAny implements Searcher.
func (s *FSSearcher) ExistsAny(ctx context.Context, paths []string) (bool, error) {
	for _, root := range s.roots {
		for _, rel := range paths {
			if err := ctx.Err(); err != nil {
				return false, err
			}
			if _, err := os.Stat(filepath.Join(root, rel)); err == nil {
				return true, nil
			}
		}
	}
	return false, nil
}

// Search implements Searcher. The walk stops at the first match or on
// cancellation.
func (s *FSSearcher) Search(ctx context.Context, pattern string) (bool, error) {
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return false, err
	}

	for _, root := range s.roots {
		matched := false
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped, not fatal.
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return nil
			}
			if g.Match(filepath.ToSlash(rel)) {
				matched = true
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			return false, err
		}
		if matched {
			return true, nil
		}
	}
	return false, nil
}
