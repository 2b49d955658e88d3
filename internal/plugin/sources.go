// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package plugin

import "context"

// DeploymentSource reports what is deployed on disk. Every call returns a
// complete, non-partial snapshot; callers may invoke it repeatedly.
type DeploymentSource interface {
	// DeployedIDs returns the ordered set of deployed plugin ids.
	DeployedIDs(ctx context.Context) ([]ID, error)

	// DeployedRecords resolves metadata for the given ids. Ids that cannot
	// be resolved are omitted, never reported as errors.
	DeployedRecords(ctx context.Context, ids []ID) ([]*Record, error)
}

// MetadataReader turns an on-disk path into a deployment record.
// Absence (unreadable path, invalid manifest) is signalled by (nil, nil);
// a non-nil error indicates an environmental failure, not a bad plugin.
type MetadataReader interface {
	Read(ctx context.Context, path string, withContributions bool) (*Record, error)
}

// ContributionApplier registers a plugin's static contributions with the
// surrounding application. Applying twice for the same client id before
// disposing the first result is a caller error.
type ContributionApplier interface {
	Apply(clientID string, rec *Record) (Disposable, error)
}

// Scope selects a storage partition.
type Scope string

// Storage scopes.
const (
	ScopeGlobal    Scope = "global"
	ScopeWorkspace Scope = "workspace"
)

// PreferenceSource provides the merged preference snapshot injected into a
// host channel at initialization.
type PreferenceSource interface {
	Preferences(ctx context.Context) (map[string]string, error)
}

// StorageSource provides persisted key/value state per scope.
type StorageSource interface {
	Values(ctx context.Context, scope Scope) (map[string]string, error)
}

// StaticPreferences is a fixed preference snapshot, typically loaded from
// configuration.
type StaticPreferences map[string]string

// Preferences implements PreferenceSource.
func (p StaticPreferences) Preferences(context.Context) (map[string]string, error) {
	return p, nil
}

// StaticStorage is fixed storage state keyed by scope.
type StaticStorage map[Scope]map[string]string

// Values implements StorageSource. Unknown scopes yield an empty map.
func (s StaticStorage) Values(_ context.Context, scope Scope) (map[string]string, error) {
	if v, ok := s[scope]; ok {
		return v, nil
	}
	return map[string]string{}, nil
}
