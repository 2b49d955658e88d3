// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package manifest reads plugin.yaml deployment manifests and turns them
// into runtime records. It is the default MetadataReader implementation.
package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/lodestar-ide/lodestar/internal/plugin"
)

// FileName is the manifest file looked up inside a plugin directory.
const FileName = "plugin.yaml"

// maxIDLength is the maximum allowed length for plugin ids.
const maxIDLength = 128

// idPattern validates plugin ids: dot-separated lowercase segments, each
// starting with a letter, e.g. "acme.git-lens".
var idPattern = regexp.MustCompile(`^[a-z][a-z0-9-]*(\.[a-z][a-z0-9-]*)+$`)

// Manifest is the on-disk plugin.yaml shape.
type Manifest struct {
	ID               string               `yaml:"id"`
	Name             string               `yaml:"name"`
	Version          string               `yaml:"version"`
	Target           string               `yaml:"target,omitempty"`
	FrontendEntry    string               `yaml:"frontend-entry,omitempty"`
	BackendEntry     string               `yaml:"backend-entry,omitempty"`
	ActivationEvents []string             `yaml:"activation-events,omitempty"`
	Contributes      plugin.Contributions `yaml:"contributes,omitempty"`
}

// Parse parses and validates a plugin.yaml document.
func Parse(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints.
func (m *Manifest) Validate() error {
	if m.ID == "" || !idPattern.MatchString(m.ID) {
		return fmt.Errorf("id %q must be dot-separated lowercase segments (e.g. publisher.name)", m.ID)
	}
	if len(m.ID) > maxIDLength {
		return fmt.Errorf("id must be %d characters or less, got %d", maxIDLength, len(m.ID))
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := semver.NewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not valid semver: %w", m.Version, err)
	}

	if m.FrontendEntry == "" && m.BackendEntry == "" {
		return fmt.Errorf("at least one of frontend-entry or backend-entry is required")
	}
	if m.Target == string(plugin.FrontendHost) && m.FrontendEntry == "" {
		return fmt.Errorf("target %q requires frontend-entry", m.Target)
	}

	for i, c := range m.Contributes.Commands {
		if c.ID == "" {
			return fmt.Errorf("contributes.commands[%d]: id is required", i)
		}
	}
	for i, v := range m.Contributes.Views {
		if v.ID == "" {
			return fmt.Errorf("contributes.views[%d]: id is required", i)
		}
	}

	return nil
}

// Record converts the manifest into a runtime record. When
// withContributions is false the contribution payload is stripped.
func (m *Manifest) Record(withContributions bool) *plugin.Record {
	rec := &plugin.Record{
		ID:               plugin.ID(m.ID),
		Name:             m.Name,
		Version:          m.Version,
		Target:           plugin.HostKey(m.Target),
		FrontendEntry:    m.FrontendEntry,
		BackendEntry:     m.BackendEntry,
		ActivationEvents: append([]string(nil), m.ActivationEvents...),
	}
	if withContributions {
		rec.Contributions = m.Contributes
	}
	return rec
}

// Reader is the default plugin.MetadataReader over the filesystem. Paths
// that yield no usable manifest signal absence with (nil, nil); only
// environmental failures surface as errors.
type Reader struct{}

// NewReader creates a manifest reader.
func NewReader() *Reader {
	return &Reader{}
}

// Read implements plugin.MetadataReader. path is a plugin directory
// containing plugin.yaml.
func (r *Reader) Read(_ context.Context, path string, withContributions bool) (*plugin.Record, error) {
	data, err := os.ReadFile(filepath.Join(path, FileName)) //nolint:gosec // path comes from deployment discovery
	if err != nil {
		slog.Debug("skipping plugin without manifest",
			"dir", path,
			"error", err)
		return nil, nil
	}

	m, err := Parse(data)
	if err != nil {
		slog.Debug("skipping plugin with invalid manifest",
			"dir", path,
			"error", err)
		return nil, nil
	}

	return m.Record(withContributions), nil
}
