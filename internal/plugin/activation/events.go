// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package activation accumulates fired activation events and propagates them
// to every live host channel, replaying the full set to hosts that connect
// later.
package activation

// Event identifier namespaces. Composed identifiers are plain strings so
// they cross the channel without translation.
const (
	nsCommand  = "onCommand:"
	nsLanguage = "onLanguage:"
	nsView     = "onView:"
	nsDebug    = "onDebug:"
	nsPlugin   = "onPlugin:"
)

// OnCommand composes the activation event for a command id.
func OnCommand(commandID string) string { return nsCommand + commandID }

// OnLanguage composes the activation event for a language id.
func OnLanguage(languageID string) string { return nsLanguage + languageID }

// OnView composes the activation event for a view id.
func OnView(viewID string) string { return nsView + viewID }

// OnDebug composes the activation event for a debug type.
func OnDebug(debugType string) string { return nsDebug + debugType }

// InstallEvent composes the install event fired when a workspace-contains
// probe matches for a plugin.
func InstallEvent(pluginID string) string { return nsPlugin + pluginID }
