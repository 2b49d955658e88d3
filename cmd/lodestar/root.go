// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the Lodestar CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lodestar",
		Short: "Lodestar - extensible application host",
		Long: `Lodestar runs the plugin runtime of an extensible host application:
it discovers deployed plugins, registers their contributions, and starts
them on frontend and backend host channels.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
