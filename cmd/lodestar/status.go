// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// RuntimeStatus holds the probed status of a running lodestar process.
type RuntimeStatus struct {
	Addr    string `json:"addr"`
	Running bool   `json:"running"`
	Live    bool   `json:"live"`
	Ready   bool   `json:"ready"`
	Error   string `json:"error,omitempty"`
}

// statusConfig holds configuration for the status command.
type statusConfig struct {
	addr       string
	jsonOutput bool
}

// newStatusCmd creates the status subcommand with all flags configured.
func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of a running Lodestar runtime",
		Long:  `Probe the liveness and readiness endpoints of a running runtime process.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().StringVar(&cfg.addr, "addr", defaultMetricsAddr, "observability address of the runtime")
	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")

	return cmd
}

// runStatus executes the status command.
func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	status := queryRuntimeStatus(cfg.addr)

	if cfg.jsonOutput {
		data, err := json.MarshalIndent(status, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal status: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Println(formatStatus(status))
	return nil
}

// queryRuntimeStatus probes the health endpoints of the observability server.
func queryRuntimeStatus(addr string) RuntimeStatus {
	status := RuntimeStatus{Addr: addr}
	client := &http.Client{Timeout: 2 * time.Second}

	live, err := probeEndpoint(client, addr, "/healthz/liveness")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	status.Running = true
	status.Live = live

	ready, err := probeEndpoint(client, addr, "/healthz/readiness")
	if err != nil {
		// Liveness succeeded but readiness failed - still consider running
		status.Error = fmt.Sprintf("readiness probe failed: %v", err)
		return status
	}
	status.Ready = ready

	return status
}

// probeEndpoint returns true for a 2xx response, false for any other status.
func probeEndpoint(client *http.Client, addr, path string) (bool, error) {
	resp, err := client.Get("http://" + addr + path)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}

// formatStatus formats the status as a human-readable summary.
func formatStatus(status RuntimeStatus) string {
	var b strings.Builder

	if !status.Running {
		fmt.Fprintf(&b, "lodestar: not running (%s)", status.Error)
		return b.String()
	}

	state := "live"
	if !status.Live {
		state = "unhealthy"
	}
	readiness := "not ready"
	if status.Ready {
		readiness = "ready"
	}
	fmt.Fprintf(&b, "lodestar: running at %s, %s, %s", status.Addr, state, readiness)
	if status.Error != "" {
		fmt.Fprintf(&b, " (%s)", status.Error)
	}
	return b.String()
}
