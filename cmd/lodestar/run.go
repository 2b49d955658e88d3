// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/lodestar-ide/lodestar/internal/logging"
	"github.com/lodestar-ide/lodestar/internal/observability"
	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/internal/plugin/activation"
	"github.com/lodestar-ide/lodestar/internal/plugin/channel"
	"github.com/lodestar-ide/lodestar/internal/plugin/contribution"
	"github.com/lodestar-ide/lodestar/internal/plugin/frontend"
	"github.com/lodestar-ide/lodestar/internal/plugin/lifecycle"
	"github.com/lodestar-ide/lodestar/internal/plugin/manifest"
	"github.com/lodestar-ide/lodestar/internal/plugin/probe"
	"github.com/lodestar-ide/lodestar/internal/plugin/reconciler"
	"github.com/lodestar-ide/lodestar/internal/plugin/registry"
	"github.com/lodestar-ide/lodestar/internal/plugin/scanner"
	"github.com/lodestar-ide/lodestar/internal/xdg"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// runConfig holds configuration for the run command.
type runConfig struct {
	PluginsDir     string                       `koanf:"plugins-dir"`
	WorkspaceRoots []string                     `koanf:"workspace-roots"`
	MetricsAddr    string                       `koanf:"metrics-addr"`
	LogFormat      string                       `koanf:"log-format"`
	LogLevel       string                       `koanf:"log-level"`
	ProbeTimeout   time.Duration                `koanf:"probe-timeout"`
	Hosts          map[string]string            `koanf:"hosts"`
	Preferences    map[string]string            `koanf:"preferences"`
	Storage        map[string]map[string]string `koanf:"storage"`
}

// Validate checks that the configuration is valid.
func (cfg *runConfig) Validate() error {
	if cfg.PluginsDir == "" {
		return fmt.Errorf("plugins-dir is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("log-format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	if _, err := parseLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

// Default values for run command flags.
const (
	defaultMetricsAddr = "127.0.0.1:9600"
	defaultLogFormat   = "json"
	defaultLogLevel    = "info"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the plugin runtime",
		Long: `Run the plugin runtime: watch the plugins directory, register
contributions, and start plugins on their host channels.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadRunConfig(cmd)
			if err != nil {
				return err
			}
			return runRuntime(cmd.Context(), cfg)
		},
	}

	cmd.Flags().String("plugins-dir", xdg.PluginsDir(), "plugins deployment directory")
	cmd.Flags().StringSlice("workspace-roots", nil, "open workspace root directories")
	cmd.Flags().String("metrics-addr", defaultMetricsAddr, "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log-format", defaultLogFormat, "log format (json or text)")
	cmd.Flags().String("log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	cmd.Flags().Duration("probe-timeout", probe.DefaultTimeout, "workspace-contains search bound")

	return cmd
}

// loadRunConfig layers the config file under command-line flags.
func loadRunConfig(cmd *cobra.Command) (*runConfig, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configFile, err)
		}
	}
	if err := k.Load(posflag.Provider(cmd.Flags(), ".", k), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	cfg := &runConfig{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("log-level must be debug, info, warn, or error, got %q", s)
	}
}

// runRuntime wires the runtime together and blocks until SIGINT/SIGTERM.
func runRuntime(ctx context.Context, cfg *runConfig) error {
	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logging.SetDefault("lodestar", version, cfg.LogFormat, level)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting plugin runtime",
		"plugins_dir", cfg.PluginsDir,
		"workspace_roots", cfg.WorkspaceRoots,
	)

	reg := registry.New()
	tracker := lifecycle.NewTracker()
	index := contribution.NewIndex()
	handlers := activation.NewHandlerTable()

	hostCommands := make(map[plugin.HostKey]string, len(cfg.Hosts))
	for key, command := range cfg.Hosts {
		hostCommands[plugin.HostKey(key)] = command
	}
	front := frontend.NewService(frontend.WithStartHook(func(req hostapi.StartRequest) {
		// Frontend plugin code registers its own handlers once running;
		// contributed commands become callable here.
		if rec, ok := reg.Deployed(plugin.ID(req.ID)); ok {
			for _, c := range rec.Contributions.Commands {
				handlers.Register(c.ID)
			}
		}
	}))

	storage := make(plugin.StaticStorage, len(cfg.Storage))
	for scope, values := range cfg.Storage {
		storage[plugin.Scope(scope)] = values
	}

	factory := channel.NewFactory(front, hostCommands)
	channels := channel.NewManager(factory,
		plugin.StaticPreferences(cfg.Preferences),
		storage,
		channel.WithAPI([]hostapi.APICapability{
			{Name: "lodestar.core", Version: version},
			{Name: "lodestar.workspace", Version: version},
		}),
	)
	dispatcher := activation.NewDispatcher(channels)
	prober := probe.NewProber(
		probe.NewFSSearcher(cfg.WorkspaceRoots),
		dispatcher.ActivateByEvent,
		cfg.ProbeTimeout,
	)
	if err := xdg.EnsureDir(cfg.PluginsDir); err != nil {
		return err
	}
	source := scanner.New(cfg.PluginsDir, manifest.NewReader())

	rec := reconciler.New(source, index, reg, tracker, channels, dispatcher, prober)

	watcher, err := scanner.NewWatcher(cfg.PluginsDir, rec.Schedule)
	if err != nil {
		return fmt.Errorf("failed to watch plugins directory: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	var obs *observability.Server
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, reg.Ready)
		reconciler.RegisterMetrics(obs.Registry())
		activation.RegisterMetrics(obs.Registry())
		probe.RegisterMetrics(obs.Registry())
		if _, err := obs.Start(); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		rec.Run(ctx)
	}()
	rec.Schedule()

	<-ctx.Done()
	slog.Info("shutting down plugin runtime")
	<-done

	if obs != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := obs.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop observability server: %w", err)
		}
	}
	return nil
}
