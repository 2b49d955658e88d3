// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

package channel

import (
	"context"
	"errors"
	"fmt"
	"net/rpc"
	"os/exec"
	"sync"
	"time"

	hashiplug "github.com/hashicorp/go-plugin"
	"github.com/sethvargo/go-retry"

	"github.com/lodestar-ide/lodestar/internal/plugin"
	"github.com/lodestar-ide/lodestar/pkg/hostapi"
	"github.com/lodestar-ide/lodestar/pkg/hostsdk"
)

// exitPollInterval is how often a backend transport checks whether its host
// process has exited.
const exitPollInterval = time.Second

// ErrUnknownHost is returned when dialing a host key with no configured
// command.
var ErrUnknownHost = errors.New("no command configured for host")

// Factory dials host transports: the frontend service in process, backend
// hosts as go-plugin subprocesses resolved through the command table.
type Factory struct {
	frontend hostapi.HostService
	commands map[plugin.HostKey]string
}

// NewFactory creates the default transport factory. frontend is the
// in-process frontend host service; commands maps backend host keys to their
// executable paths.
func NewFactory(frontend hostapi.HostService, commands map[plugin.HostKey]string) *Factory {
	return &Factory{frontend: frontend, commands: commands}
}

// Dial implements TransportFactory.
func (f *Factory) Dial(ctx context.Context, key plugin.HostKey, session string) (HostProxy, error) {
	if key.IsFrontend() {
		if f.frontend == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownHost, key)
		}
		return NewInProcessProxy(f.frontend), nil
	}
	cmd, ok := f.commands[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownHost, key)
	}
	return dialBackend(ctx, cmd, session)
}

// dialBackend launches the host executable and dispenses its RPC client,
// retrying transient dial failures with fibonacci backoff.
func dialBackend(ctx context.Context, command, session string) (HostProxy, error) {
	var proxy *backendProxy
	backoff := retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		client := hashiplug.NewClient(&hashiplug.ClientConfig{
			HandshakeConfig: hostsdk.HandshakeConfig,
			Plugins: map[string]hashiplug.Plugin{
				hostapi.PluginName: &clientPlugin{},
			},
			Cmd: exec.Command(command), // #nosec G204 -- command comes from operator configuration
		})

		protocol, err := client.Client()
		if err != nil {
			client.Kill()
			return retry.RetryableError(fmt.Errorf("connect to host: %w", err))
		}
		raw, err := protocol.Dispense(hostapi.PluginName)
		if err != nil {
			client.Kill()
			return retry.RetryableError(fmt.Errorf("dispense host service: %w", err))
		}
		rc, ok := raw.(*rpcClient)
		if !ok {
			client.Kill()
			return fmt.Errorf("host service has unexpected type %T", raw)
		}
		rc.session = session
		proxy = newBackendProxy(client, rc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proxy, nil
}

// clientPlugin implements go-plugin's Plugin interface on the runtime side.
type clientPlugin struct{}

// Server is not used on the runtime side.
func (p *clientPlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	return nil, errors.New("channel: Server not implemented on runtime side")
}

// Client returns the RPC client wrapper (called in the runtime process).
func (p *clientPlugin) Client(_ *hashiplug.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// rpcClient speaks the host service protocol over net/rpc, wrapping every
// message in an envelope tagged with the channel's session identifier.
type rpcClient struct {
	client  *rpc.Client
	session string
}

func (c *rpcClient) call(ctx context.Context, method string, args any) error {
	call := c.client.Go(method, args, &struct{}{}, make(chan *rpc.Call, 1))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case done := <-call.Done:
		return done.Error
	}
}

// Init implements hostapi.HostService.
func (c *rpcClient) Init(ctx context.Context, params hostapi.InitParams) error {
	return c.call(ctx, "Plugin.Init", hostapi.InitRequest{Session: c.session, Params: params})
}

// StartPlugins implements hostapi.HostService.
func (c *rpcClient) StartPlugins(ctx context.Context, reqs []hostapi.StartRequest, firedEvents []string) error {
	return c.call(ctx, "Plugin.StartPlugins", hostapi.StartPluginsRequest{
		Session:     c.session,
		Requests:    reqs,
		FiredEvents: firedEvents,
	})
}

// ActivateByEvent implements hostapi.HostService.
func (c *rpcClient) ActivateByEvent(ctx context.Context, event string) error {
	return c.call(ctx, "Plugin.ActivateByEvent", hostapi.ActivateRequest{Session: c.session, Event: event})
}

// StopPlugin implements hostapi.HostService.
func (c *rpcClient) StopPlugin(ctx context.Context, id string) error {
	return c.call(ctx, "Plugin.StopPlugin", hostapi.StopRequest{Session: c.session, ID: id})
}

// backendProxy owns a running host subprocess and its RPC client.
type backendProxy struct {
	*rpcClient

	plugin   *hashiplug.Client
	done     chan struct{}
	stop     chan struct{}
	once     sync.Once
	stopOnce sync.Once
}

func newBackendProxy(client *hashiplug.Client, rc *rpcClient) *backendProxy {
	p := &backendProxy{
		rpcClient: rc,
		plugin:    client,
		done:      make(chan struct{}),
		stop:      make(chan struct{}),
	}
	go p.watch()
	return p
}

// watch polls for host process exit so disconnects surface without an
// in-flight call failing first.
func (p *backendProxy) watch() {
	ticker := time.NewTicker(exitPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
			if p.plugin.Exited() {
				p.once.Do(func() { close(p.done) })
				return
			}
		}
	}
}

// Done implements HostProxy.
func (p *backendProxy) Done() <-chan struct{} { return p.done }

// Close implements HostProxy.
func (p *backendProxy) Close() error {
	p.once.Do(func() { close(p.done) })
	p.stopOnce.Do(func() { close(p.stop) })
	p.plugin.Kill()
	return nil
}
