// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Lodestar Contributors

// Package hostsdk provides the SDK for building Lodestar backend host
// executables.
//
// Backend hosts communicate with the runtime via HashiCorp go-plugin over
// its net/rpc protocol. A host executable implements hostapi.HostService and
// hands it to Serve:
//
//	package main
//
//	import (
//		"context"
//
//		"github.com/lodestar-ide/lodestar/pkg/hostapi"
//		"github.com/lodestar-ide/lodestar/pkg/hostsdk"
//	)
//
//	type Host struct{}
//
//	func (h *Host) Init(ctx context.Context, params hostapi.InitParams) error { return nil }
//	// ... remaining hostapi.HostService methods ...
//
//	func main() {
//		hostsdk.Serve(&hostsdk.ServeConfig{Service: &Host{}})
//	}
package hostsdk

import (
	"context"
	"errors"
	"net/rpc"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/lodestar-ide/lodestar/pkg/hostapi"
)

// HandshakeConfig is the go-plugin handshake configuration.
// The runtime and host executables must use the same values.
var HandshakeConfig = hashiplug.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "LODESTAR_HOST",
	MagicCookieValue: "lodestar-v1",
}

// ServeConfig configures the host server.
type ServeConfig struct {
	// Service is the host implementation. Required; Serve panics if nil.
	Service hostapi.HostService
}

// Serve starts the host server. Call from main(); it blocks and never
// returns under normal operation.
func Serve(config *ServeConfig) {
	if config == nil {
		panic("hostsdk: config cannot be nil")
	}
	if config.Service == nil {
		panic("hostsdk: config.Service cannot be nil")
	}
	hashiplug.Serve(&hashiplug.ServeConfig{
		HandshakeConfig: HandshakeConfig,
		Plugins: map[string]hashiplug.Plugin{
			hostapi.PluginName: &servePlugin{service: config.Service},
		},
	})
}

// servePlugin implements go-plugin's Plugin interface on the host side.
type servePlugin struct {
	service hostapi.HostService
}

// Server returns the net/rpc server implementation (called in the host
// process).
func (p *servePlugin) Server(*hashiplug.MuxBroker) (interface{}, error) {
	if p.service == nil {
		return nil, errors.New("hostsdk: service is nil")
	}
	return &rpcServer{service: p.service}, nil
}

// Client is not used on the host side.
func (p *servePlugin) Client(*hashiplug.MuxBroker, *rpc.Client) (interface{}, error) {
	return nil, errors.New("hostsdk: Client not implemented on host side")
}

// rpcServer adapts hostapi.HostService to net/rpc method signatures.
type rpcServer struct {
	service hostapi.HostService
}

// Init handles the initialization handshake.
func (s *rpcServer) Init(req hostapi.InitRequest, _ *struct{}) error {
	return s.service.Init(context.Background(), req.Params)
}

// StartPlugins handles a batched plugin start.
func (s *rpcServer) StartPlugins(req hostapi.StartPluginsRequest, _ *struct{}) error {
	return s.service.StartPlugins(context.Background(), req.Requests, req.FiredEvents)
}

// ActivateByEvent handles an activation event.
func (s *rpcServer) ActivateByEvent(req hostapi.ActivateRequest, _ *struct{}) error {
	return s.service.ActivateByEvent(context.Background(), req.Event)
}

// StopPlugin handles a plugin stop.
func (s *rpcServer) StopPlugin(req hostapi.StopRequest, _ *struct{}) error {
	return s.service.StopPlugin(context.Background(), req.ID)
}
