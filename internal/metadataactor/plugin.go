// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package metadataactor

import (
	"net/rpc"

	goplugin "github.com/hashicorp/go-plugin"
)

// HandshakeConfig is shared by the host (this package) and any metadata
// plugin binary built against it; both sides must agree on the magic
// cookie before go-plugin will establish a session.
var HandshakeConfig = goplugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ARMOUR_METADATA_PLUGIN",
	MagicCookieValue: "metadata-actor",
}

// PluginMap is the set of plugins dispensable over the connection; a
// metadata plugin binary always serves exactly one named implementation.
var PluginMap = map[string]goplugin.Plugin{
	"metadata": &Plugin{},
}

// Handler is implemented by a metadata plugin's business logic: resolving
// Ingress/Egress method calls (e.g. header lookups, peer identity checks)
// against whatever backing store or sidecar API the plugin wraps.
type Handler interface {
	Handle(method string, args []Value) (Value, error)
}

// Plugin adapts a Handler to go-plugin's net/rpc Plugin interface. Unlike
// go-plugin's gRPC Plugin interface, this requires no protoc-generated
// client/server stubs: net/rpc serializes HandleArgs/HandleReply with gob,
// and Server/Client below are the entire transport.
type Plugin struct {
	Impl Handler
}

func (p *Plugin) Server(*goplugin.MuxBroker) (interface{}, error) {
	return &rpcServer{impl: p.Impl}, nil
}

func (p *Plugin) Client(_ *goplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &rpcClient{client: c}, nil
}

// HandleArgs/HandleReply are the net/rpc request/response pair; both must
// be gob-encodable, which Value (a plain struct of scalars and a self-
// referential slice) already is.
type HandleArgs struct {
	Method string
	Args   []Value
}

type HandleReply struct {
	Result Value
}

// rpcServer runs in the plugin process and dispatches onto the real Handler.
type rpcServer struct {
	impl Handler
}

func (s *rpcServer) Handle(args HandleArgs, reply *HandleReply) error {
	result, err := s.impl.Handle(args.Method, args.Args)
	if err != nil {
		return err
	}
	reply.Result = result
	return nil
}

// rpcClient runs in the host process (this module) and is the Handler a
// dispensed plugin connection presents to callers.
type rpcClient struct {
	client *rpc.Client
}

func (c *rpcClient) Handle(method string, args []Value) (Value, error) {
	var reply HandleReply
	err := c.client.Call("Plugin.Handle", HandleArgs{Method: method, Args: args}, &reply)
	if err != nil {
		return Value{}, err
	}
	return reply.Result, nil
}
