// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package metadataactor

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// PluginClient wraps a go-plugin client for testability, mirroring
// internal/plugin/goplugin's PluginClient/ClientFactory split so actor
// construction can be unit-tested without spawning a real binary.
type PluginClient interface {
	Client() (hashiplug.ClientProtocol, error)
	Kill()
}

// ClientFactory creates plugin clients for a given executable path.
type ClientFactory interface {
	NewClient(execPath string) PluginClient
}

// DefaultClientFactory launches real go-plugin subprocesses over net/rpc.
type DefaultClientFactory struct{}

func (DefaultClientFactory) NewClient(execPath string) PluginClient {
	return hashiplug.NewClient(&hashiplug.ClientConfig{
		HandshakeConfig:  HandshakeConfig,
		Plugins:          PluginMap,
		Cmd:              exec.Command(execPath), // #nosec G204 -- execPath comes from trusted mesh configuration, not request data
		AllowedProtocols: []hashiplug.Protocol{hashiplug.ProtocolNetRPC},
	})
}

// Actor is the eval.External collaborator for the Ingress/Egress metadata
// namespace (spec.md §6): it owns every qualified name starting with
// "Ingress::" or "Egress::", dispatching each to an out-of-process plugin
// binary, and forwards everything else to Next — the same decorator shape
// internal/dnsresolve uses, so cmd/armour can chain metadata, DNS, and
// generic RPC collaborators into one eval.External.
type Actor struct {
	client  PluginClient
	handler Handler
	Next    eval.External
}

// New launches the plugin binary at execPath and dispenses its Handler.
// The caller must call Close when done to terminate the subprocess.
func New(execPath string, next eval.External) (*Actor, error) {
	return NewWithFactory(DefaultClientFactory{}, execPath, next)
}

// NewWithFactory is New with an injectable ClientFactory, for tests.
func NewWithFactory(factory ClientFactory, execPath string, next eval.External) (*Actor, error) {
	client := factory.NewClient(execPath)
	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("metadataactor: connect to %s: %w", execPath, err)
	}
	raw, err := rpcClient.Dispense("metadata")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("metadataactor: dispense: %w", err)
	}
	handler, ok := raw.(Handler)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("metadataactor: dispensed value is %T, not Handler", raw)
	}
	return &Actor{client: client, handler: handler, Next: next}, nil
}

// Close terminates the plugin subprocess.
func (a *Actor) Close() {
	a.client.Kill()
}

func (a *Actor) Call(ctx context.Context, qualifiedName string, args []literals.Literal) (literals.Literal, error) {
	if owns(qualifiedName) {
		return a.call(qualifiedName, args)
	}
	if a.Next == nil {
		return nil, fmt.Errorf("metadataactor: no collaborator for %q", qualifiedName)
	}
	return a.Next.Call(ctx, qualifiedName, args)
}

func owns(qualifiedName string) bool {
	return strings.HasPrefix(qualifiedName, "Ingress::") || strings.HasPrefix(qualifiedName, "Egress::")
}

func (a *Actor) call(qualifiedName string, args []literals.Literal) (literals.Literal, error) {
	wireArgs := make([]Value, 0, len(args))
	for _, arg := range args {
		wv, err := toValue(arg)
		if err != nil {
			return nil, fmt.Errorf("metadataactor: %s: %w", qualifiedName, err)
		}
		wireArgs = append(wireArgs, wv)
	}

	result, err := a.handler.Handle(qualifiedName, wireArgs)
	if err != nil {
		return nil, fmt.Errorf("metadataactor: %s: %w", qualifiedName, err)
	}
	return fromValue(result)
}
