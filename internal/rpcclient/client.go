// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package rpcclient implements the generic "External call" collaborator
// (spec.md §6): `(service, method, args) -> Literal` for any RPC namespace
// other than Ingress/Egress (those are served by internal/metadataactor).
//
// internal/grpc's Client/Server wrap a protoc-generated corev1.CoreClient
// from github.com/holomush/armour/internal/proto/holomush/core/v1, a
// package that does not exist as compiled source in this tree (only its
// _test.go files reference it) — it cannot be adapted by a rename pass.
// Policy external calls are also inherently open-ended: the set of
// services and methods a mesh operator configures isn't known until
// deploy time, so generated per-service stubs wouldn't fit even if the
// teacher's proto existed. Instead this package calls
// grpc.ClientConn.Invoke directly against a hand-built full method
// string, exchanging google.golang.org/protobuf/types/known/structpb
// messages — a real, already-compiled protobuf type requiring no codegen,
// and the standard grpc-go pattern for codegen-free unary calls.
package rpcclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// Config mirrors internal/grpc.ClientConfig's shape (address, mTLS,
// keepalive) for the single upstream mesh endpoint this client dials.
type Config struct {
	Address          string
	TLSConfig        *tls.Config
	KeepaliveTime    time.Duration
	KeepaliveTimeout time.Duration
}

// Client is the terminal collaborator in an eval.External decorator chain:
// it owns every qualified name not claimed by a collaborator earlier in
// the chain, translating "Service::method" into a gRPC call against
// Address. Next, if set, lets it still defer further (e.g. to a second
// upstream); by default it errors on anything it can't reach.
type Client struct {
	conn *grpc.ClientConn
	Next eval.External
}

// New dials Address and returns a ready Client.
func New(_ context.Context, cfg Config) (*Client, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("rpcclient: address is required")
	}
	if cfg.KeepaliveTime == 0 {
		cfg.KeepaliveTime = 10 * time.Second
	}
	if cfg.KeepaliveTimeout == 0 {
		cfg.KeepaliveTimeout = 5 * time.Second
	}

	opts := []grpc.DialOption{
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                cfg.KeepaliveTime,
			Timeout:             cfg.KeepaliveTimeout,
			PermitWithoutStream: true,
		}),
	}
	if cfg.TLSConfig != nil {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(cfg.TLSConfig)))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(cfg.Address, opts...)
	if err != nil {
		return nil, fmt.Errorf("rpcclient: dial %s: %w", cfg.Address, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// Call implements eval.External. qualifiedName is "Service::method"; it is
// dialed as unary RPC "/armour.external.<Service>/<method>" carrying a
// structpb.Struct{"args": [...]} request and expecting a
// structpb.Struct{"result": ...} response.
func (c *Client) Call(ctx context.Context, qualifiedName string, args []literals.Literal) (literals.Literal, error) {
	fullMethod, ok := toFullMethod(qualifiedName)
	if !ok {
		if c.Next == nil {
			return nil, fmt.Errorf("rpcclient: %q is not a Service::method call", qualifiedName)
		}
		return c.Next.Call(ctx, qualifiedName, args)
	}

	argValues := make([]interface{}, 0, len(args))
	for _, a := range args {
		pv, err := toProtoValue(a)
		if err != nil {
			return nil, fmt.Errorf("rpcclient: %s: %w", qualifiedName, err)
		}
		argValues = append(argValues, pv.AsInterface())
	}
	req, err := structpb.NewStruct(map[string]interface{}{"args": argValues})
	if err != nil {
		return nil, fmt.Errorf("rpcclient: %s: encoding request: %w", qualifiedName, err)
	}

	resp := &structpb.Struct{}
	if err := c.conn.Invoke(ctx, fullMethod, req, resp); err != nil {
		return nil, fmt.Errorf("rpcclient: %s: %w", qualifiedName, err)
	}

	result, ok := resp.GetFields()["result"]
	if !ok {
		return literals.UnitVal, nil
	}
	return fromProtoValue(result)
}
