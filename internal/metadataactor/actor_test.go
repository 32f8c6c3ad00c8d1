// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package metadataactor

import (
	"context"
	"testing"

	hashiplug "github.com/hashicorp/go-plugin"

	"github.com/holomush/armour/internal/policy/literals"
)

// fakeHandler is dispensed directly, bypassing any real net/rpc transport.
type fakeHandler struct {
	lastMethod string
	lastArgs   []Value
}

func (h *fakeHandler) Handle(method string, args []Value) (Value, error) {
	h.lastMethod = method
	h.lastArgs = args
	return Value{Kind: "str", S: "handled:" + method}, nil
}

type fakePluginClient struct {
	dispensed interface{}
}

func (f *fakePluginClient) Client() (hashiplug.ClientProtocol, error) { return nil, nil }
func (f *fakePluginClient) Kill()                                     {}

// newTestActor builds an Actor by hand around h instead of going through
// NewWithFactory, so no hashiplug.ClientProtocol is needed (fakePluginClient's
// Client() returns nil) and the tests exercise dispatch logic directly.
func newTestActor(t *testing.T, h Handler, next *fakeExternal) *Actor {
	t.Helper()
	return &Actor{client: &fakePluginClient{}, handler: h, Next: next}
}

type fakeExternal struct {
	called string
}

func (f *fakeExternal) Call(_ context.Context, name string, _ []literals.Literal) (literals.Literal, error) {
	f.called = name
	return literals.Str("from-next"), nil
}

func TestActor_DispatchesIngressToHandler(t *testing.T) {
	h := &fakeHandler{}
	a := newTestActor(t, h, nil)

	v, err := a.Call(context.Background(), "Ingress::header", []literals.Literal{literals.Str("x-trace-id")})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if h.lastMethod != "Ingress::header" {
		t.Fatalf("handler got method %q", h.lastMethod)
	}
	if len(h.lastArgs) != 1 || h.lastArgs[0].Kind != "str" || h.lastArgs[0].S != "x-trace-id" {
		t.Fatalf("handler got args %+v", h.lastArgs)
	}
	if v.(literals.Str) != "handled:Ingress::header" {
		t.Fatalf("got %v", v)
	}
}

func TestActor_DispatchesEgressToHandler(t *testing.T) {
	h := &fakeHandler{}
	a := newTestActor(t, h, nil)

	_, err := a.Call(context.Background(), "Egress::destination", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if h.lastMethod != "Egress::destination" {
		t.Fatalf("handler got method %q", h.lastMethod)
	}
}

func TestActor_DelegatesOtherNamespaces(t *testing.T) {
	next := &fakeExternal{}
	a := newTestActor(t, &fakeHandler{}, next)

	v, err := a.Call(context.Background(), "Acme::do_thing", nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if next.called != "Acme::do_thing" {
		t.Fatalf("next was not invoked: %q", next.called)
	}
	if v.(literals.Str) != "from-next" {
		t.Fatalf("got %v", v)
	}
}

func TestActor_NoNextErrorsOnUnownedCall(t *testing.T) {
	a := newTestActor(t, &fakeHandler{}, nil)
	_, err := a.Call(context.Background(), "Acme::do_thing", nil)
	if err == nil {
		t.Fatal("expected error with no Next collaborator")
	}
}

func TestValue_RoundTripsListOfStr(t *testing.T) {
	in := literals.List{Elem: literals.Str("").Type(), Items: []literals.Literal{literals.Str("a"), literals.Str("b")}}
	wv, err := toValue(in)
	if err != nil {
		t.Fatalf("toValue: %v", err)
	}
	out, err := fromValue(wv)
	if err != nil {
		t.Fatalf("fromValue: %v", err)
	}
	l, ok := out.(literals.List)
	if !ok || len(l.Items) != 2 {
		t.Fatalf("got %+v", out)
	}
}
