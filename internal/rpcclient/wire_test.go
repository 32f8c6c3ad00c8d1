// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package rpcclient

import (
	"testing"

	"github.com/holomush/armour/internal/policy/literals"
)

func TestToFullMethod(t *testing.T) {
	cases := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"Acme::charge", "/armour.external.Acme/charge", true},
		{"Ingress::header", "", false},
		{"Egress::destination", "", false},
		{"malformed", "", false},
	}
	for _, c := range cases {
		got, ok := toFullMethod(c.in)
		if ok != c.wantOK || got != c.want {
			t.Errorf("toFullMethod(%q) = (%q, %v), want (%q, %v)", c.in, got, ok, c.want, c.wantOK)
		}
	}
}

func TestProtoValueRoundTrip(t *testing.T) {
	in := literals.List{
		Elem:  literals.Str("").Type(),
		Items: []literals.Literal{literals.Str("a"), literals.Str("b")},
	}
	pv, err := toProtoValue(in)
	if err != nil {
		t.Fatalf("toProtoValue: %v", err)
	}
	out, err := fromProtoValue(pv)
	if err != nil {
		t.Fatalf("fromProtoValue: %v", err)
	}
	l, ok := out.(literals.List)
	if !ok || len(l.Items) != 2 || l.Items[0].(literals.Str) != "a" {
		t.Fatalf("got %+v", out)
	}
}

func TestProtoValueScalarKinds(t *testing.T) {
	b, _ := toProtoValue(literals.Bool(true))
	if got, err := fromProtoValue(b); err != nil || got.(literals.Bool) != true {
		t.Fatalf("bool round-trip: %v %v", got, err)
	}
	n, _ := toProtoValue(literals.I64(42))
	if got, err := fromProtoValue(n); err != nil || got.(literals.F64) != 42 {
		t.Fatalf("number round-trip decodes as F64: %v %v", got, err)
	}
}
