// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package dataplane

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/holomush/armour/internal/decisionaudit"
	"github.com/holomush/armour/internal/policy/ast"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
)

type rejectExternal struct{}

func (rejectExternal) Call(_ context.Context, name string, _ []literals.Literal) (literals.Literal, error) {
	return nil, errUnreachable{name}
}

type errUnreachable struct{ name string }

func (e errUnreachable) Error() string { return "unreachable external call: " + e.name }

type mockWriter struct{ entries []decisionaudit.Entry }

func (m *mockWriter) WriteSync(_ context.Context, e decisionaudit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}
func (m *mockWriter) WriteAsync(e decisionaudit.Entry) error {
	m.entries = append(m.entries, e)
	return nil
}
func (m *mockWriter) Close() error { return nil }

func mustFuncs(t *testing.T, src string) map[string]*corelang.FnDef {
	t.Helper()
	p, err := ast.Parse("test.policy", src)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	fns, err := corelang.LowerPolicy(p)
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	return fns
}

func TestServer_Evaluate_Allow(t *testing.T) {
	funcs := mustFuncs(t, `fn allow(x: I64) -> Bool { return x > 0; }`)
	writer := &mockWriter{}
	audit := decisionaudit.NewLogger(decisionaudit.ModeAll, writer, "")
	defer audit.Close()

	s := New("127.0.0.1:0", "mesh-1", funcs, rejectExternal{}, audit, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	body, _ := json.Marshal(DecisionRequest{Function: "allow", Args: []json.RawMessage{json.RawMessage("5")}})
	resp, err := http.Post("http://"+s.Addr()+"/v1/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	var decision DecisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decision.Result != "true" {
		t.Errorf("Result = %q, want true", decision.Result)
	}

	deadline := time.Now().Add(time.Second)
	for len(writer.entries) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if len(writer.entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(writer.entries))
	}
	if writer.entries[0].Outcome != decisionaudit.OutcomeAllow {
		t.Errorf("Outcome = %q, want allow", writer.entries[0].Outcome)
	}
}

func TestServer_Evaluate_UnknownFunction(t *testing.T) {
	funcs := mustFuncs(t, `fn allow(x: I64) -> Bool { return x > 0; }`)
	s := New("127.0.0.1:0", "mesh-1", funcs, rejectExternal{}, nil, nil)
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	body, _ := json.Marshal(DecisionRequest{Function: "missing"})
	resp, err := http.Post("http://"+s.Addr()+"/v1/evaluate", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}
