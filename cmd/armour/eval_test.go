// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"bytes"
	"testing"
)

func TestEvalCmd_ReturnsResult(t *testing.T) {
	path := writePolicy(t, `fn allow(x: I64) -> Bool { return x > 0; }`)

	cmd := newEvalCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path, "--function", "allow", "--args-json", "[5]"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if out.String() != "true\n" {
		t.Errorf("output = %q, want \"true\\n\"", out.String())
	}
}

func TestEvalCmd_WrongArgCount(t *testing.T) {
	path := writePolicy(t, `fn allow(x: I64) -> Bool { return x > 0; }`)

	cmd := newEvalCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--function", "allow", "--args-json", "[1, 2]"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for argument count mismatch")
	}
}

func TestEvalCmd_UnknownFunction(t *testing.T) {
	path := writePolicy(t, `fn allow(x: I64) -> Bool { return x > 0; }`)

	cmd := newEvalCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path, "--function", "missing", "--args-json", "[]"})

	if err := cmd.Execute(); err == nil {
		t.Error("expected an error for an unknown function")
	}
}
