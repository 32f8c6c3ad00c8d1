// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writePolicy(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.policy")
	if err := os.WriteFile(path, []byte(src), 0o600); err != nil {
		t.Fatalf("write policy: %v", err)
	}
	return path
}

func TestCheckCmd_ValidPolicy(t *testing.T) {
	path := writePolicy(t, `fn allow(x: I64) -> Bool { return x > 0; }`)

	cmd := newCheckCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !bytes.Contains(out.Bytes(), []byte("ok")) {
		t.Errorf("expected ok in output, got %q", out.String())
	}
}

func TestCheckCmd_SyntaxError(t *testing.T) {
	path := writePolicy(t, `fn broken( -> Bool { `)

	cmd := newCheckCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err == nil {
		t.Error("expected a parse error")
	}
}

func TestCheckCmd_TypeError(t *testing.T) {
	path := writePolicy(t, `fn broken(x: I64) -> Bool { return x + "nope"; }`)

	cmd := newCheckCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{path})

	if err := cmd.Execute(); err == nil {
		t.Error("expected a typecheck error")
	}
}
