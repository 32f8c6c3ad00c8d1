// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load(nil, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != "localhost:9000" {
		t.Errorf("GRPCAddr = %q, want default", cfg.GRPCAddr)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want json default", cfg.LogFormat)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "armour.yaml")
	if err := os.WriteFile(path, []byte("mesh_id: mesh-1\ngrpc_addr: 0.0.0.0:9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MeshID != "mesh-1" {
		t.Errorf("MeshID = %q, want mesh-1", cfg.MeshID)
	}
	if cfg.GRPCAddr != "0.0.0.0:9000" {
		t.Errorf("GRPCAddr = %q, want file override", cfg.GRPCAddr)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want untouched default", cfg.LogFormat)
	}
}

func TestLoad_FlagOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "armour.yaml")
	if err := os.WriteFile(path, []byte("grpc_addr: 0.0.0.0:9000\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("grpc_addr", "", "")
	if err := fs.Set("grpc_addr", "10.0.0.1:9000"); err != nil {
		t.Fatalf("set flag: %v", err)
	}

	cfg, err := Load(fs, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != "10.0.0.1:9000" {
		t.Errorf("GRPCAddr = %q, want explicit flag override", cfg.GRPCAddr)
	}
}

func TestValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate on defaults: %v", err)
	}

	cfg.GRPCAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty grpc_addr")
	}

	cfg = Defaults()
	cfg.LogFormat = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid log_format")
	}
}
