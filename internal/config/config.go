// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package config loads cmd/armour's serve/eval/check configuration from a
// layered source: an optional YAML file, overridden by CLI flags (spec.md's
// ambient config stack). The teacher (cmd/holomush/*.go) wires flags
// directly into a flat per-command struct with no file layer; koanf is
// already a direct dependency in the teacher's own go.mod despite no
// teacher source file importing it in this snapshot, so this package is
// the first to exercise it, generalizing the teacher's flat-struct shape
// (internal/grpc's coreConfig) into a koanf-backed loader with a file
// layer cobra's flags alone don't provide.
package config

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// Config holds every setting cmd/armour's subcommands need, pulled from a
// YAML file and overridden by CLI flags. Field names are snake_case in
// YAML (`mesh_id`, `grpc_addr`, ...), matching koanf's default key
// flattening for a nested file.
type Config struct {
	MeshID      string `koanf:"mesh_id"`
	GRPCAddr    string `koanf:"grpc_addr"`
	ControlAddr string `koanf:"control_addr"`
	MetricsAddr string `koanf:"metrics_addr"`
	CertsDir    string `koanf:"certs_dir"`
	PolicyFile  string `koanf:"policy_file"`
	LogFormat   string `koanf:"log_format"`

	// RPCAddr is the upstream mesh service address internal/rpcclient
	// dials as the terminal eval.External collaborator.
	RPCAddr string `koanf:"rpc_addr"`
	// DNSServer is the resolver internal/dnsresolve queries.
	DNSServer string `koanf:"dns_server"`
	// MetadataPluginPath is the binary internal/metadataactor launches
	// for the Ingress/Egress collaborator. Empty disables it.
	MetadataPluginPath string `koanf:"metadata_plugin_path"`
}

// Defaults returns the baseline configuration applied before the file and
// flag layers, mirroring the teacher's defaultXxxAddr constants.
func Defaults() Config {
	return Config{
		GRPCAddr:    "localhost:9000",
		ControlAddr: "127.0.0.1:9001",
		MetricsAddr: "127.0.0.1:9100",
		CertsDir:    "",
		LogFormat:   "json",
		DNSServer:   "",
	}
}

// Validate checks invariants Defaults doesn't already guarantee.
func (cfg *Config) Validate() error {
	if cfg.GRPCAddr == "" {
		return fmt.Errorf("config: grpc_addr is required")
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return fmt.Errorf("config: log_format must be 'json' or 'text', got %q", cfg.LogFormat)
	}
	return nil
}

// Load builds a Config from, in increasing precedence order: Defaults(),
// the YAML file at configFile (skipped if empty), and flags set on flagSet.
func Load(flagSet *pflag.FlagSet, configFile string) (*Config, error) {
	k := koanf.New(".")

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: loading %s: %w", configFile, err)
		}
	}

	if flagSet != nil {
		if err := k.Load(posflag.Provider(flagSet, ".", k), nil); err != nil {
			return nil, fmt.Errorf("config: loading flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	fillDefaults(&cfg)
	// An explicitly empty --metrics_addr disables the metrics server, so it
	// is not replaced by the default.
	if flagSet != nil {
		if f := flagSet.Lookup("metrics_addr"); f != nil && f.Changed && f.Value.String() == "" {
			cfg.MetricsAddr = ""
		}
	}
	return &cfg, nil
}

// fillDefaults replaces any still-empty string field with Defaults()'s
// value. posflag.Provider merges every flag's zero value into koanf
// whether or not the user actually set it, so file/Defaults() values for
// an unset flag would otherwise be clobbered by koanf.Unmarshal with "".
func fillDefaults(cfg *Config) {
	d := Defaults()
	if cfg.GRPCAddr == "" {
		cfg.GRPCAddr = d.GRPCAddr
	}
	if cfg.ControlAddr == "" {
		cfg.ControlAddr = d.ControlAddr
	}
	if cfg.MetricsAddr == "" {
		cfg.MetricsAddr = d.MetricsAddr
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = d.LogFormat
	}
}
