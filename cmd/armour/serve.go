// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"context"
	cryptotls "crypto/tls"
	"crypto/x509"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	armourconfig "github.com/holomush/armour/internal/config"
	"github.com/holomush/armour/internal/control"
	"github.com/holomush/armour/internal/dataplane"
	"github.com/holomush/armour/internal/decisionaudit"
	"github.com/holomush/armour/internal/dnsresolve"
	"github.com/holomush/armour/internal/logging"
	"github.com/holomush/armour/internal/metadataactor"
	"github.com/holomush/armour/internal/observability"
	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/rpcclient"
	armourtls "github.com/holomush/armour/internal/tls"
	"github.com/holomush/armour/internal/xdg"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the mesh sidecar: load a policy and serve decisions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := armourconfig.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	// Flag names use underscores, matching internal/config.Config's koanf
	// tags: koanf's posflag provider keys entries by flag name verbatim,
	// with no hyphen/underscore folding.
	cfg := armourconfig.Defaults()
	cmd.Flags().String("mesh_id", cfg.MeshID, "mesh identifier, used to name this sidecar's certificates")
	cmd.Flags().String("grpc_addr", cfg.GRPCAddr, "decision-serving HTTP address")
	cmd.Flags().String("metrics_addr", cfg.MetricsAddr, "metrics/health HTTP address (empty disables it)")
	cmd.Flags().String("certs_dir", cfg.CertsDir, "TLS certificate directory (default: XDG_CONFIG_HOME/armour/certs)")
	cmd.Flags().String("policy_file", "", "policy source file to load (required)")
	cmd.Flags().String("log_format", cfg.LogFormat, "log format (json or text)")
	cmd.Flags().String("rpc_addr", "", "upstream mesh RPC address for unrecognized External calls")
	cmd.Flags().String("dns_server", "", "DNS server for IpAddr::lookup/reverse_lookup (default: system resolver)")
	cmd.Flags().String("metadata_plugin_path", "", "go-plugin binary serving Ingress/Egress metadata calls (empty disables it)")
	cmd.MarkFlagRequired("policy_file")

	return cmd
}

func runServe(ctx context.Context, cfg *armourconfig.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if cfg.PolicyFile == "" {
		return fmt.Errorf("policy_file is required")
	}
	logging.SetDefault("armour-sidecar", version, cfg.LogFormat)

	slog.Info("starting armour sidecar", "mesh_id", cfg.MeshID, "grpc_addr", cfg.GRPCAddr, "policy_file", cfg.PolicyFile)

	lp, err := loadPolicy(cfg.PolicyFile)
	if err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	slog.Info("policy loaded", "functions", len(lp.Funcs))

	certsDir := cfg.CertsDir
	if certsDir == "" {
		certsDir = xdg.CertsDir()
	}
	tlsConfig, err := ensureTLSCerts(certsDir, cfg.MeshID)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	slog.Info("TLS certificates ready", "certs_dir", certsDir)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	external, closeExternal, err := buildExternalChain(ctx, cfg, tlsConfig)
	if err != nil {
		return fmt.Errorf("failed to build external call chain: %w", err)
	}
	defer closeExternal()

	var auditLogger *decisionaudit.Logger
	var retentionWorker *decisionaudit.RetentionWorker
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, poolErr := pgxpool.New(ctx, dbURL)
		if poolErr != nil {
			return fmt.Errorf("failed to connect decision-audit database: %w", poolErr)
		}
		defer pool.Close()

		writer := decisionaudit.NewPostgresWriter(pool)
		defer writer.Close()

		auditLogger = decisionaudit.NewLogger(decisionaudit.ModeDenialsOnly, writer, "")
		defer auditLogger.Close()

		partitions := decisionaudit.NewPostgresPartitionCreator(pool)
		retentionWorker = decisionaudit.NewRetentionWorker(decisionaudit.DefaultRetentionConfig(), partitions)
		if startErr := retentionWorker.Start(ctx); startErr != nil {
			return fmt.Errorf("failed to start retention worker: %w", startErr)
		}
		defer retentionWorker.Stop()

		slog.Info("decision audit enabled", "mode", decisionaudit.ModeDenialsOnly)
	}

	var obsServer *observability.Server
	var metrics *observability.Metrics
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool { return true })
		metrics = obsServer.Metrics()
		if startErr := obsServer.Start(); startErr != nil {
			return fmt.Errorf("failed to start observability server: %w", startErr)
		}
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if stopErr := obsServer.Stop(shutdownCtx); stopErr != nil {
				slog.Warn("error stopping observability server", "error", stopErr)
			}
		}()
		slog.Info("observability server started", "addr", obsServer.Addr())
	}

	dpServer := dataplane.New(cfg.GRPCAddr, cfg.MeshID, lp.Funcs, external, auditLogger, metrics)
	if err := dpServer.Start(); err != nil {
		return fmt.Errorf("failed to start dataplane server: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if stopErr := dpServer.Stop(shutdownCtx); stopErr != nil {
			slog.Warn("error stopping dataplane server", "error", stopErr)
		}
	}()
	slog.Info("dataplane server started", "addr", dpServer.Addr())

	controlTLSConfig, err := control.LoadControlServerTLS(certsDir, "sidecar")
	if err != nil {
		return fmt.Errorf("failed to load control TLS config: %w", err)
	}
	_ = controlTLSConfig // the HTTP control socket (below) is Unix-domain and doesn't need network TLS; kept to validate cert material is present before serving.

	controlServer := control.NewServer("sidecar", func() { cancel() })
	if err := controlServer.Start(); err != nil {
		return fmt.Errorf("failed to start control socket: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if stopErr := controlServer.Stop(shutdownCtx); stopErr != nil {
			slog.Warn("error stopping control socket", "error", stopErr)
		}
	}()
	slog.Info("control socket started", "component", "sidecar")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Armour sidecar started")
	slog.Info("sidecar ready", "mesh_id", cfg.MeshID)

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutdown complete")
	return nil
}

// buildExternalChain wires the eval.External decorator chain Ingress/Egress
// metadata calls and DNS lookups resolve through before falling back to the
// upstream mesh RPC endpoint (spec.md §6): metadataactor -> dnsresolve ->
// rpcclient, each optional and skipped when unconfigured.
func buildExternalChain(ctx context.Context, cfg *armourconfig.Config, tlsConfig *cryptotls.Config) (eval.External, func(), error) {
	var tail eval.External = noExternal{}
	closers := []func(){}

	if cfg.RPCAddr != "" {
		client, err := rpcclient.New(ctx, rpcclient.Config{Address: cfg.RPCAddr, TLSConfig: tlsConfig})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to dial rpc-addr %s: %w", cfg.RPCAddr, err)
		}
		tail = client
		closers = append(closers, func() { _ = client.Close() })
	}

	if cfg.DNSServer != "" {
		tail = dnsresolve.New(cfg.DNSServer, tail)
	}

	if cfg.MetadataPluginPath != "" {
		actor, err := metadataactor.New(cfg.MetadataPluginPath, tail)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to launch metadata plugin %s: %w", cfg.MetadataPluginPath, err)
		}
		tail = actor
		closers = append(closers, actor.Close)
	}

	head := tail
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	return head, closeAll, nil
}

// ensureTLSCerts generates or loads this sidecar's TLS certificates, mirroring
// the teacher's ensureTLSCerts but against this tree's actual internal/tls
// API (GenerateCA/GenerateServerCert/SaveCertificates/LoadCA — the teacher's
// cmd/holomush/core.go also calls tls.LoadServerTLS/GenerateClientCert/
// SaveClientCert, none of which exist in this tree's internal/tls/certs.go).
func ensureTLSCerts(certsDir, meshID string) (*cryptotls.Config, error) {
	ca, err := armourtls.LoadCA(certsDir)
	if err == nil {
		serverCert, certErr := armourtls.GenerateServerCert(ca, meshID, "sidecar")
		if certErr != nil {
			return nil, fmt.Errorf("failed to generate server certificate from existing CA: %w", certErr)
		}
		// Persist the leaf so control.LoadControlServerTLS (reading
		// certsDir/sidecar.{crt,key} from disk) finds the same material.
		if saveErr := armourtls.SaveCertificates(certsDir, ca, serverCert); saveErr != nil {
			return nil, fmt.Errorf("failed to save server certificate: %w", saveErr)
		}
		return buildServerTLSConfig(ca, serverCert)
	}

	slog.Info("generating TLS certificates", "certs_dir", certsDir)
	if err := xdg.EnsureDir(certsDir); err != nil {
		return nil, fmt.Errorf("failed to create certs directory: %w", err)
	}

	ca, err = armourtls.GenerateCA(meshID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CA: %w", err)
	}
	serverCert, err := armourtls.GenerateServerCert(ca, meshID, "sidecar")
	if err != nil {
		return nil, fmt.Errorf("failed to generate server certificate: %w", err)
	}
	if err := armourtls.SaveCertificates(certsDir, ca, serverCert); err != nil {
		return nil, fmt.Errorf("failed to save certificates: %w", err)
	}

	return buildServerTLSConfig(ca, serverCert)
}

// buildServerTLSConfig assembles an in-memory *tls.Config directly from
// generated certificate material, avoiding a round trip through disk for
// the common "certificates didn't exist yet" path.
func buildServerTLSConfig(ca *armourtls.CA, serverCert *armourtls.ServerCert) (*cryptotls.Config, error) {
	caPool := x509.NewCertPool()
	caPool.AddCert(ca.Certificate)

	cert := cryptotls.Certificate{
		Certificate: [][]byte{serverCert.Certificate.Raw},
		PrivateKey:  serverCert.PrivateKey,
		Leaf:        serverCert.Certificate,
	}

	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		ClientCAs:    caPool,
		ClientAuth:   cryptotls.RequireAndVerifyClientCert,
		MinVersion:   cryptotls.VersionTLS13,
	}, nil
}
