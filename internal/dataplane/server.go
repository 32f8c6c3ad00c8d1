// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package dataplane serves policy decisions over HTTP: the mesh sidecar's
// request-time surface onto the policy pipeline (spec.md §1 "evaluated at
// request/response time"). The teacher's equivalent data-plane service
// (internal/grpc's gRPC server) is generated off
// internal/proto/holomush/core/v1, a package absent from this tree — the
// same gap internal/rpcclient documents for the outbound side. Rather than
// leaving the inbound side unimplemented, this package follows
// internal/observability.Server's plain net/http Start/Stop/Addr shape,
// which needs no codegen, and decodes requests as JSON instead of
// protobuf.
package dataplane

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/holomush/armour/internal/decisionaudit"
	"github.com/holomush/armour/internal/observability"
	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/eval"
	"github.com/holomush/armour/internal/policy/literals"
)

// DecisionRequest names the function to call and its arguments as raw JSON
// values; handleEvaluate decodes them against the function's declared
// parameter types (decode.go mirrors cmd/armour/eval.go's --args-json
// decoder).
type DecisionRequest struct {
	Function string            `json:"function"`
	Args     []json.RawMessage `json:"args"`
}

// DecisionResponse carries either a rendered result or an error message.
type DecisionResponse struct {
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Server evaluates policy functions against decoded HTTP requests, auditing
// every decision through an optional decisionaudit.Logger.
type Server struct {
	addr       string
	funcs      map[string]*corelang.FnDef
	external   eval.External
	audit      *decisionaudit.Logger
	metrics    *observability.Metrics
	meshID     string
	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// New builds a data-plane server over funcs, dispatching builtin external
// calls through external and recording outcomes through audit (nil
// disables auditing; metrics nil disables Prometheus counters).
func New(addr, meshID string, funcs map[string]*corelang.FnDef, external eval.External, audit *decisionaudit.Logger, metrics *observability.Metrics) *Server {
	return &Server{addr: addr, meshID: meshID, funcs: funcs, external: external, audit: audit, metrics: metrics}
}

// Start begins serving decision requests on /v1/evaluate.
func (s *Server) Start() error {
	if !s.running.CompareAndSwap(false, true) {
		return fmt.Errorf("dataplane server already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/evaluate", s.handleEvaluate)

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if serveErr := s.httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("dataplane server error", "error", serveErr)
		}
	}()

	slog.Info("dataplane server started", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.Load() {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown dataplane server: %w", err)
		}
	}
	s.running.Store(false)
	slog.Info("dataplane server stopped")
	return nil
}

// Addr returns the address the server is listening on, or "" if not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	start := time.Now()

	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, DecisionResponse{Error: err.Error()})
		return
	}

	fn, ok := s.funcs[req.Function]
	if !ok {
		writeJSON(w, http.StatusNotFound, DecisionResponse{Error: fmt.Sprintf("no such function %q", req.Function)})
		return
	}

	args, err := decodeArgs(fn, req.Args)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, DecisionResponse{Error: err.Error()})
		return
	}

	if s.metrics != nil {
		s.metrics.EvaluationsTotal.WithLabelValues("eval").Inc()
	}

	env := &eval.Env{Funcs: s.funcs, External: s.external}
	result, evalErr := eval.CallFunction(ctx, env, req.Function, args)

	outcome := decisionaudit.OutcomeAllow
	resp := DecisionResponse{}
	status := http.StatusOK
	if evalErr != nil {
		outcome = decisionaudit.OutcomeError
		resp.Error = evalErr.Error()
		status = http.StatusUnprocessableEntity
	} else if b, ok := result.(literals.Bool); ok && !bool(b) {
		outcome = decisionaudit.OutcomeDeny
	}
	if evalErr == nil {
		resp.Result = result.String()
	}

	if s.metrics != nil {
		s.metrics.DecisionsTotal.WithLabelValues(string(outcome)).Inc()
	}

	if s.audit != nil {
		logErr := s.audit.Log(ctx, decisionaudit.Entry{
			MeshID:     s.meshID,
			PolicyName: req.Function,
			Outcome:    outcome,
			Stage:      "eval",
			DurationUS: time.Since(start).Microseconds(),
			Timestamp:  time.Now().UTC(),
		})
		if logErr != nil {
			slog.Error("failed to record decision audit entry", "error", logErr)
		}
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
