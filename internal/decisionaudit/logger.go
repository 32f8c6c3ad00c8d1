// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package decisionaudit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/holomush/armour/internal/xdg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/oops"
)

// Outcome is the result of a single policy evaluation.
type Outcome string

// Policy decision outcomes.
const (
	OutcomeAllow Outcome = "allow"
	OutcomeDeny  Outcome = "deny"
	OutcomeError Outcome = "error" // evaluator/specializer failure, not a policy deny
)

// Mode controls which decisions are logged.
type Mode string

// Audit logging modes.
const (
	ModeMinimal     Mode = "minimal"      // denials + errors
	ModeDenialsOnly Mode = "denials_only" // denials + errors
	ModeAll         Mode = "all"          // everything
)

// Entry represents a single policy decision to be logged.
type Entry struct {
	MeshID     string         `json:"mesh_id"`
	Service    string         `json:"service"` // ingress/egress service name the decision gated
	PolicyName string         `json:"policy_name"`
	Outcome    Outcome        `json:"outcome"`
	Stage      string         `json:"stage"` // parse/typecheck/specialize/eval, whichever stage produced the outcome
	Reason     string         `json:"reason,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
	DurationUS int64          `json:"duration_us"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Writer is the interface for writing audit entries to a backend.
type Writer interface {
	WriteSync(ctx context.Context, entry Entry) error
	WriteAsync(entry Entry) error
	Close() error
}

var (
	channelFullCounter = promauto.NewCounter(prometheus.CounterOpts{
		Name: "armour_decision_audit_channel_full_total",
		Help: "Total number of times the async decision audit channel was full",
	})

	failuresCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "armour_decision_audit_failures_total",
		Help: "Total number of decision audit logging failures",
	}, []string{"reason"})

	walEntriesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "armour_decision_audit_wal_entries",
		Help: "Current number of entries in the decision audit WAL",
	})
)

// Logger routes audit entries based on mode and outcome.
type Logger struct {
	mode      Mode
	writer    Writer
	walPath   string
	walFile   *os.File
	walMu     sync.Mutex
	asyncChan chan Entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLogger creates a Logger with the given mode, writer, and WAL path.
// If walPath is empty, a default path in the XDG state directory is used.
func NewLogger(mode Mode, writer Writer, walPath string) *Logger {
	if walPath == "" {
		stateDir := xdg.StateDir()
		if err := xdg.EnsureDir(stateDir); err != nil {
			slog.Error("failed to ensure state directory", "error", err)
		}
		walPath = filepath.Join(stateDir, "decision-audit-wal.jsonl")
	}

	logger := &Logger{
		mode:      mode,
		writer:    writer,
		walPath:   walPath,
		asyncChan: make(chan Entry, 1000),
		stopChan:  make(chan struct{}),
	}

	logger.wg.Add(1)
	go logger.asyncConsumer()

	return logger
}

// Log routes an audit entry based on the configured mode and outcome.
func (l *Logger) Log(ctx context.Context, entry Entry) error {
	shouldLog, useSync := l.shouldLog(entry.Outcome)
	if !shouldLog {
		return nil
	}

	if useSync {
		if err := l.writer.WriteSync(ctx, entry); err != nil {
			if walErr := l.writeToWAL(entry); walErr != nil {
				slog.Error("decision audit write failed: both backend and WAL failed",
					"backend_error", err,
					"wal_error", walErr,
					"mesh_id", entry.MeshID,
					"service", entry.Service,
					"outcome", entry.Outcome,
				)
				failuresCounter.WithLabelValues("wal_failed").Inc()
			}
		}
		return nil
	}

	select {
	case l.asyncChan <- entry:
		return nil
	default:
		channelFullCounter.Inc()
		return nil
	}
}

// shouldLog determines if an entry should be logged based on mode and outcome.
func (l *Logger) shouldLog(outcome Outcome) (shouldLog, useSync bool) {
	switch l.mode {
	case ModeMinimal, ModeDenialsOnly:
		switch outcome {
		case OutcomeDeny, OutcomeError:
			return true, true
		default:
			return false, false
		}

	case ModeAll:
		switch outcome {
		case OutcomeDeny, OutcomeError:
			return true, true
		case OutcomeAllow:
			return true, false
		default:
			return false, false
		}

	default:
		return false, false
	}
}

// asyncConsumer processes async writes from the channel.
func (l *Logger) asyncConsumer() {
	defer l.wg.Done()

	for {
		select {
		case entry := <-l.asyncChan:
			if err := l.writer.WriteAsync(entry); err != nil {
				slog.Error("async decision audit write failed",
					"error", err, "mesh_id", entry.MeshID, "service", entry.Service)
				failuresCounter.WithLabelValues("async_write_failed").Inc()
			}
		case <-l.stopChan:
			l.drainAsync()
			return
		}
	}
}

// drainAsync processes all remaining entries in the channel.
func (l *Logger) drainAsync() {
	for {
		select {
		case entry := <-l.asyncChan:
			if err := l.writer.WriteAsync(entry); err != nil {
				slog.Error("async decision audit write failed during drain",
					"error", err, "mesh_id", entry.MeshID)
				failuresCounter.WithLabelValues("async_write_failed").Inc()
			}
		default:
			return
		}
	}
}

// writeToWAL writes an entry to the write-ahead log.
func (l *Logger) writeToWAL(entry Entry) error {
	l.walMu.Lock()
	defer l.walMu.Unlock()

	if l.walFile == nil {
		file, err := os.OpenFile(l.walPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY|os.O_SYNC, 0o600)
		if err != nil {
			return oops.With("path", l.walPath).Wrap(err)
		}
		l.walFile = file
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return oops.Wrap(err)
	}

	if _, err := fmt.Fprintf(l.walFile, "%s\n", data); err != nil {
		return oops.Wrap(err)
	}

	walEntriesGauge.Inc()
	return nil
}

// ReplayWAL reads all entries from the WAL and writes them to the writer.
// On success, truncates the WAL file.
func (l *Logger) ReplayWAL(ctx context.Context) error {
	l.walMu.Lock()
	defer l.walMu.Unlock()

	if _, err := os.Stat(l.walPath); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(l.walPath)
	if err != nil {
		return oops.With("path", l.walPath).Wrap(err)
	}

	if len(data) == 0 {
		return nil
	}

	lines := 0
	for _, line := range splitLines(string(data)) {
		if line == "" {
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			slog.Error("failed to unmarshal WAL entry", "error", err, "line", line)
			failuresCounter.WithLabelValues("wal_unmarshal_failed").Inc()
			continue
		}

		if err := l.writer.WriteSync(ctx, entry); err != nil {
			slog.Error("failed to replay WAL entry", "error", err, "entry", entry)
			failuresCounter.WithLabelValues("wal_replay_failed").Inc()
		}
		lines++
	}

	if err := os.Truncate(l.walPath, 0); err != nil {
		return oops.With("path", l.walPath).Wrap(err)
	}

	walEntriesGauge.Set(0)
	slog.Info("replayed decision audit WAL entries", "count", lines)
	return nil
}

// Close gracefully shuts down the logger.
func (l *Logger) Close() error {
	close(l.stopChan)
	l.wg.Wait()

	if err := l.writer.Close(); err != nil {
		return oops.Wrap(err)
	}

	l.walMu.Lock()
	defer l.walMu.Unlock()
	if l.walFile != nil {
		if err := l.walFile.Close(); err != nil {
			return oops.Wrap(err)
		}
		l.walFile = nil
	}

	return nil
}

// splitLines splits a string by newlines.
func splitLines(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}
