// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package decisionaudit provides audit logging for policy evaluation
// decisions made by the mesh sidecar and control plane.
//
// # Overview
//
// decisionaudit implements configurable audit logging for Armour policy
// decisions (allow/deny/error) with sync/async writes and WAL
// (Write-Ahead Log) fallback for resilience. It supports three logging
// modes and provides PostgreSQL storage with monthly partitioning.
//
// # Audit Modes
//
//   - ModeMinimal: logs denials and errors only (sync)
//   - ModeDenialsOnly: logs denials and errors only (sync) — kept distinct
//     from ModeMinimal so a future minimal mode can narrow further
//     without an API break
//   - ModeAll: logs everything — denials and errors sync, allows async
//
// # Architecture
//
// The Logger routes entries based on outcome and mode:
//
//	deny, error     → sync write → WAL fallback on failure
//	allow (in ModeAll only) → async write via buffered channel
//
// PostgresWriter implements batched async writes with periodic flushing.
//
// # Resilience
//
// When sync writes fail, entries are written to a WAL file at
// $XDG_STATE_HOME/armour/decision-audit-wal.jsonl. ReplayWAL recovers
// entries after an outage.
//
// # Metrics
//
//   - armour_decision_audit_channel_full_total: channel overflow counter
//   - armour_decision_audit_failures_total{reason}: failure counter by reason
//   - armour_decision_audit_wal_entries: current WAL entry count
package decisionaudit
