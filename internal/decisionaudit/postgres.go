// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package decisionaudit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// PostgresWriter implements Writer for PostgreSQL via pgx.
type PostgresWriter struct {
	pool        *pgxpool.Pool
	asyncChan   chan Entry
	stopChan    chan struct{}
	wg          sync.WaitGroup
	batchSize   int
	flushPeriod time.Duration
}

// NewPostgresWriter creates a PostgresWriter with the given connection pool.
func NewPostgresWriter(pool *pgxpool.Pool) *PostgresWriter {
	writer := &PostgresWriter{
		pool:        pool,
		asyncChan:   make(chan Entry, 1000),
		stopChan:    make(chan struct{}),
		batchSize:   100,
		flushPeriod: 1 * time.Second,
	}

	writer.wg.Add(1)
	go writer.batchConsumer()

	return writer
}

// WriteSync performs a synchronous write to the database.
func (w *PostgresWriter) WriteSync(ctx context.Context, entry Entry) error {
	attributesJSON, err := json.Marshal(entry.Attributes)
	if err != nil {
		return oops.Wrap(err)
	}

	_, err = w.pool.Exec(ctx, `
		INSERT INTO decision_audit_log (
			mesh_id, service, policy_name, outcome, stage, reason,
			attributes, duration_us, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		entry.MeshID,
		entry.Service,
		entry.PolicyName,
		string(entry.Outcome),
		entry.Stage,
		entry.Reason,
		attributesJSON,
		entry.DurationUS,
		entry.Timestamp,
	)
	if err != nil {
		return oops.With("mesh_id", entry.MeshID).
			With("service", entry.Service).
			With("outcome", entry.Outcome).
			Wrap(err)
	}

	return nil
}

// WriteAsync queues an entry for asynchronous batch writing.
func (w *PostgresWriter) WriteAsync(entry Entry) error {
	select {
	case w.asyncChan <- entry:
		return nil
	default:
		channelFullCounter.Inc()
		return fmt.Errorf("async channel full")
	}
}

// batchConsumer processes async writes in batches.
func (w *PostgresWriter) batchConsumer() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.flushPeriod)
	defer ticker.Stop()

	var batch []Entry

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := w.writeBatch(ctx, batch); err != nil {
			slog.Error("failed to write decision audit batch", "error", err, "count", len(batch))
			failuresCounter.WithLabelValues("batch_write_failed").Inc()
		}

		batch = batch[:0]
	}

	for {
		select {
		case entry := <-w.asyncChan:
			batch = append(batch, entry)
			if len(batch) >= w.batchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-w.stopChan:
			for {
				select {
				case entry := <-w.asyncChan:
					batch = append(batch, entry)
				default:
					flush()
					return
				}
			}
		}
	}
}

// writeBatch writes multiple entries in a single transaction.
func (w *PostgresWriter) writeBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return oops.Wrap(err)
	}
	defer func() {
		//nolint:errcheck // rollback error is expected once the transaction has committed
		_ = tx.Rollback(ctx)
	}()

	batch := make([][]any, 0, len(entries))
	for i := range entries {
		entry := &entries[i]
		attributesJSON, err := json.Marshal(entry.Attributes)
		if err != nil {
			slog.Error("failed to marshal attributes", "error", err, "entry", entry)
			continue
		}
		batch = append(batch, []any{
			entry.MeshID, entry.Service, entry.PolicyName, string(entry.Outcome),
			entry.Stage, entry.Reason, attributesJSON, entry.DurationUS, entry.Timestamp,
		})
	}

	for _, row := range batch {
		_, err = tx.Exec(ctx, `
			INSERT INTO decision_audit_log (
				mesh_id, service, policy_name, outcome, stage, reason,
				attributes, duration_us, timestamp
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, row...)
		if err != nil {
			slog.Error("failed to insert decision audit entry", "error", err, "row", row)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Wrap(err)
	}

	return nil
}

// Close gracefully shuts down the writer.
func (w *PostgresWriter) Close() error {
	close(w.stopChan)
	w.wg.Wait()
	return nil
}
