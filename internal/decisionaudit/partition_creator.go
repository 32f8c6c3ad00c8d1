// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package decisionaudit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
)

// PostgresPartitionCreator creates monthly decision_audit_log partitions.
type PostgresPartitionCreator struct {
	pool *pgxpool.Pool
}

// NewPostgresPartitionCreator creates a partition creator backed by the given pool.
func NewPostgresPartitionCreator(pool *pgxpool.Pool) *PostgresPartitionCreator {
	return &PostgresPartitionCreator{pool: pool}
}

// EnsurePartitions creates monthly partitions for the current month plus the
// specified number of future months. Uses IF NOT EXISTS for idempotency.
// Partition naming: decision_audit_log_YYYY_MM.
func (c *PostgresPartitionCreator) EnsurePartitions(ctx context.Context, months int) error {
	now := time.Now().UTC()
	for i := 0; i < months; i++ {
		t := now.AddDate(0, i, 0)
		name, start, end := partitionRange(t)

		query := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s PARTITION OF decision_audit_log FOR VALUES FROM ('%s') TO ('%s')`,
			name,
			start.Format("2006-01-02"),
			end.Format("2006-01-02"),
		)

		if _, err := c.pool.Exec(ctx, query); err != nil {
			return oops.
				With("partition", name).
				With("range_start", start.Format("2006-01-02")).
				With("range_end", end.Format("2006-01-02")).
				Errorf("creating partition: %w", err)
		}
	}
	return nil
}

// PurgeExpiredAllows deletes allow-outcome rows older than olderThan.
func (c *PostgresPartitionCreator) PurgeExpiredAllows(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := c.pool.Exec(ctx,
		`DELETE FROM decision_audit_log WHERE outcome = $1 AND timestamp < $2`,
		string(OutcomeAllow), olderThan,
	)
	if err != nil {
		return 0, oops.With("older_than", olderThan).Wrap(err)
	}
	return tag.RowsAffected(), nil
}

// DetachExpiredPartitions detaches partitions whose range ends before olderThan.
func (c *PostgresPartitionCreator) DetachExpiredPartitions(ctx context.Context, olderThan time.Time) ([]string, error) {
	rows, err := c.pool.Query(ctx, `
		SELECT child.relname
		FROM pg_inherits
		JOIN pg_class parent ON pg_inherits.inhparent = parent.oid
		JOIN pg_class child ON pg_inherits.inhrelid = child.oid
		WHERE parent.relname = 'decision_audit_log'
		AND child.relname < $1
	`, "decision_audit_log_"+olderThan.Format("2006_01"))
	if err != nil {
		return nil, oops.Wrap(err)
	}
	defer rows.Close()

	var detached []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return detached, oops.Wrap(err)
		}
		if _, err := c.pool.Exec(ctx, fmt.Sprintf("ALTER TABLE decision_audit_log DETACH PARTITION %s", name)); err != nil {
			return detached, oops.With("partition", name).Wrap(err)
		}
		detached = append(detached, name)
	}
	return detached, rows.Err()
}

// DropDetachedPartitions drops every table whose name matches
// decision_audit_log_%_detached and returns the names it dropped.
// gracePeriod is not used: no detach time is recorded, so a matching table
// is dropped whatever its age. DetachExpiredPartitions does not rename the
// partitions it detaches, so their decision_audit_log_YYYY_MM names do not
// match that pattern and are not dropped here.
func (c *PostgresPartitionCreator) DropDetachedPartitions(ctx context.Context, gracePeriod time.Duration) ([]string, error) {
	_ = gracePeriod
	rows, err := c.pool.Query(ctx, `
		SELECT relname FROM pg_class
		WHERE relname LIKE 'decision_audit_log_%_detached'
	`)
	if err != nil {
		return nil, oops.Wrap(err)
	}
	defer rows.Close()

	var dropped []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return dropped, oops.Wrap(err)
		}
		if _, err := c.pool.Exec(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", name)); err != nil {
			return dropped, oops.With("partition", name).Wrap(err)
		}
		dropped = append(dropped, name)
	}
	return dropped, rows.Err()
}

// HealthCheck verifies the pool can reach the database.
func (c *PostgresPartitionCreator) HealthCheck(ctx context.Context) error {
	return c.pool.Ping(ctx)
}

// partitionRange returns the partition name and date boundaries for the month
// containing t. Start is inclusive, end is exclusive (first day of next month).
func partitionRange(t time.Time) (name string, start, end time.Time) {
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	name = fmt.Sprintf("decision_audit_log_%04d_%02d", t.Year(), t.Month())
	return name, start, end
}
