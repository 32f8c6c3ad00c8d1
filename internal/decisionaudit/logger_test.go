// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package decisionaudit

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockWriter records all writes for verification.
type mockWriter struct {
	mu          sync.Mutex
	syncWrites  []Entry
	asyncWrites []Entry
	failSync    bool
	failAsync   bool
	closed      bool
}

func (m *mockWriter) WriteSync(_ context.Context, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSync {
		return assert.AnError
	}
	m.syncWrites = append(m.syncWrites, entry)
	return nil
}

func (m *mockWriter) WriteAsync(entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAsync {
		return assert.AnError
	}
	m.asyncWrites = append(m.asyncWrites, entry)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriter) getSyncWrites() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry{}, m.syncWrites...)
}

func (m *mockWriter) getAsyncWrites() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Entry{}, m.asyncWrites...)
}

func (m *mockWriter) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func sampleEntry(outcome Outcome) Entry {
	return Entry{
		MeshID:     "mesh-01",
		Service:    "Egress::billing",
		PolicyName: "allow-internal",
		Outcome:    outcome,
		Stage:      "eval",
		Attributes: map[string]any{"namespace": "payments"},
		DurationUS: 100,
		Timestamp:  time.Now(),
	}
}

func TestLogger_MinimalMode_AllowNotLogged(t *testing.T) {
	writer := &mockWriter{}
	logger := NewLogger(ModeMinimal, writer, "")
	defer func() { _ = logger.Close() }()

	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeAllow)))

	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, writer.getSyncWrites())
	assert.Empty(t, writer.getAsyncWrites())
}

func TestLogger_MinimalMode_DenyLoggedSync(t *testing.T) {
	writer := &mockWriter{}
	logger := NewLogger(ModeMinimal, writer, "")
	defer func() { _ = logger.Close() }()

	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeDeny)))

	writes := writer.getSyncWrites()
	require.Len(t, writes, 1)
	assert.Equal(t, OutcomeDeny, writes[0].Outcome)
}

func TestLogger_MinimalMode_ErrorLoggedSync(t *testing.T) {
	writer := &mockWriter{}
	logger := NewLogger(ModeMinimal, writer, "")
	defer func() { _ = logger.Close() }()

	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeError)))
	require.Len(t, writer.getSyncWrites(), 1)
}

func TestLogger_AllMode_AllowLoggedAsync(t *testing.T) {
	writer := &mockWriter{}
	logger := NewLogger(ModeAll, writer, "")
	defer func() { _ = logger.Close() }()

	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeAllow)))

	require.Eventually(t, func() bool {
		return len(writer.getAsyncWrites()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, writer.getSyncWrites())
}

func TestLogger_DenySyncFailure_FallsBackToWAL(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "wal.jsonl")

	writer := &mockWriter{failSync: true}
	logger := NewLogger(ModeMinimal, writer, walPath)
	defer func() { _ = logger.Close() }()

	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeDeny)))

	data, err := os.ReadFile(walPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"mesh_id":"mesh-01"`)
}

func TestLogger_ReplayWAL(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "wal.jsonl")

	failing := &mockWriter{failSync: true}
	logger := NewLogger(ModeMinimal, failing, walPath)
	require.NoError(t, logger.Log(context.Background(), sampleEntry(OutcomeDeny)))
	require.NoError(t, logger.Close())

	recovering := &mockWriter{}
	replayLogger := NewLogger(ModeMinimal, recovering, walPath)
	defer func() { _ = replayLogger.Close() }()

	require.NoError(t, replayLogger.ReplayWAL(context.Background()))
	require.Len(t, recovering.getSyncWrites(), 1)

	data, err := os.ReadFile(walPath)
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLogger_Close_ClosesWriter(t *testing.T) {
	writer := &mockWriter{}
	logger := NewLogger(ModeAll, writer, "")

	require.NoError(t, logger.Close())
	assert.True(t, writer.isClosed())
}

