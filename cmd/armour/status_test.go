// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"strings"
	"testing"
)

func TestFormatUptime(t *testing.T) {
	cases := []struct {
		seconds int64
		want    string
	}{
		{30, "30s"},
		{90, "1m 30s"},
		{3661, "1h 1m"},
	}
	for _, c := range cases {
		if got := formatUptime(c.seconds); got != c.want {
			t.Errorf("formatUptime(%d) = %q, want %q", c.seconds, got, c.want)
		}
	}
}

func TestQueryProcessStatus_NoSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	status := queryProcessStatus("control-plane")
	if status.Running {
		t.Error("expected Running=false when no socket exists")
	}
	if status.Error == "" {
		t.Error("expected an error message when no socket exists")
	}
}

func TestFormatStatusTable_ListsBothComponents(t *testing.T) {
	statuses := map[string]ProcessStatus{
		"control-plane": {Component: "control-plane", Running: true, Health: "healthy", PID: 123, UptimeSeconds: 30},
		"sidecar":       {Component: "sidecar", Error: "socket not found"},
	}
	table := formatStatusTable(statuses)
	if !strings.Contains(table, "control-plane") || !strings.Contains(table, "sidecar") {
		t.Errorf("expected both components in table, got %q", table)
	}
}
