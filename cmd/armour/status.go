// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/holomush/armour/internal/control"
)

// components are the control-plane processes a single armour deployment
// runs: the control-plane itself and the mesh data-plane sidecar.
var components = []string{"control-plane", "sidecar"}

// ProcessStatus holds the status information for a control-plane process.
type ProcessStatus struct {
	Component     string `json:"component"`
	Running       bool   `json:"running"`
	Health        string `json:"health,omitempty"`
	PID           int    `json:"pid,omitempty"`
	UptimeSeconds int64  `json:"uptime_seconds,omitempty"`
	Error         string `json:"error,omitempty"`
}

type statusConfig struct {
	jsonOutput bool
}

func newStatusCmd() *cobra.Command {
	cfg := &statusConfig{}

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show status of running armour control-plane and sidecar processes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd, cfg)
		},
	}

	cmd.Flags().BoolVar(&cfg.jsonOutput, "json", false, "output status as JSON")
	return cmd
}

func runStatus(cmd *cobra.Command, cfg *statusConfig) error {
	statuses := make(map[string]ProcessStatus, len(components))
	for _, c := range components {
		statuses[c] = queryProcessStatus(c)
	}

	var output string
	var err error
	if cfg.jsonOutput {
		output, err = formatStatusJSON(statuses)
		if err != nil {
			return fmt.Errorf("failed to format JSON: %w", err)
		}
	} else {
		output = formatStatusTable(statuses)
	}

	cmd.Println(output)
	return nil
}

func queryProcessStatus(component string) ProcessStatus {
	status := ProcessStatus{Component: component}

	socketPath := control.SocketPath(component)
	if _, err := os.Stat(socketPath); os.IsNotExist(err) {
		status.Error = "socket not found"
		return status
	}

	client := createUnixHTTPClient(socketPath)

	healthResp, err := client.Get("http://localhost/health")
	if err != nil {
		status.Error = fmt.Sprintf("failed to connect: %v", err)
		return status
	}
	defer func() { _ = healthResp.Body.Close() }()

	var health control.HealthResponse
	if err := json.NewDecoder(healthResp.Body).Decode(&health); err != nil {
		status.Error = fmt.Sprintf("failed to decode health response: %v", err)
		return status
	}

	statusResp, err := client.Get("http://localhost/status")
	if err != nil {
		status.Running = true
		status.Health = health.Status
		return status
	}
	defer func() { _ = statusResp.Body.Close() }()

	var controlStatus control.StatusResponse
	if err := json.NewDecoder(statusResp.Body).Decode(&controlStatus); err != nil {
		status.Running = true
		status.Health = health.Status
		return status
	}

	status.Running = controlStatus.Running
	status.Health = health.Status
	status.PID = controlStatus.PID
	status.UptimeSeconds = controlStatus.UptimeSeconds

	return status
}

func createUnixHTTPClient(socketPath string) *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: func(_ context.Context, _, _ string) (net.Conn, error) {
				return net.Dial("unix", socketPath)
			},
		},
		Timeout: 2 * time.Second,
	}
}

func formatStatusTable(statuses map[string]ProcessStatus) string {
	var buf []byte
	w := tabwriter.NewWriter((*byteWriter)(&buf), 0, 0, 2, ' ', 0)

	_, _ = fmt.Fprintln(w, "PROCESS\tSTATUS\tHEALTH\tPID\tUPTIME")
	_, _ = fmt.Fprintln(w, "-------\t------\t------\t---\t------")

	for _, component := range components {
		status := statuses[component]
		if status.Running {
			uptime := formatUptime(status.UptimeSeconds)
			_, _ = fmt.Fprintf(w, "%s\trunning\t%s\t%d\t%s\n",
				component, status.Health, status.PID, uptime)
		} else {
			reason := "not running"
			if status.Error != "" {
				reason = status.Error
			}
			_, _ = fmt.Fprintf(w, "%s\tstopped\t-\t-\t%s\n", component, reason)
		}
	}

	_ = w.Flush()
	return string(buf)
}

func formatStatusJSON(statuses map[string]ProcessStatus) (string, error) {
	data, err := json.MarshalIndent(statuses, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal status: %w", err)
	}
	return string(data), nil
}

func formatUptime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
	}
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60
	return fmt.Sprintf("%dh %dm", hours, minutes)
}

// byteWriter is a simple writer that appends to a byte slice.
type byteWriter []byte

func (w *byteWriter) Write(p []byte) (int, error) {
	*w = append(*w, p...)
	return len(p), nil
}
