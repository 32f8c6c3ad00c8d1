// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

// Package main is the entry point for the armour CLI: the policy-as-code
// toolchain (check/eval/specialize) and the mesh sidecar/control-plane
// server (serve).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
