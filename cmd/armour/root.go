// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"github.com/spf13/cobra"
)

// version is stamped at release build time; "dev" otherwise.
const version = "dev"

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the armour CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "armour",
		Short: "Armour - policy-as-code for service meshes",
		Long: `Armour compiles and evaluates mesh access policies written in a
small typed DSL: lexing, parsing, type-directed lowering, partial
evaluation, and a reduction-based evaluator, plus the mesh sidecar
runtime that serves decisions at the data plane.`,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(newCheckCmd())
	cmd.AddCommand(newEvalCmd())
	cmd.AddCommand(newSpecializeCmd())
	cmd.AddCommand(newEntrypointCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}
