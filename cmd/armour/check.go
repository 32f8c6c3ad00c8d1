// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <policy-file>",
		Short: "Parse and typecheck a policy file without evaluating it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			lp, err := loadPolicy(path)
			if err != nil {
				return err
			}

			cmd.Printf("%s: ok (%d functions)\n", path, len(lp.Funcs))
			for name, fn := range lp.Funcs {
				cmd.Printf("  fn %s -> %s\n", name, fn.Ret)
			}
			return nil
		},
	}
}
