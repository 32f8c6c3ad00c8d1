// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Armour Contributors

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/holomush/armour/internal/policy/corelang"
	"github.com/holomush/armour/internal/policy/literals"
	"github.com/holomush/armour/internal/policy/specialize"
)

func newSpecializeCmd() *cobra.Command {
	var function string

	cmd := &cobra.Command{
		Use:   "specialize <policy-file>",
		Short: "Partially evaluate a function body, folding any constant sub-terms",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			lp, err := loadPolicy(path)
			if err != nil {
				return err
			}

			fn, ok := lp.Funcs[function]
			if !ok {
				return fmt.Errorf("no such function %q in %s", function, path)
			}

			isConst, body, err := specialize.PEval(context.Background(), specialize.Funcs(lp.Funcs), fn.Body)
			if err != nil {
				return fmt.Errorf("specialization error: %w", err)
			}

			cmd.Printf("const=%t\n%s\n", isConst, printExpr(body))
			return nil
		},
	}

	cmd.Flags().StringVar(&function, "function", "", "function name to specialize (required)")
	cmd.MarkFlagRequired("function")

	return cmd
}

// newEntrypointCmd wires specialize.Specialize (spec.md §4.H) to the CLI: it
// binds one of a data-plane entry point's two ID parameters to a concrete
// identity and prints the residual function.
func newEntrypointCmd() *cobra.Command {
	var entryPoint, bindFlag string
	var hosts []string
	var labels []string

	cmd := &cobra.Command{
		Use:   "specialize-entrypoint <policy-file>",
		Short: "Specialize a data-plane entry point for a known identity (spec.md §4.H)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]

			var bind specialize.Bind
			switch bindFlag {
			case "from":
				bind = specialize.BindFrom
			case "to":
				bind = specialize.BindTo
			default:
				return fmt.Errorf("--bind must be %q or %q, got %q", "from", "to", bindFlag)
			}
			if len(hosts) == 0 && len(labels) == 0 {
				return fmt.Errorf("--host or --label is required to build the known identity")
			}

			id := literals.DefaultID()
			for _, h := range hosts {
				id = id.AddHost(h)
			}
			for _, l := range labels {
				id = id.AddLabel(literals.NewLabel(l))
			}

			lp, err := loadPolicy(path)
			if err != nil {
				return err
			}

			newFuncs, newHdrs, err := specialize.Specialize(context.Background(), specialize.Funcs(lp.Funcs), lp.Headers, entryPoint, bind, id)
			if err != nil {
				return fmt.Errorf("specialization error: %w", err)
			}

			newFn := newFuncs[entryPoint]
			cmd.Printf("%s: %s\n", entryPoint, printExpr(newFn.Body))
			if sigs, ok := newHdrs.Signatures(entryPoint); ok {
				cmd.Printf("signature: %v\n", sigs)
			}
			cmd.Printf("reachable: %d declaration(s)\n", len(newFuncs))
			return nil
		},
	}

	cmd.Flags().StringVar(&entryPoint, "entry-point", "", "entry point to specialize: allow_rest_request, allow_rest_response, allow_tcp_connection, or on_tcp_disconnect (required)")
	cmd.Flags().StringVar(&bindFlag, "bind", "", `which identity is known: "from" (egress) or "to" (ingress) (required)`)
	cmd.Flags().StringSliceVar(&hosts, "host", nil, "hostname to add to the known identity (repeatable)")
	cmd.Flags().StringSliceVar(&labels, "label", nil, "`::`-delimited label to add to the known identity (repeatable)")
	cmd.MarkFlagRequired("entry-point")
	cmd.MarkFlagRequired("bind")

	return cmd
}

// printExpr renders a core term as an s-expression. This is diagnostic
// output for the CLI only; the evaluator never needs a textual form.
func printExpr(e corelang.Expr) string {
	switch n := e.(type) {
	case corelang.Var:
		return n.Name
	case corelang.BVar:
		return fmt.Sprintf("#%d", n.Index)
	case corelang.Lit:
		return n.Value.String()
	case corelang.Return:
		return fmt.Sprintf("(return %s)", printExpr(n.Expr))
	case corelang.Prefix:
		return fmt.Sprintf("(%s %s)", n.Op, printExpr(n.Expr))
	case corelang.Infix:
		return fmt.Sprintf("(%s %s %s)", n.Op, printExpr(n.Left), printExpr(n.Right))
	case corelang.Block:
		parts := make([]string, len(n.Elems))
		for i, el := range n.Elems {
			parts[i] = printExpr(el)
		}
		return fmt.Sprintf("(block %s)", strings.Join(parts, " "))
	case corelang.Let:
		return fmt.Sprintf("(let (%s) %s %s)", strings.Join(n.Names, " "), printExpr(n.E1), printExpr(n.E2))
	case corelang.Iter:
		return fmt.Sprintf("(%s (%s) %s %s)", n.Op, strings.Join(n.Names, " "), printExpr(n.E1), printExpr(n.Body))
	case corelang.Closure:
		return fmt.Sprintf("(fn %s %s)", n.Param, printExpr(n.Body))
	case corelang.If:
		if n.Alt == nil {
			return fmt.Sprintf("(if %s %s)", printExpr(n.Cond), printExpr(n.Then))
		}
		return fmt.Sprintf("(if %s %s %s)", printExpr(n.Cond), printExpr(n.Then), printExpr(n.Alt))
	case corelang.IfMatch:
		return fmt.Sprintf("(if-match %s %s)", strings.Join(n.Names, " "), printExpr(n.Then))
	case corelang.IfSomeMatch:
		return fmt.Sprintf("(if-some-match %s %s)", printExpr(n.Expr), printExpr(n.Then))
	case corelang.Call:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = printExpr(a)
		}
		return fmt.Sprintf("(call %s %s)", n.Function, strings.Join(parts, " "))
	default:
		return fmt.Sprintf("<%T>", e)
	}
}
