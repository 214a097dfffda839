// © 2025 Platform Engineering Labs Inc.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/platform-engineering-labs/formae-plugin-cde/pkg/module"
)

var version = "dev"

func main() {
	runner := module.NewRunner(os.Stdout, os.Stderr)

	cmd := &cobra.Command{
		Use:           "de_info ARGS_FILE",
		Short:         "Gather information about Cloudera Data Engineering services",
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Info(cmd.Context(), args[0])
		},
	}
	runner.BindFlags(cmd.Flags())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		// module failures are already on stdout
		var failure *module.Failure
		if !errors.As(err, &failure) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		stop()
		os.Exit(1)
	}
}
