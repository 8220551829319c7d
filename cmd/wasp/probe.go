package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/wasp/internal/config"
	"github.com/banshee-data/wasp/internal/engine"
)

func newProbeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "probe",
		Short: "List the installed engine stages and check the required ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			gw, err := newGateway(cmd, config.DefaultThreads)
			if err != nil {
				return err
			}
			stages, err := gw.Probe(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, s := range stages {
				_, _ = fmt.Fprintln(out, s)
			}
			if missing := engine.MissingStages(stages); len(missing) > 0 {
				return &engine.MissingCapabilityError{Missing: missing}
			}
			_, _ = fmt.Fprintf(out, "all %d required stages available\n", len(engine.RequiredStages))
			return nil
		},
	}
}
