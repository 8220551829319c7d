package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/wasp/internal/engine"
)

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wasp",
		Short: "Weighted average synthesis of surface reflectance products",
		Long: `wasp drives the external processing engine through one
preprocessing and compositing pass per input product, then packages the
running composite as a finished product.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("launcher", engine.DefaultLauncher,
		"Engine launcher executable (bare name is resolved through PATH)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newProbeCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
