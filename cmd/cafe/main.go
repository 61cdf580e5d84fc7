// Package main provides the entry point for the cafe CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crystalix007/cafe/cmd/cafe/commands"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cafe",
		Short: "Group data files into coincidence-preserving bins",
		Long: `cafe reads LAL cache files and writes one cache per bin, such that any
two files whose data could be coincident under one of the configured time
slides share a bin.

Commands:
  run       Pack cache entries into bins`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cafe %s (commit: %s)\n", version, commit)
		},
	}
}
