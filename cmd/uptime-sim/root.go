package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootConfigPath string
	rootSchemaPath string
)

var rootCmd = &cobra.Command{
	Use:   "uptime-sim",
	Short: "Uptime incremental ops simulation",
	Long:  "uptime-sim runs a deterministic infrastructure operations game and replays or inspects its sessions.",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "config/game.yaml", "Path to game configuration YAML")
	rootCmd.PersistentFlags().StringVar(&rootSchemaPath, "schema", "schemas/config.cue", "Path to CUE schema file")
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(dashboardCmd)
}
