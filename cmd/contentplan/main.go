package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

var envFiles []string

var rootCmd = &cobra.Command{
	Use:           "contentplan",
	Short:         "Subscription entitlement engine of the content planner",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before reading the environment")
	rootCmd.SetVersionTemplate(fmt.Sprintf("contentplan %s (%s)\n", Version, GitCommit))
	rootCmd.AddCommand(serveCmd, reconcileCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
