package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cuemby/shipyard/pkg/log"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	os.Exit(exitCode)
}

// exitCode is set by a command's RunE before returning nil, since Cobra
// itself only distinguishes "errored" from "didn't", not the play's own
// per-container failure count.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "shipyard",
	Short: "Dependency-aware container orchestration across a fleet of Docker hosts",
	Long: `shipyard brings an environment of inter-dependent containerized
services up and down across a fleet of Docker hosts, resolving
dependency order, honoring per-action concurrency limits, and
confirming each transition with lifecycle probes before declaring it
done.`,
}

func init() {
	rootCmd.PersistentFlags().StringP("file", "f", "environment.yaml", `environment document to load ("-" reads stdin)`)
	rootCmd.PersistentFlags().String("credentials", "", "registry credentials file")
	rootCmd.PersistentFlags().String("credentials-passphrase", "", "passphrase for an encrypted registry credentials file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "emit structured logs as JSON instead of console format")
	rootCmd.PersistentFlags().StringP("container-filter", "C", "", "glob restricting targets to matching container names")
	rootCmd.PersistentFlags().StringP("ship-filter", "S", "", "glob restricting targets to containers on matching ship names")
	rootCmd.PersistentFlags().Bool("dry-run", false, "resolve targets and print the planned order without acting")
	rootCmd.PersistentFlags().String("audit-exec", "", "shell command to receive audit events as JSON on stdin")
	rootCmd.PersistentFlags().String("audit-webhook", "", "URL to receive audit events as a JSON POST")

	cobra.OnInitialize(initLogging)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	log.Init(log.Config{Level: log.Level(level), JSONOutput: jsonOutput})
}
