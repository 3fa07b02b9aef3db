// Package main implements the threadbank CLI for manual operations
// against the threadbankd HTTP server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL of the threadbankd HTTP server.
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "threadbank",
	Short: "CLI for threadbankd HTTP server operations",
	Long: `threadbank is a command-line interface for the threadbankd server.
It provides commands for ingesting documents, querying similarity and
search, scanning text for PII, and inspecting the retry queue.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9180", "threadbankd server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(similarCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(queueCmd)
}
