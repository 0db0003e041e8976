package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	host    string
	timeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:          "rankwatch-cli",
	Short:        "Operate a running rankwatch server",
	Long:         `Checks health, triggers the refresh and cleanup jobs by hand and reads counters and metrics.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&host, "host", "http://localhost:8080", "Base URL of the rankwatch server")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "How long to wait for the server to answer")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "rankwatch-cli: %s\n", err)
		os.Exit(1)
	}
}
