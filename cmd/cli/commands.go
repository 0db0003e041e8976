package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"
)

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Ask the server to log this request at debug level")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(cleanupCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(metricsCmd)
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the health of the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd, http.MethodGet, "/health")
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-fetch every subscribed player now and notify changes",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd, http.MethodPost, "/refresh")
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete players nobody subscribes to",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd, http.MethodPost, "/cleanup")
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Get the lifetime job and command counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd, http.MethodGet, "/stats")
	},
}

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Get application metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		return performRequest(cmd, http.MethodGet, "/metrics")
	},
}

func performRequest(cmd *cobra.Command, method, endpoint string) error {
	url := host + endpoint
	if verbose {
		url += "?verbose=true"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Making %s request to %s\n", method, url)

	req, err := http.NewRequestWithContext(cmd.Context(), method, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Fprintf(out, "Status Code: %d\n", resp.StatusCode)
	fmt.Fprintln(out, "Response Body:")
	fmt.Fprintln(out, string(body))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}
