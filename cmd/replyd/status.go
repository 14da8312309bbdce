package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/overhuman/replyd/internal/config"
)

func newStatusCmd(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check a running server via GET /health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Only the address matters here, so skip validation.
			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			addr := cfg.Addr

			client := &http.Client{Timeout: 3 * time.Second}
			resp, err := client.Get(fmt.Sprintf("http://%s/health", addr))
			if err != nil {
				return fmt.Errorf("server is NOT running at %s: %w", addr, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server at %s returned status %d", addr, resp.StatusCode)
			}
			var health struct {
				Version string `json:"version"`
				Uptime  string `json:"uptime"`
			}
			json.NewDecoder(resp.Body).Decode(&health)
			fmt.Fprintf(cmd.OutOrStdout(), "server is running at %s (version %s, uptime %s)\n", addr, health.Version, health.Uptime)
			return nil
		},
	}
}
