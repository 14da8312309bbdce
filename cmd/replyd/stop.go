package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/overhuman/replyd/internal/daemon"
)

func newStopCmd() *cobra.Command {
	var pidFile string
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Send SIGTERM to a server started with --pidfile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pid, err := daemon.NewPIDFile(pidFile).Terminate()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent SIGTERM to replyd (pid=%d)\n", pid)
			return nil
		},
	}
	cmd.Flags().StringVar(&pidFile, "pidfile", "", "PID file the server was started with (required)")
	_ = cmd.MarkFlagRequired("pidfile")
	return cmd
}
