package main

import (
	"time"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the interview API is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		started := time.Now()
		if err := current.client.Health(cmd.Context()); err != nil {
			printErr("✖ %s is unreachable", current.env.API.BaseURL)
			return err
		}
		current.out.Success("✔ " + current.env.API.BaseURL + " is healthy (" + time.Since(started).Round(time.Millisecond).String() + ")")
		current.out.Faint("Logs: " + current.log.FilePath())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
