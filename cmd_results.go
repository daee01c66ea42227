package main

import (
	"github.com/spf13/cobra"
)

var resultsCmd = &cobra.Command{
	Use:   "results <interview-id>",
	Short: "Show scores and AI feedback for an interview",
	Long: `Shows the overall score, delivery metrics and per-question feedback.
When the API is unreachable the copy saved in INTERVIEW_RESULTS_DIR is shown.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return current.showResults(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(resultsCmd)
}
