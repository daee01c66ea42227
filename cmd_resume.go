package main

import (
	"github.com/spf13/cobra"

	"interview-coach/internal/terminal"
)

var resumeCmd = &cobra.Command{
	Use:   "resume <interview-id>",
	Short: "Continue an interview that is still in progress",
	Long: `Loads an existing interview and continues from its current question.
The timer keeps counting from when the interview started; a completed
interview opens its results instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		input := terminal.NewInput(cmd.Context(), cmd.InOrStdin())
		defer input.Close()
		return current.runInterview(cmd.Context(), interviewStart{InterviewID: args[0]}, input)
	},
}

func init() {
	rootCmd.AddCommand(resumeCmd)
}
