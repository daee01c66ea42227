package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/terminal"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Answer quick practice questions with instant AI scoring",
	Long: `Generates a few questions and scores each answer right away.
There is no timer and nothing is read aloud.

Examples:
  interview-coach practice
  interview-coach practice --category behavioral --difficulty mid --count 3
  interview-coach practice history`,
	Args: cobra.NoArgs,
	RunE: runPractice,
}

var practiceHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent practice sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		sessions, err := current.client.PracticeHistory(cmd.Context(), practiceLimit)
		if err != nil {
			return fmt.Errorf("failed to load practice history: %w", err)
		}
		terminal.RenderPracticeHistory(current.out, sessions)
		return nil
	},
}

var practiceShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show the answers and scores of a practice session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := current.client.GetPracticeSession(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("failed to load practice session: %w", err)
		}
		terminal.RenderPracticeSession(current.out, s)
		return nil
	},
}

var practiceBankCmd = &cobra.Command{
	Use:   "bank",
	Short: "Browse the built-in question bank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		category, difficulty := "", ""
		if flagChanged(cmd, "category") {
			category = practiceCategory
		}
		if flagChanged(cmd, "difficulty") {
			difficulty = practiceDifficulty
		}
		questions, err := current.client.BankQuestions(cmd.Context(), category, difficulty)
		if err != nil {
			return fmt.Errorf("failed to load questions: %w", err)
		}
		terminal.RenderBankQuestions(current.out, questions)
		return nil
	},
}

var (
	practiceCategory   string
	practiceDifficulty string
	practiceCount      int
	practiceLimit      int
)

func init() {
	rootCmd.AddCommand(practiceCmd)
	practiceCmd.AddCommand(practiceHistoryCmd, practiceShowCmd, practiceBankCmd)

	practiceCmd.PersistentFlags().StringVar(&practiceCategory, "category", "", "Category: technical, behavioral, hr")
	practiceCmd.PersistentFlags().StringVar(&practiceDifficulty, "difficulty", "", "Difficulty: entry, mid, senior")
	practiceCmd.Flags().IntVar(&practiceCount, "count", api.DefaultPracticeCount, "Number of questions (1-10)")
	practiceHistoryCmd.Flags().IntVar(&practiceLimit, "limit", api.DefaultHistoryLimit, "Number of sessions to show (1-50)")
}

func runPractice(cmd *cobra.Command, _ []string) error {
	req := practiceRequest(cmd, current.config.Interview)
	if err := current.client.ValidatePractice(req); err != nil {
		return fmt.Errorf("invalid practice settings: %w", err)
	}

	input := terminal.NewInput(cmd.Context(), cmd.InOrStdin())
	defer input.Close()

	practice := terminal.NewPractice(current.out, current.log, current.client, current.analyzer)
	summary, err := practice.Run(cmd.Context(), req, input)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("practice failed: %w", err)
	}
	if summary.SessionID != "" {
		current.out.Faint("Review it later with: interview-coach practice show " + summary.SessionID)
	}
	return nil
}

// practiceRequest берет категорию и сложность из флагов, иначе из настроек
// интервью. Тип интервью без тренировочной категории дает technical.
func practiceRequest(cmd *cobra.Command, d config.InterviewDefaults) api.PracticeRequest {
	req := api.PracticeRequest{Category: "technical", Difficulty: d.Difficulty, Count: practiceCount}
	switch d.Type {
	case "technical", "behavioral", "hr":
		req.Category = d.Type
	}

	if flagChanged(cmd, "category") {
		req.Category = practiceCategory
	}
	if flagChanged(cmd, "difficulty") {
		req.Difficulty = practiceDifficulty
	}
	if req.Difficulty == "" {
		req.Difficulty = "entry"
	}
	return req
}

// flagChanged учитывает и persistent флаги родительских команд
func flagChanged(cmd *cobra.Command, name string) bool {
	f := cmd.Flag(name)
	return f != nil && f.Changed
}
