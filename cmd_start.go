package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"interview-coach/internal/api"
	"interview-coach/internal/config"
	"interview-coach/internal/terminal"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new timed mock interview",
	Long: `Creates an interview on the server and runs it in the terminal.

Defaults come from the interview YAML config; flags override them.

Examples:
  interview-coach start
  interview-coach start --type behavioral --role "Engineering Manager" --difficulty senior
  interview-coach start --duration 15 --voice=false
  interview-coach start --preview --questions 7`,
	Args: cobra.NoArgs,
	RunE: runStart,
}

var (
	startType       string
	startSubType    string
	startIndustry   string
	startRole       string
	startCompany    string
	startDifficulty string
	startDuration   int
	startVoice      bool
	startVideo      bool
	startPreview    bool
	startQuestions  int
)

func init() {
	rootCmd.AddCommand(startCmd)
	startCmd.Flags().StringVar(&startType, "type", "", "Interview type: technical, behavioral, hr, case-study, aptitude")
	startCmd.Flags().StringVar(&startSubType, "sub-type", "", "Interview sub-type, e.g. system-design")
	startCmd.Flags().StringVar(&startIndustry, "industry", "", "Industry")
	startCmd.Flags().StringVar(&startRole, "role", "", "Target role")
	startCmd.Flags().StringVar(&startCompany, "company", "", "Target company (optional)")
	startCmd.Flags().StringVar(&startDifficulty, "difficulty", "", "Difficulty: entry, mid, senior")
	startCmd.Flags().IntVar(&startDuration, "duration", 0, "Duration in minutes: 15, 30, 45, 60")
	startCmd.Flags().BoolVar(&startVoice, "voice", true, "Read questions aloud and accept dictation")
	startCmd.Flags().BoolVar(&startVideo, "video", false, "Turn on the camera during the interview")
	startCmd.Flags().BoolVar(&startPreview, "preview", false, "Review and regenerate the questions before starting")
	startCmd.Flags().IntVar(&startQuestions, "questions", api.DefaultQuestionSetSize, "Number of questions to generate with --preview")
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg := interviewConfig(cmd, current.config.Interview)
	if err := current.client.ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid interview settings: %w", err)
	}

	input := terminal.NewInput(cmd.Context(), cmd.InOrStdin())
	defer input.Close()

	start := interviewStart{Config: &cfg}
	if startPreview {
		preview := terminal.NewPreview(current.out, current.log, current.client, cfg, startQuestions)
		questions, err := preview.Run(cmd.Context(), input)
		if errors.Is(err, terminal.ErrPreviewCancelled) {
			current.out.Info("Interview not started.")
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to prepare questions: %w", err)
		}
		start.Questions = questions
	}
	return current.runInterview(cmd.Context(), start, input)
}

// interviewConfig накладывает явно заданные флаги на значения из конфигурации
func interviewConfig(cmd *cobra.Command, d config.InterviewDefaults) api.InterviewConfig {
	cfg := api.InterviewConfig{
		Type:            d.Type,
		SubType:         d.SubType,
		Industry:        d.Industry,
		Role:            d.Role,
		Company:         d.Company,
		Difficulty:      d.Difficulty,
		DurationMinutes: d.DurationMinutes,
		VoiceEnabled:    d.VoiceEnabled,
		VideoEnabled:    d.VideoEnabled,
	}

	flags := cmd.Flags()
	if flags.Changed("type") {
		cfg.Type = startType
	}
	if flags.Changed("sub-type") {
		cfg.SubType = startSubType
	}
	if flags.Changed("industry") {
		cfg.Industry = startIndustry
	}
	if flags.Changed("role") {
		cfg.Role = startRole
	}
	if flags.Changed("company") {
		cfg.Company = startCompany
	}
	if flags.Changed("difficulty") {
		cfg.Difficulty = startDifficulty
	}
	if flags.Changed("duration") {
		cfg.DurationMinutes = startDuration
	}
	if flags.Changed("voice") {
		cfg.VoiceEnabled = startVoice
	}
	if flags.Changed("video") {
		cfg.VideoEnabled = startVideo
	}
	return cfg
}
