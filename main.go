package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	apiURL     string
	noColor    bool
)

// current - окружение, собранное перед запуском подкоманды
var current *app

var rootCmd = &cobra.Command{
	Use:           "interview-coach",
	Short:         "Timed mock interviews with AI feedback in your terminal",
	SilenceUsage:  true,
	SilenceErrors: false,
	Long: `interview-coach runs mock interviews against the interview API.

Start or resume a timed session, type or dictate your answers, watch live
delivery metrics and get an AI evaluation for every answer.

Examples:
  interview-coach start --type behavioral --role "Product Manager" --duration 15
  interview-coach resume 5f1c...
  interview-coach list
  interview-coach results 5f1c...
  interview-coach check-resume ./cv.pdf`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env необязателен
		_ = godotenv.Load()

		if noColor {
			color.NoColor = true
		}

		a, err := newApp(cmd.Context(), configPath, apiURL)
		if err != nil {
			return err
		}
		current = a
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			current.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to the interview YAML config (default $INTERVIEW_CONFIG or config/interview.yaml)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Interview API base URL (default $INTERVIEW_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		if current != nil {
			current.Close()
		}
		// cobra уже напечатал ошибку
		os.Exit(1)
	}
}

func main() {
	Execute()
}

func printErr(format string, args ...interface{}) {
	fmt.Fprintln(os.Stderr, color.RedString(format, args...))
}
