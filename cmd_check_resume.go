package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"interview-coach/internal/resume"
	"interview-coach/internal/terminal"
)

var checkResumeCmd = &cobra.Command{
	Use:   "check-resume <file>",
	Short: "Get an ATS score and suggestions for your resume",
	Long: `Uploads a resume (PDF, DOC, DOCX or TXT, up to 5MB by default) for
AI analysis. The file is checked locally before anything is sent.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckResume,
}

func init() {
	rootCmd.AddCommand(checkResumeCmd)
}

func runCheckResume(cmd *cobra.Command, args []string) error {
	validator := resume.NewValidator(current.config.Resume.MaxBytes, current.config.Resume.AllowedExtensions)

	file, err := validator.ValidateFile(args[0])
	if err != nil {
		return fmt.Errorf("cannot upload resume: %w", err)
	}

	current.out.Faint(fmt.Sprintf("Analyzing %s (%d KB)...", file.Name, (file.Size+1023)/1024))
	analysis, err := current.client.AnalyzeResume(cmd.Context(), file.Name, file.ContentType, file.Data)
	if err != nil {
		return fmt.Errorf("resume analysis failed: %w", err)
	}

	terminal.RenderResumeAnalysis(current.out, analysis)
	return nil
}
