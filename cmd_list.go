package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"interview-coach/internal/api"
	"interview-coach/internal/terminal"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"dashboard"},
	Short:   "List your interviews with scores",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

var listArchived bool

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listArchived, "archived", false, "List interviews saved locally instead of asking the API")
}

func runList(cmd *cobra.Command, _ []string) error {
	if listArchived {
		return listLocal()
	}
	if err := current.showDashboard(cmd.Context()); err != nil {
		if api.IsUnauthorized(err) {
			return fmt.Errorf("not authorized, set INTERVIEW_API_TOKEN or INTERVIEW_API_TOKEN_FILE: %w", err)
		}
		return fmt.Errorf("failed to load interviews: %w", err)
	}
	return nil
}

func listLocal() error {
	ids, err := current.store.ListResults()
	if err != nil {
		return err
	}

	interviews := make([]api.Interview, 0, len(ids))
	for _, id := range ids {
		result, err := current.store.LoadResult(id)
		if err != nil {
			current.log.Warn(module, "Skipping unreadable result", map[string]interface{}{"interview_id": id, "error": err})
			continue
		}
		interviews = append(interviews, result.Interview)
	}
	current.out.Faint(fmt.Sprintf("Saved in %s", current.store.Dir()))
	terminal.RenderInterviewList(current.out, interviews)
	return nil
}
