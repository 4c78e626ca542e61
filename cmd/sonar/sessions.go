package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List the most recent sessions",
	RunE:  runSessions,
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "maximum number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	sessions, err := a.Store.RecentSessions(sessionsLimit)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}
	if len(sessions) == 0 {
		fmt.Println("no sessions recorded yet")
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Println("ID                                    MODEL            TOKENS      COST      STATUS")
	for _, s := range sessions {
		statusColor := color.New(color.FgGreen)
		switch s.Status {
		case "running":
			statusColor = color.New(color.FgYellow)
		case "failed":
			statusColor = color.New(color.FgRed)
		}
		fmt.Printf("%-37s %-16s %-11d $%-8.4f ", truncateID(s.ID), s.Model, s.TotalTokens, s.TotalCost)
		statusColor.Println(s.Status)
	}
	return nil
}

func truncateID(id string) string {
	if len(id) <= 36 {
		return id
	}
	return id[:36]
}
