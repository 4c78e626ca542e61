package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show total cost across all sessions started today",
	RunE:  runToday,
}

func init() {
	rootCmd.AddCommand(todayCmd)
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	total, err := a.Store.TotalCostToday()
	if err != nil {
		return fmt.Errorf("total cost today: %w", err)
	}

	bold := color.New(color.FgGreen, color.Bold)
	bold.Printf("$%.4f\n", total)
	return nil
}
