package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show cost and usage broken down by model",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	stats, err := a.Store.ModelStats()
	if err != nil {
		return fmt.Errorf("list model stats: %w", err)
	}
	if len(stats) == 0 {
		fmt.Println("no model usage recorded yet")
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Println("MODEL                       SESSIONS    TOTAL COST    AVG COST     AVG TOKENS")
	for _, m := range stats {
		fmt.Printf("%-27s %-11d $%-12.4f $%-11.4f %.0f\n", m.Model, m.Count, m.TotalCost, m.AvgCost, m.AvgTokens)
	}
	return nil
}
