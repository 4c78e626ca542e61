package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var costsDays int

var costsCmd = &cobra.Command{
	Use:   "costs",
	Short: "Show daily cost totals over a recent window",
	RunE:  runCosts,
}

func init() {
	costsCmd.Flags().IntVar(&costsDays, "days", 7, "number of trailing days to show")
	rootCmd.AddCommand(costsCmd)
}

func runCosts(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	daily, err := a.Store.DailyCosts(costsDays)
	if err != nil {
		return fmt.Errorf("list daily costs: %w", err)
	}
	if len(daily) == 0 {
		fmt.Println("no cost history in that window")
		return nil
	}

	header := color.New(color.FgCyan, color.Bold)
	header.Println("DATE         SESSIONS    TOKENS        COST")
	var total float64
	for _, d := range daily {
		fmt.Printf("%-12s %-11d %-13d $%.4f\n", d.Date, d.Count, d.TotalTokens, d.TotalCost)
		total += d.TotalCost
	}
	fmt.Printf("\ntotal: $%.4f over %d day(s)\n", total, len(daily))
	return nil
}
