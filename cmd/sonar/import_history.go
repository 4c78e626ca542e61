package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var importHistoryCmd = &cobra.Command{
	Use:   "import-history",
	Short: "Fold every transcript not yet in the store into sessions and messages",
	Long: `import-history walks every project directory under the transcript
root once, folding any .jsonl file whose session id is not already present
in the store through the same parse-and-cost path the live collector uses,
then upserting the resulting session (agent_id "imported", status
"completed"). Files already present are left untouched.`,
	RunE: runImportHistory,
}

func init() {
	rootCmd.AddCommand(importHistoryCmd)
}

func runImportHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	n, err := a.ImportHistory()
	if err != nil {
		return fmt.Errorf("import history: %w", err)
	}
	fmt.Printf("imported %d session(s)\n", n)
	return nil
}
