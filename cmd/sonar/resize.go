package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var (
	resizeAgentID string
	resizeRows    int
	resizeCols    int
	resizeAddr    string
)

var resizeCmd = &cobra.Command{
	Use:   "resize",
	Short: "Resize a running agent's pty window through a daemon",
	Long: `resize calls a running "sonar watch" daemon's control API to
change the given agent's pty window size, the same operation "sonar
shell"'s SIGWINCH handler performs for its own agent.`,
	RunE: runResize,
}

func init() {
	resizeCmd.Flags().StringVar(&resizeAgentID, "agent", "", "agent id to resize (required)")
	resizeCmd.Flags().IntVar(&resizeRows, "rows", 0, "new row count (required)")
	resizeCmd.Flags().IntVar(&resizeCols, "cols", 0, "new column count (required)")
	resizeCmd.Flags().StringVar(&resizeAddr, "addr", "", "control address of the running daemon (default: localhost:<server.metrics_port>)")
	resizeCmd.MarkFlagRequired("agent")
	resizeCmd.MarkFlagRequired("rows")
	resizeCmd.MarkFlagRequired("cols")
	rootCmd.AddCommand(resizeCmd)
}

func runResize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := resizeAddr
	if addr == "" {
		addr = defaultControlAddr(cfg)
	}

	req := app.ResizeRequest{Rows: resizeRows, Cols: resizeCols}
	path := fmt.Sprintf("/control/agents/%s/resize", resizeAgentID)
	if err := controlPost(addr, path, req); err != nil {
		return fmt.Errorf("resize: %w", err)
	}
	return nil
}
