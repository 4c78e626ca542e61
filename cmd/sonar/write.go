package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var (
	writeAgentID string
	writeData    string
	writeAddr    string
)

var writeCmd = &cobra.Command{
	Use:   "write",
	Short: "Write bytes to a running agent's pty stdin through a daemon",
	Long: `write calls a running "sonar watch" daemon's control API to append
data to the given agent's stdin, the same operation "sonar shell"'s
interactive stdin-copy loop performs for its own agent.`,
	RunE: runWrite,
}

func init() {
	writeCmd.Flags().StringVar(&writeAgentID, "agent", "", "agent id to write to (required)")
	writeCmd.Flags().StringVar(&writeData, "data", "", "bytes to append to the agent's stdin (required)")
	writeCmd.Flags().StringVar(&writeAddr, "addr", "", "control address of the running daemon (default: localhost:<server.metrics_port>)")
	writeCmd.MarkFlagRequired("agent")
	writeCmd.MarkFlagRequired("data")
	rootCmd.AddCommand(writeCmd)
}

func runWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := writeAddr
	if addr == "" {
		addr = defaultControlAddr(cfg)
	}

	req := app.WriteRequest{Data: writeData}
	path := fmt.Sprintf("/control/agents/%s/write", writeAgentID)
	if err := controlPost(addr, path, req); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}
