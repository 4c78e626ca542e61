package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	killAgentID string
	killAddr    string
)

var killCmd = &cobra.Command{
	Use:   "kill",
	Short: "Terminate a running agent's process through a daemon",
	Long: `kill calls a running "sonar watch" daemon's control API to
terminate the given agent's child process, the same operation exiting
"sonar shell"/"sonar agent" performs for its own agent.`,
	RunE: runKill,
}

func init() {
	killCmd.Flags().StringVar(&killAgentID, "agent", "", "agent id to kill (required)")
	killCmd.Flags().StringVar(&killAddr, "addr", "", "control address of the running daemon (default: localhost:<server.metrics_port>)")
	killCmd.MarkFlagRequired("agent")
	rootCmd.AddCommand(killCmd)
}

func runKill(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := killAddr
	if addr == "" {
		addr = defaultControlAddr(cfg)
	}

	path := fmt.Sprintf("/control/agents/%s/kill", killAgentID)
	if err := controlPost(addr, path, nil); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	return nil
}
