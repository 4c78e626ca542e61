package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
)

var (
	registerAgentID string
	registerDir     string
	registerAddr    string
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Attribute a working directory's transcript to an agent id on a running daemon",
	Long: `register calls a running "sonar watch" daemon's control API to map
a working directory to an agent id, the same registration "sonar shell"/
"sonar agent" perform for themselves on startup. Use it when an agent was
spawned outside of "sonar shell"/"sonar agent" and its transcript still
needs to be attributed.`,
	RunE: runRegister,
}

func init() {
	registerCmd.Flags().StringVar(&registerAgentID, "agent", "", "agent id to register (required)")
	registerCmd.Flags().StringVar(&registerDir, "dir", "", "working directory to register (required)")
	registerCmd.Flags().StringVar(&registerAddr, "addr", "", "control address of the running daemon (default: localhost:<server.metrics_port>)")
	registerCmd.MarkFlagRequired("agent")
	registerCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(registerCmd)
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	addr := registerAddr
	if addr == "" {
		addr = defaultControlAddr(cfg)
	}

	req := app.RegisterRequest{AgentID: registerAgentID, WorkingDir: registerDir}
	if err := controlPost(addr, "/control/agents/register", req); err != nil {
		return fmt.Errorf("register: %w", err)
	}
	fmt.Printf("registered %s -> %s\n", registerAgentID, registerDir)
	return nil
}
