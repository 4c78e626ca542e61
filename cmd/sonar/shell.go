package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/use-sonar/open-sonar/internal/app"
)

var (
	shellAgentID string
	shellDir     string
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Attach an interactive shell to a supervised pty",
	Long: `shell spawns the user's $SHELL inside a pseudo-terminal, registers
its working directory so any transcript the shell's own children write is
attributed back to this session, and copies the local terminal's stdin and
window size into the child until it exits.`,
	RunE: runShell,
}

func init() {
	shellCmd.Flags().StringVar(&shellAgentID, "id", "", "agent id to register this session under (default: a generated id)")
	shellCmd.Flags().StringVar(&shellDir, "dir", "", "working directory for the shell (default: current directory)")
	rootCmd.AddCommand(shellCmd)
}

func runShell(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := shellDir
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	agentID := shellAgentID
	if agentID == "" {
		agentID = uuid.NewString()
	}

	io := newTerminalIO(agentID)
	a, err := app.New(cfg, io)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	a.Registry.Register(agentID, dir)
	defer a.Registry.Unregister(dir)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := a.Collector.Start(ctx); err != nil {
		return fmt.Errorf("start transcript collector: %w", err)
	}

	fd := int(os.Stdin.Fd())
	rows, cols := 40, 120
	if cfg.PTY.DefaultRows > 0 && cfg.PTY.DefaultCols > 0 {
		rows, cols = cfg.PTY.DefaultRows, cfg.PTY.DefaultCols
	}
	if w, h, err := term.GetSize(fd); err == nil {
		rows, cols = h, w
	}

	if err := a.Supervisor.SpawnShell(agentID, dir, rows, cols); err != nil {
		return fmt.Errorf("spawn shell: %w", err)
	}

	stopResize := attachResize(a.Supervisor, agentID, fd, io.done)
	defer stopResize()

	runErr := withRawTerminal(fd, func() {
		go attachStdin(a.Supervisor, agentID, io.done)
		io.wait()
	})
	if runErr != nil {
		return runErr
	}

	return nil
}
