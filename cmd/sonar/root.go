package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sonar",
	Short: "Supervise coding-agent terminals and track their spend",
	Long: `sonar spawns and supervises coding-agent child processes over a pty,
correlates their terminal output with the NDJSON transcripts they write,
and keeps a running tally of tokens, cost, and tool calls per agent.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (defaults to ~/.config/open-sonar/config.yaml)")
}

// Execute runs the root command under a context cancelled on SIGINT or
// SIGTERM, printing any error to stderr and exiting non-zero on failure.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		cancel()
		os.Exit(1)
	}
	cancel()
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.LoadOrDefault(path)
}
