package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/process"
	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
	"github.com/use-sonar/open-sonar/internal/store"
)

var (
	agentID    string
	agentDir   string
	agentStats bool
)

var agentCmd = &cobra.Command{
	Use:   "agent <task>",
	Short: "Run a coding agent non-interactively and report its cost",
	Long: `agent spawns the "claude" executable inside a pseudo-terminal with
--dangerously-skip-permissions -p <task>, streams its output to stdout,
and once it exits prints the session's total tokens and cost as folded
from its transcript, then persists the session summary to the store.`,
	Args: cobra.ExactArgs(1),
	RunE: runAgent,
}

func init() {
	agentCmd.Flags().StringVar(&agentID, "id", "", "agent id to register this run under (default: a generated id)")
	agentCmd.Flags().StringVar(&agentDir, "dir", "", "working directory for the agent (default: current directory)")
	agentCmd.Flags().BoolVar(&agentStats, "stats", false, "print periodic child process CPU/RSS to stderr")
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	task := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	dir := agentDir
	if dir == "" {
		dir, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("resolve working directory: %w", err)
		}
	}

	id := agentID
	if id == "" {
		id = uuid.NewString()
	}

	io := newTerminalIO(id)
	a, err := app.New(cfg, io)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	a.Registry.Register(id, dir)
	defer a.Registry.Unregister(dir)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := a.Collector.Start(ctx); err != nil {
		return fmt.Errorf("start transcript collector: %w", err)
	}

	startedAt := time.Now()
	if err := a.Supervisor.SpawnAgent(id, task, dir); err != nil {
		return fmt.Errorf("spawn agent: %w", err)
	}

	if agentStats {
		go reportStats(id, io.done)
	}

	exitCode := io.wait()
	endedAt := time.Now()

	fmt.Fprintln(os.Stderr, strings.Repeat("-", 40))
	tf, ok := a.Collector.SnapshotByAgent(id)
	if ok {
		fmt.Fprintf(os.Stderr, "tokens: %d  cost: $%.4f  tool calls: %d\n", tf.CumulativeTokens, tf.CumulativeCost, len(tf.ToolCalls))

		status := "completed"
		if exitCode == nil || *exitCode != 0 {
			status = "failed"
		}
		ended := endedAt.Format(time.RFC3339)
		rec := store.SessionRecord{
			ID:                  id,
			AgentID:             id,
			Project:             dir,
			Model:               tf.LastModel,
			TotalCost:           tf.CumulativeCost,
			TotalTokens:         tf.CumulativeTokens,
			InputTokens:         tf.CumulativeUsage.InputTokens,
			OutputTokens:        tf.CumulativeUsage.OutputTokens,
			CacheReadTokens:     tf.CumulativeUsage.CacheReadTokens,
			CacheCreationTokens: tf.CumulativeUsage.CacheCreationTokens,
			DurationMs:          endedAt.Sub(startedAt).Milliseconds(),
			Status:              status,
			ToolCalls:           len(tf.ToolCalls),
			StartedAt:           startedAt.Format(time.RFC3339),
			EndedAt:             &ended,
		}
		if err := a.Store.UpsertSession(rec); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to persist session: %v\n", err)
		}
	}

	if exitCode != nil {
		os.Exit(*exitCode)
	}
	return nil
}

// reportStats polls every "claude"-named process's resource usage via
// gopsutil every two seconds until done closes. It matches by executable
// name rather than pid because ptysup does not expose the child's pid.
func reportStats(agentID string, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			procs, err := process.Processes()
			if err != nil {
				continue
			}
			for _, p := range procs {
				name, err := p.Name()
				if err != nil || name != "claude" {
					continue
				}
				cpu, _ := p.CPUPercent()
				mem, _ := p.MemoryInfo()
				var rss uint64
				if mem != nil {
					rss = mem.RSS
				}
				fmt.Fprintf(os.Stderr, "[%s] cpu=%.1f%% rss=%dKB\n", agentID, cpu, rss/1024)
			}
		}
	}
}
