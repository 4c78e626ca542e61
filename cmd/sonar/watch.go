package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/use-sonar/open-sonar/internal/app"
	"github.com/use-sonar/open-sonar/internal/events"
)

const dailyCostPollInterval = 30 * time.Second

var watchAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Passively tail transcripts and serve live updates over metrics/websocket",
	Long: `watch starts the transcript collector against the configured
transcript root without spawning anything itself, and serves Prometheus
metrics, a websocket feed of session-update, agent-detected, and
loop-alert events, and the agent-control routes "sonar kill"/"sonar
write"/"sonar resize"/"sonar register" call into. Use it to observe agents
spawned directly, not through "sonar shell"/"sonar agent", once their
working directories have been registered via "sonar register" or a prior
"sonar shell"/"sonar agent" invocation. The write, resize and kill routes
act on the daemon's own pty supervisor, which holds only agents spawned
inside the watch process; watch spawns none itself, so those routes
answer unknown-agent for agents started by another process.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchAddr, "addr", "", "listen address for /metrics and /ws (default: :<server.metrics_port> from config)")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer a.Close()

	ctx := cmd.Context()
	if err := a.Collector.Start(ctx); err != nil {
		return fmt.Errorf("start transcript collector: %w", err)
	}

	go pollDailyCost(ctx, a)

	addr := watchAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Server.MetricsPort)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", a.Metrics.Handler())
	eventsServer := events.NewServer(a.Broadcaster, nil)
	eventsServer.SetupRoutes(mux)
	a.RegisterControlRoutes(mux)

	log.Printf("watch: serving metrics and websocket on %s", addr)

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// pollDailyCost refreshes sonar_daily_cost_usd from the store every
// dailyCostPollInterval until ctx is cancelled. The gauge is a snapshot
// of total_cost_today, not an event-driven counter, since no single core
// event marks a day boundary.
func pollDailyCost(ctx context.Context, a *app.App) {
	ticker := time.NewTicker(dailyCostPollInterval)
	defer ticker.Stop()

	refresh := func() {
		total, err := a.Store.TotalCostToday()
		if err != nil {
			log.Printf("watch: refresh daily cost: %v", err)
			return
		}
		a.Metrics.DailyCostUSD.Set(total)
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
