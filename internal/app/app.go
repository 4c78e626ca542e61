// Package app wires together the core components (pricing, transcript
// collector, PTY supervisor, loop detector, persistence, events, metrics)
// exactly once per process, so every CLI subcommand shares one
// construction path instead of repeating it.
package app

import (
	"fmt"

	"github.com/use-sonar/open-sonar/internal/config"
	"github.com/use-sonar/open-sonar/internal/events"
	"github.com/use-sonar/open-sonar/internal/loopdetect"
	"github.com/use-sonar/open-sonar/internal/metrics"
	"github.com/use-sonar/open-sonar/internal/ptysup"
	"github.com/use-sonar/open-sonar/internal/store"
	"github.com/use-sonar/open-sonar/internal/transcript"
)

// App bundles every long-lived component for one process run.
type App struct {
	Config      *config.Config
	Store       *store.Store
	Registry    *transcript.Registry
	Collector   *transcript.Collector
	Supervisor  *ptysup.Supervisor
	Detector    *loopdetect.Detector
	Broadcaster *events.Broadcaster
	Metrics     *metrics.Metrics

	Sink events.Sink
}

// New constructs every component using cfg's overrides, falling back to
// each component's own zero-config defaults where cfg leaves a field
// empty or zero. extraSinks are fanned events alongside the broadcaster
// and metrics sink -- e.g. a CLI command's own terminal-printing sink for
// the one agent it just attached to.
func New(cfg *config.Config, extraSinks ...events.Sink) (*App, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		p, err := store.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("app: resolve database path: %w", err)
		}
		dbPath = p
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}

	root := cfg.Transcript.RootOverride
	if root == "" {
		r, err := transcript.LocateRoot()
		if err != nil {
			st.Close()
			return nil, fmt.Errorf("app: locate transcript root: %w", err)
		}
		root = r
	}

	registry := transcript.NewRegistry()
	m := metrics.New()
	broadcaster := events.NewBroadcaster(0)

	// detector publishes through an indirect sink because its own
	// fan-out (below) needs to include a burn-rate tracker constructed
	// from the detector itself -- assigned once before any component
	// starts running, so there is no concurrent access to the forward
	// reference.
	privacy := cfg.Privacy.Filter()

	limits := cfg.LoopDetector.Limits()
	defaults := loopdetect.DefaultLimits()
	if limits.WindowSize <= 0 {
		limits.WindowSize = defaults.WindowSize
	}
	if limits.RepeatThreshold <= 0 {
		limits.RepeatThreshold = defaults.RepeatThreshold
	}
	if limits.MinChunkLength <= 0 {
		limits.MinChunkLength = defaults.MinChunkLength
	}

	var sink events.Sink
	detector := loopdetect.NewWithLimits(events.SinkFunc(func(t events.Topic, p any) {
		sink.Emit(t, p)
	}), privacy, limits)

	tracker := newBurnTracker(detector)
	sink = events.Multi(append([]events.Sink{broadcaster, m.Sink(), tracker}, extraSinks...)...)

	collector := transcript.NewCollector(root, registry, sink, privacy)
	supervisor := ptysup.New(sink, privacy)

	return &App{
		Config:      cfg,
		Store:       st,
		Registry:    registry,
		Collector:   collector,
		Supervisor:  supervisor,
		Detector:    detector,
		Broadcaster: broadcaster,
		Metrics:     m,
		Sink:        sink,
	}, nil
}

// Close releases every resource the App owns.
func (a *App) Close() error {
	return a.Store.Close()
}
