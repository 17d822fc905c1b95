package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/vireolabs/playpulse/internal/config"
	"github.com/vireolabs/playpulse/internal/events"
	"github.com/vireolabs/playpulse/internal/sink"
	"github.com/vireolabs/playpulse/internal/stats"
	"github.com/vireolabs/playpulse/internal/tracker"
	"github.com/vireolabs/playpulse/internal/tui"
)

func main() {
	configFlag := flag.String("config", "", "Path to the config file (default ~/.config/playpulse/config.toml)")
	debugFlag := flag.String("debug", "", "Write a beacon debug log (JSONL) to the specified file path")
	headlessFlag := flag.Bool("headless", false, "Run one scripted playback session, print the summary and exit")
	flag.Parse()

	var loadResult *config.LoadResult
	var err error
	if *configFlag != "" {
		loadResult, err = config.LoadFrom(*configFlag)
	} else {
		loadResult, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "playpulse: config error: %v\n", err)
		os.Exit(1)
	}
	cfg := loadResult.Config

	for _, w := range loadResult.Warnings {
		fmt.Fprintf(os.Stderr, "playpulse: config warning: %s\n", w)
	}

	logger := zerolog.New(io.Discard)
	if *headlessFlag {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	configured, err := sink.New(cfg.Sink, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "playpulse: sink error: %v\n", err)
		os.Exit(1)
	}

	// The in-memory collector always runs: it feeds the dashboard and the
	// summary. When the configured sink already is the collector, reuse it.
	mem, ok := configured.(*sink.Memory)
	sinks := sink.Multi{configured}
	if !ok {
		mem = sink.NewMemory()
		sinks = append(sinks, mem)
	}

	if *debugFlag != "" {
		debugFile, err := os.OpenFile(*debugFlag, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "playpulse: failed to open debug log %q: %v\n", *debugFlag, err)
			os.Exit(1)
		}
		defer debugFile.Close()
		sinks = append(sinks, sink.NewJSONL(debugFile))
	}

	eventBuf := events.NewRingBuffer(cfg.Display.EventBufferSize)
	mem.OnBeacon(func(b sink.Beacon) {
		eventBuf.Add(events.FormatBeacon(b))
	})

	custom := make(map[string]any, len(cfg.Custom))
	for k, v := range cfg.Custom {
		custom[k] = v
	}

	contentBinding := &scriptedBinding{}
	content := tracker.NewVideo(contentBinding, tracker.Options{
		Sink:                   sinks,
		Logger:                 &logger,
		HeartbeatInterval:      time.Duration(cfg.Tracker.HeartbeatIntervalMS) * time.Millisecond,
		InitialBufferThreshold: time.Duration(cfg.Tracker.InitialBufferThresholdMS) * time.Millisecond,
		CustomData:             custom,
	})

	adBinding := &scriptedBinding{}
	ads := tracker.NewVideo(adBinding, tracker.Options{Logger: &logger})
	content.SetAdsTracker(ads)

	shutdown := func() {
		ads.Dispose()
		content.Dispose()
		for _, s := range sinks {
			if c, ok := s.(io.Closer); ok {
				_ = c.Close()
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	step := time.Duration(0)
	if *headlessFlag {
		step = 100 * time.Millisecond
	}
	sim := newSimulation(content, ads, contentBinding, adBinding, step)

	if *headlessFlag {
		sim.run(ctx, true)
		shutdown()
		printSummary(mem)
		return
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	log.SetOutput(io.Discard)

	go sim.run(ctx, false)

	model := tui.NewModel(cfg,
		tui.WithEventProvider(eventBuf),
		tui.WithViewProvider(mem),
		tui.WithOnShutdown(func() {
			cancel()
			shutdown()
		}),
	)

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		select {
		case <-sigCh:
			cancel()
			shutdown()
			p.Quit()
		case <-ctx.Done():
		}
	}()

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "playpulse: %v\n", err)
		os.Exit(1)
	}
}

func printSummary(mem *sink.Memory) {
	s := stats.Summarize(mem.ListViews())

	fmt.Printf("views: %d (ads %d)\n", s.Views, s.AdViews)
	fmt.Printf("watch time: %dms, ad time: %dms\n", s.WatchTimeMS, s.AdTimeMS)
	fmt.Printf("avg startup: %dms\n", s.AvgStartupMS)
	fmt.Printf("rebuffers: %d (%.2f/min)\n", s.RebufferCount, s.RebufferRatio)
	fmt.Printf("beacons: %d across %d names\n", mem.TotalBeacons(), len(mem.BeaconNames()))
	for _, name := range mem.BeaconNames() {
		fmt.Printf("  %s\n", name)
	}
}
