package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/sync/errgroup"

	"github.com/tinytelemetry/pulse/internal/backup"
	"github.com/tinytelemetry/pulse/internal/duckdb"
	"github.com/tinytelemetry/pulse/internal/httpserver"
	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/monitor"
	"github.com/tinytelemetry/pulse/internal/socketrpc"
	"github.com/tinytelemetry/pulse/internal/stream"
	"github.com/tinytelemetry/pulse/internal/tcpserver"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

// runServer runs the frame loop headless with its control and output surfaces.
func runServer(cfg appConfig) error {
	cleanupLogger := configureRuntimeLogger()
	defer cleanupLogger()

	svc := monitor.NewService(monitor.Options{
		FrameRate: cfg.FrameRate,
		Width:     cfg.Width,
		Height:    cfg.Height,
		Tuning:    cfg.tuning(),
		Rand:      cfg.rand(),
	}, nil)
	defer svc.Stop()

	// Event store, recorder and retention run only when recording is enabled.
	var store *duckdb.Store
	var recorder *duckdb.Recorder
	if cfg.RecordEnabled {
		var err error
		store, err = duckdb.NewStore(cfg.DBPath, cfg.QueryTimeout)
		if err != nil {
			return fmt.Errorf("failed to initialize DuckDB: %w", err)
		}
		defer store.Close()

		recorder = duckdb.NewRecorder(store, duckdb.RecorderConfig{
			BatchSize:      cfg.InsertBatchSize,
			FlushInterval:  cfg.InsertFlushInterval,
			FlushQueueSize: cfg.InsertFlushQueue,
		})
		defer recorder.Stop()

		retentionCleaner := duckdb.NewRetentionCleaner(store, duckdb.RetentionConfig{
			RetentionDays: cfg.EventRetention,
		})
		if retentionCleaner != nil {
			defer retentionCleaner.Stop()
		}

		backupManager, err := backup.NewManager(store, backup.Config{
			Enabled:  cfg.BackupEnabled,
			Interval: cfg.BackupInterval,
			Dir:      cfg.BackupDir,
			KeepLast: cfg.BackupKeepLast,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize backups: %w", err)
		}
		if backupManager != nil {
			defer backupManager.Stop()
		}
	}

	var hub *stream.Hub
	if cfg.APIEnabled {
		hub = stream.NewHub()
		defer hub.Close()

		deps := httpserver.Deps{Monitor: svc, Hub: hub}
		if store != nil {
			deps.Store = store
		}
		apiServer := httpserver.NewServer(cfg.APIAddr, deps)
		if err := apiServer.Start(); err != nil {
			return fmt.Errorf("failed to start API server: %w", err)
		}
		defer apiServer.Stop()
	}

	var feed *tcpserver.Server
	if cfg.FeedEnabled {
		feed = tcpserver.NewServer(cfg.FeedAddr, tcpserver.ServerConfig{
			ClientBufferSize: cfg.SinkBufferSize,
		})
		if err := feed.Start(); err != nil {
			return fmt.Errorf("failed to start sample feed: %w", err)
		}
		defer feed.Stop()
	}

	sockServer := socketrpc.NewServer(cfg.SocketPath, svc)
	if err := sockServer.Start(); err != nil {
		log.Printf("Warning: failed to start socket server: %v", err)
	} else {
		defer sockServer.Stop()
	}

	// Set up context and signal handling before errgroup
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println("\nShutting down gracefully... (press Ctrl+C again to force)")
		cancel()

		deadline := time.NewTimer(10 * time.Second)
		defer deadline.Stop()

		select {
		case <-sigCh:
			fmt.Println("\nForce shutdown.")
		case <-deadline.C:
			fmt.Println("Shutdown timed out, forcing exit.")
		}
		cleanupSocket(cfg.SocketPath)
		os.Exit(1)
	}()

	var eventRecorder EventRecorder
	if recorder != nil {
		eventRecorder = recorder
	}
	plugins := buildSinkPlugins(SinkPluginConfig{
		Hub:               hub,
		Feed:              feed,
		StreamBatch:       cfg.StreamBatch,
		NATSEnabled:       cfg.NATSEnabled,
		NATSURL:           cfg.NATSURL,
		NATSWaveSubject:   cfg.NATSSubject,
		NATSParamsSubject: cfg.NATSParamsSubject,
		Recorder:          eventRecorder,
	})

	sinks := make([]Sink, 0, len(plugins))
	for _, plugin := range plugins {
		if !plugin.Enabled() {
			continue
		}
		sink, err := plugin.Build(ctx)
		if err != nil {
			log.Printf("Error initializing sink plugin %q: %v", plugin.Name(), err)
			continue
		}
		sinks = append(sinks, sink)
	}

	mux := NewSinkMultiplexer(ctx, sinks, cfg.SinkBufferSize)
	mux.Start()
	wireSinks(svc, mux)

	if err := svc.Configure(cfg.Active, cfg.Mode); err != nil {
		return fmt.Errorf("configure monitor: %w", err)
	}
	svc.Start()

	printStartupBanner(cfg, mux.Names())

	g, gctx := errgroup.WithContext(ctx)

	// Wait for context cancellation (from signal handler) in the errgroup
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Printf("server: errgroup exited with error: %v", err)
	}

	cancel()
	svc.Stop()
	mux.Stop()
	if n := mux.Dropped(); n > 0 {
		log.Printf("server: sinks dropped %d items on full queues", n)
	}

	// If we reach here, graceful shutdown succeeded within the deadline.
	signal.Stop(sigCh)

	return nil
}

// sampleSource is the part of the monitor service the sinks observe.
type sampleSource interface {
	Subscribe(fn waveform.Observer)
	OnConfigure(fn monitor.ConfigureHook)
	OnBeat(fn monitor.BeatHook)
}

// wireSinks forwards samples, mode changes and beats to the multiplexer.
// The callbacks run on the frame loop and must not block.
func wireSinks(src sampleSource, mux *SinkMultiplexer) {
	src.Subscribe(func(s waveform.Sample) {
		mux.PublishSample(s.Value)
	})
	src.OnConfigure(func(st waveform.State) {
		mux.PublishEvent(configureEvent(st, time.Now()))
	})
	src.OnBeat(func(b model.Beat, st waveform.State) {
		mux.PublishEvent(beatEvent(b, st))
	})
}

func cleanupSocket(path string) {
	if path != "" {
		os.Remove(path)
	}
}

func configureRuntimeLogger() func() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	home, err := os.UserHomeDir()
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logDir := filepath.Join(home, ".local", "state", "pulse")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	logPath := filepath.Join(logDir, "pulse.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.SetOutput(os.Stderr)
		return func() {}
	}

	log.SetOutput(f)
	return func() {
		_ = f.Close()
	}
}

func printStartupBanner(cfg appConfig, sinks []string) {
	dim := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	cyan := lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	bold := lipgloss.NewStyle().Bold(true)

	check := green.Render("●")
	dot := dim.Render("●")

	logo := green.Bold(true).Render(`
    ╔═╗╦ ╦╦  ╔═╗╔═╗
    ╠═╝║ ║║  ╚═╗║╣ 
    ╩  ╚═╝╩═╝╚═╝╚═╝`)

	ver := dim.Render("v" + version)

	var lines []string
	lines = append(lines, "")
	lines = append(lines, logo)
	lines = append(lines, "    "+ver)
	lines = append(lines, "")

	separator := dim.Render("    ─────────────────────────────────")
	lines = append(lines, separator)
	lines = append(lines, "")

	// Gateway
	lines = append(lines, bold.Render("    Gateway"))
	lines = append(lines, "")

	if cfg.APIEnabled {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", check, cyan.Render(cfg.APIAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  HTTP API       %s", dot, dim.Render("disabled")))
	}
	if cfg.FeedEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Sample Feed    %s", check, cyan.Render(cfg.FeedAddr)))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sample Feed    %s", dot, dim.Render("disabled")))
	}
	lines = append(lines, fmt.Sprintf("    %s  Unix Socket    %s", check, cyan.Render(shortenPath(cfg.SocketPath))))
	lines = append(lines, "")

	// Signal
	lines = append(lines, bold.Render("    Signal"))
	lines = append(lines, "")

	state := "stopped"
	if cfg.Active {
		state = cfg.Mode
	}
	lines = append(lines, fmt.Sprintf("    %s  Mode           %s", check, cyan.Render(state)))
	lines = append(lines, fmt.Sprintf("    %s  Frame Rate     %s", check, dim.Render(fmt.Sprintf("%d fps", cfg.FrameRate))))
	lines = append(lines, fmt.Sprintf("    %s  Surface        %s", check, dim.Render(fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))))
	lines = append(lines, "")

	// Outputs
	lines = append(lines, bold.Render("    Outputs"))
	lines = append(lines, "")

	if len(sinks) > 0 {
		lines = append(lines, fmt.Sprintf("    %s  Sinks          %s", check, dim.Render(strings.Join(sinks, ", "))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Sinks          %s", dot, dim.Render("none")))
	}
	if cfg.RecordEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Storage        %s", check, dim.Render(shortenPath(cfg.DBPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Storage        %s", dot, dim.Render("disabled")))
	}
	if cfg.BackupEnabled {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", check, dim.Render(shortenPath(cfg.BackupDir))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Snapshots      %s", dot, dim.Render("disabled")))
	}

	lines = append(lines, "")
	lines = append(lines, bold.Render("    Config"))
	lines = append(lines, "")
	if cfg.ConfigPath != "" {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", check, dim.Render(shortenPath(cfg.ConfigPath))))
	} else {
		lines = append(lines, fmt.Sprintf("    %s  Config File    %s", dot, dim.Render("default (no file)")))
	}

	lines = append(lines, "")
	lines = append(lines, separator)
	lines = append(lines, "")
	lines = append(lines, "    "+dim.Render("Press ")+yellow.Render("Ctrl+C")+dim.Render(" to stop"))
	lines = append(lines, "")

	fmt.Println(strings.Join(lines, "\n"))
}

func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
