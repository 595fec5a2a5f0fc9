package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/monitor"
	"github.com/tinytelemetry/pulse/internal/socketrpc"
	"github.com/tinytelemetry/pulse/internal/tui"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
	goVersion = "unknown"
)

func main() {
	var configPath string
	var socketPath string
	var showVersion bool

	flag.StringVar(&configPath, "config", "", "config file (default is $HOME/.config/pulse/config.yml)")
	flag.StringVar(&socketPath, "socket", "", "connect to a pulse service on this socket instead of rendering locally")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Pulse TUI - Cardiac Trace Monitor\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadCLIConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	if err := runTUI(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runTUI(cfg cliConfig) error {
	// The terminal belongs to the UI; logs are discarded.
	log.SetOutput(io.Discard)

	home, _ := os.UserHomeDir()
	configDir := filepath.Join(home, ".config", "pulse")
	if err := tui.InitializeSkin(cfg.Skin, configDir); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load skin '%s': %v (using default)\n", cfg.Skin, err)
	}

	mon, closeMon, err := openMonitor(cfg)
	if err != nil {
		return err
	}
	defer closeMon()

	page := tui.NewMonitorPage(tui.MonitorPageConfig{
		Monitor:   mon,
		FrameRate: cfg.FrameRate,
		Mode:      cfg.Mode,
		ExportDir: cfg.ExportDir,
	})
	app := tui.NewApp(page)

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if strings.Contains(err.Error(), "TTY") || strings.Contains(err.Error(), "/dev/tty") {
			return fmt.Errorf("TUI requires a real terminal")
		}
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// openMonitor returns the socket client when a socket path is configured and
// a local renderer otherwise.
func openMonitor(cfg cliConfig) (tui.Monitor, func(), error) {
	if cfg.SocketPath != "" {
		client, err := socketrpc.Dial(cfg.SocketPath)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot connect to pulse service at %s: %w\nIs the pulse service running? Start it with: pulse", cfg.SocketPath, err)
		}
		return client, func() { client.Close() }, nil
	}

	var rng waveform.Rand
	if cfg.Seed != 0 {
		rng = waveform.NewRand(cfg.Seed)
	}
	local := monitor.NewLocal(monitor.Options{
		FrameRate: cfg.FrameRate,
		Width:     cfg.Width,
		Height:    model.DefaultHeight,
		Rand:      rng,
	})
	if err := local.Configure(cfg.Active, cfg.Mode); err != nil {
		return nil, nil, err
	}
	return local, func() {}, nil
}
