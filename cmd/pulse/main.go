package main

import (
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/pulse/internal/socketrpc"
	"github.com/tinytelemetry/pulse/internal/stream"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

// Build variables - set by ldflags during build.
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
	flag.StringVar(&socketPath, "socket", "", "override control socket path")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.Parse()

	if showVersion {
		fmt.Printf("Pulse - Cardiac Trace Monitor\n")
		fmt.Printf("  Version:    %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Built:      %s\n", buildTime)
		fmt.Printf("  Go version: %s\n", goVersion)
		return
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if socketPath != "" {
		cfg.SocketPath = socketPath
	}

	if err := runServer(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	dataDir := filepath.Join(home, ".local", "share", "pulse")
	defaultDBPath := filepath.Join(dataDir, "pulse.duckdb")

	v := viper.New()
	v.SetEnvPrefix("PULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("frame-rate", defaultFrameRate)
	v.SetDefault("width", defaultWidth)
	v.SetDefault("height", defaultHeight)
	v.SetDefault("mode", defaultMode)
	v.SetDefault("active", true)
	v.SetDefault("seed", 0)
	setTuningDefaults(v.SetDefault)
	v.SetDefault("host", defaultBindHost)
	v.SetDefault("api-enabled", true)
	v.SetDefault("api-port", defaultAPIPort)
	v.SetDefault("feed-enabled", false)
	v.SetDefault("feed-port", defaultFeedPort)
	v.SetDefault("socket-path", socketrpc.DefaultSocketPath())
	v.SetDefault("stream-batch", defaultStreamBatch)
	v.SetDefault("sink-buffer-size", defaultSinkBufferSize)
	v.SetDefault("nats-enabled", false)
	v.SetDefault("nats-url", defaultNATSURL)
	v.SetDefault("nats-subject", stream.DefaultWaveSubject)
	v.SetDefault("nats-params-subject", stream.DefaultParamsSubject)
	v.SetDefault("record-enabled", true)
	v.SetDefault("db-path", defaultDBPath)
	v.SetDefault("query-timeout", defaultQueryTimeout)
	v.SetDefault("insert-batch-size", defaultInsertBatchSize)
	v.SetDefault("insert-flush-interval", defaultInsertFlushInterval)
	v.SetDefault("insert-flush-queue-size", defaultInsertFlushQueue)
	v.SetDefault("event-retention", defaultEventRetention)
	v.SetDefault("backup-enabled", false)
	v.SetDefault("backup-interval", defaultBackupInterval)
	v.SetDefault("backup-dir", filepath.Join(dataDir, "backups"))
	v.SetDefault("backup-keep-last", defaultBackupKeepLast)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(filepath.Join(home, ".config", "pulse", "config.yml"))
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFound) && !os.IsNotExist(err) {
			return cfg, err
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if cfg.FrameRate <= 0 || cfg.FrameRate > maxFrameRate {
		return cfg, fmt.Errorf("invalid frame-rate: %d (want 1-%d)", cfg.FrameRate, maxFrameRate)
	}
	if cfg.Width < 2 || cfg.Height < 2 {
		return cfg, fmt.Errorf("invalid surface size: %dx%d", cfg.Width, cfg.Height)
	}
	if !validMode(cfg.Mode) {
		return cfg, fmt.Errorf("invalid mode: %q", cfg.Mode)
	}
	if cfg.APIPort <= 0 || cfg.APIPort > 65535 {
		return cfg, fmt.Errorf("invalid api-port: %d", cfg.APIPort)
	}
	if cfg.FeedPort <= 0 || cfg.FeedPort > 65535 {
		return cfg, fmt.Errorf("invalid feed-port: %d", cfg.FeedPort)
	}
	if cfg.StutterDelayMin > cfg.StutterDelayMax {
		return cfg, fmt.Errorf("invalid stutter delay range: %d > %d", cfg.StutterDelayMin, cfg.StutterDelayMax)
	}
	if cfg.StutterProbability < 0 || cfg.StutterProbability > 1 {
		return cfg, fmt.Errorf("invalid stutter-probability: %v", cfg.StutterProbability)
	}
	if cfg.EventRetention < 0 {
		return cfg, fmt.Errorf("invalid event-retention: %d", cfg.EventRetention)
	}

	if cfg.BackupEnabled {
		if !cfg.RecordEnabled {
			return cfg, fmt.Errorf("backup-enabled requires record-enabled")
		}
		if cfg.BackupInterval <= 0 {
			return cfg, fmt.Errorf("invalid backup-interval: %s", cfg.BackupInterval)
		}
		if cfg.BackupKeepLast < 0 {
			return cfg, fmt.Errorf("invalid backup-keep-last: %d", cfg.BackupKeepLast)
		}
	}

	// Expand ~ in paths
	cfg.DBPath = expandHome(home, cfg.DBPath)
	cfg.BackupDir = expandHome(home, cfg.BackupDir)

	if cfg.APIAddr == "" {
		cfg.APIAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.APIPort))
	}
	if cfg.FeedAddr == "" {
		cfg.FeedAddr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.FeedPort))
	}

	return cfg, nil
}

func expandHome(home, path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// validMode reports whether name is a known mode. ParseMode maps unknown
// names to inactive, so inactive must be asked for by name.
func validMode(name string) bool {
	if waveform.ParseMode(name) != waveform.ModeInactive {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(name), "inactive")
}
