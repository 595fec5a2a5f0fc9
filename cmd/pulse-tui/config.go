package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

const (
	defaultFrameRate = model.DefaultFrameRate
	defaultWidth     = model.DefaultWidth
	defaultMode      = model.DefaultMode
	defaultSkin      = model.DefaultSkin
	maxFrameRate     = 240
)

// cliConfig holds only TUI-relevant configuration.
type cliConfig struct {
	FrameRate  int    `mapstructure:"frame-rate"`
	Width      int    `mapstructure:"width"`
	Mode       string `mapstructure:"mode"`
	Active     bool   `mapstructure:"active"`
	Seed       uint64 `mapstructure:"seed"`
	Skin       string `mapstructure:"skin"`
	SocketPath string `mapstructure:"socket-path"` // empty = local renderer
	ExportDir  string `mapstructure:"export-dir"`
}

func loadCLIConfig(configPath string) (cliConfig, error) {
	var cfg cliConfig

	home, err := os.UserHomeDir()
	if err != nil {
		return cfg, fmt.Errorf("finding home directory: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("PULSE")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("frame-rate", defaultFrameRate)
	v.SetDefault("width", defaultWidth)
	v.SetDefault("mode", defaultMode)
	v.SetDefault("active", true)
	v.SetDefault("seed", 0)
	v.SetDefault("skin", defaultSkin)
	v.SetDefault("socket-path", "")
	v.SetDefault("export-dir", filepath.Join(home, "Pictures", "pulse"))

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

	if cfg.FrameRate <= 0 || cfg.FrameRate > maxFrameRate {
		return cfg, fmt.Errorf("invalid frame-rate: %d (want 1-%d)", cfg.FrameRate, maxFrameRate)
	}
	if cfg.Width < 2 {
		return cfg, fmt.Errorf("invalid width: %d", cfg.Width)
	}
	if waveform.ParseMode(cfg.Mode) == waveform.ModeInactive && !strings.EqualFold(strings.TrimSpace(cfg.Mode), "inactive") {
		return cfg, fmt.Errorf("invalid mode: %q", cfg.Mode)
	}
	if strings.HasPrefix(cfg.ExportDir, "~/") {
		cfg.ExportDir = filepath.Join(home, cfg.ExportDir[2:])
	}

	return cfg, nil
}
