package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Skin overrides palette colors. Empty fields keep the built-in color.
type Skin struct {
	Name   string `yaml:"name"`
	Normal string `yaml:"normal"`
	Alert  string `yaml:"alert"`
	Idle   string `yaml:"idle"`
	Border string `yaml:"border"`
	Focus  string `yaml:"focus"`
	Status string `yaml:"status"`
}

// LoadSkin reads a YAML skin file.
func LoadSkin(path string) (Skin, error) {
	var s Skin
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read skin: %w", err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse skin %s: %w", path, err)
	}
	return s, nil
}

// InitializeSkin loads configDir/skins/<name>.yml and applies it. The
// "default" skin is built in. On error the built-in palette stays active.
func InitializeSkin(name, configDir string) error {
	if name == "" || name == "default" {
		return nil
	}
	s, err := LoadSkin(filepath.Join(configDir, "skins", name+".yml"))
	if err != nil {
		return err
	}
	ApplySkin(s)
	return nil
}

// ApplySkin installs the skin's colors and rebuilds the styles.
func ApplySkin(s Skin) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&ColorNormal, s.Normal)
	set(&ColorAlert, s.Alert)
	set(&ColorIdle, s.Idle)
	set(&ColorBorder, s.Border)
	set(&ColorFocus, s.Focus)
	set(&ColorNavy, s.Status)
	rebuildStyles()
}
