package model

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultFrameRate = 60
	DefaultWidth     = 600
	DefaultHeight    = 150
	DefaultMode      = "normal"
	DefaultSkin      = "default"
)
