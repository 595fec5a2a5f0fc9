package main

import (
	"time"

	"github.com/tinytelemetry/pulse/internal/model"
	"github.com/tinytelemetry/pulse/internal/waveform"
)

const (
	defaultFrameRate           = model.DefaultFrameRate
	defaultWidth               = model.DefaultWidth
	defaultHeight              = model.DefaultHeight
	defaultMode                = model.DefaultMode
	defaultBindHost            = "127.0.0.1"
	defaultAPIPort             = 3000
	defaultFeedPort            = 4000
	defaultStreamBatch         = 16
	defaultSinkBufferSize      = DefaultSinkBuffer
	defaultNATSURL             = "nats://127.0.0.1:4222"
	defaultQueryTimeout        = 30 * time.Second
	defaultInsertBatchSize     = 256
	defaultInsertFlushInterval = 500 * time.Millisecond
	defaultInsertFlushQueue    = 64
	defaultEventRetention      = 30 // days, 0 = disabled
	defaultBackupInterval      = 6 * time.Hour
	defaultBackupKeepLast      = 24
	maxFrameRate               = 240
)

// appConfig is internal runtime configuration.
// It is package-private to keep defaults and shape local to the CLI entrypoint.
type appConfig struct {
	FrameRate int    `mapstructure:"frame-rate"`
	Width     int    `mapstructure:"width"`
	Height    int    `mapstructure:"height"`
	Mode      string `mapstructure:"mode"`
	Active    bool   `mapstructure:"active"`
	Seed      uint64 `mapstructure:"seed"` // 0 = seeded from the clock

	ArrhythmiaDelayMax int     `mapstructure:"arrhythmia-delay-max"`
	StutterDelayMin    int     `mapstructure:"stutter-delay-min"`
	StutterDelayMax    int     `mapstructure:"stutter-delay-max"`
	StutterProbability float64 `mapstructure:"stutter-probability"`
	NoiseAmplitude     float64 `mapstructure:"noise-amplitude"`

	Host           string `mapstructure:"host"`
	APIEnabled     bool   `mapstructure:"api-enabled"`
	APIPort        int    `mapstructure:"api-port"`
	APIAddr        string `mapstructure:"api-addr"`
	SocketPath     string `mapstructure:"socket-path"`
	StreamBatch    int    `mapstructure:"stream-batch"`
	SinkBufferSize int    `mapstructure:"sink-buffer-size"`

	FeedEnabled bool   `mapstructure:"feed-enabled"`
	FeedPort    int    `mapstructure:"feed-port"`
	FeedAddr    string `mapstructure:"feed-addr"`

	NATSEnabled       bool   `mapstructure:"nats-enabled"`
	NATSURL           string `mapstructure:"nats-url"`
	NATSSubject       string `mapstructure:"nats-subject"`
	NATSParamsSubject string `mapstructure:"nats-params-subject"`

	RecordEnabled       bool          `mapstructure:"record-enabled"`
	DBPath              string        `mapstructure:"db-path"`
	QueryTimeout        time.Duration `mapstructure:"query-timeout"`
	InsertBatchSize     int           `mapstructure:"insert-batch-size"`
	InsertFlushInterval time.Duration `mapstructure:"insert-flush-interval"`
	InsertFlushQueue    int           `mapstructure:"insert-flush-queue-size"`
	EventRetention      int           `mapstructure:"event-retention"`

	BackupEnabled  bool          `mapstructure:"backup-enabled"`
	BackupInterval time.Duration `mapstructure:"backup-interval"`
	BackupDir      string        `mapstructure:"backup-dir"`
	BackupKeepLast int           `mapstructure:"backup-keep-last"`

	ConfigPath string `mapstructure:"-"` // not from config file
}

// tuning returns the anomaly constants selected by the config.
func (c appConfig) tuning() *waveform.Tuning {
	return &waveform.Tuning{
		ArrhythmiaDelayMax: c.ArrhythmiaDelayMax,
		StutterDelayMin:    c.StutterDelayMin,
		StutterDelayMax:    c.StutterDelayMax,
		StutterProbability: c.StutterProbability,
		NoiseAmplitude:     c.NoiseAmplitude,
	}
}

// rand returns a seeded source, or nil to let the renderer seed from the clock.
func (c appConfig) rand() waveform.Rand {
	if c.Seed == 0 {
		return nil
	}
	return waveform.NewRand(c.Seed)
}

func setTuningDefaults(set func(key string, value any)) {
	t := waveform.DefaultTuning()
	set("arrhythmia-delay-max", t.ArrhythmiaDelayMax)
	set("stutter-delay-min", t.StutterDelayMin)
	set("stutter-delay-max", t.StutterDelayMax)
	set("stutter-probability", t.StutterProbability)
	set("noise-amplitude", t.NoiseAmplitude)
}
