//////////////////////////////////////////////////////////////////////////////
//
// Config contains configuration data for Pipeline
//
//////////////////////////////////////////////////////////////////////////////

package alohadecode

import (
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"

	"github.com/lanikai/alohadecode/internal/decoder"
	"github.com/lanikai/alohadecode/internal/logging"
	"github.com/lanikai/alohadecode/internal/media"
)

type Config struct {
	// Path to the ffmpeg binary used by both decode paths.
	FFmpegPath string `yaml:"ffmpeg"`

	// Working resolution. Every decoder scales its output to this size.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Output pixel format of software decoders: "nv12" or "rgb24".
	PixelFormat string `yaml:"pixel_format"`

	// Start a software decoder for each stream as soon as its first frame
	// is assembled.
	Software bool `yaml:"software"`

	// Access units buffered in front of each decoder process.
	QueueDepth int `yaml:"queue_depth"`

	ReadTimeout  time.Duration `yaml:"read_timeout"`
	StallTimeout time.Duration `yaml:"stall_timeout"`
	StopTimeout  time.Duration `yaml:"stop_timeout"`

	Hardware HardwareConfig `yaml:"hardware"`

	// Default channel capacity for subscriptions.
	SubscriberCapacity int `yaml:"subscriber_capacity"`

	// Log level directives, as for the LOGLEVEL environment variable.
	LogLevel string `yaml:"log_level"`
}

type HardwareConfig struct {
	Enabled bool `yaml:"enabled"`

	// Registered driver name; empty selects the platform default.
	Driver string `yaml:"driver"`

	// Device node, e.g. a DRM render node for VA-API.
	Device string `yaml:"device"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		FFmpegPath:         "ffmpeg",
		Width:              decoder.DefaultWidth,
		Height:             decoder.DefaultHeight,
		PixelFormat:        media.FormatNV12.String(),
		Software:           true,
		QueueDepth:         decoder.DefaultQueueDepth,
		ReadTimeout:        decoder.DefaultReadTimeout,
		StallTimeout:       decoder.DefaultStallTimeout,
		StopTimeout:        decoder.DefaultStopTimeout,
		Hardware:           HardwareConfig{Enabled: true},
		SubscriberCapacity: 4,
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config")
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 || c.Width%2 != 0 || c.Height%2 != 0 {
		return errors.Wrapf(errInvalidConfig, "working resolution %dx%d must be positive and even", c.Width, c.Height)
	}
	if _, err := media.ParseFormat(c.PixelFormat); err != nil {
		return errors.Wrap(errInvalidConfig, err.Error())
	}
	if c.FFmpegPath == "" {
		return errors.Wrap(errInvalidConfig, "ffmpeg path is empty")
	}
	if c.SubscriberCapacity < 0 || c.QueueDepth < 0 {
		return errors.Wrap(errInvalidConfig, "negative capacity")
	}
	if c.LogLevel != "" {
		if err := logging.Configure(c.LogLevel); err != nil {
			return errors.Wrap(errInvalidConfig, err.Error())
		}
	}
	return nil
}

func (c Config) workerConfig(pool *media.Pool) decoder.WorkerConfig {
	return decoder.WorkerConfig{
		Pool:         pool,
		QueueDepth:   c.QueueDepth,
		ReadTimeout:  c.ReadTimeout,
		StallTimeout: c.StallTimeout,
		StopTimeout:  c.StopTimeout,
	}
}
