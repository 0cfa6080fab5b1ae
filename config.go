package pdfgrid

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config controls annotation behavior.
type Config struct {
	// MinRegionSize is the size a drag must exceed on both axes, in document
	// units, before it creates a region (default: 20)
	MinRegionSize float64 `yaml:"min_region_size"`

	// ViewOnly disables all pointer interaction (default: false)
	ViewOnly bool `yaml:"view_only"`

	// Zoom bounds the render scale (default: 0.5 to 3 in 0.25 steps)
	Zoom ZoomConfig `yaml:"zoom"`

	// Log configures NewLogger when the config is loaded from a file
	Log LogConfig `yaml:"log"`

	// Logger receives debug traces for absorbed gestures (default: disabled)
	Logger zerolog.Logger `yaml:"-"`
}

// ZoomConfig bounds the render scale.
type ZoomConfig struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	Step    float64 `yaml:"step"`
	Default float64 `yaml:"default"`
}

func (z ZoomConfig) clamp(scale float64) float64 {
	if scale < z.Min {
		return z.Min
	}
	if z.Max > 0 && scale > z.Max {
		return z.Max
	}
	return scale
}

// DefaultConfig returns the default annotation configuration.
func DefaultConfig() Config {
	return Config{
		MinRegionSize: 20,
		ViewOnly:      false,
		Zoom: ZoomConfig{
			Min:     0.5,
			Max:     3,
			Step:    0.25,
			Default: 1,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Logger: zerolog.Nop(),
	}
}

// LoadConfig reads a YAML config file. Keys missing from the file keep their
// DefaultConfig values, and the logger is built from the log section.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config file")
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config file %s", path)
	}

	if config.MinRegionSize < 0 {
		return Config{}, errors.New("min_region_size must not be negative")
	}
	if config.Zoom.Min <= 0 || config.Zoom.Max < config.Zoom.Min {
		return Config{}, errors.Errorf("invalid zoom range [%v, %v]", config.Zoom.Min, config.Zoom.Max)
	}

	config.Logger = NewLogger(config.Log, os.Stderr)
	return config, nil
}
