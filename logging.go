package pdfgrid

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// LogConfig describes how NewLogger builds a logger.
type LogConfig struct {
	Level        string `yaml:"level"`         // debug, info, warn, error
	Format       string `yaml:"format"`        // json or pretty
	TimeFormat   string `yaml:"time_format"`   // defaults to RFC3339
	ReportCaller bool   `yaml:"report_caller"` // add file:line to each entry
}

// NewLogger builds a zerolog logger writing to w. Unknown levels fall back to info.
func NewLogger(config LogConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(config.Level)
	if err != nil || config.Level == "" {
		level = zerolog.InfoLevel
	}

	timeFormat := config.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	output := w
	if config.Format == "pretty" {
		output = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: timeFormat,
		}
	}

	ctx := zerolog.New(output).
		Level(level).
		With().
		Timestamp()

	if config.ReportCaller {
		ctx = ctx.Caller()
	}

	return ctx.Logger()
}
