// Package config loads command line settings from defaults, an optional YAML
// file, CAFE_ environment variables and flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"

	"github.com/crystalix007/cafe/internal/logging"
	"github.com/crystalix007/cafe/segments"
)

// Default values.
const (
	DefaultOutputBase    = "cafe_"
	DefaultExtentLimit   = "0"
	DefaultLoggingLevel  = "info"
	DefaultLoggingFormat = logging.FormatText
)

var (
	// ErrNoTimeSlides is returned when neither a time-slide file nor inline
	// slides are configured.
	ErrNoTimeSlides = errors.New("no time slides configured")

	// ErrNoInput is returned when no input cache is configured.
	ErrNoInput = errors.New("no input caches configured")

	// ErrNoOutputBase is returned for an empty output base name.
	ErrNoOutputBase = errors.New("output base name is empty")

	// ErrInvalidExtentLimit is returned for an extent limit that is not a
	// non-negative number of seconds.
	ErrInvalidExtentLimit = errors.New("invalid extent limit")
)

// Config is the top-level configuration.
// Field tags use mapstructure for viper unmarshalling.
type Config struct {
	// TimeSlides is the path of a YAML file of offset vectors.
	TimeSlides string `mapstructure:"time_slides"`

	// Slides holds offset vectors given inline as "H1=0,L1=5".
	Slides []string `mapstructure:"slides"`

	// Input lists cache files to read; "-" is standard input.
	Input []string `mapstructure:"input"`

	// ExtentLimit is the longest permitted bin in seconds. Zero disables
	// splitting.
	ExtentLimit string `mapstructure:"extent_limit"`

	Output  OutputConfig    `mapstructure:"output"`
	Logging logging.Options `mapstructure:"logging"`
	Metrics MetricsConfig   `mapstructure:"metrics"`
}

// OutputConfig controls how bins are written.
type OutputConfig struct {
	Base             string `mapstructure:"base"`
	SingleInstrument bool   `mapstructure:"single_instrument"`
	Compress         bool   `mapstructure:"compress"`
}

// MetricsConfig controls metrics export.
type MetricsConfig struct {
	// Textfile, when set, receives the run's metrics in the Prometheus text
	// format.
	Textfile string `mapstructure:"textfile"`
}

// ExtentLimitTime returns the extent limit as a time.
func (c *Config) ExtentLimitTime() (segments.Time, error) {
	if c.ExtentLimit == "" {
		return 0, nil
	}

	limit, err := segments.ParseTime(c.ExtentLimit)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidExtentLimit, err)
	}

	if limit < 0 {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidExtentLimit, c.ExtentLimit)
	}

	return limit, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.TimeSlides == "" && len(c.Slides) == 0 {
		return ErrNoTimeSlides
	}

	if len(c.Input) == 0 {
		return ErrNoInput
	}

	if c.Output.Base == "" {
		return ErrNoOutputBase
	}

	if _, err := c.ExtentLimitTime(); err != nil {
		return err
	}

	return nil
}
