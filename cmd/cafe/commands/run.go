// Package commands implements CLI command handlers for cafe.
package commands

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/crystalix007/cafe/cache"
	"github.com/crystalix007/cafe/cafe"
	"github.com/crystalix007/cafe/internal/config"
	"github.com/crystalix007/cafe/internal/logging"
	"github.com/crystalix007/cafe/internal/metrics"
	"github.com/crystalix007/cafe/offsets"
)

// RunCommand holds the flags of the run command that are not configuration
// keys.
type RunCommand struct {
	configPath string
	noColor    bool
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	rc := &RunCommand{}

	cmd := &cobra.Command{
		Use:   "run [cache...]",
		Short: "Pack cache entries into bins",
		Long: `Read cache entries, drop those that cannot be coincident with anything,
pack the rest into bins and write one cache per bin. With no cache
arguments entries are read from standard input.`,
		Args: cobra.ArbitraryArgs,
		RunE: rc.run,
	}

	cmd.Flags().StringVarP(&rc.configPath, "config", "c", "", "Config file (default .cafe.yaml in CWD or $HOME)")
	cmd.Flags().BoolVar(&rc.noColor, "no-color", false, "Disable colored summary output")

	cmd.Flags().String("time-slides", "", "YAML file of time slides")
	cmd.Flags().StringArray("slide", nil, "Time slide given inline, e.g. H1=0,L1=5 (repeatable)")
	cmd.Flags().String("extent-limit", "", "Split bins lasting longer than this many seconds (0 = never)")
	cmd.Flags().String("base", "", "Output file name prefix (default "+config.DefaultOutputBase+")")
	cmd.Flags().Bool("single-instrument", false, "Write one cache family per instrument")
	cmd.Flags().Bool("compress", false, "Write lz4-compressed caches")
	cmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	cmd.Flags().String("log-format", "", "Log format: text, json")
	cmd.Flags().String("metrics-textfile", "", "Write run metrics to this file in Prometheus text format")

	return cmd
}

func (rc *RunCommand) run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(rc.configPath, cmd.Flags(), args)
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	vectors, err := loadVectors(cfg)
	if err != nil {
		return err
	}

	entries, err := loadEntries(cfg.Input, logger)
	if err != nil {
		return err
	}

	limit, err := cfg.ExtentLimitTime()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()

	result, err := cafe.Run(cmd.Context(), entries, vectors,
		cafe.WithLogger(logger),
		cafe.WithMetrics(metrics.NewPrometheus(registry, "")),
		cafe.WithExtentLimit(limit),
	)
	if err != nil {
		return err
	}

	filenames, err := writeBins(cfg, result, offsets.Instruments(vectors))
	if err != nil {
		return err
	}

	logger.Info("wrote caches", "files", len(filenames))

	if cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(cfg.Metrics.Textfile, registry); err != nil {
			return err
		}
	}

	return renderSummary(cmd.OutOrStdout(), summary{
		input:     len(entries),
		result:    result,
		filenames: filenames,
	}, rc.noColor)
}

func loadVectors(cfg *config.Config) ([]offsets.Vector, error) {
	var vectors []offsets.Vector

	if cfg.TimeSlides != "" {
		loaded, err := offsets.LoadFile(cfg.TimeSlides)
		if err != nil {
			return nil, err
		}

		vectors = append(vectors, loaded...)
	}

	for _, slide := range cfg.Slides {
		v, err := offsets.Parse(slide)
		if err != nil {
			return nil, fmt.Errorf("slide %q: %w", slide, err)
		}

		vectors = append(vectors, v)
	}

	return vectors, nil
}

func loadEntries(paths []string, logger *slog.Logger) ([]cache.Entry, error) {
	var entries []cache.Entry

	for _, path := range paths {
		loaded, err := cache.Load(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		logger.Debug("read cache", "path", path, "entries", len(loaded))

		entries = append(entries, loaded...)
	}

	return entries, nil
}

func writeBins(cfg *config.Config, result *cafe.Result[cache.Entry], instruments []string) ([]string, error) {
	bins := result.Members()

	if cfg.Output.SingleInstrument {
		return cache.WriteSingleInstrumentBins(cfg.Output.Base, bins, instruments, cfg.Output.Compress)
	}

	return cache.WriteBins(cfg.Output.Base, bins, instruments, cfg.Output.Compress)
}
