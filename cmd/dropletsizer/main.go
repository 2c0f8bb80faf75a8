package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"dropletsizer/internal/logger"
	"dropletsizer/pkg/aggregation"
	"dropletsizer/pkg/config"
	"dropletsizer/pkg/distribution"
	"dropletsizer/pkg/export"
	"dropletsizer/pkg/pipeline"
	"dropletsizer/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "dropletsizer.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	sourceDir := flag.String("input", "", "Directory containing one grayscale image per frame")
	start := flag.Int("start", -1, "First frame index (inclusive)")
	end := flag.Int("end", -1, "Last frame index (inclusive)")
	output := flag.String("output", "", "Output droplet table (delimited text)")
	binWidth := flag.Float64("bin-width", 0, "Histogram bin width in nm")
	workers := flag.Int("workers", 0, "Number of frames measured concurrently")
	binOnly := flag.Bool("bin-only", false, "Skip frame processing and bin an existing droplet table")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "input":
			cfg.SourceDirectory = *sourceDir
		case "start":
			cfg.FrameRange.Start = *start
		case "end":
			cfg.FrameRange.End = *end
		case "output":
			cfg.OutputTablePath = *output
		case "bin-width":
			cfg.BinWidth = *binWidth
		case "workers":
			cfg.NumWorkers = *workers
		}
	})

	level := logger.ParseLevel(cfg.LogLevel)
	var log zerolog.Logger
	if cfg.LogJSON {
		log = logger.New(os.Stderr, level)
	} else {
		log = logger.NewConsole(level)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	var table *aggregation.Table
	if *binOnly {
		table, err = export.ReadTableFile(cfg.OutputTablePath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.OutputTablePath).Msg("cannot bin without a droplet table")
		}
		log.Info().Int("frames", table.Len()).Str("path", cfg.OutputTablePath).Msg("loaded droplet table")
	} else {
		table = measure(cfg, &log)
	}

	// Binning needs the complete table
	matrix, err := distribution.NewBinner(cfg.BinWidth).Bin(table)
	if err != nil {
		log.Fatal().Err(err).Msg("binning failed")
	}
	frames, bins := matrix.Dims()
	log.Info().
		Int("frames", frames).
		Int("bins", bins).
		Float64("min_nm", matrix.Bins.Edges[0]).
		Float64("bin_width_nm", cfg.BinWidth).
		Msg("size distribution computed")

	if cfg.DistributionPath != "" {
		if err := export.WriteDistributionFile(cfg.DistributionPath, matrix); err != nil {
			log.Fatal().Err(err).Msg("failed to write distribution")
		}
		fmt.Printf("Size distribution saved to: %s\n", cfg.DistributionPath)
	}

	if cfg.HeatmapPath != "" {
		viewer := visualization.NewViewer(matrix)
		if err := viewer.SaveHeatmap(cfg.HeatmapPath, 8); err != nil {
			log.Error().Err(err).Msg("failed to save heatmap")
		} else {
			fmt.Printf("Distribution heatmap saved to: %s\n", cfg.HeatmapPath)
		}
	}
}

// measure runs the frame pipeline and writes the droplet table
func measure(cfg *config.Config, log *zerolog.Logger) *aggregation.Table {
	processor, err := pipeline.NewProcessorFromConfig(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up pipeline")
	}

	fmt.Printf("Processing frames %d-%d from:\n%s\n\n", cfg.FrameRange.Start, cfg.FrameRange.End, cfg.SourceDirectory)

	startTime := time.Now()
	table, err := processor.Process()
	if err != nil {
		log.Fatal().Err(err).Msg("processing failed")
	}
	processingTime := time.Since(startTime)

	if err := export.WriteTableFile(cfg.OutputTablePath, table); err != nil {
		log.Fatal().Err(err).Msg("failed to write droplet table")
	}

	summary := processor.GetSummary()
	fmt.Printf("\nDroplet diameters saved to:\n%s\n", cfg.OutputTablePath)
	fmt.Printf("Total frames processed: %d of %d requested (%.2f seconds)\n",
		summary.Processed, summary.Requested, processingTime.Seconds())
	if len(summary.Skipped) > 0 {
		fmt.Printf("Skipped (missing): %v\n", summary.Skipped)
	}
	if len(summary.Degenerate) > 0 {
		fmt.Printf("No threshold (uniform frames): %v\n", summary.Degenerate)
	}
	fmt.Printf("Droplets measured: %d\n", summary.TotalDroplets)
	if summary.TotalDroplets > 0 {
		fmt.Printf("Mean diameter: %.2f nm (sd %.2f nm)\n", summary.MeanDiameter, summary.StdDevDiameter)
	}

	return table
}
