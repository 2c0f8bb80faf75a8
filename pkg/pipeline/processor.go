package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/logger"
	"dropletsizer/internal/models"
	"dropletsizer/pkg/aggregation"
	"dropletsizer/pkg/config"
	"dropletsizer/pkg/frames"
	"dropletsizer/pkg/regions"
	"dropletsizer/pkg/segmentation"
)

// Summary describes the outcome of one processing run
type Summary struct {
	// Requested is the number of frame indices in the configured range
	Requested int

	// Processed is the number of frames that produced a table row
	Processed int

	// Skipped lists the frame indices whose files were missing
	Skipped []int

	// Degenerate lists frames whose histogram could not be thresholded.
	// These frames still produce an empty row.
	Degenerate []int

	// TotalDroplets counts every measurement in the table
	TotalDroplets int

	// MeanDiameter and StdDevDiameter (sample) are taken over all measurements
	// in nm. StdDevDiameter is zero for fewer than two droplets.
	MeanDiameter   float64
	StdDevDiameter float64
}

// Params holds the processing configuration.
type Params struct {
	// Source provides frames by index
	Source frames.Source

	// Range is the inclusive frame index range to visit
	Range config.FrameRange

	Segmenter *segmentation.Segmenter
	Extractor *regions.Extractor

	// NumWorkers bounds how many frames are measured at the same time.
	// Values below 1 are treated as 1.
	NumWorkers int

	// MaskDir, when set, receives a TIFF of every frame's foreground mask
	MaskDir string

	Logger *zerolog.Logger
}

// Processor measures droplets across a range of frames and aggregates the
// per-frame rows into a droplet table.
type Processor struct {
	params  *Params
	log     zerolog.Logger
	summary Summary
}

// NewProcessor creates a new processor with the provided parameters
func NewProcessor(params *Params) *Processor {
	return &Processor{
		params: params,
		log:    logger.Component(params.Logger, "pipeline"),
	}
}

// NewProcessorFromConfig wires a processor from a validated configuration
func NewProcessorFromConfig(cfg *config.Config, log *zerolog.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	calibration, err := regions.CalibrationFromScaleBar(cfg.ScaleBarPixelLength, cfg.ScaleBarPhysicalLength)
	if err != nil {
		return nil, err
	}

	return NewProcessor(&Params{
		Source:     frames.NewDirectorySource(cfg.SourceDirectory, cfg.FilePattern),
		Range:      cfg.FrameRange,
		Segmenter:  segmentation.NewSegmenter(cfg.InvertIntensity),
		Extractor:  regions.NewExtractor(cfg.MinRegionPixels, calibration),
		NumWorkers: cfg.NumWorkers,
		MaskDir:    cfg.MaskDirectory,
		Logger:     log,
	}), nil
}

type frameResult struct {
	index      int
	row        models.DropletRow
	skipped    bool
	degenerate bool
	err        error
}

// Process visits every frame index in the range, measures each frame and
// returns the table ordered by frame index.
//
// Missing frame files are logged and skipped. Frames that fail to decode
// abort the run. If no frame at all could be processed the error matches
// apperrors.ErrEmptyDataset.
func (p *Processor) Process() (*aggregation.Table, error) {
	r := p.params.Range
	p.summary = Summary{Requested: r.Len()}

	p.log.Info().
		Int("start", r.Start).
		Int("end", r.End).
		Int("workers", p.workers()).
		Msg("processing frames")

	aggregator := aggregation.NewAggregator()
	resultChan := make(chan frameResult)
	sem := make(chan struct{}, p.workers())

	go func() {
		for i := r.Start; i <= r.End; i++ {
			sem <- struct{}{}
			go func(index int) {
				defer func() { <-sem }()
				resultChan <- p.processFrame(index)
			}(i)
		}
	}()

	// Collect every result even after a failure so no goroutine is left blocked
	var firstErr error
	for completed := 0; completed < r.Len(); completed++ {
		res := <-resultChan

		switch {
		case res.err != nil:
			if firstErr == nil {
				firstErr = fmt.Errorf("frame %d: %w", res.index, res.err)
			}
		case res.skipped:
			p.summary.Skipped = append(p.summary.Skipped, res.index)
		default:
			if res.degenerate {
				p.summary.Degenerate = append(p.summary.Degenerate, res.index)
			}
			if err := aggregator.Add(res.row); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	sort.Ints(p.summary.Skipped)
	sort.Ints(p.summary.Degenerate)

	table := aggregator.Table()
	p.summarize(table)

	if table.Len() == 0 {
		return nil, apperrors.NewEmptyDatasetError(
			fmt.Sprintf("none of the %d requested frames could be processed", r.Len()))
	}

	p.log.Info().
		Int("processed", p.summary.Processed).
		Int("skipped", len(p.summary.Skipped)).
		Int("droplets", p.summary.TotalDroplets).
		Msg("processing complete")

	return table, nil
}

// processFrame runs segmentation and region extraction for one frame index
func (p *Processor) processFrame(index int) frameResult {
	frame, err := p.params.Source.Load(index)
	if err != nil {
		if errors.Is(err, apperrors.ErrMissingFrameFile) {
			p.log.Warn().Int("frame", index).Err(err).Msg("skipping frame")
			return frameResult{index: index, skipped: true}
		}
		return frameResult{index: index, err: err}
	}

	seg, err := p.params.Segmenter.Segment(frame)
	degenerate := false
	if err != nil {
		if !errors.Is(err, apperrors.ErrDegenerateThreshold) {
			return frameResult{index: index, err: err}
		}
		p.log.Warn().Int("frame", index).Msg("degenerate intensity histogram, using empty mask")
		degenerate = true
	}

	if p.params.MaskDir != "" {
		path := filepath.Join(p.params.MaskDir, fmt.Sprintf("mask_%04d.tif", index))
		if err := frames.SaveImage(path, frames.MaskImage(seg.Mask)); err != nil {
			p.log.Warn().Int("frame", index).Err(err).Msg("failed to save mask")
		}
	}

	row := p.params.Extractor.Extract(index, seg.Mask)
	if row.Len() == 0 {
		p.log.Info().Int("frame", index).Int("min_pixels", p.params.Extractor.MinPixels).Msg("no regions found")
	} else {
		p.log.Debug().Int("frame", index).Int("threshold", int(seg.Threshold)).Int("droplets", row.Len()).Msg("frame measured")
	}

	return frameResult{index: index, row: row, degenerate: degenerate}
}

func (p *Processor) workers() int {
	if p.params.NumWorkers < 1 {
		return 1
	}
	return p.params.NumWorkers
}

// summarize fills the run statistics from the finished table
func (p *Processor) summarize(table *aggregation.Table) {
	p.summary.Processed = table.Len()

	all := table.Flatten()
	p.summary.TotalDroplets = len(all)
	switch {
	case len(all) > 1:
		p.summary.MeanDiameter, p.summary.StdDevDiameter = stat.MeanStdDev(all, nil)
	case len(all) == 1:
		p.summary.MeanDiameter = all[0]
	}
}

// GetSummary returns the statistics of the last run
func (p *Processor) GetSummary() Summary {
	return p.summary
}
