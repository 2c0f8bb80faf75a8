// Package regions labels connected droplet regions in a binary mask and converts
// their areas into calibrated equivalent diameters.
package regions

import (
	"fmt"
	"math"
	"sort"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
)

// Calibration is the physical length of one pixel in nanometers
type Calibration float64

// CalibrationFromScaleBar derives nanometers per pixel from a scale bar of
// physicalLength nanometers spanning pixelLength pixels
func CalibrationFromScaleBar(pixelLength, physicalLength float64) (Calibration, error) {
	if pixelLength <= 0 || physicalLength <= 0 {
		return 0, apperrors.NewInvalidConfigError(
			fmt.Sprintf("scale bar lengths must be positive (pixels=%g, nm=%g)", pixelLength, physicalLength))
	}
	return Calibration(physicalLength / pixelLength), nil
}

// neighbors8 lists the offsets of the 8-connected neighborhood
var neighbors8 = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

// Label assigns a label to every 8-connected foreground component.
//
// Labels start at 1 and follow raster-scan discovery order; background pixels
// get 0. The returned regions are indexed by label-1.
func Label(mask *models.BinaryMask) ([]int, []models.Region) {
	w, h := mask.Width, mask.Height
	labels := make([]int, w*h)
	var regions []models.Region

	queue := make([]int, 0, 64)
	for start, fg := range mask.Foreground {
		if !fg || labels[start] != 0 {
			continue
		}

		label := len(regions) + 1
		labels[start] = label
		queue = append(queue[:0], start)
		area := 0

		for len(queue) > 0 {
			idx := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			area++

			px, py := idx%w, idx/w
			for _, d := range neighbors8 {
				nx, ny := px+d[0], py+d[1]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				nidx := ny*w + nx
				if mask.Foreground[nidx] && labels[nidx] == 0 {
					labels[nidx] = label
					queue = append(queue, nidx)
				}
			}
		}

		regions = append(regions, models.Region{
			Label:      label,
			Area:       area,
			DiameterPx: EquivalentDiameter(area),
		})
	}

	return labels, regions
}

// EquivalentDiameter returns the diameter of a circle with the given pixel area
func EquivalentDiameter(area int) float64 {
	return 2 * math.Sqrt(float64(area)/math.Pi)
}

// Extractor measures droplets in segmented frames
type Extractor struct {
	// MinPixels keeps only regions with area strictly greater than this
	MinPixels int

	Calibration Calibration
}

// NewExtractor creates an extractor with a fixed calibration
func NewExtractor(minPixels int, calibration Calibration) *Extractor {
	return &Extractor{
		MinPixels:   minPixels,
		Calibration: calibration,
	}
}

// Extract labels the mask and returns the calibrated diameters of the
// qualifying regions, largest first. A mask without qualifying regions yields
// an empty row.
func (e *Extractor) Extract(frameIndex int, mask *models.BinaryMask) models.DropletRow {
	_, regions := Label(mask)

	diameters := make([]float64, 0, len(regions))
	for _, region := range regions {
		if region.Area > e.MinPixels {
			diameters = append(diameters, region.DiameterPx*float64(e.Calibration))
		}
	}

	SortDescending(diameters)

	return models.DropletRow{Frame: frameIndex, Diameters: diameters}
}

// SortDescending orders values numerically from largest to smallest, stable on ties
func SortDescending(values []float64) {
	sort.SliceStable(values, func(i, j int) bool {
		return values[i] > values[j]
	})
}
