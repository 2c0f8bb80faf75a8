// Package segmentation turns grayscale frames into binary droplet masks using a
// global Otsu threshold.
package segmentation

import (
	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
)

// Segmenter thresholds frames into foreground/background masks.
//
// When Invert is set every sample is replaced by 255-v before the histogram is
// built, so droplets that are bright in the raw frame become the dark class.
// Foreground is always the lower Otsu class of the (possibly inverted) image.
type Segmenter struct {
	Invert bool
}

// NewSegmenter creates a segmenter with the given inversion policy
func NewSegmenter(invert bool) *Segmenter {
	return &Segmenter{Invert: invert}
}

// Result is the outcome of segmenting a single frame
type Result struct {
	Mask *models.BinaryMask

	// Threshold is the first intensity of the upper class. Zero when Degenerate.
	Threshold uint8

	// Degenerate is set when the histogram could not be split into two classes.
	// The mask is then all background.
	Degenerate bool
}

// Segment computes the threshold and foreground mask for one frame.
//
// A degenerate histogram is not an error for the caller's run: the returned
// Result carries an all-background mask and the error wraps
// ErrDegenerateThreshold so the caller can log and continue.
func (s *Segmenter) Segment(frame *models.Frame) (Result, error) {
	samples := s.prepare(frame)
	mask := models.NewBinaryMask(frame.Width, frame.Height)

	threshold, ok := OtsuThreshold(Histogram(samples))
	if !ok {
		return Result{Mask: mask, Degenerate: true},
			apperrors.New(apperrors.ErrorTypeDegenerateThreshold, "frame has fewer than two distinct intensities", nil)
	}

	for i, v := range samples {
		mask.Foreground[i] = v < threshold
	}

	return Result{Mask: mask, Threshold: threshold}, nil
}

// prepare returns the samples the threshold is computed on
func (s *Segmenter) prepare(frame *models.Frame) []uint8 {
	if !s.Invert {
		return frame.Pix
	}
	inverted := make([]uint8, len(frame.Pix))
	for i, v := range frame.Pix {
		inverted[i] = 255 - v
	}
	return inverted
}

// Histogram counts occurrences of each 8-bit intensity
func Histogram(samples []uint8) [256]int {
	var hist [256]int
	for _, v := range samples {
		hist[v]++
	}
	return hist
}

// OtsuThreshold searches every split of the histogram for the one maximizing
// between-class variance.
//
// The returned threshold t is one past the last intensity of the lower class,
// so the lower class is exactly {v : v < t}. Ties keep the lowest split. ok is
// false when fewer than two intensities are populated.
func OtsuThreshold(hist [256]int) (threshold uint8, ok bool) {
	total := 0
	sum := 0.0
	for i, count := range hist {
		total += count
		sum += float64(i) * float64(count)
	}
	if total == 0 {
		return 0, false
	}

	sumB := 0.0
	wB := 0
	maxVariance := -1.0
	best := -1

	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}

		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(i) * float64(hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)

		varBetween := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if varBetween > maxVariance {
			maxVariance = varBetween
			best = i
		}
	}

	if best < 0 {
		return 0, false
	}
	// best < 255 because the upper class is non-empty
	return uint8(best + 1), true
}
