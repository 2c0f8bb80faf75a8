package segmentation

import (
	"errors"
	"testing"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
)

// createTestFrame creates a frame with the specified dimensions and pattern
func createTestFrame(width, height int, pattern func(x, y int) uint8) *models.Frame {
	frame := models.NewFrame(0, width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			frame.Set(x, y, pattern(x, y))
		}
	}
	return frame
}

func TestOtsuThresholdTwoLevels(t *testing.T) {
	var hist [256]int
	hist[55] = 900
	hist[215] = 100

	threshold, ok := OtsuThreshold(hist)
	if !ok {
		t.Fatal("Expected a threshold for a bimodal histogram")
	}
	if threshold != 56 {
		t.Errorf("Expected threshold 56 (first split after 55), got %d", threshold)
	}
}

func TestOtsuThresholdSeparatesModes(t *testing.T) {
	var hist [256]int
	for v := 20; v <= 40; v++ {
		hist[v] = 50
	}
	for v := 180; v <= 200; v++ {
		hist[v] = 30
	}

	threshold, ok := OtsuThreshold(hist)
	if !ok {
		t.Fatal("Expected a threshold")
	}
	if threshold <= 40 || threshold > 180 {
		t.Errorf("Threshold %d does not separate the two modes", threshold)
	}
}

func TestOtsuThresholdDegenerate(t *testing.T) {
	var empty [256]int
	if _, ok := OtsuThreshold(empty); ok {
		t.Error("Expected empty histogram to be degenerate")
	}

	var single [256]int
	single[128] = 400
	if _, ok := OtsuThreshold(single); ok {
		t.Error("Expected single-valued histogram to be degenerate")
	}
}

func TestSegmentInverted(t *testing.T) {
	// Bright 4x4 square on a dark background. After inversion the square is
	// the dark class and becomes foreground.
	frame := createTestFrame(10, 10, func(x, y int) uint8 {
		if x >= 3 && x < 7 && y >= 3 && y < 7 {
			return 220
		}
		return 30
	})

	result, err := NewSegmenter(true).Segment(frame)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if result.Degenerate {
		t.Fatal("Did not expect degenerate result")
	}
	if got := result.Mask.Count(); got != 16 {
		t.Errorf("Expected 16 foreground pixels, got %d", got)
	}
	if !result.Mask.Foreground[5*10+5] {
		t.Error("Expected square center to be foreground")
	}
	if result.Mask.Foreground[0] {
		t.Error("Expected corner to be background")
	}
}

func TestSegmentWithoutInversion(t *testing.T) {
	// Same frame without inversion: the dark background is the lower class
	frame := createTestFrame(10, 10, func(x, y int) uint8 {
		if x >= 3 && x < 7 && y >= 3 && y < 7 {
			return 220
		}
		return 30
	})

	result, err := NewSegmenter(false).Segment(frame)
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if got := result.Mask.Count(); got != 84 {
		t.Errorf("Expected 84 foreground pixels, got %d", got)
	}
}

func TestSegmentDoesNotModifyFrame(t *testing.T) {
	frame := createTestFrame(4, 4, func(x, y int) uint8 { return uint8(x * 60) })
	before := append([]uint8(nil), frame.Pix...)

	if _, err := NewSegmenter(true).Segment(frame); err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	for i := range before {
		if frame.Pix[i] != before[i] {
			t.Fatalf("Frame modified at %d", i)
		}
	}
}

func TestSegmentDegenerateFrame(t *testing.T) {
	frame := createTestFrame(8, 8, func(x, y int) uint8 { return 90 })

	result, err := NewSegmenter(true).Segment(frame)
	if !errors.Is(err, apperrors.ErrDegenerateThreshold) {
		t.Fatalf("Expected degenerate threshold error, got %v", err)
	}
	if !result.Degenerate {
		t.Error("Expected Degenerate flag")
	}
	if result.Mask == nil || result.Mask.Count() != 0 {
		t.Error("Expected an all-background fallback mask")
	}
}
