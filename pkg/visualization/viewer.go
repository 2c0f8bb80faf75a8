package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"dropletsizer/pkg/distribution"
)

// Viewer exposes a distribution matrix in the form a 3D surface renderer
// consumes: X = bin centers, Y = frame numbers, Z = droplet counts.
// Rendering the surface itself is left to external plotting tools.
type Viewer struct {
	// frames and binCenters are the coordinate axes
	frames     []int
	binCenters []float64

	// counts has one row per frame and one column per bin
	counts *mat.Dense
}

// NewViewer creates a surface view of a distribution matrix
func NewViewer(m *distribution.Matrix) *Viewer {
	return &Viewer{
		frames:     m.Frames,
		binCenters: m.BinCenters,
		counts:     m.Counts,
	}
}

// Meshgrid returns the X and Y coordinate grids matching Z()
func (v *Viewer) Meshgrid() (x, y [][]float64) {
	x = make([][]float64, len(v.frames))
	y = make([][]float64, len(v.frames))
	for i, frame := range v.frames {
		x[i] = append([]float64(nil), v.binCenters...)
		y[i] = make([]float64, len(v.binCenters))
		for j := range y[i] {
			y[i][j] = float64(frame)
		}
	}
	return x, y
}

// Z returns the count grid, one row per frame
func (v *Viewer) Z() [][]float64 {
	rows, _ := v.counts.Dims()
	z := make([][]float64, rows)
	for i := range z {
		z[i] = mat.Row(nil, i, v.counts)
	}
	return z
}

// ExtractProfile returns a 1D cut through the surface. Axis "frame" returns
// the counts of every bin for the frame at row position; axis "bin" returns
// the counts of every frame for the bin at column position.
func (v *Viewer) ExtractProfile(axis string, position int) ([]float64, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	rows, cols := v.counts.Dims()
	switch strings.ToLower(axis) {
	case "frame":
		if position >= rows {
			return nil, fmt.Errorf("position %d exceeds frame count %d", position, rows)
		}
		return mat.Row(nil, position, v.counts), nil

	case "bin":
		if position >= cols {
			return nil, fmt.Errorf("position %d exceeds bin count %d", position, cols)
		}
		return mat.Col(nil, position, v.counts), nil

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be frame or bin)", axis)
	}
}

// Heatmap renders the counts as a grayscale image with one cellSize x cellSize
// block per (frame, bin). Frames run top to bottom, bins left to right, and
// the largest count maps to white.
func (v *Viewer) Heatmap(cellSize int) image.Image {
	if cellSize < 1 {
		cellSize = 1
	}
	rows, cols := v.counts.Dims()
	maxCount := mat.Max(v.counts)

	img := image.NewGray16(image.Rect(0, 0, cols*cellSize, rows*cellSize))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			value := uint16(0)
			if maxCount > 0 {
				value = uint16(math.Round(v.counts.At(i, j) / maxCount * 65535))
			}
			for dy := 0; dy < cellSize; dy++ {
				for dx := 0; dx < cellSize; dx++ {
					img.SetGray16(j*cellSize+dx, i*cellSize+dy, color.Gray16{Y: value})
				}
			}
		}
	}
	return img
}

// SaveHeatmap writes the heatmap as JPEG or PNG depending on the extension
func (v *Viewer) SaveHeatmap(filename string, cellSize int) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	img := v.Heatmap(cellSize)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return png.Encode(file, img)
	}
}
