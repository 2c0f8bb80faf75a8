// Package distribution bins the aggregated droplet table into a frame-by-bin
// count matrix using one set of bin edges for every frame.
package distribution

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/pkg/aggregation"
)

// Bins is a uniform grid of half-open intervals [Edges[i], Edges[i+1])
type Bins struct {
	Edges []float64
	Width float64
}

// NewBins builds edges starting at min with the given width. The last edge is
// strictly greater than max, so max falls inside the last bin.
func NewBins(min, max, width float64) (Bins, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return Bins{}, apperrors.NewInvalidConfigError(fmt.Sprintf("bin width must be > 0, got %g", width))
	}
	if max < min {
		return Bins{}, fmt.Errorf("bin range max %g is below min %g", max, min)
	}

	n := int(math.Floor((max-min)/width)) + 1
	edges := make([]float64, n+1)
	for i := range edges {
		edges[i] = min + float64(i)*width
	}
	for edges[len(edges)-1] <= max {
		edges = append(edges, min+float64(len(edges))*width)
	}

	return Bins{Edges: edges, Width: width}, nil
}

// Len returns the number of bins
func (b Bins) Len() int {
	return len(b.Edges) - 1
}

// Centers returns the midpoint of every bin
func (b Bins) Centers() []float64 {
	centers := make([]float64, b.Len())
	for i := range centers {
		centers[i] = (b.Edges[i] + b.Edges[i+1]) / 2
	}
	return centers
}

// Count returns the number of values in each bin. Values must lie within
// [Edges[0], Edges[last]).
func (b Bins) Count(values []float64) []float64 {
	if len(values) == 0 {
		return make([]float64, b.Len())
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return stat.Histogram(nil, b.Edges, sorted, nil)
}

// Matrix holds per-frame droplet counts. Row i is Frames[i], column j is the
// bin centered on BinCenters[j].
type Matrix struct {
	Frames     []int
	BinCenters []float64
	Bins       Bins
	Counts     *mat.Dense
}

// Dims returns the number of frames and bins
func (m *Matrix) Dims() (frames, bins int) {
	return m.Counts.Dims()
}

// At returns the count for frame row i and bin j
func (m *Matrix) At(i, j int) int {
	return int(m.Counts.At(i, j))
}

// RowTotal returns the number of droplets counted in frame row i
func (m *Matrix) RowTotal(i int) int {
	return int(floats.Sum(m.Counts.RawRowView(i)))
}

// Binner turns a droplet table into a distribution matrix
type Binner struct {
	BinWidth float64
}

// NewBinner creates a binner with the given bin width in nanometers
func NewBinner(binWidth float64) *Binner {
	return &Binner{BinWidth: binWidth}
}

// Bin computes shared edges from the global min and max of every measurement
// in the table, then counts each frame's measurements against those edges.
func (b *Binner) Bin(table *aggregation.Table) (*Matrix, error) {
	if table == nil {
		return nil, apperrors.NewMissingAggregatedTableError("no droplet table to bin", nil)
	}

	all := table.Flatten()
	if len(all) == 0 {
		return nil, apperrors.NewEmptyDatasetError(
			fmt.Sprintf("table with %d frames has no droplet measurements", table.Len()))
	}

	bins, err := NewBins(floats.Min(all), floats.Max(all), b.BinWidth)
	if err != nil {
		return nil, err
	}

	counts := mat.NewDense(table.Len(), bins.Len(), nil)
	for i, row := range table.Rows {
		counts.SetRow(i, bins.Count(row.Diameters))
	}

	return &Matrix{
		Frames:     table.Frames(),
		BinCenters: bins.Centers(),
		Bins:       bins,
		Counts:     counts,
	}, nil
}
