// Package aggregation collects per-frame droplet rows into a frame-ordered,
// ragged table and materializes it into fixed-width form for export.
package aggregation

import (
	"fmt"
	"sort"
	"sync"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
)

// FrameColumn is the header of the frame index column
const FrameColumn = "Frame_number"

// ParticleColumn returns the header of the rank-th (1-based) particle column
func ParticleColumn(rank int) string {
	return fmt.Sprintf("Particle_%d", rank)
}

// Aggregator accumulates droplet rows keyed by frame index.
// Rows may arrive in any order and from several goroutines.
type Aggregator struct {
	mu   sync.Mutex
	rows map[int]models.DropletRow
}

// NewAggregator creates an empty aggregator
func NewAggregator() *Aggregator {
	return &Aggregator{rows: make(map[int]models.DropletRow)}
}

// Add records the row for one frame. Each frame index may be added once.
func (a *Aggregator) Add(row models.DropletRow) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, exists := a.rows[row.Frame]; exists {
		return apperrors.New(apperrors.ErrorTypeDuplicateFrame, fmt.Sprintf("frame %d", row.Frame), nil)
	}
	a.rows[row.Frame] = row
	return nil
}

// Len returns the number of frames recorded so far
func (a *Aggregator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Table returns the recorded rows ordered by ascending frame index.
// Measurement order within each row is preserved.
func (a *Aggregator) Table() *Table {
	a.mu.Lock()
	defer a.mu.Unlock()

	rows := make([]models.DropletRow, 0, len(a.rows))
	for _, row := range a.rows {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Frame < rows[j].Frame
	})
	return &Table{Rows: rows}
}

// Table is the ragged droplet table: one row per processed frame, ascending
type Table struct {
	Rows []models.DropletRow
}

// Len returns the number of frame rows
func (t *Table) Len() int {
	return len(t.Rows)
}

// Width returns the largest measurement count of any row
func (t *Table) Width() int {
	width := 0
	for _, row := range t.Rows {
		if row.Len() > width {
			width = row.Len()
		}
	}
	return width
}

// Frames returns the frame indices in table order
func (t *Table) Frames() []int {
	frames := make([]int, len(t.Rows))
	for i, row := range t.Rows {
		frames[i] = row.Frame
	}
	return frames
}

// Flatten returns every measurement of every row
func (t *Table) Flatten() []float64 {
	var all []float64
	for _, row := range t.Rows {
		all = append(all, row.Diameters...)
	}
	return all
}

// Cell is one cell of a materialized table. Present is false for ranks
// beyond the row's measurement count.
type Cell struct {
	Value   float64
	Present bool
}

// GridRow is one fixed-width row of a materialized table
type GridRow struct {
	Frame int
	Cells []Cell
}

// Grid is the fixed-width form of a Table
type Grid struct {
	Header []string
	Rows   []GridRow
}

// Materialize pads every row to the table width with absent cells
func (t *Table) Materialize() Grid {
	width := t.Width()

	header := make([]string, 0, width+1)
	header = append(header, FrameColumn)
	for rank := 1; rank <= width; rank++ {
		header = append(header, ParticleColumn(rank))
	}

	rows := make([]GridRow, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]Cell, width)
		for j, d := range row.Diameters {
			cells[j] = Cell{Value: d, Present: true}
		}
		rows[i] = GridRow{Frame: row.Frame, Cells: cells}
	}

	return Grid{Header: header, Rows: rows}
}
