// Package export writes the droplet table and distribution matrix as delimited
// text and reads previously written droplet tables back.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
	"dropletsizer/pkg/aggregation"
	"dropletsizer/pkg/distribution"
)

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteTable writes the table with a Frame_number column followed by one
// Particle_N column per rank. Ranks a frame does not reach are left empty.
func WriteTable(w io.Writer, table *aggregation.Table) error {
	if table == nil || table.Len() == 0 {
		return apperrors.NewEmptyDatasetError("no frames were processed")
	}

	grid := table.Materialize()
	cw := csv.NewWriter(w)
	if err := cw.Write(grid.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(grid.Header))
	for _, row := range grid.Rows {
		record[0] = strconv.Itoa(row.Frame)
		for i, cell := range row.Cells {
			if cell.Present {
				record[i+1] = formatValue(cell.Value)
			} else {
				record[i+1] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", row.Frame, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteTableFile writes the table to path. Nothing is created for an empty table.
func WriteTableFile(path string, table *aggregation.Table) error {
	if table == nil || table.Len() == 0 {
		return apperrors.NewEmptyDatasetError("no frames were processed")
	}
	return writeFile(path, func(w io.Writer) error {
		return WriteTable(w, table)
	})
}

// ReadTable parses a table written by WriteTable. Empty cells are absent values.
func ReadTable(r io.Reader) (*aggregation.Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, apperrors.NewMissingAggregatedTableError("table is empty", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	agg := aggregation.NewAggregator()
	for line := 2; ; line++ {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		frame, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid frame number %q: %w", line, record[0], err)
		}

		diameters := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: invalid measurement %q: %w", line, field, err)
			}
			diameters = append(diameters, v)
		}

		if err := agg.Add(models.DropletRow{Frame: frame, Diameters: diameters}); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	return agg.Table(), nil
}

// ReadTableFile reads a table from path
func ReadTableFile(path string) (*aggregation.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingAggregatedTableError(path, err)
		}
		return nil, fmt.Errorf("failed to open table: %w", err)
	}
	defer file.Close()

	return ReadTable(file)
}

func checkHeader(header []string) error {
	if len(header) == 0 || strings.TrimSpace(header[0]) != aggregation.FrameColumn {
		return fmt.Errorf("table header must start with %s", aggregation.FrameColumn)
	}
	for i, name := range header[1:] {
		if strings.TrimSpace(name) != aggregation.ParticleColumn(i+1) {
			return fmt.Errorf("unexpected column %q, want %s", name, aggregation.ParticleColumn(i+1))
		}
	}
	return nil
}

// WriteDistribution writes one row per frame with the count of every bin.
// The header carries the bin centers so a renderer can rebuild both axes.
func WriteDistribution(w io.Writer, m *distribution.Matrix) error {
	header := make([]string, 0, len(m.BinCenters)+1)
	header = append(header, aggregation.FrameColumn)
	for _, c := range m.BinCenters {
		header = append(header, formatValue(c))
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(header))
	for i, frame := range m.Frames {
		record[0] = strconv.Itoa(frame)
		for j := range m.BinCenters {
			record[j+1] = strconv.Itoa(m.At(i, j))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write frame %d: %w", frame, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteDistributionFile writes the matrix to path
func WriteDistributionFile(path string, m *distribution.Matrix) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteDistribution(w, m)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	if err := write(file); err != nil {
		file.Close()
		os.Remove(path)
		return err
	}
	return file.Close()
}
