package visualization

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"dropletsizer/internal/models"
	"dropletsizer/pkg/aggregation"
	"dropletsizer/pkg/distribution"
)

// createTestMatrix bins two frames: [100, 50] and [120] with width 50
func createTestMatrix(t *testing.T) *distribution.Matrix {
	table := &aggregation.Table{Rows: []models.DropletRow{
		{Frame: 1, Diameters: []float64{100, 50}},
		{Frame: 2, Diameters: []float64{120}},
	}}
	m, err := distribution.NewBinner(50).Bin(table)
	if err != nil {
		t.Fatalf("Failed to bin test table: %v", err)
	}
	return m
}

// TestMeshgrid verifies the coordinate grids line up with the counts
func TestMeshgrid(t *testing.T) {
	viewer := NewViewer(createTestMatrix(t))

	x, y := viewer.Meshgrid()
	z := viewer.Z()

	if len(x) != 2 || len(y) != 2 || len(z) != 2 {
		t.Fatalf("Expected 2 rows in every grid, got %d %d %d", len(x), len(y), len(z))
	}
	for i := range z {
		if len(x[i]) != 2 || len(y[i]) != 2 || len(z[i]) != 2 {
			t.Fatalf("Row %d: expected 2 columns", i)
		}
	}

	if x[1][0] != 75 || x[1][1] != 125 {
		t.Errorf("Expected bin centers on X, got %v", x[1])
	}
	if y[0][1] != 1 || y[1][0] != 2 {
		t.Errorf("Expected frame numbers on Y, got %v", y)
	}
	if z[0][0] != 1 || z[0][1] != 1 || z[1][0] != 0 || z[1][1] != 1 {
		t.Errorf("Unexpected counts %v", z)
	}
}

// TestExtractProfile verifies cuts along both axes
func TestExtractProfile(t *testing.T) {
	viewer := NewViewer(createTestMatrix(t))

	frameProfile, err := viewer.ExtractProfile("frame", 1)
	if err != nil {
		t.Fatalf("Failed to extract frame profile: %v", err)
	}
	if len(frameProfile) != 2 || frameProfile[0] != 0 || frameProfile[1] != 1 {
		t.Errorf("Unexpected frame profile %v", frameProfile)
	}

	binProfile, err := viewer.ExtractProfile("bin", 1)
	if err != nil {
		t.Fatalf("Failed to extract bin profile: %v", err)
	}
	if len(binProfile) != 2 || binProfile[0] != 1 || binProfile[1] != 1 {
		t.Errorf("Unexpected bin profile %v", binProfile)
	}

	if _, err := viewer.ExtractProfile("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
	if _, err := viewer.ExtractProfile("frame", 2); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractProfile("bin", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestHeatmap verifies the image layout and scaling
func TestHeatmap(t *testing.T) {
	viewer := NewViewer(createTestMatrix(t))

	img := viewer.Heatmap(4)
	bounds := img.Bounds()
	if bounds.Dx() != 8 || bounds.Dy() != 8 {
		t.Fatalf("Expected 8x8 heatmap, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("Expected *image.Gray16, got %T", img)
	}
	// Frame 2, first bin is empty
	if v := gray.Gray16At(1, 5).Y; v != 0 {
		t.Errorf("Expected black for zero count, got %d", v)
	}
	// Frame 1, second bin holds the max count
	if v := gray.Gray16At(6, 2).Y; v != 65535 {
		t.Errorf("Expected white for max count, got %d", v)
	}
}

// TestSaveHeatmap verifies both output formats are written
func TestSaveHeatmap(t *testing.T) {
	viewer := NewViewer(createTestMatrix(t))
	dir := t.TempDir()

	for _, name := range []string{"surface.png", filepath.Join("sub", "surface.jpg")} {
		path := filepath.Join(dir, name)
		if err := viewer.SaveHeatmap(path, 8); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}

		file, err := os.Open(path)
		if err != nil {
			t.Fatalf("Failed to open %s: %v", name, err)
		}
		cfg, _, err := image.DecodeConfig(file)
		file.Close()
		if err != nil {
			t.Fatalf("Failed to decode %s: %v", name, err)
		}
		if cfg.Width != 16 || cfg.Height != 16 {
			t.Errorf("%s: expected 16x16, got %dx%d", name, cfg.Width, cfg.Height)
		}
	}
}
