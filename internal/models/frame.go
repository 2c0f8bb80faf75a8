package models

// Frame is a single 8-bit grayscale micrograph taken from a video sequence
type Frame struct {
	// Index is the position of this frame in the source sequence
	Index int

	// Width and Height are the grid dimensions in pixels
	Width  int
	Height int

	// Pix holds one intensity sample per pixel in row-major order
	Pix []uint8

	// Filename is the file the frame was decoded from, empty for in-memory frames
	Filename string
}

// NewFrame allocates a zeroed frame of the given dimensions
func NewFrame(index, width, height int) *Frame {
	return &Frame{
		Index:  index,
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// At returns the intensity at (x, y)
func (f *Frame) At(x, y int) uint8 {
	return f.Pix[y*f.Width+x]
}

// Set stores the intensity at (x, y)
func (f *Frame) Set(x, y int, v uint8) {
	f.Pix[y*f.Width+x] = v
}

// BinaryMask marks each pixel of a frame as foreground or background
type BinaryMask struct {
	Width  int
	Height int

	// Foreground is true where the pixel belongs to a droplet
	Foreground []bool
}

// NewBinaryMask allocates an all-background mask
func NewBinaryMask(width, height int) *BinaryMask {
	return &BinaryMask{
		Width:      width,
		Height:     height,
		Foreground: make([]bool, width*height),
	}
}

// Count returns the number of foreground pixels
func (m *BinaryMask) Count() int {
	n := 0
	for _, fg := range m.Foreground {
		if fg {
			n++
		}
	}
	return n
}

// Region is one connected component of a mask
type Region struct {
	// Label is the component id, starting at 1 in raster-scan discovery order
	Label int

	// Area is the pixel count of the component
	Area int

	// DiameterPx is the equivalent circle diameter in pixels
	DiameterPx float64
}

// DropletRow holds the calibrated diameters measured in one frame, largest first
type DropletRow struct {
	Frame     int
	Diameters []float64
}

// Len returns the number of measurements in the row
func (r DropletRow) Len() int {
	return len(r.Diameters)
}
