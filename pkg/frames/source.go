// Package frames loads 8-bit grayscale frames by index from image files.
package frames

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"

	apperrors "dropletsizer/internal/errors"
	"dropletsizer/internal/models"
)

// Source provides frames by index
type Source interface {
	// Load returns the frame at index. A frame that does not exist yields an
	// error matching apperrors.ErrMissingFrameFile.
	Load(index int) (*models.Frame, error)
}

// VideoDecoder extracts a single grayscale frame from a video container.
// Decoding video is left to external tooling; the pipeline only consumes frames.
type VideoDecoder interface {
	DecodeFrame(containerPath string, offset int) (*models.Frame, error)
}

// DirectorySource reads one image file per frame from a directory
type DirectorySource struct {
	Dir string

	// Pattern formats a frame index into a file name, e.g. "frame_%04d.TIF"
	Pattern string
}

// NewDirectorySource creates a source reading dir/fmt.Sprintf(pattern, index)
func NewDirectorySource(dir, pattern string) *DirectorySource {
	return &DirectorySource{Dir: dir, Pattern: pattern}
}

// Path returns the file path for a frame index
func (s *DirectorySource) Path(index int) string {
	return filepath.Join(s.Dir, fmt.Sprintf(s.Pattern, index))
}

// Load decodes the frame file for index
func (s *DirectorySource) Load(index int) (*models.Frame, error) {
	path := s.Path(index)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewMissingFrameFileError(filepath.Base(path), err)
		}
		return nil, fmt.Errorf("failed to open frame %d: %w", index, err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, apperrors.NewDecodeError(filepath.Base(path), err)
	}

	frame := FromImage(index, img)
	frame.Filename = path
	return frame, nil
}

// FromImage converts any image to an 8-bit grayscale frame
func FromImage(index int, img image.Image) *models.Frame {
	bounds := img.Bounds()

	gray, ok := img.(*image.Gray)
	if !ok {
		gray = image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	}

	frame := models.NewFrame(index, bounds.Dx(), bounds.Dy())
	gb := gray.Bounds()
	for y := 0; y < frame.Height; y++ {
		off := gray.PixOffset(gb.Min.X, gb.Min.Y+y)
		copy(frame.Pix[y*frame.Width:(y+1)*frame.Width], gray.Pix[off:off+frame.Width])
	}
	return frame
}

// ToImage converts a frame to an image.Gray
func ToImage(frame *models.Frame) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, frame.Width, frame.Height))
	copy(img.Pix, frame.Pix)
	return img
}

// MaskImage renders a mask as black background with white foreground
func MaskImage(mask *models.BinaryMask) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, mask.Width, mask.Height))
	for i, fg := range mask.Foreground {
		if fg {
			img.Pix[i] = 255
		}
	}
	return img
}

// SaveImage writes a grayscale image, choosing TIFF or PNG by extension
func SaveImage(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	defer file.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		err = png.Encode(file, img)
	}
	if err != nil {
		return fmt.Errorf("failed to encode image: %w", err)
	}
	return nil
}
