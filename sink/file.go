package sink

import (
	"fmt"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/MacroScale/macroscale-game-capture/provider"
)

// FileSink writes frames to disk as PNG or JPEG.
//
// Thread-safe: counters are atomic and each Consume writes its own file.
type FileSink struct {
	outputDir   string
	format      string
	jpegQuality int

	seq          atomic.Uint64
	framesSaved  atomic.Uint64
	framesFailed atomic.Uint64
}

// NewFileSink creates a file sink with the given output directory and
// format.
//
// Format: "png" or "jpeg"
// JPEGQuality: 1-100 (only used for JPEG)
func NewFileSink(outputDir, format string, jpegQuality int) (*FileSink, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	if format != "png" && format != "jpeg" {
		return nil, fmt.Errorf("unsupported format: %s (must be png or jpeg)", format)
	}

	return &FileSink{
		outputDir:   outputDir,
		format:      format,
		jpegQuality: jpegQuality,
	}, nil
}

// Consume encodes one frame and writes it to disk.
//
// Filename format: frame_{seq:06d}_{timestamp}.{ext}
// Example: frame_000042_20260825_234517.123.png
func (fs *FileSink) Consume(format provider.BufferFormat, data []byte, width, height int) error {
	img, err := toRGBA(format, data, width, height)
	if err != nil {
		fs.framesFailed.Add(1)
		return err
	}

	filename := fmt.Sprintf("frame_%06d_%s.%s",
		fs.seq.Add(1),
		time.Now().Format("20060102_150405.000"),
		fs.format)
	path := filepath.Join(fs.outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		fs.framesFailed.Add(1)
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	switch fs.format {
	case "png":
		if err := png.Encode(file, img); err != nil {
			fs.framesFailed.Add(1)
			return fmt.Errorf("PNG encode failed: %w", err)
		}
	case "jpeg":
		if err := jpeg.Encode(file, img, &jpeg.Options{Quality: fs.jpegQuality}); err != nil {
			fs.framesFailed.Add(1)
			return fmt.Errorf("JPEG encode failed: %w", err)
		}
	}

	fs.framesSaved.Add(1)
	return nil
}

// Stats returns current save statistics.
func (fs *FileSink) Stats() (saved, failed uint64) {
	return fs.framesSaved.Load(), fs.framesFailed.Load()
}
