package frames

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// framePattern is the output filename template. Kept frames are numbered
// monotonically from zero regardless of their original decode position.
const framePattern = "frame_%05d.jpg"

// FFmpegSampler implements Sampler using the ffmpeg CLI.
type FFmpegSampler struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegSampler creates a new FFmpegSampler.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegSampler(ffmpegPath string) *FFmpegSampler {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegSampler{ffmpegPath: ffmpegPath}
}

// Extract decodes sourcePath and writes every stride-th frame to outputDir.
func (s *FFmpegSampler) Extract(ctx context.Context, sourcePath, outputDir string, stride int) (*Result, error) {
	if stride < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidStride, stride)
	}

	if err := os.MkdirAll(outputDir, 0750); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	// The select filter keeps decoded frame n iff n mod stride == 0; vfr
	// output avoids duplicating the kept frames to fill the original rate.
	filter := fmt.Sprintf("select=not(mod(n\\,%d))", stride)

	args := []string{
		"-y", // Overwrite existing frames without asking
		"-i", sourcePath,
		"-vf", filter,
		"-vsync", "vfr",
		"-start_number", "0",
		"-q:v", "2",
		filepath.Join(outputDir, framePattern),
	}

	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, s.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		// A source that decodes cleanly to zero frames makes ffmpeg
		// complain about an empty output; per contract that is a valid
		// empty extraction, not a decode failure.
		if strings.Contains(stderr.String(), "Output file is empty") {
			return &Result{}, nil
		}
		return nil, &DecodeError{
			Source: sourcePath,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	paths, err := filepath.Glob(filepath.Join(outputDir, "frame_*.jpg"))
	if err != nil {
		return nil, fmt.Errorf("list extracted frames: %w", err)
	}

	return &Result{
		FramePaths: paths,
		FrameCount: len(paths),
	}, nil
}
