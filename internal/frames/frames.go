// Package frames provides temporal frame sampling from video files.
// It defines the Sampler interface (port) and an implementation backed
// by the ffmpeg CLI.
package frames

import (
	"context"
	"errors"
	"fmt"
)

// ErrInvalidStride is returned when the sampling stride is not positive.
var ErrInvalidStride = errors.New("invalid stride: must be >= 1")

// Result describes the outcome of a frame extraction.
type Result struct {
	// FramePaths contains the extracted frame files in kept order.
	FramePaths []string
	// FrameCount is the number of frames written.
	FrameCount int
}

// Sampler extracts a sampled sequence of frames from a video file.
type Sampler interface {
	// Extract decodes sourcePath and writes every stride-th frame
	// (decoded frame i is kept iff i mod stride == 0) to outputDir as
	// sequentially numbered images. The output directory is created if
	// absent. A source that decodes to zero frames is not an error and
	// yields an empty Result. Partial output written before a failure is
	// left for the caller, which owns the directory's lifetime.
	Extract(ctx context.Context, sourcePath, outputDir string, stride int) (*Result, error)
}

// DecodeError represents a failed decode, including the ffmpeg stderr output.
type DecodeError struct {
	Source string
	Stderr string
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v: %s", e.Source, e.Err, e.Stderr)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
