// ABOUTME: Domain interfaces for dependency inversion
// ABOUTME: Lets a stream depend on sample sources and frame sinks, not concrete implementations
package domain

import (
	"context"
	"io"
)

// StreamSource provides the raw sample stream
type StreamSource interface {
	Connect(ctx context.Context) (io.ReadCloser, error)
}

// SampleDecoder turns raw input into encoded elements, up to n at a time.
// It returns the element bytes, how many elements they hold, and io.EOF
// once the input is exhausted.
type SampleDecoder interface {
	Next(n int) ([]byte, int, error)
}

// Frame is one emitted, overlapping window of elements
type Frame struct {
	StreamID string
	Seq      uint64
	Data     []byte
}

// FrameSink consumes emitted frames
type FrameSink interface {
	Emit(f Frame) error
}
