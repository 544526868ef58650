// ABOUTME: File and standard-input sample sources
// ABOUTME: "-" reads from stdin, which is never closed by the stream
package source

import (
	"context"
	"fmt"
	"io"
	"os"
)

const Stdin = "-"

type FileSource struct {
	path  string
	stdin io.Reader
}

func NewFile(path string) *FileSource {
	return &FileSource{path: path, stdin: os.Stdin}
}

// WithStdin replaces the reader used for the "-" path.
func (f *FileSource) WithStdin(r io.Reader) *FileSource {
	f.stdin = r
	return f
}

func (f *FileSource) Connect(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.path == Stdin {
		return io.NopCloser(f.stdin), nil
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open samples: %w", err)
	}
	return file, nil
}
