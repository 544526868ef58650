// ABOUTME: Text frame sink writing one line per emitted frame
// ABOUTME: Renders elements through the stream's sample format
package sink

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/harper/frame-extractor/internal/domain"
	"github.com/harper/frame-extractor/internal/infrastructure/codec"
)

// Writer writes frames as "<stream> <seq>: v0 v1 ...".
type Writer struct {
	w      io.Writer
	format codec.Format
	mu     sync.Mutex
}

func NewWriter(w io.Writer, f codec.Format) *Writer {
	return &Writer{w: w, format: f}
}

func (s *Writer) Emit(f domain.Frame) error {
	line := fmt.Sprintf("%s %d: %s\n", f.StreamID, f.Seq, strings.Join(s.format.DecodeAll(f.Data), " "))

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, line); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}
