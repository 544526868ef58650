// ABOUTME: Streaming extractor of fixed-size overlapping frames from a ring buffer
// ABOUTME: Two-state machine: bootstrap on a full frame, then slide by the hop size
package frame

import (
	"errors"
	"fmt"

	"github.com/harper/frame-extractor/internal/domain"
)

// ErrElementSizeMismatch is returned by Poll when the source stores
// elements of a different size than the extractor was built for.
var ErrElementSizeMismatch = errors.New("element size mismatch")

// Source is the buffer an Extractor drains. *ring.Buffer satisfies it.
type Source interface {
	Len() int
	ElementSize() int
	Dequeue(out []byte, count int) int
}

type State int

const (
	AwaitingFirstFrame State = iota
	Steady
)

func (s State) String() string {
	switch s {
	case AwaitingFirstFrame:
		return "awaiting_first_frame"
	case Steady:
		return "steady"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Extractor turns buffer occupancy into frames of frameSize elements, each
// sharing its first overlap elements with the tail of the previous frame.
// It keeps all of its state per instance; bind one Extractor to one Source.
type Extractor struct {
	src       Source
	elemSize  int
	frameSize int
	overlap   int

	frame []byte
	tail  []byte
	state State
}

func New(src Source, elementSize, frameSize, overlap int) (*Extractor, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: extractor source is nil", domain.ErrConfiguration)
	}
	if elementSize <= 0 {
		return nil, fmt.Errorf("%w: element size must be positive, got %d", domain.ErrConfiguration, elementSize)
	}
	if frameSize <= 0 {
		return nil, fmt.Errorf("%w: frame size must be positive, got %d", domain.ErrConfiguration, frameSize)
	}
	if overlap < 0 || overlap >= frameSize {
		return nil, fmt.Errorf("%w: overlap %d outside [0, %d)", domain.ErrConfiguration, overlap, frameSize)
	}

	return &Extractor{
		src:       src,
		elemSize:  elementSize,
		frameSize: frameSize,
		overlap:   overlap,
		frame:     make([]byte, frameSize*elementSize),
		tail:      make([]byte, overlap*elementSize),
		state:     AwaitingFirstFrame,
	}, nil
}

func (e *Extractor) FrameSize() int   { return e.frameSize }
func (e *Extractor) Overlap() int     { return e.overlap }
func (e *Extractor) ElementSize() int { return e.elemSize }
func (e *Extractor) State() State     { return e.state }

// HopSize is the number of new elements each frame consumes.
func (e *Extractor) HopSize() int { return e.frameSize - e.overlap }

// Tail returns a copy of the saved overlap tail.
func (e *Extractor) Tail() []byte {
	out := make([]byte, len(e.tail))
	copy(out, e.tail)
	return out
}

// Reset drops the saved tail and waits for a fresh full frame.
func (e *Extractor) Reset() {
	clear(e.tail)
	e.state = AwaitingFirstFrame
}

// Poll emits the next frame when the source holds enough unread elements.
//
// The returned slice belongs to the Extractor and is overwritten by the
// next ready Poll. When ok is false nothing was consumed from the source.
func (e *Extractor) Poll() (frame []byte, ok bool, err error) {
	if got := e.src.ElementSize(); got != e.elemSize {
		return nil, false, fmt.Errorf("%w: %w: source has %d-byte elements, extractor expects %d",
			domain.ErrConfiguration, ErrElementSizeMismatch, got, e.elemSize)
	}

	es := e.elemSize
	switch e.state {
	case AwaitingFirstFrame:
		if e.src.Len() < e.frameSize {
			return nil, false, nil
		}
		if n := e.src.Dequeue(e.frame, e.frameSize); n != e.frameSize {
			return nil, false, fmt.Errorf("short dequeue: got %d of %d elements", n, e.frameSize)
		}
		e.state = Steady

	case Steady:
		hop := e.HopSize()
		if e.src.Len() < hop {
			return nil, false, nil
		}
		copy(e.frame[:e.overlap*es], e.tail)
		if n := e.src.Dequeue(e.frame[e.overlap*es:], hop); n != hop {
			return nil, false, fmt.Errorf("short dequeue: got %d of %d elements", n, hop)
		}

	default:
		return nil, false, fmt.Errorf("unknown extractor state %v", e.state)
	}

	copy(e.tail, e.frame[(e.frameSize-e.overlap)*es:])
	return e.frame, true, nil
}
