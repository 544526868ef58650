// ABOUTME: Stream couples one ring buffer with one frame extractor
// ABOUTME: Pushes decoded samples, polls for frames after every enqueue and emits them to a sink
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/harper/frame-extractor/internal/domain"
	"github.com/harper/frame-extractor/internal/domain/frame"
	"github.com/harper/frame-extractor/internal/infrastructure/ring"
)

type Config struct {
	ID          string
	Capacity    int
	ElementSize int
	FrameSize   int
	Overlap     int
	BlockSize   int
}

// DecoderFunc wraps a connected source in a sample decoder.
type DecoderFunc func(r io.Reader) domain.SampleDecoder

type Stats struct {
	ID            string
	Instance      string
	SamplesIn     uint64
	Retained      uint64
	Dropped       uint64
	Frames        uint64
	Occupancy     int
	Capacity      int
	FrameSize     int
	Overlap       int
	State         string
	SourceHealthy bool
}

type Stream struct {
	id        string
	instance  string
	blockSize int

	source     domain.StreamSource
	newDecoder DecoderFunc
	sink       domain.FrameSink
	log        logrus.FieldLogger

	mu        sync.Mutex
	buffer    *ring.Buffer
	extractor *frame.Extractor
	seq       uint64
	samplesIn uint64
	retained  uint64
	dropped   uint64

	sourceHealthy atomic.Bool
}

func New(cfg Config, source domain.StreamSource, newDecoder DecoderFunc, sink domain.FrameSink, log logrus.FieldLogger) (*Stream, error) {
	if cfg.BlockSize <= 0 {
		return nil, fmt.Errorf("%w: block size must be positive, got %d", domain.ErrConfiguration, cfg.BlockSize)
	}

	buffer, err := ring.New(cfg.Capacity, cfg.ElementSize)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", cfg.ID, err)
	}
	extractor, err := frame.New(buffer, cfg.ElementSize, cfg.FrameSize, cfg.Overlap)
	if err != nil {
		return nil, fmt.Errorf("stream %s: %w", cfg.ID, err)
	}

	instance := uuid.NewString()
	return &Stream{
		id:         cfg.ID,
		instance:   instance,
		blockSize:  cfg.BlockSize,
		source:     source,
		newDecoder: newDecoder,
		sink:       sink,
		log:        log.WithFields(logrus.Fields{"stream": cfg.ID, "instance": instance}),
		buffer:     buffer,
		extractor:  extractor,
	}, nil
}

func (s *Stream) ID() string {
	return s.id
}

func (s *Stream) Instance() string {
	return s.instance
}

func (s *Stream) SourceHealthy() bool {
	return s.sourceHealthy.Load()
}

// Push enqueues whole elements from samples and emits every frame that
// becomes ready. It returns how many elements the buffer retained; the
// rest were dropped because the buffer was full.
func (s *Stream) Push(samples []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := len(samples) / s.buffer.ElementSize()
	retained := s.buffer.Enqueue(samples, count)

	s.samplesIn += uint64(count)
	s.retained += uint64(retained)
	if dropped := count - retained; dropped > 0 {
		s.dropped += uint64(dropped)
		s.log.WithFields(logrus.Fields{
			"dropped":   dropped,
			"occupancy": s.buffer.Len(),
		}).Debug("ring buffer full, samples dropped")
	}

	return retained, s.drain()
}

func (s *Stream) drain() error {
	for {
		data, ok, err := s.extractor.Poll()
		if err != nil {
			return fmt.Errorf("poll frame: %w", err)
		}
		if !ok {
			return nil
		}

		f := domain.Frame{
			StreamID: s.id,
			Seq:      s.seq,
			Data:     append([]byte(nil), data...),
		}
		s.seq++

		if err := s.sink.Emit(f); err != nil {
			return fmt.Errorf("emit frame %d: %w", f.Seq, err)
		}
	}
}

// Reset drops buffered samples and the saved overlap; the next frame is
// bootstrapped from scratch. Frame sequence numbers keep counting.
func (s *Stream) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	discarded := s.buffer.Len()
	s.buffer.Flush()
	s.extractor.Reset()
	s.log.WithField("discarded", discarded).Info("stream reset")
}

// Pending returns a copy of the buffered samples not yet consumed by a
// frame, oldest first.
func (s *Stream) Pending() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]byte, s.buffer.Len()*s.buffer.ElementSize())
	s.buffer.Peek(out, s.buffer.Len())
	return out
}

func (s *Stream) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		ID:            s.id,
		Instance:      s.instance,
		SamplesIn:     s.samplesIn,
		Retained:      s.retained,
		Dropped:       s.dropped,
		Frames:        s.seq,
		Occupancy:     s.buffer.Len(),
		Capacity:      s.buffer.Cap(),
		FrameSize:     s.extractor.FrameSize(),
		Overlap:       s.extractor.Overlap(),
		State:         s.extractor.State().String(),
		SourceHealthy: s.sourceHealthy.Load(),
	}
}

// Run reads the source block by block until EOF, an error or ctx ends.
// Cancelling ctx closes the source to unblock a pending read.
func (s *Stream) Run(ctx context.Context) error {
	rc, err := s.source.Connect(ctx)
	if err != nil {
		s.sourceHealthy.Store(false)
		return fmt.Errorf("connect source: %w", err)
	}
	defer rc.Close()
	stop := context.AfterFunc(ctx, func() { rc.Close() })
	defer stop()

	s.sourceHealthy.Store(true)
	s.log.Info("source connected")

	dec := s.newDecoder(rc)
	es := s.buffer.ElementSize()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		data, n, err := dec.Next(s.blockSize)
		if n > 0 {
			if _, perr := s.Push(data[:n*es]); perr != nil {
				return perr
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				st := s.Stats()
				s.log.WithFields(logrus.Fields{
					"samples": st.SamplesIn,
					"dropped": st.Dropped,
					"frames":  st.Frames,
					"pending": st.Occupancy,
				}).Info("source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.sourceHealthy.Store(false)
			return fmt.Errorf("read samples: %w", err)
		}
	}
}
