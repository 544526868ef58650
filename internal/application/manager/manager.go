// ABOUTME: Stream manager for lifecycle and lookup
// ABOUTME: Creates streams from config, runs their sources and closes their outputs
package manager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/harper/frame-extractor/internal/application/config"
	"github.com/harper/frame-extractor/internal/domain"
	"github.com/harper/frame-extractor/internal/domain/stream"
	"github.com/harper/frame-extractor/internal/infrastructure/codec"
	"github.com/harper/frame-extractor/internal/infrastructure/sink"
	"github.com/harper/frame-extractor/internal/infrastructure/source"
)

type options struct {
	stdin  io.Reader
	stdout io.Writer
}

// Option configures a Manager.
type Option func(*options)

// WithStdin sets the reader behind source path "-". Defaults to os.Stdin.
func WithStdin(r io.Reader) Option {
	return func(o *options) {
		o.stdin = r
	}
}

// WithStdout sets the writer behind output path "-". Defaults to os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(o *options) {
		o.stdout = w
	}
}

type Manager struct {
	streams    map[string]*stream.Stream
	formats    map[string]codec.Format
	collectors map[string]*sink.Collector
	outputs    []io.Closer
	log        logrus.FieldLogger

	mu     sync.RWMutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
	errs   []error
	errMu  sync.Mutex
}

func NewFromConfig(cfg *config.Config, log logrus.FieldLogger, opts ...Option) (*Manager, error) {
	o := options{stdin: os.Stdin, stdout: os.Stdout}
	for _, opt := range opts {
		opt(&o)
	}

	mgr := &Manager{
		streams:    make(map[string]*stream.Stream),
		formats:    make(map[string]codec.Format),
		collectors: make(map[string]*sink.Collector),
		log:        log,
		done:       make(chan struct{}),
	}

	for _, stCfg := range cfg.Streams {
		format, err := codec.Parse(stCfg.Format)
		if err != nil {
			mgr.closeOutputs()
			return nil, fmt.Errorf("stream %s: %w", stCfg.ID, err)
		}

		src, err := newSource(stCfg.Source, o.stdin)
		if err != nil {
			mgr.closeOutputs()
			return nil, fmt.Errorf("stream %s: %w", stCfg.ID, err)
		}

		out, err := mgr.openSink(stCfg, format, o.stdout)
		if err != nil {
			mgr.closeOutputs()
			return nil, fmt.Errorf("stream %s: %w", stCfg.ID, err)
		}

		streamCfg := stream.Config{
			ID:          stCfg.ID,
			Capacity:    stCfg.Buffer.Capacity,
			ElementSize: stCfg.ElementSize(),
			FrameSize:   stCfg.Frame.Size,
			Overlap:     stCfg.Frame.Overlap,
			BlockSize:   stCfg.BlockSize,
		}
		decoder := func(r io.Reader) domain.SampleDecoder {
			return codec.NewScanner(r, format)
		}

		st, err := stream.New(streamCfg, src, decoder, out, log)
		if err != nil {
			mgr.closeOutputs()
			return nil, err
		}

		mgr.streams[stCfg.ID] = st
		mgr.formats[stCfg.ID] = format
	}

	return mgr, nil
}

func newSource(cfg config.SourceConfig, stdin io.Reader) (domain.StreamSource, error) {
	switch {
	case cfg.URL != "" && cfg.Path != "":
		return nil, fmt.Errorf("%w: source needs one of url or path, got both", domain.ErrConfiguration)
	case cfg.URL != "":
		return source.NewHTTP(source.HTTPConfig{
			URL:            cfg.URL,
			ConnectTimeout: time.Duration(cfg.ConnectTimeoutMs) * time.Millisecond,
			Headers:        cfg.RequestHeaders,
		}), nil
	case cfg.Path != "":
		return source.NewFile(cfg.Path).WithStdin(stdin), nil
	default:
		return nil, fmt.Errorf("%w: source needs one of url or path", domain.ErrConfiguration)
	}
}

func (m *Manager) openSink(cfg config.StreamConfig, format codec.Format, stdout io.Writer) (domain.FrameSink, error) {
	if cfg.Output.Kind == config.OutputMemory {
		c := sink.NewCollector(cfg.Output.Limit)
		m.collectors[cfg.ID] = c
		return c, nil
	}

	path := cfg.Output.Path
	if path == "" || path == "-" {
		return sink.NewWriter(stdout, format), nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("open output: %w", err)
	}
	m.outputs = append(m.outputs, f)
	return sink.NewWriter(f, format), nil
}

func (m *Manager) Get(id string) *stream.Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.streams[id]
}

// Format returns the sample format of stream id.
func (m *Manager) Format(id string) (codec.Format, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.formats[id]
	return f, ok
}

// Collector returns the memory output of stream id, or nil when the
// stream writes its frames elsewhere.
func (m *Manager) Collector(id string) *sink.Collector {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectors[id]
}

// List returns the streams ordered by ID.
func (m *Manager) List() []*stream.Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*stream.Stream, 0, len(m.streams))
	for _, st := range m.streams {
		result = append(result, st)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID() < result[j].ID()
	})
	return result
}

// Start runs every stream in its own goroutine. Done is closed once all
// of them have returned.
func (m *Manager) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		cancel()
		return errors.New("manager already started")
	}
	m.cancel = cancel
	m.mu.Unlock()

	for _, st := range m.List() {
		m.wg.Add(1)
		go func(st *stream.Stream) {
			defer m.wg.Done()
			if err := st.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.WithError(err).WithField("stream", st.ID()).Error("stream stopped")
				m.errMu.Lock()
				m.errs = append(m.errs, fmt.Errorf("stream %s: %w", st.ID(), err))
				m.errMu.Unlock()
			}
		}(st)
	}

	go func() {
		m.wg.Wait()
		close(m.done)
	}()

	return nil
}

func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Wait blocks until every stream has returned and reports their failures.
func (m *Manager) Wait() error {
	<-m.done
	m.errMu.Lock()
	defer m.errMu.Unlock()
	return errors.Join(m.errs...)
}

func (m *Manager) Shutdown() error {
	m.mu.RLock()
	cancel := m.cancel
	m.mu.RUnlock()

	var err error
	if cancel != nil {
		cancel()
		err = m.Wait()
	}

	if cerr := m.closeOutputs(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

func (m *Manager) closeOutputs() error {
	var errs []error
	for _, c := range m.outputs {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.outputs = nil
	return errors.Join(errs...)
}
