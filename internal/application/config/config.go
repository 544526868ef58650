// ABOUTME: YAML configuration parsing and validation
// ABOUTME: Defines buffer, frame, source and output settings for each stream
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harper/frame-extractor/internal/domain"
	"github.com/harper/frame-extractor/internal/infrastructure/codec"
	"github.com/harper/frame-extractor/internal/infrastructure/source"
)

type Config struct {
	Listen  ListenConfig   `yaml:"listen"`
	Streams []StreamConfig `yaml:"streams"`
	Logging LoggingConfig  `yaml:"logging"`
}

// ListenConfig addresses the status server. Port 0 disables it.
type ListenConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type StreamConfig struct {
	ID        string       `yaml:"id"`
	Format    string       `yaml:"format"`
	Buffer    BufferConfig `yaml:"buffer"`
	Frame     FrameConfig  `yaml:"frame"`
	BlockSize int          `yaml:"block_size"`
	Source    SourceConfig `yaml:"source"`
	Output    OutputConfig `yaml:"output"`
}

type BufferConfig struct {
	Capacity int `yaml:"capacity"`
}

type FrameConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

type SourceConfig struct {
	Path             string            `yaml:"path"`
	URL              string            `yaml:"url"`
	RequestHeaders   map[string]string `yaml:"request_headers"`
	ConnectTimeoutMs int               `yaml:"connect_timeout_ms"`
}

// Output kinds. A memory output keeps frames for GET /{id}/frames.
const (
	OutputFile   = "file"
	OutputMemory = "memory"
)

type OutputConfig struct {
	Kind  string `yaml:"kind"`
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"` // memory only; 0 keeps every frame
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// ElementSize is the byte size of one sample in the stream's format.
func (s StreamConfig) ElementSize() int {
	return codec.Format(s.Format).Size()
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) ApplyDefaults() {
	if c.Listen.Host == "" {
		c.Listen.Host = "127.0.0.1"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	for i := range c.Streams {
		st := &c.Streams[i]
		if st.Format == "" {
			st.Format = string(codec.Int16)
		}
		if st.BlockSize == 0 {
			st.BlockSize = 1
		}
		if st.Output.Kind == "" {
			st.Output.Kind = OutputFile
		}
		if st.Output.Kind == OutputFile && st.Output.Path == "" {
			st.Output.Path = "-"
		}
		if st.Source.URL != "" && st.Source.ConnectTimeoutMs == 0 {
			st.Source.ConnectTimeoutMs = 5000
		}
	}
}

func (c *Config) Validate() error {
	if len(c.Streams) == 0 {
		return fmt.Errorf("%w: no streams configured", domain.ErrConfiguration)
	}
	if c.Listen.Port < 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("%w: listen port %d out of range", domain.ErrConfiguration, c.Listen.Port)
	}

	var errs []error
	seen := make(map[string]bool, len(c.Streams))
	// stdin and output files can each feed only one stream
	var stdinBy string
	outputBy := make(map[string]string)
	for i, st := range c.Streams {
		if st.ID == "" {
			errs = append(errs, fmt.Errorf("stream %d: missing id", i))
			continue
		}
		if strings.Contains(st.ID, "/") {
			errs = append(errs, fmt.Errorf("stream %q: id must not contain '/'", st.ID))
			continue
		}
		if seen[st.ID] {
			errs = append(errs, fmt.Errorf("stream %q: duplicate id", st.ID))
			continue
		}
		seen[st.ID] = true

		if err := st.validate(); err != nil {
			errs = append(errs, fmt.Errorf("stream %q: %w", st.ID, err))
			continue
		}

		if st.Source.Path == source.Stdin {
			if stdinBy != "" {
				errs = append(errs, fmt.Errorf("stream %q: stdin source already read by stream %q", st.ID, stdinBy))
			} else {
				stdinBy = st.ID
			}
		}
		if st.Output.Kind != OutputMemory && st.Output.Path != "" && st.Output.Path != "-" {
			if other, ok := outputBy[st.Output.Path]; ok {
				errs = append(errs, fmt.Errorf("stream %q: output path %q already written by stream %q", st.ID, st.Output.Path, other))
			} else {
				outputBy[st.Output.Path] = st.ID
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, errors.Join(errs...))
	}
	return nil
}

func (s StreamConfig) validate() error {
	if _, err := codec.Parse(s.Format); err != nil {
		return fmt.Errorf("format %q unknown", s.Format)
	}
	if s.Buffer.Capacity <= 0 {
		return fmt.Errorf("buffer capacity must be positive, got %d", s.Buffer.Capacity)
	}
	if s.Frame.Size <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", s.Frame.Size)
	}
	if s.Frame.Overlap < 0 || s.Frame.Overlap >= s.Frame.Size {
		return fmt.Errorf("frame overlap %d outside [0, %d)", s.Frame.Overlap, s.Frame.Size)
	}
	if s.Frame.Size > s.Buffer.Capacity {
		return fmt.Errorf("frame size %d exceeds buffer capacity %d", s.Frame.Size, s.Buffer.Capacity)
	}
	if s.BlockSize <= 0 {
		return fmt.Errorf("block size must be positive, got %d", s.BlockSize)
	}
	if (s.Source.Path == "") == (s.Source.URL == "") {
		return errors.New("source needs exactly one of path or url")
	}
	switch s.Output.Kind {
	case "", OutputFile:
	case OutputMemory:
		if s.Output.Limit < 0 {
			return fmt.Errorf("output limit must not be negative, got %d", s.Output.Limit)
		}
	default:
		return fmt.Errorf("output kind %q unknown", s.Output.Kind)
	}
	return nil
}
