// ABOUTME: Reads whitespace-separated numeric samples into element blocks
// ABOUTME: Implements domain.SampleDecoder over any io.Reader
package codec

import (
	"bufio"
	"fmt"
	"io"
)

// Scanner decodes samples in the given format, one token per sample.
type Scanner struct {
	format Format
	sc     *bufio.Scanner
	seen   int
}

func NewScanner(r io.Reader, f Format) *Scanner {
	sc := bufio.NewScanner(r)
	sc.Split(bufio.ScanWords)
	return &Scanner{format: f, sc: sc}
}

// Next returns up to n encoded samples. A short block comes back with a
// nil error; once the input is exhausted it returns io.EOF.
func (s *Scanner) Next(n int) ([]byte, int, error) {
	if n <= 0 {
		return nil, 0, nil
	}

	size := s.format.Size()
	out := make([]byte, 0, n*size)
	count := 0
	for count < n {
		if !s.sc.Scan() {
			if err := s.sc.Err(); err != nil {
				return out, count, fmt.Errorf("scan samples: %w", err)
			}
			if count == 0 {
				return nil, 0, io.EOF
			}
			return out, count, nil
		}
		s.seen++

		out = out[:len(out)+size]
		if err := s.format.put(out[len(out)-size:], s.sc.Text()); err != nil {
			return out[:len(out)-size], count, fmt.Errorf("sample %d: %w", s.seen, err)
		}
		count++
	}
	return out, count, nil
}
