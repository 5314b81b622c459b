// SPDX-License-Identifier: MIT
package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// TextSink writes one line per record using its String method.
type TextSink struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Send(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	_, err := fmt.Fprintln(s.w, data)
	return err
}

func (s *TextSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// JSONSink writes newline-delimited JSON.
type JSONSink struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closed bool
}

func NewJSONSink(w io.Writer) *JSONSink {
	return &JSONSink{enc: json.NewEncoder(w)}
}

func (s *JSONSink) Send(data any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if err := s.enc.Encode(data); err != nil {
		return fmt.Errorf("sink: encode %T: %w", data, err)
	}
	return nil
}

func (s *JSONSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

var (
	_ Sink = (*TextSink)(nil)
	_ Sink = (*JSONSink)(nil)
)
