package transport

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// WriterSink writes newline-terminated lines to an io.Writer.
// Concurrent WriteLine calls never interleave within a line.
type WriterSink struct {
	w      *bufio.Writer
	closer io.Closer
	mu     sync.Mutex
	closed bool
}

func NewWriterSink(w io.Writer) *WriterSink {
	sink := &WriterSink{w: bufio.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		sink.closer = c
	}

	return sink
}

func (s *WriterSink) WriteLine(ctx context.Context, line string) error {
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
	}

	if strings.ContainsAny(line, "\r\n") {
		return ErrMultiline
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSinkClosed
	}

	if _, err := s.w.WriteString(line); err != nil {
		return err
	}

	// newline-delimited framing: the newline tells the peer the envelope is complete
	if err := s.w.WriteByte('\n'); err != nil {
		return err
	}

	return s.w.Flush()
}

// Close closes the underlying writer when it is an io.Closer.
func (s *WriterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true

	if s.closer != nil {
		return s.closer.Close()
	}

	return nil
}
