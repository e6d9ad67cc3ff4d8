package transport

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"go.uber.org/atomic"

	"github.com/shortlink-org/kernel-client/logger"
)

// DefaultMaxLineBytes bounds a single inbound line.
const DefaultMaxLineBytes = 4 << 20

const readBufferSize = 64 << 10

// ReaderSource pumps newline-delimited lines from an io.Reader once started.
//
// Lines longer than the limit are truncated rather than ending the pump, so the
// client sees them as unparseable lines.
type ReaderSource struct {
	r        io.Reader
	log      logger.Logger
	err      error
	done     chan struct{}
	handlers handlerSet
	maxLine  int
	started  *atomic.Bool
	closed   *atomic.Bool
	errMu    sync.Mutex
	once     sync.Once
}

// ReaderOption configures a ReaderSource.
type ReaderOption func(*ReaderSource)

func WithMaxLineBytes(n int) ReaderOption {
	return func(s *ReaderSource) {
		if n > 0 {
			s.maxLine = n
		}
	}
}

func WithReaderLogger(log logger.Logger) ReaderOption {
	return func(s *ReaderSource) {
		if log != nil {
			s.log = log
		}
	}
}

func NewReaderSource(r io.Reader, opts ...ReaderOption) *ReaderSource {
	s := &ReaderSource{
		r:       r,
		log:     logger.Nop(),
		done:    make(chan struct{}),
		maxLine: DefaultMaxLineBytes,
		started: atomic.NewBool(false),
		closed:  atomic.NewBool(false),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *ReaderSource) Subscribe(h LineHandler) func() {
	return s.handlers.add(h)
}

// Start launches the pump. Calling it again is a no-op.
// Cancelling ctx closes the underlying reader when it is an io.Closer.
func (s *ReaderSource) Start(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSourceClosed
	}

	if !s.started.CompareAndSwap(false, true) {
		return nil
	}

	if ctx == nil {
		ctx = context.Background()
	}

	go s.pump(ctx)

	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-s.done:
		}
	}()

	return nil
}

// Done is closed when the pump stops.
func (s *ReaderSource) Done() <-chan struct{} {
	return s.done
}

// Err reports why the pump stopped; nil for a clean EOF.
func (s *ReaderSource) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()

	return s.err
}

// Close closes the reader when it is an io.Closer. A source that was never
// started is marked done immediately.
func (s *ReaderSource) Close() error {
	var err error

	s.once.Do(func() {
		s.closed.Store(true)

		if c, ok := s.r.(io.Closer); ok {
			err = c.Close()
		}

		if s.started.CompareAndSwap(false, true) {
			close(s.done)
		}
	})

	return err
}

func (s *ReaderSource) pump(ctx context.Context) {
	defer close(s.done)

	br := bufio.NewReaderSize(s.r, readBufferSize)

	for {
		line, err := s.readLine(br)
		if err == nil || line != "" {
			s.handlers.dispatch(line)
		}

		if err != nil {
			s.finish(err)

			return
		}

		if ctx.Err() != nil {
			return
		}
	}
}

func (s *ReaderSource) finish(err error) {
	if errors.Is(err, io.EOF) || s.closed.Load() {
		return
	}

	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()

	s.log.Error("inbound reader stopped", "reason", err.Error())
}

// readLine returns the next line without its terminator, truncated to maxLine bytes.
func (s *ReaderSource) readLine(br *bufio.Reader) (string, error) {
	var (
		buf       []byte
		truncated bool
	)

	for {
		chunk, err := br.ReadSlice('\n')

		switch room := s.maxLine - len(buf); {
		case len(chunk) <= room:
			buf = append(buf, chunk...)
		case room > 0:
			buf = append(buf, chunk[:room]...)
			truncated = true
		default:
			truncated = true
		}

		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		if truncated {
			s.log.Warn("inbound line truncated", "limit", s.maxLine)
		}

		return strings.TrimRight(string(buf), "\r\n"), err
	}
}
