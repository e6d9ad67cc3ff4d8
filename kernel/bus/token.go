package bus

import (
	"encoding/hex"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/atomic"
)

// TokenSource hands out correlation tokens of the form "<prefix>.<n>".
//
// The prefix is random per source and n grows from 1, so tokens are unique for
// the lifetime of one client. They are not meant to be unguessable.
type TokenSource struct {
	prefix  string
	counter *atomic.Uint64
}

func NewTokenSource() *TokenSource {
	id := uuid.New()

	return NewTokenSourceWithPrefix(hex.EncodeToString(id[:4]))
}

// NewTokenSourceWithPrefix is NewTokenSource with a fixed prefix.
func NewTokenSourceWithPrefix(prefix string) *TokenSource {
	return &TokenSource{
		prefix:  prefix,
		counter: atomic.NewUint64(0),
	}
}

func (s *TokenSource) Prefix() string {
	return s.prefix
}

// Next is safe for concurrent use.
func (s *TokenSource) Next() string {
	return s.prefix + "." + strconv.FormatUint(s.counter.Inc(), 10)
}
