// Package sink delivers canonical documents as newline-delimited JSON, either
// to a local writer (stdout) or to one persistent outbound TCP connection.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// ErrSinkClosed is returned by Emit once the sink can no longer deliver.
var ErrSinkClosed = errors.New("sink closed")

// Sink is the destination of mapped documents. Emit is safe for concurrent use.
type Sink interface {
	// Emit serializes doc as one JSON line and delivers it.
	Emit(doc *domain.Document) error
	// Done is closed when the sink breaks or is closed.
	Done() <-chan struct{}
	// Err reports why Done was closed, nil while the sink is healthy.
	Err() error
	// Close releases the sink's resources.
	Close() error
}

// New returns a RemoteSink connected to remoteAddr, or a LocalSink writing to
// stdout when remoteAddr is empty.
func New(ctx context.Context, remoteAddr string, stdout io.Writer, logger log.Logger) (Sink, error) {
	if remoteAddr == "" {
		logger.Info(nil, "forwarding to stdout")
		return NewLocal(stdout), nil
	}
	return Dial(ctx, remoteAddr, logger)
}

// encode renders doc as a single compact JSON line.
func encode(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}

// state tracks the first failure of a sink and closes done exactly once.
type state struct {
	once  sync.Once
	done  chan struct{}
	errMu sync.Mutex
	err   error
}

func newState() *state {
	return &state{done: make(chan struct{})}
}

func (s *state) fail(err error) {
	s.once.Do(func() {
		s.errMu.Lock()
		s.err = err
		s.errMu.Unlock()
		close(s.done)
	})
}

func (s *state) Done() <-chan struct{} { return s.done }

func (s *state) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}
