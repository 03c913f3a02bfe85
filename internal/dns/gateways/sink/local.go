package sink

import (
	"fmt"
	"io"
	"sync"

	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// LocalSink writes documents to an io.Writer, normally os.Stdout.
type LocalSink struct {
	*state
	mu sync.Mutex
	w  io.Writer
}

// NewLocal returns a sink writing to w.
func NewLocal(w io.Writer) *LocalSink {
	return &LocalSink{state: newState(), w: w}
}

// Emit writes doc followed by a newline. A write failure breaks the sink.
func (s *LocalSink) Emit(doc *domain.Document) error {
	if err := s.Err(); err != nil {
		return err
	}
	line, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		err = fmt.Errorf("%w: write: %v", ErrSinkClosed, err)
		s.fail(err)
		return err
	}
	return nil
}

// Close marks the sink closed. The writer is owned by the caller.
func (s *LocalSink) Close() error {
	s.fail(ErrSinkClosed)
	return nil
}
