package sink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// RemoteSink writes documents to one outbound TCP connection. There is no
// reconnect: once the peer goes away every Emit fails.
type RemoteSink struct {
	*state
	mu     sync.Mutex
	conn   net.Conn
	logger log.Logger
	wg     sync.WaitGroup
}

// Dial connects to addr and starts watching the connection.
func Dial(ctx context.Context, addr string, logger log.Logger) (*RemoteSink, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to remote %s: %w", addr, err)
	}

	s := &RemoteSink{
		state:  newState(),
		conn:   conn,
		logger: logger.With(map[string]any{"remote": addr}),
	}
	s.wg.Add(1)
	go s.watch()

	s.logger.Info(nil, "connected to remote")
	return s, nil
}

// watch reads the socket so that a peer close is noticed even while no
// documents are being written. The collector is not expected to send data.
func (s *RemoteSink) watch() {
	defer s.wg.Done()
	_, err := io.Copy(io.Discard, s.conn)
	select {
	case <-s.done:
		return
	default:
	}
	if err == nil {
		err = io.EOF
	}
	s.logger.Error(map[string]any{"error": err}, "remote connection lost")
	s.fail(fmt.Errorf("%w: %v", ErrSinkClosed, err))
	_ = s.conn.Close()
}

// Emit writes doc to the connection. Writes from concurrent callers are
// serialized so lines never interleave.
func (s *RemoteSink) Emit(doc *domain.Document) error {
	if err := s.Err(); err != nil {
		return err
	}
	line, err := encode(doc)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.conn.Write(line); err != nil {
		err = fmt.Errorf("%w: write: %v", ErrSinkClosed, err)
		s.fail(err)
		return err
	}
	return nil
}

// Close closes the connection and waits for the watcher to exit.
func (s *RemoteSink) Close() error {
	s.fail(ErrSinkClosed)
	err := s.conn.Close()
	s.wg.Wait()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
