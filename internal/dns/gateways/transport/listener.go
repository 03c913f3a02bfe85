package transport

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/services/pipeline"
)

// Keepalive settings for accepted connections. Exporters keep their
// connection open for the life of the recursor, so dead peers must be
// detected by the kernel.
const (
	keepAliveIdle     = 10 * time.Second
	keepAliveInterval = 30 * time.Second
	keepAliveCount    = 5
)

// connHandler serves one accepted connection until it ends.
type connHandler func(ctx context.Context, conn net.Conn, sub pipeline.Submitter, logger log.Logger)

// streamListener is the accept loop shared by the stream transports. Every
// connection runs in its own goroutine and shares nothing with the others.
type streamListener struct {
	name    string
	addr    string
	handle  connHandler
	logger  log.Logger
	mu      sync.Mutex
	running bool
	ln      net.Listener
	cancel  context.CancelFunc
	conns   map[net.Conn]struct{}
	wg      sync.WaitGroup
}

func newStreamListener(name, addr string, handle connHandler, logger log.Logger) *streamListener {
	return &streamListener{
		name:   name,
		addr:   addr,
		handle: handle,
		logger: logger.With(map[string]any{"transport": name}),
		conns:  make(map[net.Conn]struct{}),
	}
}

func (l *streamListener) Start(ctx context.Context, sub pipeline.Submitter) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return fmt.Errorf("%s transport already running", l.name)
	}

	lc := net.ListenConfig{
		KeepAliveConfig: net.KeepAliveConfig{
			Enable:   true,
			Idle:     keepAliveIdle,
			Interval: keepAliveInterval,
			Count:    keepAliveCount,
		},
	}
	ln, err := lc.Listen(ctx, "tcp", l.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.addr, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	l.ln = ln
	l.cancel = cancel
	l.running = true

	l.logger.Info(map[string]any{"address": ln.Addr().String()}, "transport started")

	l.wg.Add(1)
	go l.acceptLoop(ctx, sub)
	return nil
}

func (l *streamListener) acceptLoop(ctx context.Context, sub pipeline.Submitter) {
	defer l.wg.Done()
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			l.logger.Warn(map[string]any{"error": err}, "failed to accept connection")
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		if !l.track(conn) {
			_ = conn.Close()
			return
		}
		l.wg.Add(1)
		go l.serve(ctx, conn, sub)
	}
}

func (l *streamListener) serve(ctx context.Context, conn net.Conn, sub pipeline.Submitter) {
	defer l.wg.Done()
	defer l.untrack(conn)

	logger := l.logger.With(map[string]any{"peer": conn.RemoteAddr().String()})
	logger.Info(nil, "connection accepted")
	l.handle(ctx, conn, sub, logger)
	logger.Info(nil, "connection closed")
}

// track registers conn unless the listener is shutting down.
func (l *streamListener) track(conn net.Conn) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.running {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *streamListener) untrack(conn net.Conn) {
	l.mu.Lock()
	delete(l.conns, conn)
	l.mu.Unlock()
	_ = conn.Close()
}

func (l *streamListener) Stop() error {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return nil
	}
	l.running = false
	l.cancel()
	err := l.ln.Close()
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.mu.Unlock()

	l.wg.Wait()
	l.logger.Info(nil, "transport stopped")
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (l *streamListener) Address() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return l.ln.Addr().String()
	}
	return l.addr
}
