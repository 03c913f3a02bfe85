// Package pipeline moves frame payloads from connection handlers through
// decode, filtering and mapping into the sink, using a fixed pool of
// workers, each behind its own bounded queue. All jobs of one source land on
// the same worker, so documents of a connection are emitted in arrival
// order. A full queue blocks the submitting connection, which in turn stops
// reading from its socket.
package pipeline

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/haukened/pbdns-relay/internal/dns/common/log"
	"github.com/haukened/pbdns-relay/internal/dns/domain"
)

// ErrStopped is returned by Submit after Stop has been called.
var ErrStopped = errors.New("dispatcher stopped")

const (
	defaultWorkers   = 4
	defaultQueueSize = 1024
)

// Job is one extracted frame on its way to the sink.
type Job struct {
	Payload []byte
	Decoder Decoder
	// Source identifies the originating connection. Jobs sharing a Source
	// are handled one at a time, in submission order.
	Source string
	// Abort tears the originating connection down. May be nil.
	Abort func(error)
}

// Options configures a Dispatcher. Filter is optional.
type Options struct {
	Workers       int
	QueueSize     int
	StatsInterval time.Duration
	Mapper        Mapper
	Filter        Filter
	Sink          Sink
	Logger        log.Logger
}

// Snapshot is a point-in-time copy of the dispatcher counters.
type Snapshot struct {
	Received     uint64 `json:"received"`
	Forwarded    uint64 `json:"forwarded"`
	Ignored      uint64 `json:"ignored"`
	DecodeErrors uint64 `json:"decode_errors"`
	MapErrors    uint64 `json:"map_errors"`
}

// Dispatcher runs the worker pool.
type Dispatcher struct {
	workers       int
	statsInterval time.Duration
	mapper        Mapper
	filter        Filter
	sink          Sink
	logger        log.Logger

	queues   []chan Job
	mu       sync.RWMutex
	stopped  bool
	stopping chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	fatal    chan error

	received     atomic.Uint64
	forwarded    atomic.Uint64
	ignored      atomic.Uint64
	decodeErrors atomic.Uint64
	mapErrors    atomic.Uint64
}

// New builds a Dispatcher. Workers and QueueSize fall back to defaults when
// not positive. QueueSize is split evenly across the workers' queues.
func New(opts Options) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}
	depth := (opts.QueueSize + opts.Workers - 1) / opts.Workers
	queues := make([]chan Job, opts.Workers)
	for i := range queues {
		queues[i] = make(chan Job, depth)
	}
	return &Dispatcher{
		workers:       opts.Workers,
		statsInterval: opts.StatsInterval,
		mapper:        opts.Mapper,
		filter:        opts.Filter,
		sink:          opts.Sink,
		logger:        opts.Logger,
		queues:        queues,
		stopping:      make(chan struct{}),
		fatal:         make(chan error, 1),
	}
}

// Start launches the workers, plus the periodic stats logger when an
// interval is configured. The stats logger ends with ctx; workers end when
// Stop has drained their queues.
func (d *Dispatcher) Start(ctx context.Context) {
	for _, q := range d.queues {
		d.wg.Add(1)
		go d.work(q)
	}
	if d.statsInterval > 0 {
		go d.reportStats(ctx)
	}
}

// Submit enqueues job on the queue owning job.Source, blocking while that
// queue is full.
func (d *Dispatcher) Submit(ctx context.Context, job Job) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}
	select {
	case d.queues[d.shard(job.Source)] <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopping:
		return ErrStopped
	}
}

// Stop rejects further submissions, lets the workers finish everything
// already queued and waits for them.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopping)
		d.mu.Lock()
		d.stopped = true
		for _, q := range d.queues {
			close(q)
		}
		d.mu.Unlock()
	})
	d.wg.Wait()
}

// Fatal delivers the first sink failure. The relay cannot continue after it.
func (d *Dispatcher) Fatal() <-chan error {
	return d.fatal
}

// Stats returns the current counters.
func (d *Dispatcher) Stats() Snapshot {
	return Snapshot{
		Received:     d.received.Load(),
		Forwarded:    d.forwarded.Load(),
		Ignored:      d.ignored.Load(),
		DecodeErrors: d.decodeErrors.Load(),
		MapErrors:    d.mapErrors.Load(),
	}
}

// shard maps a source to the index of its worker queue.
func (d *Dispatcher) shard(source string) int {
	if len(d.queues) == 1 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(source))
	return int(h.Sum32() % uint32(len(d.queues)))
}

func (d *Dispatcher) queued() int {
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

func (d *Dispatcher) work(queue <-chan Job) {
	defer d.wg.Done()
	for job := range queue {
		d.handle(job)
	}
}

func (d *Dispatcher) handle(job Job) {
	d.received.Add(1)

	msg, err := job.Decoder.Decode(job.Payload)
	if err != nil {
		if errors.Is(err, domain.ErrUnsupportedMessage) {
			d.ignored.Add(1)
			d.logger.Debug(map[string]any{"source": job.Source, "error": err}, "message not relayed")
			return
		}
		d.decodeErrors.Add(1)
		d.logger.Error(map[string]any{"source": job.Source, "error": err}, "failed to decode message, closing connection")
		if job.Abort != nil {
			job.Abort(err)
		}
		return
	}

	if d.filter != nil {
		if qname := msg.QName(); qname != "" && d.filter.Ignored(qname) {
			d.ignored.Add(1)
			d.logger.Debug(map[string]any{"source": job.Source, "qname": qname}, "message ignored")
			return
		}
	}

	doc, err := d.mapper.Map(msg)
	if err != nil {
		d.mapErrors.Add(1)
		d.logger.Error(map[string]any{"source": job.Source, "error": err}, "failed to map message, dropping it")
		return
	}

	if err := d.sink.Emit(doc); err != nil {
		d.logger.Error(map[string]any{"error": err}, "failed to forward message")
		select {
		case d.fatal <- err:
		default:
		}
		return
	}
	d.forwarded.Add(1)
}

func (d *Dispatcher) reportStats(ctx context.Context) {
	ticker := time.NewTicker(d.statsInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopping:
			return
		case <-ticker.C:
			s := d.Stats()
			d.logger.Info(map[string]any{
				"received":      s.Received,
				"forwarded":     s.Forwarded,
				"ignored":       s.Ignored,
				"decode_errors": s.DecodeErrors,
				"map_errors":    s.MapErrors,
				"queued":        d.queued(),
			}, "relay stats")
		}
	}
}
