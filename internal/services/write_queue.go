package services

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gestornet/internal/log"
	"gestornet/internal/metrics"
	"gestornet/internal/storage"
)

// WriteOp is the kind of change a queued write applies.
type WriteOp string

const (
	OpPut    WriteOp = "put"
	OpRemove WriteOp = "remove"
)

// Persister accepts write-through requests without blocking on durability.
type Persister interface {
	Put(ctx context.Context, c storage.Collection, rec storage.Record)
	Remove(ctx context.Context, c storage.Collection, id string)
}

// Flusher waits until every write queued so far has been applied.
type Flusher interface {
	Flush(ctx context.Context) error
}

// WriteNotifier is told about each write that reached the store.
type WriteNotifier interface {
	Notify(ctx context.Context, c storage.Collection, op WriteOp, rec storage.Record)
}

// WriteQueueConfig holds configuration for the write queue
type WriteQueueConfig struct {
	// Buffer is how many writes may wait before Put blocks (default: 256)
	Buffer int

	// WriteTimeout bounds a single store write (default: 5s)
	WriteTimeout time.Duration
}

// DefaultWriteQueueConfig returns sensible defaults
func DefaultWriteQueueConfig() WriteQueueConfig {
	return WriteQueueConfig{
		Buffer:       256,
		WriteTimeout: 5 * time.Second,
	}
}

type writeCommand struct {
	ctx        context.Context
	op         WriteOp
	collection storage.Collection
	record     storage.Record
	flushed    chan struct{}
}

// WriteQueue applies store writes one at a time, in call order, from a single
// goroutine. Callers never wait for durability. Failed writes are logged and
// counted; they are not retried. While the queue is not running writes are
// applied inline, after anything a stopping writer still has to drain.
type WriteQueue struct {
	store    storage.Store
	notifier WriteNotifier
	metrics  *metrics.Metrics
	logger   *log.Logger
	config   WriteQueueConfig

	cmds chan writeCommand

	// Lifecycle management
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	written atomic.Int64
	failed  atomic.Int64
}

var (
	_ Persister = (*WriteQueue)(nil)
	_ Flusher   = (*WriteQueue)(nil)
)

func NewWriteQueue(store storage.Store, notifier WriteNotifier, m *metrics.Metrics, logger *log.Logger, config WriteQueueConfig) *WriteQueue {
	if config.Buffer < 1 {
		config.Buffer = DefaultWriteQueueConfig().Buffer
	}
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteQueueConfig().WriteTimeout
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &WriteQueue{
		store:    store,
		notifier: notifier,
		metrics:  m,
		logger:   logger.WithComponent(log.ComponentStorage),
		config:   config,
		cmds:     make(chan writeCommand, config.Buffer),
	}
}

// Start begins the writer loop. Returns an error if already running.
func (q *WriteQueue) Start(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return fmt.Errorf("write queue is already running")
	}
	q.running = true
	q.stopCh = make(chan struct{})
	q.doneCh = make(chan struct{})

	go q.runLoop(q.stopCh, q.doneCh)

	q.logger.InfoContext(ctx, "Write queue started", "buffer", q.config.Buffer)
	return nil
}

// Stop drains pending writes and waits for the writer to exit.
func (q *WriteQueue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	// From here on Put and Remove apply inline; queued writes still drain first
	q.running = false
	stopCh, doneCh := q.stopCh, q.doneCh
	q.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		q.logger.InfoContext(ctx, "Write queue stopped gracefully",
			"written", q.written.Load(),
			"failed", q.failed.Load())
		return nil
	case <-ctx.Done():
		q.logger.WarnContext(ctx, "Write queue stop timed out", "pending", len(q.cmds))
		return ctx.Err()
	}
}

// IsRunning returns whether the writer loop is active
func (q *WriteQueue) IsRunning() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.running
}

func (q *WriteQueue) Put(ctx context.Context, c storage.Collection, rec storage.Record) {
	q.enqueue(writeCommand{ctx: ctx, op: OpPut, collection: c, record: rec})
}

func (q *WriteQueue) Remove(ctx context.Context, c storage.Collection, id string) {
	q.enqueue(writeCommand{ctx: ctx, op: OpRemove, collection: c, record: storage.Record{ID: id}})
}

// Flush blocks until all writes queued before the call have been applied.
func (q *WriteQueue) Flush(ctx context.Context) error {
	done := make(chan struct{})
	q.mu.RLock()
	if !q.running {
		doneCh := q.doneCh
		q.mu.RUnlock()
		if doneCh == nil {
			return nil
		}
		select {
		case <-doneCh:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	select {
	case q.cmds <- writeCommand{flushed: done}:
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}
	q.mu.RUnlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns how many writes were applied and how many failed.
func (q *WriteQueue) Stats() (written, failed int64) {
	return q.written.Load(), q.failed.Load()
}

func (q *WriteQueue) enqueue(cmd writeCommand) {
	// Detach from request cancellation; keep values such as the request logger
	cmd.ctx = context.WithoutCancel(cmd.ctx)

	q.mu.RLock()
	if q.running {
		q.cmds <- cmd
		q.metrics.SetQueueDepth(len(q.cmds))
		q.mu.RUnlock()
		return
	}
	doneCh := q.doneCh
	q.mu.RUnlock()

	// Older writes may still be draining after Stop
	if doneCh != nil {
		<-doneCh
	}
	q.apply(cmd)
}

func (q *WriteQueue) runLoop(stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	for {
		select {
		case cmd := <-q.cmds:
			q.handle(cmd)
		case <-stopCh:
			q.drain()
			return
		}
	}
}

// drain applies whatever is still buffered after Stop.
func (q *WriteQueue) drain() {
	for {
		select {
		case cmd := <-q.cmds:
			q.handle(cmd)
		default:
			return
		}
	}
}

func (q *WriteQueue) handle(cmd writeCommand) {
	defer q.metrics.SetQueueDepth(len(q.cmds))
	if cmd.flushed != nil {
		close(cmd.flushed)
		return
	}
	q.apply(cmd)
}

func (q *WriteQueue) apply(cmd writeCommand) {
	ctx, cancel := context.WithTimeout(cmd.ctx, q.config.WriteTimeout)
	defer cancel()

	var err error
	switch cmd.op {
	case OpPut:
		err = q.store.Put(ctx, cmd.collection, cmd.record)
	case OpRemove:
		err = q.store.Remove(ctx, cmd.collection, cmd.record.ID)
	default:
		err = fmt.Errorf("unknown write operation: %s", cmd.op)
	}
	q.metrics.IncStoreWrite(string(cmd.collection), string(cmd.op), err)

	if err != nil {
		q.failed.Add(1)
		fields := log.NewFields().
			WithRecord(string(cmd.collection), cmd.record.ID).
			WithOperation(string(cmd.op)).
			WithErrorType(log.ErrorTypeDatabase).
			WithError(err)
		q.logger.ErrorContext(ctx, "Persistence write failed", fields.ToSlice()...)
		return
	}
	q.written.Add(1)

	if q.notifier != nil {
		q.notifier.Notify(ctx, cmd.collection, cmd.op, cmd.record)
	}
}
