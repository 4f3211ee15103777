package journal

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/iot-device-sdk/internal/servicemodel"
)

const (
	// writeTimeout bounds one journal insert.
	writeTimeout = 2 * time.Second

	// queueSize is how many entries may wait for the writer before new
	// ones are dropped.
	queueSize = 256
)

// Logger is the logging used by Recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type queuedEntry struct {
	ctx   context.Context
	entry Entry
}

// Recorder is a servicemodel.Observer writing every completed operation
// to a Repository from a background goroutine, so Execute never waits on
// the database. Write failures and entries dropped on a full queue are
// logged and otherwise ignored.
//
// Close must be called to flush queued entries.
type Recorder struct {
	repo   Repository
	logger Logger

	mu      sync.RWMutex
	closed  bool
	entries chan queuedEntry
	done    chan struct{}
}

// NewRecorder returns a Recorder over repo and starts its writer. A nil
// logger discards warnings.
func NewRecorder(repo Repository, logger Logger) *Recorder {
	return newRecorder(repo, logger, queueSize)
}

func newRecorder(repo Repository, logger Logger, size int) *Recorder {
	if logger == nil {
		logger = nopLogger{}
	}
	r := &Recorder{
		repo:    repo,
		logger:  logger,
		entries: make(chan queuedEntry, size),
		done:    make(chan struct{}),
	}
	go r.run()
	return r
}

// OperationCompleted queues record for the journal. It never blocks. The
// caller's cancellation does not abort the write.
func (r *Recorder) OperationCompleted(ctx context.Context, record servicemodel.ExecutionRecord) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return
	}
	select {
	case r.entries <- queuedEntry{ctx: context.WithoutCancel(ctx), entry: EntryFromRecord(record)}:
	default:
		r.logger.Warn("journal queue full, entry dropped", "operation", record.Operation)
	}
}

// StreamMessageReceived is a no-op; only request/response exchanges are journaled.
func (r *Recorder) StreamMessageReceived(string, error) {}

// Close stops accepting records and waits for queued entries to be written.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.entries)
	}
	r.mu.Unlock()

	<-r.done
	return nil
}

func (r *Recorder) run() {
	defer close(r.done)
	for q := range r.entries {
		r.write(q)
	}
}

func (r *Recorder) write(q queuedEntry) {
	ctx, cancel := context.WithTimeout(q.ctx, writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &q.entry); err != nil {
		r.logger.Warn("journal write failed", "operation", q.entry.Operation, "error", err)
	}
}

// EntryFromRecord converts an execution record into an unsaved Entry.
func EntryFromRecord(record servicemodel.ExecutionRecord) Entry {
	e := Entry{
		Operation:        record.Operation,
		CorrelationToken: record.CorrelationToken,
		PublishTopic:     record.PublishTopic,
		ResponseTopic:    record.ResponseTopic,
		Outcome:          string(record.Outcome),
		StartedAt:        record.StartedAt,
		Duration:         record.Duration,
	}
	if record.Err != nil {
		e.Error = record.Err.Error()
	}
	return e
}

type nopLogger struct{}

func (nopLogger) Warn(string, ...any) {}
