package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"tasador/server/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// Handler processes one batch of estimate records
type Handler func([]*models.EstimateRecord) error

// EstimateQueue is an in-memory queue of estimate record batches waiting to be persisted
type EstimateQueue struct {
	items    chan []*models.EstimateRecord
	done     chan struct{}
	stopped  chan struct{}
	maxSize  int
	started  bool
	closed   bool
	mu       sync.RWMutex
	logger   *logrus.Logger
	handlers []Handler
}

// NewEstimateQueue creates a queue holding up to bufferSize batches
func NewEstimateQueue(bufferSize int, logger *logrus.Logger) *EstimateQueue {
	return &EstimateQueue{
		items:    make(chan []*models.EstimateRecord, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		maxSize:  bufferSize,
		logger:   logger,
		handlers: make([]Handler, 0),
	}
}

// Push adds a batch without blocking. A full queue rejects the batch.
func (q *EstimateQueue) Push(records []*models.EstimateRecord) error {
	// the read lock keeps Close from closing items mid-send
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- records:
		q.logger.WithField("batch_size", len(records)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe adds a handler called for each batch
func (q *EstimateQueue) Subscribe(handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers = append(q.handlers, handler)
}

// Start begins delivering batches to the handlers
func (q *EstimateQueue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started || q.closed {
		return
	}
	q.started = true
	go q.process()
}

func (q *EstimateQueue) process() {
	defer close(q.stopped)
	for {
		select {
		case <-q.done:
			// deliver whatever was queued before Close
			for batch := range q.items {
				q.processBatch(batch)
			}
			return
		case batch, ok := <-q.items:
			if !ok {
				return
			}
			q.processBatch(batch)
		}
	}
}

// processBatch sends the batch to all subscribed handlers
func (q *EstimateQueue) processBatch(batch []*models.EstimateRecord) {
	q.mu.RLock()
	handlers := q.handlers
	q.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(batch); err != nil {
			q.logger.WithError(err).Error("Handler failed to process batch")
		}
	}
}

// Close rejects new batches, then waits until the queued ones are handled
func (q *EstimateQueue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	close(q.done)
	close(q.items)
	started := q.started
	q.mu.Unlock()

	if started {
		<-q.stopped
	}
	return nil
}

// Len returns the current number of batches in the queue
func (q *EstimateQueue) Len() int {
	return len(q.items)
}

// IsClosed returns whether the queue has been closed
func (q *EstimateQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
