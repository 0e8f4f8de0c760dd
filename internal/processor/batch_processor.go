package processor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tasador/server/config"
	"tasador/server/internal/database"
	"tasador/server/internal/models"
	"tasador/server/internal/queue"
)

// Transactor is the part of *gorm.DB the processor needs
type Transactor interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

// BatchProcessor persists queued estimate records
type BatchProcessor struct {
	db        Transactor
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.EstimateQueue
	waitGroup sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   sync.Once
}

// NewBatchProcessor creates a new batch processor instance
func NewBatchProcessor(db Transactor, queue *queue.EstimateQueue, config *config.Config, logger *logrus.Logger) *BatchProcessor {
	ctx, cancel := context.WithCancel(context.Background())
	return &BatchProcessor{
		db:     db,
		queue:  queue,
		config: config,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes the processor to the queue. Calling it again has no effect.
func (p *BatchProcessor) Start() {
	p.started.Do(func() {
		p.queue.Subscribe(p.handle)
	})
}

// Stop aborts pending retries and waits for the batch in flight
func (p *BatchProcessor) Stop() {
	p.cancel()
	p.waitGroup.Wait()
}

func (p *BatchProcessor) handle(batch []*models.EstimateRecord) error {
	p.waitGroup.Add(1)
	defer p.waitGroup.Done()
	return p.processBatch(batch)
}

// processBatch writes a batch in one transaction, retrying on failure
func (p *BatchProcessor) processBatch(batch []*models.EstimateRecord) error {
	maxRetries := p.config.BatchProcessing.MaxRetries
	retryDelay := time.Duration(p.config.BatchProcessing.RetryDelay) * time.Second

	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, maxRetries)
			select {
			case <-p.ctx.Done():
				return fmt.Errorf("batch processing cancelled after %d attempts: %w", attempt, err)
			case <-time.After(retryDelay):
			}
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			if err := database.UpsertEstimates(tx, batch); err != nil {
				return fmt.Errorf("failed to upsert estimates batch: %w", err)
			}
			return nil
		})

		if err == nil {
			p.logger.WithField("batch_size", len(batch)).Debug("Persisted estimate batch")
			return nil
		}

		p.logger.WithError(err).Error("Batch processing failed")
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", maxRetries+1, err)
}
