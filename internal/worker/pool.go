package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/prompt-lab/internal/chat"
	"github.com/suPer8Hu/prompt-lab/internal/store/rabbitmq"
	"go.uber.org/zap"
)

const (
	DefaultMaxAttempts = 3
	jobTimeout         = 30 * time.Second
	slowJob            = 2 * time.Second
)

type JobRunner interface {
	RunJob(ctx context.Context, jobID string) (*chat.TurnResult, error)
}

type RetryPublisher interface {
	PublishRetry(ctx context.Context, m rabbitmq.JobMessage) error
}

// Pool runs queued experiment jobs on a fixed number of goroutines.
type Pool struct {
	runner      JobRunner
	retry       RetryPublisher
	concurrency int
	maxAttempts int
	log         *zap.Logger
}

// NewPool builds a pool. retry may be nil, in which case failed jobs go
// straight to the dead-letter queue.
func NewPool(runner JobRunner, retry RetryPublisher, concurrency int, log *zap.Logger) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{
		runner:      runner,
		retry:       retry,
		concurrency: concurrency,
		maxAttempts: DefaultMaxAttempts,
		log:         log,
	}
}

// Run feeds deliveries to the workers until ctx is done or msgs is closed,
// then waits for in-flight jobs to finish.
func (p *Pool) Run(ctx context.Context, msgs <-chan amqp.Delivery) {
	jobs := make(chan amqp.Delivery, p.concurrency*2)

	var wg sync.WaitGroup
	wg.Add(p.concurrency)
	for i := 0; i < p.concurrency; i++ {
		go func(workerID int) {
			defer wg.Done()
			for d := range jobs {
				p.handle(ctx, workerID, d)
			}
		}(i)
	}
	defer func() {
		close(jobs)
		wg.Wait()
	}()

	// dispatcher
	for {
		select {
		case <-ctx.Done():
			p.log.Info("worker shutting down")
			return
		case d, ok := <-msgs:
			if !ok {
				p.log.Warn("delivery channel closed")
				return
			}
			select {
			case jobs <- d:
			case <-ctx.Done():
				// let another consumer take it
				_ = d.Nack(false, true)
				return
			}
		}
	}
}

func (p *Pool) handle(ctx context.Context, workerID int, d amqp.Delivery) {
	log := p.log.With(zap.Int("worker", workerID))

	m, err := rabbitmq.DecodeJobMessage(d.Body)
	if err != nil {
		log.Warn("bad message", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}
	log = log.With(zap.String("job_id", m.JobID), zap.Int("attempt", m.Attempt))

	// a started job finishes even when shutdown begins
	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobTimeout)
	defer cancel()

	start := time.Now()
	_, err = p.runner.RunJob(jctx, m.JobID)
	cost := time.Since(start)
	if errors.Is(err, chat.ErrJobInProgress) {
		p.park(jctx, log, d, m)
		return
	}
	if err != nil {
		p.fail(jctx, log, d, m, err)
		return
	}

	if cost > slowJob {
		log.Warn("slow job", zap.Duration("cost", cost))
	} else {
		log.Debug("job done", zap.Duration("cost", cost))
	}
	if err := d.Ack(false); err != nil {
		log.Error("ack failed", zap.Error(err))
	}
}

// park requeues a job another worker is running. The attempt count is left
// alone; the claim lapses after chat.JobLease if that worker died.
func (p *Pool) park(ctx context.Context, log *zap.Logger, d amqp.Delivery, m rabbitmq.JobMessage) {
	if p.retry != nil {
		err := p.retry.PublishRetry(ctx, m)
		if err == nil {
			log.Info("job in progress elsewhere, parked")
			_ = d.Ack(false)
			return
		}
		log.Error("publish retry", zap.Error(err))
	}
	log.Error("job in progress elsewhere")
	_ = d.Nack(false, false)
}

// fail retries store failures, which roll back cleanly, and dead-letters
// everything else.
func (p *Pool) fail(ctx context.Context, log *zap.Logger, d amqp.Delivery, m rabbitmq.JobMessage, cause error) {
	next := m.Attempt + 1
	if p.retry != nil && chat.IsStoreError(cause) && next < p.maxAttempts {
		m.Attempt = next
		err := p.retry.PublishRetry(ctx, m)
		if err == nil {
			log.Warn("job failed, retrying", zap.Error(cause))
			_ = d.Ack(false)
			return
		}
		log.Error("publish retry", zap.Error(err))
	}
	log.Error("job failed", zap.Error(cause))
	_ = d.Nack(false, false)
}
