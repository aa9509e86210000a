package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/cierres-audit/internal/application/service"
)

const (
	defaultPollInterval = time.Minute
	defaultBatchSize    = 5
	defaultReviewTime   = 10 * time.Minute
)

// ReviewQueue is the part of the review service the poller drives
type ReviewQueue interface {
	ProcessNext(ctx context.Context) (*service.ReviewOutcome, error)
}

// ReviewPoller drains the AI review queue on a fixed interval. It is the
// in-process alternative to calling the review-queue cron route.
type ReviewPoller struct {
	queue  ReviewQueue
	logger *zap.Logger

	pollInterval time.Duration
	batchSize    int
	reviewTime   time.Duration

	mu        sync.Mutex
	isRunning bool
	cancel    context.CancelFunc
	done      chan struct{}
}

// PollerConfig holds ReviewPoller settings. Zero values select defaults.
type PollerConfig struct {
	Interval   time.Duration
	BatchSize  int
	ReviewTime time.Duration
}

// NewReviewPoller creates a new review poller
func NewReviewPoller(queue ReviewQueue, cfg PollerConfig, logger *zap.Logger) *ReviewPoller {
	p := &ReviewPoller{
		queue:        queue,
		logger:       logger,
		pollInterval: cfg.Interval,
		batchSize:    cfg.BatchSize,
		reviewTime:   cfg.ReviewTime,
	}
	if p.pollInterval <= 0 {
		p.pollInterval = defaultPollInterval
	}
	if p.batchSize <= 0 {
		p.batchSize = defaultBatchSize
	}
	if p.reviewTime <= 0 {
		p.reviewTime = defaultReviewTime
	}
	return p
}

// Start starts the polling loop
func (p *ReviewPoller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return fmt.Errorf("review poller is already running")
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.isRunning = true

	p.logger.Info("ReviewPoller started",
		zap.Duration("poll_interval", p.pollInterval),
		zap.Int("batch_size", p.batchSize))

	go p.pollLoop(loopCtx, p.done)

	return nil
}

// Stop stops the polling loop and waits for the current review to finish
func (p *ReviewPoller) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return
	}
	p.isRunning = false
	p.cancel()
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("ReviewPoller stopped")
}

// Name returns the worker name for identification
func (p *ReviewPoller) Name() string {
	return "ReviewPoller"
}

func (p *ReviewPoller) pollLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	// Poll immediately on start
	p.Poll(ctx)

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Poll loop context cancelled")
			return
		case <-ticker.C:
			p.Poll(ctx)
		}
	}
}

// Poll reviews up to one batch of queued closings and returns how many were
// reviewed. It stops early on an empty queue or on the first failure.
func (p *ReviewPoller) Poll(ctx context.Context) int {
	reviewed := 0
	for reviewed < p.batchSize {
		if ctx.Err() != nil {
			break
		}

		reviewCtx, cancel := context.WithTimeout(ctx, p.reviewTime)
		outcome, err := p.queue.ProcessNext(reviewCtx)
		cancel()

		if err != nil {
			p.logger.Error("Queued review failed", zap.Error(err))
			break
		}
		if outcome == nil {
			break
		}

		reviewed++
		p.logger.Info("Queued review completed",
			zap.String("closing_id", outcome.ClosingID),
			zap.String("business", outcome.Business),
			zap.String("state", string(outcome.State)))
	}

	if reviewed > 0 {
		p.logger.Info("Review polling completed", zap.Int("reviewed", reviewed))
	}
	return reviewed
}
