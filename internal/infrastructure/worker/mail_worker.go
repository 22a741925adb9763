package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/imcpnet/intranet-workflow/internal/application/service"
)

// MailWorkerConfig holds configuration for the mail delivery worker
type MailWorkerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// DefaultMailWorkerConfig returns default configuration
func DefaultMailWorkerConfig() MailWorkerConfig {
	return MailWorkerConfig{
		PollInterval: time.Minute,
		BatchSize:    50,
	}
}

// MailWorker periodically drains the notification queue. Transitions only
// queue rows; this worker is the sole path to the SMTP relay, so a relay
// outage never blocks a transition.
type MailWorker struct {
	config        MailWorkerConfig
	notifications service.NotificationService
	logger        *zap.Logger

	mu        sync.RWMutex
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
}

// NewMailWorker creates a new mail delivery worker
func NewMailWorker(config MailWorkerConfig, notifications service.NotificationService, logger *zap.Logger) *MailWorker {
	return &MailWorker{
		config:        config,
		notifications: notifications,
		logger:        logger,
	}
}

// Start begins the worker polling loop
func (w *MailWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.isRunning {
		w.mu.Unlock()
		return fmt.Errorf("mail worker already running")
	}

	w.ctx, w.cancel = context.WithCancel(ctx)
	w.isRunning = true
	w.mu.Unlock()

	w.logger.Info("MailWorker started",
		zap.Duration("poll_interval", w.config.PollInterval),
		zap.Int("batch_size", w.config.BatchSize))

	go w.pollLoop()

	return nil
}

// Stop gracefully terminates the worker
func (w *MailWorker) Stop() error {
	w.mu.Lock()
	if !w.isRunning {
		w.mu.Unlock()
		return nil
	}

	w.isRunning = false
	w.mu.Unlock()

	if w.cancel != nil {
		w.cancel()
	}

	w.logger.Info("MailWorker stopped")
	return nil
}

// Name returns the worker name for identification
func (w *MailWorker) Name() string {
	return "MailWorker"
}

// pollLoop runs the delivery loop until the context is cancelled
func (w *MailWorker) pollLoop() {
	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.logger.Debug("Poll loop context cancelled")
			return

		case <-ticker.C:
			if err := w.notifications.DeliverPending(w.ctx, w.config.BatchSize); err != nil {
				w.logger.Error("Failed to deliver pending notifications", zap.Error(err))
			}
		}
	}
}
