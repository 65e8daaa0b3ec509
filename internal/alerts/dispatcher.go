package alerts

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gordonpn/portfolio-api/internal/domain"
	"github.com/gordonpn/portfolio-api/internal/metrics"
)

const (
	notifyTimeout = 15 * time.Second
	// maxRetryWait bounds both the backoff and a server's Retry-After.
	maxRetryWait = 30 * time.Second
)

type Config struct {
	WorkerCount        int
	QueueSize          int
	MaxRetries         int
	RetryBaseBackoffMS int
}

// Dispatcher fans each alert out to every notifier from a small worker pool,
// retrying with exponential backoff. Enqueue never blocks.
type Dispatcher struct {
	config    Config
	notifiers []Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	// sleep reports false when the wait was cut short by Stop.
	sleep func(time.Duration) bool

	queue     chan domain.Alert
	done      chan struct{}
	waitGroup sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

func New(config Config, notifiers []Notifier, m *metrics.Metrics, logger *zap.Logger) *Dispatcher {
	if config.WorkerCount < 1 {
		config.WorkerCount = 1
	}
	if config.QueueSize < 1 {
		config.QueueSize = 16
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dispatcher := &Dispatcher{
		config:    config,
		notifiers: notifiers,
		metrics:   m,
		logger:    logger,
		queue:     make(chan domain.Alert, config.QueueSize),
		done:      make(chan struct{}),
	}
	dispatcher.sleep = dispatcher.wait
	return dispatcher
}

func (dispatcher *Dispatcher) Start() {
	for range dispatcher.config.WorkerCount {
		dispatcher.waitGroup.Add(1)
		go func() {
			defer dispatcher.waitGroup.Done()
			for alert := range dispatcher.queue {
				for _, notifier := range dispatcher.notifiers {
					dispatcher.sendWithRetry(notifier, alert)
				}
			}
		}()
	}
}

// Stop closes the queue and waits for the workers to finish. Pending retry
// waits are cancelled, so each queued alert gets one more attempt per
// notifier at most.
func (dispatcher *Dispatcher) Stop() {
	dispatcher.mu.Lock()
	if dispatcher.stopped {
		dispatcher.mu.Unlock()
		return
	}
	dispatcher.stopped = true
	close(dispatcher.done)
	close(dispatcher.queue)
	dispatcher.mu.Unlock()

	dispatcher.waitGroup.Wait()
}

// Enqueue reports false when the alert was dropped because the queue is
// full or the dispatcher has stopped.
func (dispatcher *Dispatcher) Enqueue(alert domain.Alert) bool {
	dispatcher.mu.RLock()
	defer dispatcher.mu.RUnlock()

	if dispatcher.stopped || len(dispatcher.notifiers) == 0 {
		return false
	}

	select {
	case dispatcher.queue <- alert:
		return true
	default:
		dispatcher.metrics.RecordAlertDropped()
		return false
	}
}

func (dispatcher *Dispatcher) sendWithRetry(notifier Notifier, alert domain.Alert) {
	for attempt := 0; attempt <= dispatcher.config.MaxRetries; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		err := notifier.Notify(ctx, alert)
		cancel()

		if err == nil {
			dispatcher.metrics.RecordAlert(notifier.Name(), nil)
			return
		}

		var permanent *PermanentError
		if errors.As(err, &permanent) || attempt == dispatcher.config.MaxRetries {
			dispatcher.metrics.RecordAlert(notifier.Name(), err)
			dispatcher.logger.Error("alert delivery failed",
				zap.String("notifier", notifier.Name()),
				zap.String("id", alert.ID),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return
		}

		wait := backoffDuration(dispatcher.config.RetryBaseBackoffMS, attempt)
		var retryAfter *RetryAfterError
		if errors.As(err, &retryAfter) && retryAfter.Wait > 0 {
			wait = min(retryAfter.Wait, maxRetryWait)
		}
		dispatcher.logger.Warn("alert delivery retry",
			zap.String("notifier", notifier.Name()),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait),
			zap.Error(err))
		if !dispatcher.sleep(wait) {
			dispatcher.metrics.RecordAlert(notifier.Name(), err)
			dispatcher.logger.Error("alert delivery abandoned on shutdown",
				zap.String("notifier", notifier.Name()),
				zap.String("id", alert.ID),
				zap.Int("attempts", attempt+1),
				zap.Error(err))
			return
		}
	}
}

func (dispatcher *Dispatcher) wait(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-dispatcher.done:
		return false
	}
}

func backoffDuration(baseMS, attempt int) time.Duration {
	if baseMS < 1 {
		baseMS = 1
	}
	if attempt > 16 {
		return maxRetryWait
	}
	delay := time.Duration(baseMS<<attempt) * time.Millisecond
	return min(delay, maxRetryWait)
}
