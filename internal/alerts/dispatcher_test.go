package alerts

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gordonpn/portfolio-api/internal/domain"
	"github.com/gordonpn/portfolio-api/internal/metrics"
)

type scriptedNotifier struct {
	name string

	mu       sync.Mutex
	errs     []error
	received []domain.Alert
	block    chan struct{}
}

func (n *scriptedNotifier) Name() string { return n.name }

func (n *scriptedNotifier) Notify(_ context.Context, alert domain.Alert) error {
	if n.block != nil {
		<-n.block
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	n.received = append(n.received, alert)
	if len(n.errs) == 0 {
		return nil
	}
	err := n.errs[0]
	n.errs = n.errs[1:]
	return err
}

func (n *scriptedNotifier) calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.received)
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *sleepRecorder) sleep(d time.Duration) bool {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return true
}

func newTestDispatcher(config Config, m *metrics.Metrics, notifiers ...Notifier) (*Dispatcher, *sleepRecorder) {
	dispatcher := New(config, notifiers, m, nil)
	recorder := &sleepRecorder{}
	dispatcher.sleep = recorder.sleep
	return dispatcher, recorder
}

func TestDispatcherFansOut(t *testing.T) {
	first := &scriptedNotifier{name: "first"}
	second := &scriptedNotifier{name: "second"}
	dispatcher, _ := newTestDispatcher(Config{WorkerCount: 2, QueueSize: 4}, nil, first, second)
	dispatcher.Start()

	assert.True(t, dispatcher.Enqueue(domain.Alert{ID: "1"}))
	assert.True(t, dispatcher.Enqueue(domain.Alert{ID: "2"}))
	dispatcher.Stop()

	assert.Equal(t, 2, first.calls())
	assert.Equal(t, 2, second.calls())
}

func TestDispatcherRetriesWithBackoff(t *testing.T) {
	m := metrics.New()
	notifier := &scriptedNotifier{name: "flaky", errs: []error{errors.New("503"), errors.New("503")}}
	dispatcher, recorder := newTestDispatcher(Config{MaxRetries: 3, RetryBaseBackoffMS: 100}, m, notifier)
	dispatcher.Start()

	require.True(t, dispatcher.Enqueue(domain.Alert{ID: "1"}))
	dispatcher.Stop()

	assert.Equal(t, 3, notifier.calls())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, recorder.waits)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("flaky", "ok")))
}

func TestDispatcherGivesUpAfterMaxRetries(t *testing.T) {
	m := metrics.New()
	notifier := &scriptedNotifier{name: "down", errs: []error{errors.New("a"), errors.New("b"), errors.New("c")}}
	dispatcher, _ := newTestDispatcher(Config{MaxRetries: 2, RetryBaseBackoffMS: 1}, m, notifier)
	dispatcher.Start()

	dispatcher.Enqueue(domain.Alert{ID: "1"})
	dispatcher.Stop()

	assert.Equal(t, 3, notifier.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("down", "error")))
}

func TestDispatcherStopsOnPermanentError(t *testing.T) {
	notifier := &scriptedNotifier{name: "bad", errs: []error{&PermanentError{Err: errors.New("401")}}}
	dispatcher, recorder := newTestDispatcher(Config{MaxRetries: 5}, nil, notifier)
	dispatcher.Start()

	dispatcher.Enqueue(domain.Alert{ID: "1"})
	dispatcher.Stop()

	assert.Equal(t, 1, notifier.calls())
	assert.Empty(t, recorder.waits)
}

func TestDispatcherHonorsRetryAfter(t *testing.T) {
	notifier := &scriptedNotifier{name: "limited", errs: []error{&RetryAfterError{Wait: 7 * time.Second, Err: errors.New("429")}}}
	dispatcher, recorder := newTestDispatcher(Config{MaxRetries: 1, RetryBaseBackoffMS: 100}, nil, notifier)
	dispatcher.Start()

	dispatcher.Enqueue(domain.Alert{ID: "1"})
	dispatcher.Stop()

	assert.Equal(t, []time.Duration{7 * time.Second}, recorder.waits)
}

func TestDispatcherCapsRetryAfter(t *testing.T) {
	hour := &RetryAfterError{Wait: time.Hour, Err: errors.New("429")}
	notifier := &scriptedNotifier{name: "limited", errs: []error{hour, hour, hour, hour}}
	dispatcher, recorder := newTestDispatcher(Config{MaxRetries: 3}, nil, notifier)
	dispatcher.Start()

	dispatcher.Enqueue(domain.Alert{ID: "1"})
	dispatcher.Stop()

	assert.Equal(t, []time.Duration{maxRetryWait, maxRetryWait, maxRetryWait}, recorder.waits)
}

func TestDispatcherStopCancelsRetryWait(t *testing.T) {
	m := metrics.New()
	hour := &RetryAfterError{Wait: time.Hour, Err: errors.New("429")}
	notifier := &scriptedNotifier{name: "limited", errs: []error{hour, hour, hour}}
	dispatcher := New(Config{MaxRetries: 2}, []Notifier{notifier}, m, nil)
	dispatcher.Start()

	require.True(t, dispatcher.Enqueue(domain.Alert{ID: "1"}))
	require.Eventually(t, func() bool { return notifier.calls() == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		dispatcher.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop blocked on a retry wait")
	}
	assert.Equal(t, 1, notifier.calls())
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsTotal.WithLabelValues("limited", "error")))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	m := metrics.New()
	notifier := &scriptedNotifier{name: "slow", block: make(chan struct{})}
	dispatcher, _ := newTestDispatcher(Config{WorkerCount: 1, QueueSize: 1}, m, notifier)

	// Not started: the queue holds exactly one alert.
	assert.True(t, dispatcher.Enqueue(domain.Alert{ID: "1"}))
	assert.False(t, dispatcher.Enqueue(domain.Alert{ID: "2"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AlertsDroppedTotal))

	dispatcher.Start()
	close(notifier.block)
	dispatcher.Stop()
	assert.Equal(t, 1, notifier.calls())
}

func TestDispatcherEnqueueAfterStop(t *testing.T) {
	dispatcher, _ := newTestDispatcher(Config{}, nil, &scriptedNotifier{name: "n"})
	dispatcher.Start()
	dispatcher.Stop()
	dispatcher.Stop()

	assert.False(t, dispatcher.Enqueue(domain.Alert{ID: "late"}))
}

func TestDispatcherWithoutNotifiers(t *testing.T) {
	dispatcher, _ := newTestDispatcher(Config{}, nil)
	assert.False(t, dispatcher.Enqueue(domain.Alert{ID: "1"}))
}

func TestBackoffDuration(t *testing.T) {
	assert.Equal(t, 400*time.Millisecond, backoffDuration(400, 0))
	assert.Equal(t, 1600*time.Millisecond, backoffDuration(400, 2))
	assert.Equal(t, 2*time.Millisecond, backoffDuration(0, 1))
	assert.Equal(t, maxRetryWait, backoffDuration(400, 10))
	assert.Equal(t, maxRetryWait, backoffDuration(400, 62))
}
