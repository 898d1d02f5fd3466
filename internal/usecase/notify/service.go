package notify

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/handler/http/requestid"
	"feedwatch/internal/infra/notifier"
	"feedwatch/internal/observability/metrics"
	"feedwatch/internal/resilience/circuitbreaker"
)

// DefaultQueueSize is the per-channel backlog used when NewService gets a
// non-positive size.
const DefaultQueueSize = 500

// Per-channel notification results.
const (
	ResultSent      = "sent"
	ResultFailed    = "failed"
	ResultThrottled = "throttled"
	ResultDropped   = "dropped"
)

// Service dispatches draft notifications to every enabled channel without
// blocking the caller.
type Service interface {
	// NotifyDraft queues draft on every enabled channel. Each channel delivers
	// its queue in order from a single worker, so pacing delays a burst but
	// never drops it. A draft is dropped only when a queue is full. Delivery
	// failures are logged and counted, never returned.
	NotifyDraft(ctx context.Context, draft *entity.Draft) error

	// GetChannelHealth returns the breaker state of every channel.
	GetChannelHealth() []ChannelHealthStatus

	// Shutdown stops accepting work and lets the workers drain their queues
	// until ctx is done. Sends still running then are cancelled and the
	// remaining backlog is dropped.
	Shutdown(ctx context.Context) error
}

type ChannelHealthStatus struct {
	Name               string `json:"name"`
	Enabled            bool   `json:"enabled"`
	CircuitBreakerOpen bool   `json:"circuit_breaker_open"`
	State              string `json:"state"`
}

// delivery is one draft on its way to one channel.
type delivery struct {
	requestID string
	channel   Channel
	breaker   *circuitbreaker.CircuitBreaker
	draft     *entity.Draft
}

func (d delivery) attrs(extra ...any) []any {
	return append([]any{
		slog.String("request_id", d.requestID),
		slog.String("channel", d.channel.Name()),
		slog.Int64("draft_id", d.draft.ID),
	}, extra...)
}

type service struct {
	channels []Channel
	breakers map[string]*circuitbreaker.CircuitBreaker
	queues   map[string]chan delivery

	mu       sync.RWMutex
	closed   bool
	draining chan struct{}

	// pending counts queued and running deliveries; workers counts live workers.
	pending sync.WaitGroup
	workers sync.WaitGroup
	stop    context.Context
	cancel  context.CancelFunc
}

// NewService creates a notification service over channels and starts one
// worker per enabled channel. Each channel buffers up to queueSize drafts.
func NewService(channels []Channel, queueSize int) Service {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	stop, cancel := context.WithCancel(context.Background())
	s := &service{
		channels: channels,
		breakers: make(map[string]*circuitbreaker.CircuitBreaker, len(channels)),
		queues:   make(map[string]chan delivery, len(channels)),
		draining: make(chan struct{}),
		stop:     stop,
		cancel:   cancel,
	}

	enabled := 0
	for _, ch := range channels {
		s.breakers[ch.Name()] = circuitbreaker.New(circuitbreaker.NotifyConfig(ch.Name()))
		if !ch.IsEnabled() {
			continue
		}
		enabled++
		q := make(chan delivery, queueSize)
		s.queues[ch.Name()] = q
		s.workers.Add(1)
		go s.work(q)
	}
	enabledChannels.Set(float64(enabled))
	return s
}

func (s *service) NotifyDraft(ctx context.Context, draft *entity.Draft) error {
	if draft == nil {
		slog.Warn("notification skipped: nil draft")
		return nil
	}
	requestID := requestid.FromContext(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		slog.Warn("notification skipped: service shut down",
			slog.String("request_id", requestID),
			slog.Int64("draft_id", draft.ID))
		return nil
	}

	queued := 0
	for _, ch := range s.channels {
		q, ok := s.queues[ch.Name()]
		if !ok {
			continue
		}
		d := delivery{requestID: requestID, channel: ch, breaker: s.breakers[ch.Name()], draft: draft}
		s.pending.Add(1)
		select {
		case q <- d:
			queueDepth.Inc()
			queued++
		default:
			s.pending.Done()
			slog.Warn("notification dropped: queue full", d.attrs(slog.Int("queue_size", cap(q)))...)
			recordDrop(ch.Name(), dropQueueFull)
		}
	}
	if queued > 0 {
		slog.Info("draft notification queued",
			slog.String("request_id", requestID),
			slog.Int64("draft_id", draft.ID),
			slog.String("url", draft.SourceURL),
			slog.Int("channels", queued))
	}
	return nil
}

// work delivers q in order until shutdown, then drains what is left.
func (s *service) work(q chan delivery) {
	defer s.workers.Done()
	for {
		select {
		case d := <-q:
			queueDepth.Dec()
			s.deliver(d)
		case <-s.draining:
			for {
				select {
				case d := <-q:
					queueDepth.Dec()
					s.deliver(d)
				default:
					return
				}
			}
		}
	}
}

func (s *service) deliver(d delivery) {
	defer s.pending.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("panic in notification channel",
				d.attrs(slog.Any("panic", r), slog.String("stack", string(debug.Stack())))...)
			recordDrop(d.channel.Name(), dropPanic)
		}
	}()

	if s.stop.Err() != nil {
		slog.Warn("notification dropped: service stopped", d.attrs()...)
		recordDrop(d.channel.Name(), dropShutdown)
		return
	}

	ctx := requestid.WithRequestID(s.stop, d.requestID)
	start := time.Now()
	sendErr, breakerErr := s.send(ctx, d)
	s.report(d, sendErr, breakerErr, time.Since(start))
}

// send runs the channel behind its breaker. A throttled send is reported
// to the breaker as a success since the channel itself is healthy.
func (s *service) send(ctx context.Context, d delivery) (sendErr, breakerErr error) {
	_, breakerErr = d.breaker.Execute(func() (any, error) {
		sendErr = d.channel.Send(ctx, d.draft)
		if errors.Is(sendErr, notifier.ErrRateLimited) {
			return nil, nil
		}
		return nil, sendErr
	})
	return sendErr, breakerErr
}

func (s *service) report(d delivery, sendErr, breakerErr error, took time.Duration) {
	name := d.channel.Name()
	switch {
	case circuitbreaker.IsOpenErr(breakerErr):
		slog.Warn("notification dropped: circuit open", d.attrs()...)
		recordDrop(name, dropCircuitOpen)
	case errors.Is(sendErr, notifier.ErrRateLimited):
		metrics.RecordNotification(name, ResultThrottled, took)
		slog.Warn("notification throttled", d.attrs()...)
	case sendErr != nil:
		metrics.RecordNotification(name, ResultFailed, took)
		slog.Warn("notification failed",
			d.attrs(slog.String("url", d.draft.SourceURL), slog.Duration("took", took), slog.Any("error", sendErr))...)
	default:
		metrics.RecordNotification(name, ResultSent, took)
		slog.Info("notification sent", d.attrs(slog.Duration("took", took))...)
	}
}

func (s *service) GetChannelHealth() []ChannelHealthStatus {
	out := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		cb := s.breakers[ch.Name()]
		out = append(out, ChannelHealthStatus{
			Name:               ch.Name(),
			Enabled:            ch.IsEnabled(),
			CircuitBreakerOpen: cb.IsOpen(),
			State:              cb.State().String(),
		})
	}
	return out
}

func (s *service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.draining)
	}
	s.mu.Unlock()

	idle := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(idle)
	}()
	select {
	case <-idle:
		s.cancel()
		slog.Info("notification service stopped")
		return nil
	case <-ctx.Done():
		s.cancel()
		slog.Warn("notification service stop timed out, dropping backlog", slog.Any("error", ctx.Err()))
		return ctx.Err()
	}
}
