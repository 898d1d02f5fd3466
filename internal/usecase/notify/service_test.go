package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feedwatch/internal/domain/entity"
	"feedwatch/internal/handler/http/requestid"
	"feedwatch/internal/infra/notifier"
)

type mockChannel struct {
	name    string
	enabled bool

	mu        sync.Mutex
	sent      []*entity.Draft
	requestID []string
	sendFunc  func(ctx context.Context, d *entity.Draft) error
}

func (m *mockChannel) Name() string    { return m.name }
func (m *mockChannel) IsEnabled() bool { return m.enabled }

func (m *mockChannel) Send(ctx context.Context, d *entity.Draft) error {
	m.mu.Lock()
	m.sent = append(m.sent, d)
	if id := requestid.FromContext(ctx); id != "" {
		m.requestID = append(m.requestID, id)
	}
	fn := m.sendFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, d)
	}
	return nil
}

func sentIDs(m *mockChannel) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.sent))
	for _, d := range m.sent {
		ids = append(ids, d.ID)
	}
	return ids
}

func (m *mockChannel) getSendCalledCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func testDraft(id int64) *entity.Draft {
	return &entity.Draft{
		ID:         id,
		SourceKind: entity.SourceKindChannel,
		SourceName: "@news",
		Text:       "TON price rises",
		SourceURL:  fmt.Sprintf("https://t.me/news/%d", id),
		Status:     entity.DraftStatusNew,
	}
}

// waitIdle blocks until every queued notification has finished.
func waitIdle(t *testing.T, svc Service) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		svc.(*service).pending.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifications did not finish")
	}
}

func TestNotifyDraft_NoChannelsEnabled(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: false}
	svc := NewService([]Channel{ch}, 10)

	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
	waitIdle(t, svc)

	assert.Equal(t, 0, ch.getSendCalledCount())
}

func TestNotifyDraft_FansOutToEnabledChannels(t *testing.T) {
	a := &mockChannel{name: "telegram", enabled: true}
	b := &mockChannel{name: "audit", enabled: true}
	off := &mockChannel{name: "disabled", enabled: false}
	svc := NewService([]Channel{a, b, off}, 10)

	draft := testDraft(7)
	require.NoError(t, svc.NotifyDraft(context.Background(), draft))
	waitIdle(t, svc)

	assert.Equal(t, 1, a.getSendCalledCount())
	assert.Equal(t, 1, b.getSendCalledCount())
	assert.Equal(t, 0, off.getSendCalledCount())
	assert.Same(t, draft, a.sent[0])
}

func TestNotifyDraft_NilDraft(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true}
	svc := NewService([]Channel{ch}, 10)

	assert.NoError(t, svc.NotifyDraft(context.Background(), nil))
	waitIdle(t, svc)
	assert.Equal(t, 0, ch.getSendCalledCount())
}

func TestNotifyDraft_RequestID(t *testing.T) {
	t.Run("generated", func(t *testing.T) {
		ch := &mockChannel{name: "telegram", enabled: true}
		svc := NewService([]Channel{ch}, 10)

		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
		waitIdle(t, svc)

		require.Len(t, ch.requestID, 1)
		assert.Len(t, ch.requestID[0], 36)
	})

	t.Run("inherited", func(t *testing.T) {
		ch := &mockChannel{name: "telegram", enabled: true}
		svc := NewService([]Channel{ch}, 10)

		ctx := requestid.WithRequestID(context.Background(), "req-123")
		require.NoError(t, svc.NotifyDraft(ctx, testDraft(1)))
		waitIdle(t, svc)

		assert.Equal(t, []string{"req-123"}, ch.requestID)
	})
}

func TestNotifyDraft_NonBlocking(t *testing.T) {
	release := make(chan struct{})
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(ctx context.Context, _ *entity.Draft) error {
		<-release
		return nil
	}}
	svc := NewService([]Channel{ch}, 10)

	start := time.Now()
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
	assert.Less(t, time.Since(start), 100*time.Millisecond)

	close(release)
	waitIdle(t, svc)
}

func TestNotifyDraft_FailureDoesNotAffectOtherChannels(t *testing.T) {
	bad := &mockChannel{name: "bad", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		return errors.New("send failed")
	}}
	good := &mockChannel{name: "good", enabled: true}
	svc := NewService([]Channel{bad, good}, 10)

	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
	waitIdle(t, svc)

	assert.Equal(t, 1, bad.getSendCalledCount())
	assert.Equal(t, 1, good.getSendCalledCount())
}

func TestNotifyChannel_PanicRecovery(t *testing.T) {
	panicky := &mockChannel{name: "panicky", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		panic("boom")
	}}
	good := &mockChannel{name: "good", enabled: true}
	svc := NewService([]Channel{panicky, good}, 10)

	require.NotPanics(t, func() {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
		waitIdle(t, svc)
	})
	assert.Equal(t, 1, good.getSendCalledCount())
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		return errors.New("upstream down")
	}}
	svc := NewService([]Channel{ch}, 10)

	// NotifyConfig trips after three requests at a 50% failure ratio.
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
		waitIdle(t, svc)
	}
	require.Equal(t, 3, ch.getSendCalledCount())

	health := svc.GetChannelHealth()
	require.Len(t, health, 1)
	assert.True(t, health[0].CircuitBreakerOpen)
	assert.Equal(t, "open", health[0].State)

	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(4)))
	waitIdle(t, svc)
	assert.Equal(t, 3, ch.getSendCalledCount(), "open breaker must skip Send")
}

func TestCircuitBreaker_ThrottlingIsNotAFailure(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		return fmt.Errorf("chat 1: %w", notifier.ErrRateLimited)
	}}
	svc := NewService([]Channel{ch}, 10)

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
		waitIdle(t, svc)
	}

	assert.Equal(t, 5, ch.getSendCalledCount())
	assert.False(t, svc.GetChannelHealth()[0].CircuitBreakerOpen)
}

func TestQueue_DropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	ch := &mockChannel{name: "queue-full-test", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		calls.Add(1)
		<-release
		return nil
	}}
	svc := NewService([]Channel{ch}, 1)
	dropped := dropsByReason.WithLabelValues("queue-full-test", dropQueueFull)
	before := testutil.ToFloat64(dropped)

	// the worker holds draft 1, draft 2 waits in the queue, draft 3 overflows
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(2)))
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(3)))
	assert.Equal(t, before+1, testutil.ToFloat64(dropped))

	close(release)
	waitIdle(t, svc)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, []int64{1, 2}, sentIDs(ch))
}

func TestQueue_DeliversInOrder(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		time.Sleep(2 * time.Millisecond)
		return nil
	}}
	svc := NewService([]Channel{ch}, 50)

	for i := int64(1); i <= 10; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
	}
	waitIdle(t, svc)

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, sentIDs(ch))
}

func TestQueue_PacedBurstIsNotDropped(t *testing.T) {
	throttle := notifier.NewThrottle(20*time.Millisecond, time.Second)
	var deadlines atomic.Int32
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(ctx context.Context, _ *entity.Draft) error {
		if _, ok := ctx.Deadline(); ok {
			deadlines.Add(1)
		}
		return throttle.Wait(ctx, 1)
	}}
	svc := NewService([]Channel{ch}, 10)

	start := time.Now()
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
	}
	waitIdle(t, svc)

	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sentIDs(ch))
	assert.Zero(t, deadlines.Load(), "a queued send must not race a per-send deadline")
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond, "sends are paced, not dropped")
}

func TestGetChannelHealth(t *testing.T) {
	svc := NewService([]Channel{
		&mockChannel{name: "telegram", enabled: true},
		&mockChannel{name: "audit", enabled: false},
	}, 10)

	health := svc.GetChannelHealth()
	require.Len(t, health, 2)
	assert.Equal(t, ChannelHealthStatus{Name: "telegram", Enabled: true, State: "closed"}, health[0])
	assert.Equal(t, ChannelHealthStatus{Name: "audit", Enabled: false, State: "closed"}, health[1])
}

func TestShutdown_WaitsForInflight(t *testing.T) {
	var finished atomic.Bool
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}}
	svc := NewService([]Channel{ch}, 10)
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.True(t, finished.Load())
}

func TestShutdown_Timeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		<-release
		return nil
	}}
	svc := NewService([]Channel{ch}, 10)
	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Shutdown(ctx), context.DeadlineExceeded)
}

func TestShutdown_DrainsQueue(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true, sendFunc: func(context.Context, *entity.Draft) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}}
	svc := NewService([]Channel{ch}, 10)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, svc.Shutdown(ctx))
	assert.Equal(t, []int64{1, 2, 3, 4, 5}, sentIDs(ch))
}

func TestShutdown_TimeoutCancelsSendAndDropsBacklog(t *testing.T) {
	var calls atomic.Int32
	ch := &mockChannel{name: "shutdown-drop-test", enabled: true, sendFunc: func(ctx context.Context, _ *entity.Draft) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}}
	svc := NewService([]Channel{ch}, 10)
	dropped := dropsByReason.WithLabelValues("shutdown-drop-test", dropShutdown)
	before := testutil.ToFloat64(dropped)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(i)))
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, svc.Shutdown(ctx), context.DeadlineExceeded)

	waitIdle(t, svc)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, before+2, testutil.ToFloat64(dropped))
}

func TestShutdown_RejectsNewWork(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true}
	svc := NewService([]Channel{ch}, 10)
	require.NoError(t, svc.Shutdown(context.Background()))

	require.NoError(t, svc.NotifyDraft(context.Background(), testDraft(1)))
	waitIdle(t, svc)
	assert.Equal(t, 0, ch.getSendCalledCount())
}

func TestConcurrentNotifications(t *testing.T) {
	ch := &mockChannel{name: "telegram", enabled: true}
	svc := NewService([]Channel{ch}, 20)

	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = svc.NotifyDraft(context.Background(), testDraft(id))
		}(i)
	}
	wg.Wait()
	waitIdle(t, svc)

	assert.Equal(t, 20, ch.getSendCalledCount())
}
