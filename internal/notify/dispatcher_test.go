package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/notify"
)

func init() {
	logger.Silence()
}

type recordingSink struct {
	mu       sync.Mutex
	name     string
	received []entity.NotificationIntent
	err      error
	panics   bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Deliver(_ context.Context, intent entity.NotificationIntent) error {
	if s.panics {
		panic("sink exploded")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, intent)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.received)
}

type pusher struct {
	mu     sync.Mutex
	events map[uuid.UUID][]string
}

func (p *pusher) SendToProfile(_ context.Context, profileID uuid.UUID, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[profileID] = append(p.events[profileID], event)
	return nil
}

func TestDispatcher_FansOutAndIsolatesFailures(t *testing.T) {
	ok := &recordingSink{name: "ok"}
	failing := &recordingSink{name: "failing", err: errors.New("down")}
	broken := &recordingSink{name: "broken", panics: true}

	d := notify.NewDispatcher(8, broken, failing, ok)
	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)

	recipient := uuid.New()
	d.Publish(context.Background(),
		entity.NewIntent(entity.NotifyBookingCreated, recipient, nil),
		entity.NewIntent(entity.NotifyDepositPaid, recipient, map[string]any{"amount": 3000}),
	)

	require.Eventually(t, func() bool { return ok.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, failing.count())

	cancel()
	d.Wait()
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := notify.NewDispatcher(1, sink)

	recipient := uuid.New()
	d.Publish(context.Background(),
		entity.NewIntent(entity.NotifyBookingCreated, recipient, nil),
		entity.NewIntent(entity.NotifyBookingAccepted, recipient, nil),
	)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Start(ctx)
	d.Wait()

	assert.Equal(t, 1, sink.count())
}

func TestDispatcher_DropsAfterStop(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	d := notify.NewDispatcher(8, sink)

	ctx, cancel := context.WithCancel(context.Background())
	d.Start(ctx)
	cancel()
	d.Wait()

	before := testutil.ToFloat64(metrics.NotificationsDroppedTotal)
	recipient := uuid.New()
	d.Publish(context.Background(),
		entity.NewIntent(entity.NotifyBookingCreated, recipient, nil),
		entity.NewIntent(entity.NotifyBookingAccepted, recipient, nil),
	)

	assert.Equal(t, before+2, testutil.ToFloat64(metrics.NotificationsDroppedTotal))
	assert.Zero(t, sink.count())
}

func TestStoreSink_WritesEventPayload(t *testing.T) {
	repo := memory.NewNotificationRepository()
	sink := notify.NewStoreSink(repo)
	recipient := uuid.New()

	err := sink.Deliver(context.Background(), entity.NewIntent(entity.NotifyDisputeOpened, recipient, map[string]any{"booking_id": "b-1"}))
	require.NoError(t, err)

	items, err := repo.List(context.Background(), recipient, 10, 0, true)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var p notify.Payload
	require.NoError(t, json.Unmarshal(items[0].Payload, &p))
	assert.Equal(t, entity.NotifyDisputeOpened, p.Event)
	assert.Equal(t, "b-1", p.Data["booking_id"])
}

func TestHubSink(t *testing.T) {
	hub := &pusher{events: map[uuid.UUID][]string{}}
	recipient := uuid.New()

	err := notify.NewHubSink(hub).Deliver(context.Background(), entity.NewIntent(entity.NotifySubscriptionExpired, recipient, nil))
	require.NoError(t, err)
	assert.Equal(t, []string{"subscription_expired"}, hub.events[recipient])
	assert.Equal(t, "notifications:"+recipient.String(), notify.Channel(recipient))
}
