// Package notify доставляет уведомления, которые переходы состояний возвращают
// как намерения. Доставка асинхронная и не влияет на результат операции:
// ошибки приёмников только логируются и считаются в метриках.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/goroutine"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
)

const (
	defaultBuffer  = 256
	deliverTimeout = 5 * time.Second
)

// Sink - канал доставки: входящие в БД, websocket, pub/sub.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, intent entity.NotificationIntent) error
}

type envelope struct {
	intent    entity.NotificationIntent
	requestID string
}

type Dispatcher struct {
	queue chan envelope
	sinks []Sink
	wg    sync.WaitGroup
	once  sync.Once

	// mu защищает closed: после остановки воркера очередь никто не читает
	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(buffer int, sinks ...Sink) *Dispatcher {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Dispatcher{
		queue: make(chan envelope, buffer),
		sinks: sinks,
	}
}

// Publish не блокируется: при переполненной очереди или остановленном воркере
// уведомление отбрасывается.
func (d *Dispatcher) Publish(ctx context.Context, intents ...entity.NotificationIntent) {
	requestID := logger.RequestID(ctx)

	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, intent := range intents {
		if d.closed {
			d.dropped(ctx, intent, "notification dispatcher stopped, intent dropped")
			continue
		}
		select {
		case d.queue <- envelope{intent: intent, requestID: requestID}:
		default:
			d.dropped(ctx, intent, "notification queue full, intent dropped")
		}
	}
}

func (d *Dispatcher) dropped(ctx context.Context, intent entity.NotificationIntent, msg string) {
	metrics.RecordNotificationDropped()
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"type":      intent.Type,
		"recipient": intent.Recipient,
	}).Warn(msg)
}

// Start запускает воркер. После отмены ctx воркер дочитывает очередь и завершается.
func (d *Dispatcher) Start(ctx context.Context) {
	d.once.Do(func() {
		d.wg.Add(1)
		goroutine.SafeGoWithContext(ctx, "notify_dispatcher", d.run)
	})
}

// Wait ждёт завершения воркера после отмены контекста Start.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case env := <-d.queue:
			d.deliver(env)
		case <-ctx.Done():
			d.mu.Lock()
			d.closed = true
			d.mu.Unlock()
			d.drain()
			return
		}
	}
}

func (d *Dispatcher) drain() {
	for {
		select {
		case env := <-d.queue:
			d.deliver(env)
		default:
			return
		}
	}
}

func (d *Dispatcher) deliver(env envelope) {
	ctx := logger.WithRequestID(context.Background(), env.requestID)
	for _, sink := range d.sinks {
		sink := sink
		goroutine.Run("notify_sink_"+sink.Name(), func() {
			sctx, cancel := context.WithTimeout(ctx, deliverTimeout)
			defer cancel()

			err := sink.Deliver(sctx, env.intent)
			metrics.RecordNotification(sink.Name(), err)
			if err != nil {
				logger.FromContext(ctx).WithFields(logrus.Fields{
					"sink":      sink.Name(),
					"type":      env.intent.Type,
					"recipient": env.intent.Recipient,
				}).WithError(err).Warn("notification delivery failed")
			}
		})
	}
}
