package subscription

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/goroutine"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
)

const (
	defaultSweepConcurrency = 8
	winbackAfterDays        = 7
)

// Дни до окончания периода, за которые уходит напоминание.
var reminderDays = map[int]bool{7: true, 3: true}

type Report struct {
	Scanned   int `json:"scanned"`
	Reminders int `json:"reminders"`
	Expired   int `json:"expired"`
	WinBacks  int `json:"winbacks"`
	Failed    int `json:"failed"`
}

type counters struct {
	reminders, expired, winbacks, failed atomic.Int64
}

// Sweep - ежедневный обход подписок: напоминания, истечение с переводом на none, win-back.
type Sweep struct {
	tx          repository.Transactor
	notifier    Notifier
	concurrency int
}

func NewSweep(tx repository.Transactor, notifier Notifier, concurrency int) *Sweep {
	if concurrency <= 0 {
		concurrency = defaultSweepConcurrency
	}
	return &Sweep{tx: tx, notifier: notifier, concurrency: concurrency}
}

// Run выполняет один проход. Ошибка отдельной подписки не прерывает остальные,
// она учитывается в Report.Failed. Ошибка возвращается, только если не удалось получить списки.
func (s *Sweep) Run(ctx context.Context, now time.Time) (Report, error) {
	started := time.Now()
	now = now.UTC()
	log := logger.FromContext(ctx).WithField("job", "subscription_sweep")

	var (
		report Report
		c      counters
	)
	active, err := s.listActivePaid(ctx)
	if err != nil {
		metrics.RecordSweepRun(err, time.Since(started).Seconds())
		log.WithError(err).Error("sweep: list active subscriptions failed")
		return report, err
	}
	lapsed, err := s.listWinbackCandidates(ctx, now)
	if err != nil {
		metrics.RecordSweepRun(err, time.Since(started).Seconds())
		log.WithError(err).Error("sweep: list expired subscriptions failed")
		return report, err
	}
	report.Scanned = len(active) + len(lapsed)

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, sub := range active {
		sub := sub
		g.Go(func() error {
			s.isolate(ctx, log, sub, &c, func() error { return s.processActive(ctx, sub, now, &c) })
			return nil
		})
	}
	for _, sub := range lapsed {
		sub := sub
		g.Go(func() error {
			s.isolate(ctx, log, sub, &c, func() error { return s.processWinback(ctx, sub, now, &c) })
			return nil
		})
	}
	_ = g.Wait()

	report.Reminders = int(c.reminders.Load())
	report.Expired = int(c.expired.Load())
	report.WinBacks = int(c.winbacks.Load())
	report.Failed = int(c.failed.Load())

	metrics.RecordSweepAction("reminder", report.Reminders)
	metrics.RecordSweepAction("expired", report.Expired)
	metrics.RecordSweepAction("winback", report.WinBacks)
	metrics.RecordSweepAction("failed", report.Failed)
	metrics.RecordSweepRun(nil, time.Since(started).Seconds())

	log.WithFields(logrus.Fields{
		"scanned":   report.Scanned,
		"reminders": report.Reminders,
		"expired":   report.Expired,
		"winbacks":  report.WinBacks,
		"failed":    report.Failed,
	}).Info("subscription sweep finished")
	return report, nil
}

// isolate превращает ошибку или panic обработки одной подписки в счётчик Failed.
func (s *Sweep) isolate(ctx context.Context, log *logrus.Entry, sub *entity.Subscription, c *counters, fn func() error) {
	var err error
	ok := goroutine.Run("subscription_sweep", func() { err = fn() })
	if !ok {
		err = errors.New("panic while processing subscription")
	}
	if err != nil {
		c.failed.Add(1)
		log.WithFields(logrus.Fields{
			"subscription_id":  sub.ID,
			"brand_profile_id": sub.BrandProfileID,
		}).WithError(err).Warn("sweep: subscription skipped")
	}
}

func (s *Sweep) processActive(ctx context.Context, sub *entity.Subscription, now time.Time, c *counters) error {
	days := sub.DaysUntilExpiry(now)
	switch {
	case reminderDays[days]:
		c.reminders.Add(1)
		s.publish(ctx, entity.NewIntent(entity.NotifySubscriptionReminder, sub.BrandProfileID, map[string]any{
			"subscription_id":   sub.ID,
			"plan":              sub.PlanType,
			"days_until_expiry": days,
			"period_end":        sub.CurrentPeriodEnd,
		}))
		return nil
	case days <= 0:
		expired, err := s.expire(ctx, sub.ID, now)
		if err != nil || !expired {
			return err
		}
		c.expired.Add(1)
		s.publish(ctx, entity.NewIntent(entity.NotifySubscriptionExpired, sub.BrandProfileID, map[string]any{
			"subscription_id": sub.ID,
			"plan":            sub.PlanType,
		}))
	}
	return nil
}

// expire помечает подписку истёкшей и вставляет строку none, если активной строки у бренда не осталось.
func (s *Sweep) expire(ctx context.Context, subscriptionID uuid.UUID, now time.Time) (bool, error) {
	expired := false
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sub, err := tx.Subscriptions().FindByIDForUpdate(ctx, subscriptionID)
		if err != nil {
			return err
		}
		// строку могли изменить между выборкой и блокировкой
		if !sub.IsActive() || sub.DaysUntilExpiry(now) > 0 {
			return nil
		}
		if err := sub.Expire(now); err != nil {
			return err
		}
		if err := tx.Subscriptions().UpdateStatus(ctx, sub); err != nil {
			return err
		}
		if err := ensureFloor(ctx, tx, sub.BrandProfileID, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *Sweep) processWinback(ctx context.Context, sub *entity.Subscription, now time.Time, c *counters) error {
	var eligible bool
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.Subscriptions().FindActive(ctx, sub.BrandProfileID)
		if err != nil {
			return err
		}
		eligible = current == nil || !current.PlanType.IsPaid()
		return nil
	})
	if err != nil || !eligible {
		return err
	}

	c.winbacks.Add(1)
	s.publish(ctx, entity.NewIntent(entity.NotifySubscriptionWinback, sub.BrandProfileID, map[string]any{
		"previous_plan": sub.PlanType,
		"expired_at":    sub.CurrentPeriodEnd,
	}))
	return nil
}

func (s *Sweep) listActivePaid(ctx context.Context) ([]*entity.Subscription, error) {
	var subs []*entity.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		subs, err = tx.Subscriptions().ListActivePaid(ctx)
		return err
	})
	return subs, err
}

// listWinbackCandidates возвращает по одной истёкшей подписке на бренд,
// закончившейся ровно winbackAfterDays полных суток назад.
func (s *Sweep) listWinbackCandidates(ctx context.Context, now time.Time) ([]*entity.Subscription, error) {
	from := now.Add(-(winbackAfterDays + 1) * 24 * time.Hour)
	to := now.Add(-winbackAfterDays * 24 * time.Hour).Add(time.Nanosecond)

	var subs []*entity.Subscription
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		subs, err = tx.Subscriptions().ListExpiredBetween(ctx, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(subs))
	result := subs[:0]
	for _, sub := range subs {
		if sub.DaysSinceExpiry(now) != winbackAfterDays || seen[sub.BrandProfileID] {
			continue
		}
		seen[sub.BrandProfileID] = true
		result = append(result, sub)
	}
	return result, nil
}

func (s *Sweep) publish(ctx context.Context, intents ...entity.NotificationIntent) {
	if s.notifier != nil {
		s.notifier.Publish(ctx, intents...)
	}
}

// ensureFloor вставляет активную строку none, если у бренда нет активной подписки.
func ensureFloor(ctx context.Context, tx repository.Tx, brandID uuid.UUID, now time.Time) error {
	current, err := tx.Subscriptions().FindActiveForUpdate(ctx, brandID)
	if err != nil {
		return err
	}
	if current != nil {
		return nil
	}
	return tx.Subscriptions().Create(ctx, entity.NewFloorSubscription(brandID, now))
}
