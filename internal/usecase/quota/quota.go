// Package quota считает лимиты тарифа бренда. Счётчик читается с блокировкой
// в транзакции вызывающего кода и записывается только если действие разрешено.
package quota

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type Result struct {
	Allowed bool              `json:"allowed"`
	Used    int64             `json:"used"`
	Limit   entitlement.Limit `json:"limit"`
}

// Remaining - сколько действий ещё доступно; для безлимитных тарифов возвращает Unlimited.
func (r Result) Remaining() entitlement.Limit {
	if r.Limit.IsUnlimited() {
		return entitlement.Unlimited
	}
	if left := int64(r.Limit) - r.Used; left > 0 {
		return entitlement.Limit(left)
	}
	return 0
}

// CheckAndConsumeMessageQuota - первое сообщение новому креатору.
func CheckAndConsumeMessageQuota(ctx context.Context, tx repository.Tx, brandID uuid.UUID, plan entitlement.Plan, now time.Time) (Result, error) {
	return consume(ctx, tx, brandID, entity.CounterCreatorsMessaged, entitlement.MessageLimit(plan), now)
}

// CheckAndConsumeMassMessageQuota - одна массовая рассылка.
func CheckAndConsumeMassMessageQuota(ctx context.Context, tx repository.Tx, brandID uuid.UUID, plan entitlement.Plan, now time.Time) (Result, error) {
	return consume(ctx, tx, brandID, entity.CounterMassMessages, entitlement.For(plan).MassMessageLimit, now)
}

func consume(ctx context.Context, tx repository.Tx, brandID uuid.UUID, kind entity.UsageCounterKind, limit entitlement.Limit, now time.Time) (Result, error) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"brand_profile_id": brandID,
		"counter":          kind,
	})

	counter, err := tx.Usage().GetForUpdate(ctx, brandID, now)
	if err != nil {
		metrics.RecordQuotaDecision(string(kind), "error")
		log.WithError(err).Error("usage counter unavailable")
		return Result{}, apperror.QuotaCheckFailed(err)
	}

	used := counter.Effective(kind, now)
	if !limit.Allows(used) {
		metrics.RecordQuotaDecision(string(kind), "denied")
		log.WithField("used", used).Info("quota exceeded")
		return Result{Allowed: false, Used: used, Limit: limit}, nil
	}

	used = counter.Consume(kind, now)
	if err := tx.Usage().Save(ctx, counter); err != nil {
		metrics.RecordQuotaDecision(string(kind), "error")
		log.WithError(err).Error("usage counter save failed")
		return Result{}, apperror.QuotaCheckFailed(err)
	}

	metrics.RecordQuotaDecision(string(kind), "allowed")
	return Result{Allowed: true, Used: used, Limit: limit}, nil
}

// Snapshot - текущее использование без записи.
type Snapshot struct {
	Plan             entitlement.Plan  `json:"plan"`
	CreatorsMessaged int64             `json:"creators_messaged_this_month"`
	MessageLimit     entitlement.Limit `json:"message_limit"`
	MassMessages     int64             `json:"mass_messages_today"`
	MassMessageLimit entitlement.Limit `json:"mass_message_limit"`
}

func Read(ctx context.Context, tx repository.Tx, brandID uuid.UUID, plan entitlement.Plan, now time.Time) (Snapshot, error) {
	s := Snapshot{
		Plan:             plan,
		MessageLimit:     entitlement.MessageLimit(plan),
		MassMessageLimit: entitlement.For(plan).MassMessageLimit,
	}

	counter, err := tx.Usage().Get(ctx, brandID)
	if errors.Is(err, repository.ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return Snapshot{}, apperror.QuotaCheckFailed(err)
	}
	s.CreatorsMessaged = counter.Effective(entity.CounterCreatorsMessaged, now)
	s.MassMessages = counter.Effective(entity.CounterMassMessages, now)
	return s, nil
}
