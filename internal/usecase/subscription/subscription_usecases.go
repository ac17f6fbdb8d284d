package subscription

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/quota"
)

type Notifier interface {
	Publish(ctx context.Context, intents ...entity.NotificationIntent)
}

type Deps struct {
	Tx    repository.Transactor
	Clock func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

// View - действующая подписка бренда и её возможности.
type View struct {
	Subscription *entity.Subscription
	Entitlements entitlement.Entitlements
}

type GetCurrentUseCase struct {
	deps Deps
}

func NewGetCurrentUseCase(deps Deps) *GetCurrentUseCase {
	return &GetCurrentUseCase{deps: deps}
}

// Execute возвращает активную подписку. Если строки нет, отдаётся несохранённый тариф none.
func (uc *GetCurrentUseCase) Execute(ctx context.Context, actor entity.Principal) (*View, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подписки доступны только брендам")
	}
	now := uc.deps.now()

	var view View
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		sub, err := tx.Subscriptions().FindActive(ctx, actor.ProfileID)
		if err != nil {
			return err
		}
		if sub == nil {
			sub = entity.NewFloorSubscription(actor.ProfileID, now)
		}
		plan, err := ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		view = View{Subscription: sub, Entitlements: entitlement.For(plan)}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

type UpgradeInput struct {
	Plan   entitlement.Plan
	Months int
}

type UpgradeUseCase struct {
	deps Deps
}

func NewUpgradeUseCase(deps Deps) *UpgradeUseCase {
	return &UpgradeUseCase{deps: deps}
}

// Execute переводит бренд на платный тариф: текущая активная строка отменяется,
// новая вставляется с периодом от текущего момента. Оплата подтверждена заранее.
func (uc *UpgradeUseCase) Execute(ctx context.Context, actor entity.Principal, input UpgradeInput) (*entity.Subscription, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подписки доступны только брендам")
	}
	if !input.Plan.IsPaid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "выберите платный тариф")
	}
	if input.Months <= 0 {
		input.Months = 1
	}
	now := uc.deps.now()

	var created *entity.Subscription
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.Subscriptions().FindActiveForUpdate(ctx, actor.ProfileID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := current.Cancel(now); err != nil {
				return err
			}
			if err := tx.Subscriptions().UpdateStatus(ctx, current); err != nil {
				return err
			}
		}

		sub, err := entity.NewSubscription(actor.ProfileID, input.Plan, now.AddDate(0, input.Months, 0), now)
		if err != nil {
			return err
		}
		if err := tx.Subscriptions().Create(ctx, sub); err != nil {
			return err
		}
		created = sub
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"brand_profile_id": actor.ProfileID,
		"plan":             created.PlanType,
		"period_end":       created.CurrentPeriodEnd,
	}).Info("subscription upgraded")
	return created, nil
}

type CancelUseCase struct {
	deps Deps
}

func NewCancelUseCase(deps Deps) *CancelUseCase {
	return &CancelUseCase{deps: deps}
}

// Execute отменяет платную подписку и сразу переводит бренд на none.
func (uc *CancelUseCase) Execute(ctx context.Context, actor entity.Principal) (*entity.Subscription, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "подписки доступны только брендам")
	}
	now := uc.deps.now()

	var floor *entity.Subscription
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		current, err := tx.Subscriptions().FindActiveForUpdate(ctx, actor.ProfileID)
		if err != nil {
			return err
		}
		if current == nil || !current.PlanType.IsPaid() {
			return apperror.InvalidTransition("нет активной платной подписки")
		}
		if err := current.Cancel(now); err != nil {
			return err
		}
		if err := tx.Subscriptions().UpdateStatus(ctx, current); err != nil {
			return err
		}
		floor = entity.NewFloorSubscription(actor.ProfileID, now)
		return tx.Subscriptions().Create(ctx, floor)
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithField("brand_profile_id", actor.ProfileID).Info("subscription cancelled")
	return floor, nil
}

type GetUsageUseCase struct {
	deps Deps
}

func NewGetUsageUseCase(deps Deps) *GetUsageUseCase {
	return &GetUsageUseCase{deps: deps}
}

// Execute возвращает использование лимитов за текущие месяц и сутки без изменения счётчиков.
func (uc *GetUsageUseCase) Execute(ctx context.Context, actor entity.Principal) (quota.Snapshot, error) {
	if !actor.IsBrand() {
		return quota.Snapshot{}, apperror.New(apperror.ErrCodeForbidden, "лимиты доступны только брендам")
	}
	now := uc.deps.now()

	var snap quota.Snapshot
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		plan, err := ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		snap, err = quota.Read(ctx, tx, actor.ProfileID, plan, now)
		return err
	})
	return snap, err
}
