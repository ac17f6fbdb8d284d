package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type PayDepositUseCase struct {
	deps Deps
}

func NewPayDepositUseCase(deps Deps) *PayDepositUseCase {
	return &PayDepositUseCase{deps: deps}
}

// Execute проводит pending-депозит бронирования. Платёжный шлюз вне системы,
// вызов означает подтверждённую оплату.
func (uc *PayDepositUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "pay_deposit", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if !actor.IsBrand() || actor.ProfileID != b.BrandID {
			return nil, apperror.New(apperror.ErrCodeForbidden, "внести депозит может только бренд бронирования")
		}
		if b.Status.IsTerminal() {
			return nil, apperror.InvalidTransition("бронирование уже закрыто").WithDetail("status", string(b.Status))
		}

		pending, err := uc.deps.Ledger.PendingDeposit(ctx, tx, b.ID)
		if err != nil {
			return nil, err
		}
		if pending == nil {
			return nil, apperror.InvalidTransition("нет ожидающего депозита")
		}
		if err := uc.deps.Ledger.Settle(ctx, tx, b, pending.ID, valueobject.TransactionStatusProcessed, now); err != nil {
			return nil, err
		}

		data := bookingData(b)
		data["amount"] = pending.Amount.Int64()
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyDepositPaid, b.CreatorID, data),
		}, nil
	})
}

type ConfirmDeliveryUseCase struct {
	deps Deps
}

func NewConfirmDeliveryUseCase(deps Deps) *ConfirmDeliveryUseCase {
	return &ConfirmDeliveryUseCase{deps: deps}
}

// Execute подтверждает сдачу работы: статусы бронирования и выплата остатка
// фиксируются одной транзакцией.
func (uc *ConfirmDeliveryUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "confirm_delivery", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		totals, err := uc.deps.Ledger.Totals(ctx, tx, b.ID)
		if err != nil {
			return nil, err
		}
		if err := b.ConfirmDelivery(actor, now); err != nil {
			return nil, err
		}
		if !totals.DepositCovered(b) {
			return nil, apperror.InvalidTransition("подтверждение невозможно без внесённого депозита")
		}
		released, err := uc.deps.Ledger.ReleaseBalance(ctx, tx, b, now)
		if err != nil {
			return nil, err
		}

		data := bookingData(b)
		data["release_amount"] = released.Int64()
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyBookingConfirmed, b.CreatorID, data),
		}, nil
	})
}

type CancelBookingUseCase struct {
	deps Deps
}

func NewCancelBookingUseCase(deps Deps) *CancelBookingUseCase {
	return &CancelBookingUseCase{deps: deps}
}

// Execute отменяет бронирование любой из сторон и возвращает внесённый депозит.
func (uc *CancelBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "cancel", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.Cancel(actor, now); err != nil {
			return nil, err
		}
		refunded, err := uc.deps.unwindDeposit(ctx, tx, b, now)
		if err != nil {
			return nil, err
		}

		data := bookingData(b)
		data["refund_amount"] = refunded.Int64()
		data["cancelled_by"] = actor.Role
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyBookingCancelled, b.Counterparty(actor.ProfileID), data),
		}, nil
	})
}
