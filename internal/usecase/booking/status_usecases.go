package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

type AcceptBookingUseCase struct {
	deps Deps
}

func NewAcceptBookingUseCase(deps Deps) *AcceptBookingUseCase {
	return &AcceptBookingUseCase{deps: deps}
}

func (uc *AcceptBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "accept", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.Accept(actor, now); err != nil {
			return nil, err
		}
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyBookingAccepted, b.BrandID, bookingData(b)),
		}, nil
	})
}

type DeclineBookingUseCase struct {
	deps Deps
}

func NewDeclineBookingUseCase(deps Deps) *DeclineBookingUseCase {
	return &DeclineBookingUseCase{deps: deps}
}

// Execute отклоняет бронирование. Внесённый депозит возвращается, непроведённый закрывается.
func (uc *DeclineBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "decline", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.Decline(actor, now); err != nil {
			return nil, err
		}
		refunded, err := uc.deps.unwindDeposit(ctx, tx, b, now)
		if err != nil {
			return nil, err
		}
		data := bookingData(b)
		data["refund_amount"] = refunded.Int64()
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyBookingDeclined, b.BrandID, data),
		}, nil
	})
}

type StartWorkUseCase struct {
	deps Deps
}

func NewStartWorkUseCase(deps Deps) *StartWorkUseCase {
	return &StartWorkUseCase{deps: deps}
}

func (uc *StartWorkUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "start_work", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.StartWork(actor, now); err != nil {
			return nil, err
		}
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyWorkStarted, b.BrandID, bookingData(b)),
		}, nil
	})
}

type SubmitDeliveryUseCase struct {
	deps Deps
}

func NewSubmitDeliveryUseCase(deps Deps) *SubmitDeliveryUseCase {
	return &SubmitDeliveryUseCase{deps: deps}
}

func (uc *SubmitDeliveryUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "submit_delivery", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.SubmitDelivery(actor, now); err != nil {
			return nil, err
		}
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyDeliverySubmitted, b.BrandID, bookingData(b)),
		}, nil
	})
}

type RequestRevisionUseCase struct {
	deps Deps
}

func NewRequestRevisionUseCase(deps Deps) *RequestRevisionUseCase {
	return &RequestRevisionUseCase{deps: deps}
}

func (uc *RequestRevisionUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal, comment string) (*entity.Booking, error) {
	return uc.deps.mutate(ctx, "request_revision", bookingID, actor, func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error) {
		if err := b.RequestRevision(actor, now); err != nil {
			return nil, err
		}
		data := bookingData(b)
		if comment != "" {
			data["comment"] = comment
		}
		return []entity.NotificationIntent{
			entity.NewIntent(entity.NotifyRevisionRequested, b.CreatorID, data),
		}, nil
	})
}

// unwindDeposit возвращает внесённый депозит и закрывает непроведённые депозиты.
func (d Deps) unwindDeposit(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) (valueobject.Money, error) {
	refunded, err := d.Ledger.RefundDeposit(ctx, tx, b, now)
	if err != nil {
		return 0, err
	}
	if err := d.Ledger.FailPendingDeposits(ctx, tx, b, now); err != nil {
		return 0, err
	}
	return refunded, nil
}
