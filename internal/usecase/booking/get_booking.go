package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type GetBookingUseCase struct {
	deps Deps
}

func NewGetBookingUseCase(deps Deps) *GetBookingUseCase {
	return &GetBookingUseCase{deps: deps}
}

func (uc *GetBookingUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*entity.Booking, error) {
	var b *entity.Booking
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		b, err = tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return storeError(err)
		}
		if !b.CanView(actor) {
			return apperror.ErrNotParticipant
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

type ListBookingsInput struct {
	Status *valueobject.BookingStatus
	Limit  int
	Offset int
}

type ListBookingsUseCase struct {
	deps Deps
}

func NewListBookingsUseCase(deps Deps) *ListBookingsUseCase {
	return &ListBookingsUseCase{deps: deps}
}

// Execute возвращает бронирования стороны. Администратор видит все.
func (uc *ListBookingsUseCase) Execute(ctx context.Context, actor entity.Principal, input ListBookingsInput) ([]*entity.Booking, int, error) {
	if input.Limit <= 0 || input.Limit > 100 {
		input.Limit = 20
	}
	if input.Offset < 0 {
		input.Offset = 0
	}

	filter := repository.BookingFilter{
		ProfileID: actor.ProfileID,
		Role:      actor.Role,
		Status:    input.Status,
		Limit:     input.Limit,
		Offset:    input.Offset,
	}

	var (
		items []*entity.Booking
		total int
	)
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		items, total, err = tx.Bookings().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

type LedgerView struct {
	Summary entity.LedgerSummary
	Entries []entity.EscrowTransaction
}

type GetLedgerUseCase struct {
	deps Deps
}

func NewGetLedgerUseCase(deps Deps) *GetLedgerUseCase {
	return &GetLedgerUseCase{deps: deps}
}

func (uc *GetLedgerUseCase) Execute(ctx context.Context, bookingID uuid.UUID, actor entity.Principal) (*LedgerView, error) {
	var view LedgerView
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().FindByID(ctx, bookingID)
		if err != nil {
			return storeError(err)
		}
		if !b.CanView(actor) {
			return apperror.ErrNotParticipant
		}
		view.Summary, view.Entries, err = uc.deps.Ledger.Summary(ctx, tx, b)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}
