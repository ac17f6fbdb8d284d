package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

type CreateBookingInput struct {
	CreatorID     uuid.UUID
	PackageType   valueobject.PackageType
	TotalPrice    valueobject.Money
	DepositAmount valueobject.Money
	EventDate     *time.Time
	Notes         string
}

type CreateBookingUseCase struct {
	deps Deps
}

func NewCreateBookingUseCase(deps Deps) *CreateBookingUseCase {
	return &CreateBookingUseCase{deps: deps}
}

// Execute создаёт бронирование от имени бренда и открывает pending-депозит в леджере.
func (uc *CreateBookingUseCase) Execute(ctx context.Context, actor entity.Principal, input CreateBookingInput) (*entity.Booking, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "создать бронирование может только бренд")
	}
	now := uc.deps.now()

	var booking *entity.Booking
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		plan, err := subscription.ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		if err := entitlement.Require(plan, entitlement.CapBookCreators); err != nil {
			return err
		}

		b, err := entity.NewBooking(entity.NewBookingParams{
			BrandID:       actor.ProfileID,
			CreatorID:     input.CreatorID,
			PackageType:   input.PackageType,
			TotalPrice:    input.TotalPrice,
			DepositAmount: input.DepositAmount,
			EventDate:     input.EventDate,
			Notes:         input.Notes,
		}, uc.deps.Ledger.Fees(), now)
		if err != nil {
			return err
		}
		if err := tx.Bookings().Create(ctx, b); err != nil {
			return err
		}
		if _, err := uc.deps.Ledger.RecordDeposit(ctx, tx, b, b.DepositAmount, valueobject.TransactionStatusPending, now); err != nil {
			return err
		}
		booking = b
		return nil
	})

	metrics.RecordBookingTransition("create", err)
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"booking_id":  booking.ID,
		"brand_id":    booking.BrandID,
		"creator_id":  booking.CreatorID,
		"total_price": booking.TotalPrice.Int64(),
	}).Info("booking created")

	uc.deps.publish(ctx, []entity.NotificationIntent{
		entity.NewIntent(entity.NotifyBookingCreated, booking.CreatorID, bookingData(booking)),
	})
	return booking, nil
}
