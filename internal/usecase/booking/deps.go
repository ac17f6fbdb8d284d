package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/escrow"
)

// Notifier получает намерения уведомить уже после фиксации транзакции.
type Notifier interface {
	Publish(ctx context.Context, intents ...entity.NotificationIntent)
}

type Deps struct {
	Tx       repository.Transactor
	Ledger   *escrow.Ledger
	Notifier Notifier
	Clock    func() time.Time
}

func (d Deps) now() time.Time {
	if d.Clock != nil {
		return d.Clock().UTC()
	}
	return time.Now().UTC()
}

type mutation func(ctx context.Context, tx repository.Tx, b *entity.Booking, now time.Time) ([]entity.NotificationIntent, error)

// mutate блокирует строку бронирования, применяет fn и сохраняет результат в одной транзакции.
// Уведомления уходят только после успешной фиксации.
func (d Deps) mutate(ctx context.Context, action string, bookingID uuid.UUID, actor entity.Principal, fn mutation) (*entity.Booking, error) {
	var (
		result  *entity.Booking
		intents []entity.NotificationIntent
	)
	now := d.now()

	err := d.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return storeError(err)
		}
		if !b.IsParticipant(actor.ProfileID) {
			return apperror.ErrNotParticipant
		}
		open, err := tx.Disputes().FindOpenByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperror.ErrDisputeActive
		}

		intents, err = fn(ctx, tx, b, now)
		if err != nil {
			return err
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return storeError(err)
		}
		result = b
		return nil
	})

	metrics.RecordBookingTransition(action, err)
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"action":     action,
		"booking_id": bookingID,
		"actor":      actor.UserID,
	})
	if err != nil {
		log.WithError(err).Info("booking transition rejected")
		return nil, err
	}
	log.WithField("status", result.Status).Info("booking transition applied")

	d.publish(ctx, intents)
	return result, nil
}

func (d Deps) publish(ctx context.Context, intents []entity.NotificationIntent) {
	if d.Notifier != nil && len(intents) > 0 {
		d.Notifier.Publish(ctx, intents...)
	}
}

// storeError переводит ошибки портов хранилища в ошибки приложения.
func storeError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.ErrBookingNotFound
	case errors.Is(err, repository.ErrStaleVersion):
		return apperror.ErrConcurrencyConflict
	}
	return err
}

func bookingData(b *entity.Booking) map[string]any {
	return map[string]any{
		"booking_id":   b.ID,
		"package_type": b.PackageType,
		"status":       b.Status,
	}
}
