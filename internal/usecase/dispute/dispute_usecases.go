package dispute

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/metrics"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/escrow"
)

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

func (d Deps) publish(ctx context.Context, intents ...entity.NotificationIntent) {
	if d.Notifier != nil && len(intents) > 0 {
		d.Notifier.Publish(ctx, intents...)
	}
}

type OpenDisputeInput struct {
	BookingID uuid.UUID
	Reason    string
	Evidence  string
}

type OpenDisputeUseCase struct {
	deps Deps
}

func NewOpenDisputeUseCase(deps Deps) *OpenDisputeUseCase {
	return &OpenDisputeUseCase{deps: deps}
}

// Execute открывает спор и замораживает денежные переходы бронирования до решения администратора.
func (uc *OpenDisputeUseCase) Execute(ctx context.Context, actor entity.Principal, input OpenDisputeInput) (*entity.Dispute, error) {
	now := uc.deps.now()

	var (
		dispute *entity.Dispute
		booking *entity.Booking
	)
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := tx.Bookings().FindByIDForUpdate(ctx, input.BookingID)
		if err != nil {
			return bookingError(err)
		}
		open, err := tx.Disputes().FindOpenByBooking(ctx, b.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return apperror.ErrDisputeActive
		}

		d, err := entity.NewDispute(b, actor, input.Reason, input.Evidence, now)
		if err != nil {
			return err
		}
		totals, err := uc.deps.Ledger.Totals(ctx, tx, b.ID)
		if err != nil {
			return err
		}
		if totals.RefundableDeposit() <= 0 {
			return apperror.InvalidTransition("спор можно открыть только после внесения депозита")
		}

		if err := tx.Disputes().Create(ctx, d); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.ErrDisputeActive
			}
			return err
		}
		if err := uc.deps.Ledger.Sync(ctx, tx, b); err != nil {
			return err
		}
		if err := tx.Bookings().Update(ctx, b); err != nil {
			return bookingError(err)
		}
		dispute, booking = d, b
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDispute("opened")
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"dispute_id": dispute.ID,
		"booking_id": booking.ID,
		"opened_by":  actor.Role,
	}).Info("dispute opened")

	uc.deps.publish(ctx, entity.NewIntent(entity.NotifyDisputeOpened, booking.Counterparty(actor.ProfileID), disputeData(dispute)))
	return dispute, nil
}

type RespondDisputeUseCase struct {
	deps Deps
}

func NewRespondDisputeUseCase(deps Deps) *RespondDisputeUseCase {
	return &RespondDisputeUseCase{deps: deps}
}

// Execute сохраняет ответ второй стороны и передаёт спор администратору.
func (uc *RespondDisputeUseCase) Execute(ctx context.Context, disputeID uuid.UUID, actor entity.Principal, text string) (*entity.Dispute, error) {
	now := uc.deps.now()

	var (
		dispute *entity.Dispute
		opener  uuid.UUID
	)
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, b, err := lockPair(ctx, tx, disputeID)
		if err != nil {
			return err
		}
		if err := d.Respond(b, actor, text, now); err != nil {
			return err
		}
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return disputeError(err)
		}
		dispute, opener = d, openerProfile(d, b)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDispute("responded")
	uc.deps.publish(ctx, entity.NewIntent(entity.NotifyDisputeResponded, opener, disputeData(dispute)))
	return dispute, nil
}

type ResolveDisputeInput struct {
	DisputeID uuid.UUID
	Decision  valueobject.DisputeResolution
	Note      string
}

type ResolveDisputeResult struct {
	Dispute *entity.Dispute
	Booking *entity.Booking
	Amount  valueobject.Money
}

type ResolveDisputeUseCase struct {
	deps Deps
}

func NewResolveDisputeUseCase(deps Deps) *ResolveDisputeUseCase {
	return &ResolveDisputeUseCase{deps: deps}
}

// Execute закрывает спор решением администратора. В той же транзакции в леджер
// пишется ровно одна операция: выплата креатору или возврат бренду.
func (uc *ResolveDisputeUseCase) Execute(ctx context.Context, actor entity.Principal, input ResolveDisputeInput) (*ResolveDisputeResult, error) {
	now := uc.deps.now()

	var result ResolveDisputeResult
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		d, b, err := lockPair(ctx, tx, input.DisputeID)
		if err != nil {
			return err
		}
		if err := d.Resolve(actor, input.Decision, input.Note, now); err != nil {
			return err
		}
		// спор закрывается до записи в леджер, чтобы проекция сняла статус disputed
		if err := tx.Disputes().Update(ctx, d); err != nil {
			return disputeError(err)
		}

		var amount valueobject.Money
		switch input.Decision {
		case valueobject.DisputeResolutionRelease:
			if err := b.CompleteByResolution(now); err != nil {
				return err
			}
			amount, err = uc.deps.Ledger.ReleaseBalance(ctx, tx, b, now)
		case valueobject.DisputeResolutionRefund:
			if err := b.CancelByResolution(now); err != nil {
				return err
			}
			amount, err = uc.deps.Ledger.RefundDeposit(ctx, tx, b, now)
			if err == nil {
				err = uc.deps.Ledger.FailPendingDeposits(ctx, tx, b, now)
			}
		default:
			return apperror.New(apperror.ErrCodeValidation, "некорректное решение по спору")
		}
		if err != nil {
			return err
		}

		if err := tx.Bookings().Update(ctx, b); err != nil {
			return bookingError(err)
		}
		result = ResolveDisputeResult{Dispute: d, Booking: b, Amount: amount}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordDispute("resolved_" + string(input.Decision))
	logger.FromContext(ctx).WithFields(logrus.Fields{
		"dispute_id": result.Dispute.ID,
		"booking_id": result.Booking.ID,
		"decision":   input.Decision,
		"amount":     result.Amount.Int64(),
		"admin":      actor.UserID,
	}).Info("dispute resolved")

	data := disputeData(result.Dispute)
	data["amount"] = result.Amount.Int64()
	uc.deps.publish(ctx,
		entity.NewIntent(entity.NotifyDisputeResolved, result.Booking.BrandID, data),
		entity.NewIntent(entity.NotifyDisputeResolved, result.Booking.CreatorID, data),
	)
	return &result, nil
}

// QueueItem - спор в очереди администратора с признаками просрочки.
type QueueItem struct {
	Dispute           *entity.Dispute
	ResponseOverdue   bool
	ResolutionOverdue bool
}

type ListOpenDisputesUseCase struct {
	deps Deps
}

func NewListOpenDisputesUseCase(deps Deps) *ListOpenDisputesUseCase {
	return &ListOpenDisputesUseCase{deps: deps}
}

func (uc *ListOpenDisputesUseCase) Execute(ctx context.Context, actor entity.Principal, limit, offset int) ([]QueueItem, error) {
	if !actor.IsAdmin() {
		return nil, apperror.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	now := uc.deps.now()

	var items []QueueItem
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		disputes, err := tx.Disputes().ListOpen(ctx, limit, offset)
		if err != nil {
			return err
		}
		items = make([]QueueItem, len(disputes))
		for i, d := range disputes {
			items[i] = QueueItem{
				Dispute:           d,
				ResponseOverdue:   d.IsResponseOverdue(now),
				ResolutionOverdue: d.IsResolutionOverdue(now),
			}
		}
		return nil
	})
	return items, err
}

// lockPair блокирует спор и его бронирование в фиксированном порядке.
func lockPair(ctx context.Context, tx repository.Tx, disputeID uuid.UUID) (*entity.Dispute, *entity.Booking, error) {
	d, err := tx.Disputes().FindByIDForUpdate(ctx, disputeID)
	if err != nil {
		return nil, nil, disputeError(err)
	}
	b, err := tx.Bookings().FindByIDForUpdate(ctx, d.BookingID)
	if err != nil {
		return nil, nil, bookingError(err)
	}
	return d, b, nil
}

func openerProfile(d *entity.Dispute, b *entity.Booking) uuid.UUID {
	if d.OpenedByRole == valueobject.RoleBrand {
		return b.BrandID
	}
	return b.CreatorID
}

func disputeData(d *entity.Dispute) map[string]any {
	return map[string]any{
		"dispute_id": d.ID,
		"booking_id": d.BookingID,
		"status":     d.Status,
	}
}

func bookingError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperror.ErrBookingNotFound
	case errors.Is(err, repository.ErrStaleVersion):
		return apperror.ErrConcurrencyConflict
	}
	return err
}

func disputeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrDisputeNotFound
	}
	return err
}
