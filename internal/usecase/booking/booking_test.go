package booking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/booking"
	"github.com/ignatzorin/collab-backend/internal/usecase/dispute"
	"github.com/ignatzorin/collab-backend/internal/usecase/escrow"
)

var now = time.Date(2026, time.May, 4, 12, 0, 0, 0, time.UTC)

func init() {
	logger.Silence()
}

type recordingNotifier struct {
	mu      sync.Mutex
	intents []entity.NotificationIntent
}

func (r *recordingNotifier) Publish(_ context.Context, intents ...entity.NotificationIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents = append(r.intents, intents...)
}

func (r *recordingNotifier) types() []entity.NotificationType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.NotificationType, len(r.intents))
	for i, in := range r.intents {
		out[i] = in.Type
	}
	return out
}

type env struct {
	store    *memory.Store
	notifier *recordingNotifier
	deps     booking.Deps
	brand    entity.Principal
	creator  entity.Principal
	admin    entity.Principal
}

func newEnv(t *testing.T, plan entitlement.Plan) *env {
	t.Helper()
	store := memory.NewStore()
	notifier := &recordingNotifier{}
	e := &env{
		store:    store,
		notifier: notifier,
		deps: booking.Deps{
			Tx:       store,
			Ledger:   escrow.NewLedger(valueobject.FeeSchedule{BPS: valueobject.DefaultPlatformFeeBPS}),
			Notifier: notifier,
			Clock:    func() time.Time { return now },
		},
		brand:   entity.Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()},
		creator: entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()},
		admin:   entity.Principal{UserID: uuid.New(), Role: valueobject.RoleAdmin},
	}
	if plan.IsPaid() {
		sub, err := entity.NewSubscription(e.brand.ProfileID, plan, now.AddDate(0, 1, 0), now)
		require.NoError(t, err)
		require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			return tx.Subscriptions().Create(ctx, sub)
		}))
	}
	return e
}

func (e *env) disputeDeps() dispute.Deps {
	return dispute.Deps{Tx: e.deps.Tx, Ledger: e.deps.Ledger, Notifier: e.notifier, Clock: e.deps.Clock}
}

func (e *env) create(t *testing.T) *entity.Booking {
	t.Helper()
	b, err := booking.NewCreateBookingUseCase(e.deps).Execute(context.Background(), e.brand, booking.CreateBookingInput{
		CreatorID:     e.creator.ProfileID,
		PackageType:   valueobject.PackageSocialBoost,
		TotalPrice:    10000,
		DepositAmount: 3000,
	})
	require.NoError(t, err)
	return b
}

// delivered проводит бронирование до сданной работы с оплаченным депозитом.
func (e *env) delivered(t *testing.T) *entity.Booking {
	t.Helper()
	ctx := context.Background()
	b := e.create(t)

	_, err := booking.NewAcceptBookingUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	_, err = booking.NewPayDepositUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	require.NoError(t, err)
	_, err = booking.NewStartWorkUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	b, err = booking.NewSubmitDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	return b
}

func amounts(entries []entity.EscrowTransaction, typ valueobject.TransactionType) []valueobject.Money {
	var out []valueobject.Money
	for _, e := range entries {
		if e.Type == typ && e.Status == valueobject.TransactionStatusProcessed {
			out = append(out, e.Amount)
		}
	}
	return out
}

func TestCreateBooking_RequiresPaidPlan(t *testing.T) {
	e := newEnv(t, entitlement.PlanNone)

	_, err := booking.NewCreateBookingUseCase(e.deps).Execute(context.Background(), e.brand, booking.CreateBookingInput{
		CreatorID:     e.creator.ProfileID,
		PackageType:   valueobject.PackageSocialBoost,
		TotalPrice:    10000,
		DepositAmount: 3000,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsEntitlementDenied(err))

	bookings, total, listErr := booking.NewListBookingsUseCase(e.deps).Execute(context.Background(), e.brand, booking.ListBookingsInput{})
	require.NoError(t, listErr)
	assert.Empty(t, bookings)
	assert.Zero(t, total)
	assert.Empty(t, e.notifier.types())
}

func TestCreateBooking_CreatorForbidden(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)

	_, err := booking.NewCreateBookingUseCase(e.deps).Execute(context.Background(), e.creator, booking.CreateBookingInput{
		CreatorID:     e.brand.ProfileID,
		TotalPrice:    10000,
		DepositAmount: 3000,
	})
	assert.True(t, apperror.IsForbidden(err))
}

func TestBookingLifecycle_ReleasesRemainingBalance(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	ctx := context.Background()

	b := e.create(t)
	assert.Equal(t, valueobject.BookingStatusPending, b.Status)
	assert.Equal(t, valueobject.EscrowStatusPendingDeposit, b.EscrowStatus)
	assert.Equal(t, valueobject.Money(1000), b.PlatformFee)

	b = e.delivered(t)
	assert.Equal(t, valueobject.EscrowStatusDepositPaid, b.EscrowStatus)
	assert.Equal(t, valueobject.PaymentStatusPartial, b.PaymentStatus)
	assert.Equal(t, valueobject.DeliveryStatusDelivered, b.DeliveryStatus)

	b, err := booking.NewConfirmDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusCompleted, b.Status)
	assert.Equal(t, valueobject.DeliveryStatusConfirmed, b.DeliveryStatus)
	assert.Equal(t, valueobject.EscrowStatusCompleted, b.EscrowStatus)
	assert.Equal(t, valueobject.PaymentStatusPaid, b.PaymentStatus)
	require.NotNil(t, b.ConfirmedAt)

	entries := e.store.Ledger(b.ID)
	assert.Equal(t, []valueobject.Money{3000}, amounts(entries, valueobject.TransactionTypeDeposit))
	assert.Equal(t, []valueobject.Money{7000}, amounts(entries, valueobject.TransactionTypeRelease))
	assert.Empty(t, amounts(entries, valueobject.TransactionTypeRefund))

	view, err := booking.NewGetLedgerUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	assert.Equal(t, valueobject.Money(10000), view.Summary.TotalPaid)
	assert.Equal(t, valueobject.Money(9000), view.Summary.CreatorEarnings)

	_, err = booking.NewConfirmDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Len(t, amounts(e.store.Ledger(b.ID), valueobject.TransactionTypeRelease), 1)

	assert.Contains(t, e.notifier.types(), entity.NotifyBookingConfirmed)
}

func TestConfirmDelivery_RequiresDeposit(t *testing.T) {
	e := newEnv(t, entitlement.PlanPro)
	ctx := context.Background()
	b := e.create(t)

	_, err := booking.NewAcceptBookingUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	_, err = booking.NewStartWorkUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	_, err = booking.NewSubmitDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)

	_, err = booking.NewConfirmDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	assert.True(t, apperror.IsInvalidTransition(err))
	assert.Empty(t, amounts(e.store.Ledger(b.ID), valueobject.TransactionTypeRelease))
}

func TestWrongActorRejected(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	ctx := context.Background()
	b := e.create(t)

	_, err := booking.NewAcceptBookingUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	assert.True(t, apperror.IsInvalidTransition(err))

	stranger := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	_, err = booking.NewAcceptBookingUseCase(e.deps).Execute(ctx, b.ID, stranger)
	assert.ErrorIs(t, err, apperror.ErrNotParticipant)

	_, err = booking.NewGetBookingUseCase(e.deps).Execute(ctx, b.ID, stranger)
	assert.Error(t, err)

	got, err := booking.NewGetBookingUseCase(e.deps).Execute(ctx, b.ID, e.admin)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusPending, got.Status)
}

func TestDecline_FailsPendingDeposit(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	b := e.create(t)

	b, err := booking.NewDeclineBookingUseCase(e.deps).Execute(context.Background(), b.ID, e.creator)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusDeclined, b.Status)
	assert.Equal(t, valueobject.EscrowStatusRefunded, b.EscrowStatus)

	entries := e.store.Ledger(b.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, valueobject.TransactionStatusFailed, entries[0].Status)
}

func TestCancel_RefundsPaidDeposit(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	ctx := context.Background()
	b := e.create(t)

	_, err := booking.NewAcceptBookingUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	_, err = booking.NewPayDepositUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	require.NoError(t, err)

	b, err = booking.NewCancelBookingUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	require.NoError(t, err)
	assert.Equal(t, valueobject.BookingStatusCancelled, b.Status)
	assert.Equal(t, valueobject.PaymentStatusRefunded, b.PaymentStatus)
	assert.Equal(t, []valueobject.Money{3000}, amounts(e.store.Ledger(b.ID), valueobject.TransactionTypeRefund))

	_, err = booking.NewCancelBookingUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestRevisionLoop(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	ctx := context.Background()
	b := e.delivered(t)

	b, err := booking.NewRequestRevisionUseCase(e.deps).Execute(ctx, b.ID, e.brand, "поправьте свет в кадре")
	require.NoError(t, err)
	assert.Equal(t, valueobject.DeliveryStatusRevisionRequested, b.DeliveryStatus)

	_, err = booking.NewConfirmDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	assert.True(t, apperror.IsInvalidTransition(err))

	b, err = booking.NewSubmitDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	require.NoError(t, err)
	assert.Equal(t, valueobject.DeliveryStatusDelivered, b.DeliveryStatus)
}

func TestDisputeBlocksConfirmAndRefundResolution(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	ctx := context.Background()
	b := e.delivered(t)

	d, err := dispute.NewOpenDisputeUseCase(e.disputeDeps()).Execute(ctx, e.brand, dispute.OpenDisputeInput{
		BookingID: b.ID,
		Reason:    "работа не соответствует согласованному брифу",
	})
	require.NoError(t, err)

	_, err = booking.NewConfirmDeliveryUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	assert.True(t, apperror.IsDisputeActive(err))
	_, err = booking.NewCancelBookingUseCase(e.deps).Execute(ctx, b.ID, e.creator)
	assert.True(t, apperror.IsDisputeActive(err))

	got, err := booking.NewGetBookingUseCase(e.deps).Execute(ctx, b.ID, e.brand)
	require.NoError(t, err)
	assert.Equal(t, valueobject.EscrowStatusDisputed, got.EscrowStatus)
	assert.Equal(t, valueobject.PaymentStatusDisputed, got.PaymentStatus)

	res, err := dispute.NewResolveDisputeUseCase(e.disputeDeps()).Execute(ctx, e.admin, dispute.ResolveDisputeInput{
		DisputeID: d.ID,
		Decision:  valueobject.DisputeResolutionRefund,
	})
	require.NoError(t, err)
	assert.Equal(t, valueobject.Money(3000), res.Amount)
	assert.Equal(t, valueobject.BookingStatusCancelled, res.Booking.Status)
	assert.Equal(t, valueobject.EscrowStatusRefunded, res.Booking.EscrowStatus)

	entries := e.store.Ledger(b.ID)
	assert.Equal(t, []valueobject.Money{3000}, amounts(entries, valueobject.TransactionTypeRefund))
	assert.Empty(t, amounts(entries, valueobject.TransactionTypeRelease))
}

func TestConcurrentConfirmAndCancel(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	b := e.delivered(t)

	var (
		wg      sync.WaitGroup
		confirm error
		cancel  error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, confirm = booking.NewConfirmDeliveryUseCase(e.deps).Execute(context.Background(), b.ID, e.brand)
	}()
	go func() {
		defer wg.Done()
		_, cancel = booking.NewCancelBookingUseCase(e.deps).Execute(context.Background(), b.ID, e.creator)
	}()
	wg.Wait()

	succeeded := 0
	for _, err := range []error{confirm, cancel} {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, apperror.IsInvalidTransition(err) || apperror.IsConcurrencyConflict(err), err.Error())
	}
	assert.Equal(t, 1, succeeded)

	entries := e.store.Ledger(b.ID)
	releases := amounts(entries, valueobject.TransactionTypeRelease)
	refunds := amounts(entries, valueobject.TransactionTypeRefund)
	assert.Equal(t, 1, len(releases)+len(refunds))

	got, err := booking.NewGetBookingUseCase(e.deps).Execute(context.Background(), b.ID, e.brand)
	require.NoError(t, err)
	if confirm == nil {
		assert.Equal(t, valueobject.BookingStatusCompleted, got.Status)
		assert.Equal(t, []valueobject.Money{7000}, releases)
	} else {
		assert.Equal(t, valueobject.BookingStatusCancelled, got.Status)
		assert.Equal(t, []valueobject.Money{3000}, refunds)
	}
}

func TestListBookings_ScopedToParticipant(t *testing.T) {
	e := newEnv(t, entitlement.PlanBasic)
	e.create(t)
	e.create(t)

	list, total, err := booking.NewListBookingsUseCase(e.deps).Execute(context.Background(), e.creator, booking.ListBookingsInput{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, list, 1)

	other := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	list, total, err = booking.NewListBookingsUseCase(e.deps).Execute(context.Background(), other, booking.ListBookingsInput{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
}
