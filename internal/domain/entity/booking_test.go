package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

var testNow = time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

func newTestBooking(t *testing.T) (*Booking, Principal, Principal) {
	t.Helper()

	brand := Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}
	creator := Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}

	fees, err := valueobject.NewFeeSchedule(valueobject.DefaultPlatformFeeBPS)
	require.NoError(t, err)

	b, err := NewBooking(NewBookingParams{
		BrandID:       brand.ProfileID,
		CreatorID:     creator.ProfileID,
		PackageType:   valueobject.PackageUnboxingReview,
		TotalPrice:    10000,
		DepositAmount: 3000,
	}, fees, testNow)
	require.NoError(t, err)

	return b, brand, creator
}

func TestNewBooking_InitialState(t *testing.T) {
	b, _, _ := newTestBooking(t)

	assert.Equal(t, valueobject.BookingStatusPending, b.Status)
	assert.Equal(t, valueobject.DeliveryStatusPending, b.DeliveryStatus)
	assert.Equal(t, valueobject.EscrowStatusPendingDeposit, b.EscrowStatus)
	assert.Equal(t, valueobject.PaymentStatusUnpaid, b.PaymentStatus)
	assert.Equal(t, valueobject.Money(1000), b.PlatformFee)
	assert.Equal(t, valueobject.Money(7000), b.RemainingBalance())
}

func TestNewBooking_RejectsBadAmounts(t *testing.T) {
	fees := valueobject.FeeSchedule{BPS: valueobject.DefaultPlatformFeeBPS}
	base := NewBookingParams{BrandID: uuid.New(), CreatorID: uuid.New(), PackageType: valueobject.PackageSocialBoost}

	cases := map[string]struct{ total, deposit valueobject.Money }{
		"zero total":         {0, 100},
		"negative total":     {-1, 100},
		"zero deposit":       {1000, 0},
		"deposit over total": {1000, 1001},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			p := base
			p.TotalPrice, p.DepositAmount = tc.total, tc.deposit
			_, err := NewBooking(p, fees, testNow)
			assert.True(t, apperror.IsValidation(err))
		})
	}
}

func TestBooking_RoleChecks(t *testing.T) {
	b, brand, creator := newTestBooking(t)

	err := b.Accept(brand, testNow)
	assert.True(t, apperror.IsInvalidTransition(err), "brand must not accept its own booking")

	stranger := Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	err = b.Accept(stranger, testNow)
	assert.True(t, apperror.IsForbidden(err))

	require.NoError(t, b.Accept(creator, testNow))
	assert.Equal(t, valueobject.BookingStatusAccepted, b.Status)

	err = b.Decline(creator, testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestBooking_DeliveryFlow(t *testing.T) {
	b, brand, creator := newTestBooking(t)

	err := b.SubmitDelivery(creator, testNow)
	assert.True(t, apperror.IsInvalidTransition(err), "delivery before acceptance")

	require.NoError(t, b.Accept(creator, testNow))
	require.NoError(t, b.StartWork(creator, testNow))
	require.NoError(t, b.SubmitDelivery(creator, testNow))

	require.NoError(t, b.RequestRevision(brand, testNow))
	assert.Equal(t, valueobject.DeliveryStatusRevisionRequested, b.DeliveryStatus)

	require.NoError(t, b.SubmitDelivery(creator, testNow))
	require.NoError(t, b.ConfirmDelivery(brand, testNow))

	assert.Equal(t, valueobject.DeliveryStatusConfirmed, b.DeliveryStatus)
	assert.Equal(t, valueobject.BookingStatusCompleted, b.Status)
	require.NotNil(t, b.ConfirmedAt)

	err = b.SubmitDelivery(creator, testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
	err = b.Cancel(brand, testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestBooking_ConfirmRequiresDelivered(t *testing.T) {
	b, brand, creator := newTestBooking(t)
	require.NoError(t, b.Accept(creator, testNow))

	err := b.ConfirmDelivery(brand, testNow)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestBooking_DisputeBlocksTransitions(t *testing.T) {
	b, brand, creator := newTestBooking(t)
	require.NoError(t, b.Accept(creator, testNow))
	require.NoError(t, b.SubmitDelivery(creator, testNow))

	b.Project(LedgerTotals{Deposited: 3000}, true)

	assert.True(t, apperror.IsDisputeActive(b.ConfirmDelivery(brand, testNow)))
	assert.True(t, apperror.IsDisputeActive(b.Cancel(creator, testNow)))
	assert.True(t, apperror.IsDisputeActive(b.RequestRevision(brand, testNow)))
}

func TestBooking_CancelByEitherParty(t *testing.T) {
	b, _, creator := newTestBooking(t)
	require.NoError(t, b.Cancel(creator, testNow))
	assert.Equal(t, valueobject.BookingStatusCancelled, b.Status)

	b2, brand2, _ := newTestBooking(t)
	require.NoError(t, b2.Cancel(brand2, testNow))

	admin := Principal{UserID: uuid.New(), Role: valueobject.RoleAdmin}
	b3, _, _ := newTestBooking(t)
	assert.True(t, apperror.IsForbidden(b3.Cancel(admin, testNow)))
}

func TestBooking_ResolutionOnPendingOnlyRefunds(t *testing.T) {
	b, _, _ := newTestBooking(t)

	err := b.CompleteByResolution(testNow)
	require.True(t, apperror.IsInvalidTransition(err))
	assert.Contains(t, err.Error(), "только возвратом")
	assert.Equal(t, valueobject.BookingStatusPending, b.Status)

	require.NoError(t, b.CancelByResolution(testNow))
	assert.Equal(t, valueobject.BookingStatusCancelled, b.Status)
}
