package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeeSchedule_PlatformFee(t *testing.T) {
	fees, err := NewFeeSchedule(DefaultPlatformFeeBPS)
	require.NoError(t, err)

	assert.Equal(t, Money(1000), fees.PlatformFee(10000))
	assert.Equal(t, Money(9000), fees.CreatorEarnings(10000))
	// 10% от 12345 = 1234.5 -> 1235
	assert.Equal(t, Money(1235), fees.PlatformFee(12345))
	assert.Equal(t, Money(0), fees.PlatformFee(0))
}

func TestNewFeeSchedule_RejectsOutOfRange(t *testing.T) {
	_, err := NewFeeSchedule(-1)
	assert.Error(t, err)

	_, err = NewFeeSchedule(10_001)
	assert.Error(t, err)
}

func TestMoney_String(t *testing.T) {
	assert.Equal(t, "70.00", Money(7000).String())
	assert.Equal(t, "0.05", Money(5).String())
	assert.Equal(t, "-1.50", Money(-150).String())
}

func TestBookingStatus_TerminalStatesDoNotMove(t *testing.T) {
	for _, s := range []BookingStatus{BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted} {
		assert.True(t, s.IsTerminal())
		for _, to := range []BookingStatus{BookingStatusPending, BookingStatusAccepted, BookingStatusDeclined, BookingStatusCancelled, BookingStatusCompleted} {
			assert.False(t, s.CanTransitionTo(to), "%s -> %s", s, to)
		}
	}
}

func TestDeliveryStatus_Transitions(t *testing.T) {
	assert.True(t, DeliveryStatusRevisionRequested.CanTransitionTo(DeliveryStatusDelivered))
	assert.True(t, DeliveryStatusDelivered.CanTransitionTo(DeliveryStatusConfirmed))
	assert.False(t, DeliveryStatusConfirmed.CanTransitionTo(DeliveryStatusDelivered))
	assert.False(t, DeliveryStatusDelivered.CanTransitionTo(DeliveryStatusInProgress))
}

func TestTransactionStatus_OnlyPendingMoves(t *testing.T) {
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusProcessed))
	assert.True(t, TransactionStatusPending.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusProcessed.CanTransitionTo(TransactionStatusFailed))
	assert.False(t, TransactionStatusFailed.CanTransitionTo(TransactionStatusProcessed))
}
