package entity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

func TestSubscription_DaysUntilExpiry(t *testing.T) {
	s := &Subscription{CurrentPeriodEnd: testNow.Add(7 * 24 * time.Hour)}
	assert.Equal(t, 7, s.DaysUntilExpiry(testNow))

	s.CurrentPeriodEnd = testNow.Add(6*24*time.Hour + time.Hour)
	assert.Equal(t, 7, s.DaysUntilExpiry(testNow))

	s.CurrentPeriodEnd = testNow.Add(-24 * time.Hour)
	assert.Equal(t, -1, s.DaysUntilExpiry(testNow))
	assert.Equal(t, 1, s.DaysSinceExpiry(testNow))
}

func TestSubscription_Expire(t *testing.T) {
	s, err := NewSubscription(uuid.New(), entitlement.PlanPro, testNow.Add(time.Hour), testNow)
	require.NoError(t, err)

	require.NoError(t, s.Expire(testNow))
	assert.Equal(t, valueobject.SubscriptionStatusExpired, s.Status)
	assert.True(t, apperror.IsInvalidTransition(s.Expire(testNow)))

	floor := NewFloorSubscription(uuid.New(), testNow)
	assert.Equal(t, FloorPeriodEnd, floor.CurrentPeriodEnd)
	assert.True(t, apperror.IsInvalidTransition(floor.Expire(testNow)))
}

func TestNewSubscription_PaidNeedsFuturePeriod(t *testing.T) {
	_, err := NewSubscription(uuid.New(), entitlement.PlanBasic, testNow, testNow)
	assert.True(t, apperror.IsValidation(err))
}
