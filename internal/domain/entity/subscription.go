package entity

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

// FloorPeriodEnd - срок действия бесплатного тарифа none.
var FloorPeriodEnd = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

const day = 24 * time.Hour

type Subscription struct {
	ID               uuid.UUID
	BrandProfileID   uuid.UUID
	PlanType         entitlement.Plan
	Status           valueobject.SubscriptionStatus
	CurrentPeriodEnd time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewSubscription(brandID uuid.UUID, plan entitlement.Plan, periodEnd, now time.Time) (*Subscription, error) {
	if !plan.IsValid() {
		return nil, apperror.New(apperror.ErrCodeValidation, "неизвестный тариф")
	}
	if plan.IsPaid() && !periodEnd.After(now) {
		return nil, apperror.New(apperror.ErrCodeValidation, "окончание периода должно быть в будущем")
	}
	if plan == entitlement.PlanNone {
		periodEnd = FloorPeriodEnd
	}

	return &Subscription{
		ID:               uuid.New(),
		BrandProfileID:   brandID,
		PlanType:         plan,
		Status:           valueobject.SubscriptionStatusActive,
		CurrentPeriodEnd: periodEnd,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func NewFloorSubscription(brandID uuid.UUID, now time.Time) *Subscription {
	s, _ := NewSubscription(brandID, entitlement.PlanNone, FloorPeriodEnd, now)
	return s
}

func (s *Subscription) IsActive() bool {
	return s.Status == valueobject.SubscriptionStatusActive
}

// DaysUntilExpiry округляет вверх: 6.5 дня до окончания считаются как 7.
func (s *Subscription) DaysUntilExpiry(now time.Time) int {
	return int(math.Ceil(float64(s.CurrentPeriodEnd.Sub(now)) / float64(day)))
}

// DaysSinceExpiry - полные сутки после окончания периода.
func (s *Subscription) DaysSinceExpiry(now time.Time) int {
	return int(math.Floor(float64(now.Sub(s.CurrentPeriodEnd)) / float64(day)))
}

func (s *Subscription) Expire(now time.Time) error {
	if !s.IsActive() {
		return apperror.InvalidTransition("истечь может только активная подписка")
	}
	if s.PlanType == entitlement.PlanNone {
		return apperror.InvalidTransition("бесплатный тариф не истекает")
	}
	s.Status = valueobject.SubscriptionStatusExpired
	s.UpdatedAt = now
	return nil
}

func (s *Subscription) Cancel(now time.Time) error {
	if !s.IsActive() {
		return apperror.InvalidTransition("отменить можно только активную подписку")
	}
	s.Status = valueobject.SubscriptionStatusCancelled
	s.UpdatedAt = now
	return nil
}
