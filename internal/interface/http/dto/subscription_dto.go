package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

type UpgradeRequest struct {
	Plan   string `json:"plan" binding:"required,paid_plan"`
	Months int    `json:"months" binding:"omitempty,min=1,max=24"`
}

func (r UpgradeRequest) ToInput() subscription.UpgradeInput {
	return subscription.UpgradeInput{Plan: entitlement.Plan(r.Plan), Months: r.Months}
}

type SubscriptionResponse struct {
	ID               uuid.UUID `json:"id"`
	BrandProfileID   uuid.UUID `json:"brand_profile_id"`
	PlanType         string    `json:"plan_type"`
	Status           string    `json:"status"`
	CurrentPeriodEnd time.Time `json:"current_period_end"`
	CreatedAt        time.Time `json:"created_at"`
}

func ToSubscriptionResponse(s *entity.Subscription) SubscriptionResponse {
	return SubscriptionResponse{
		ID:               s.ID,
		BrandProfileID:   s.BrandProfileID,
		PlanType:         string(s.PlanType),
		Status:           string(s.Status),
		CurrentPeriodEnd: s.CurrentPeriodEnd,
		CreatedAt:        s.CreatedAt,
	}
}

type CurrentSubscriptionResponse struct {
	Subscription SubscriptionResponse     `json:"subscription"`
	Entitlements entitlement.Entitlements `json:"entitlements"`
}

func ToCurrentSubscriptionResponse(v *subscription.View) CurrentSubscriptionResponse {
	return CurrentSubscriptionResponse{
		Subscription: ToSubscriptionResponse(v.Subscription),
		Entitlements: v.Entitlements,
	}
}
