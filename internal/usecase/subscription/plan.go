package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
)

// ActivePlan возвращает тариф активной подписки бренда. Без подписки или после
// окончания оплаченного периода действует none, даже если обход ещё не отметил её истёкшей.
func ActivePlan(ctx context.Context, tx repository.Tx, brandID uuid.UUID, now time.Time) (entitlement.Plan, error) {
	sub, err := tx.Subscriptions().FindActive(ctx, brandID)
	if err != nil {
		return entitlement.PlanNone, err
	}
	if sub == nil || !sub.CurrentPeriodEnd.After(now) {
		return entitlement.PlanNone, nil
	}
	return sub.PlanType, nil
}
