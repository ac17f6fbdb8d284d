package subscription_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/infrastructure/memory"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

func brandPrincipal() entity.Principal {
	return entity.Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}
}

func deps(store *memory.Store) subscription.Deps {
	return subscription.Deps{Tx: store, Clock: func() time.Time { return now }}
}

func TestGetCurrent_WithoutRowIsNone(t *testing.T) {
	store := memory.NewStore()
	brand := brandPrincipal()

	view, err := subscription.NewGetCurrentUseCase(deps(store)).Execute(context.Background(), brand)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanNone, view.Subscription.PlanType)
	assert.False(t, view.Entitlements.CanBookCreators)
	assert.Empty(t, store.Subscriptions(brand.ProfileID))
}

func TestUpgradeThenCancel(t *testing.T) {
	store := memory.NewStore()
	brand := brandPrincipal()
	ctx := context.Background()

	sub, err := subscription.NewUpgradeUseCase(deps(store)).Execute(ctx, brand, subscription.UpgradeInput{Plan: entitlement.PlanBasic})
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 1, 0), sub.CurrentPeriodEnd)

	pro, err := subscription.NewUpgradeUseCase(deps(store)).Execute(ctx, brand, subscription.UpgradeInput{Plan: entitlement.PlanPro, Months: 12})
	require.NoError(t, err)

	view, err := subscription.NewGetCurrentUseCase(deps(store)).Execute(ctx, brand)
	require.NoError(t, err)
	assert.Equal(t, pro.ID, view.Subscription.ID)
	assert.True(t, view.Entitlements.HasContentLibrary)

	floor, err := subscription.NewCancelUseCase(deps(store)).Execute(ctx, brand)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanNone, floor.PlanType)

	// строки не удаляются: basic и pro отменены, активна только none
	rows := store.Subscriptions(brand.ProfileID)
	require.Len(t, rows, 3)
	active := 0
	for _, r := range rows {
		if r.Status == valueobject.SubscriptionStatusActive {
			active++
			assert.Equal(t, entitlement.PlanNone, r.PlanType)
		}
	}
	assert.Equal(t, 1, active)

	_, err = subscription.NewCancelUseCase(deps(store)).Execute(ctx, brand)
	assert.True(t, apperror.IsInvalidTransition(err))
}

func TestUpgrade_Rejects(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	_, err := subscription.NewUpgradeUseCase(deps(store)).Execute(ctx, brandPrincipal(), subscription.UpgradeInput{Plan: entitlement.PlanNone})
	assert.True(t, apperror.IsValidation(err))

	creator := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
	_, err = subscription.NewUpgradeUseCase(deps(store)).Execute(ctx, creator, subscription.UpgradeInput{Plan: entitlement.PlanPro})
	assert.True(t, apperror.IsForbidden(err))
}

func TestActivePlan_LapsedPeriodIsNone(t *testing.T) {
	store := memory.NewStore()
	brand := brandPrincipal()
	seed(t, store, paid(brand.ProfileID, entitlement.PlanPremium, valueobject.SubscriptionStatusActive, now.Add(-time.Hour)))

	view, err := subscription.NewGetCurrentUseCase(deps(store)).Execute(context.Background(), brand)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanPremium, view.Subscription.PlanType)
	assert.False(t, view.Entitlements.CanContactCreators)
}

func TestGetUsage(t *testing.T) {
	store := memory.NewStore()
	brand := brandPrincipal()
	seed(t, store, paid(brand.ProfileID, entitlement.PlanPro, valueobject.SubscriptionStatusActive, now.AddDate(0, 0, 20)))

	snap, err := subscription.NewGetUsageUseCase(deps(store)).Execute(context.Background(), brand)
	require.NoError(t, err)
	assert.Equal(t, entitlement.PlanPro, snap.Plan)
	assert.Equal(t, entitlement.Limit(50), snap.MessageLimit)
	assert.Equal(t, entitlement.Limit(50), snap.MassMessageLimit)
	assert.Zero(t, snap.CreatorsMessaged)
}
