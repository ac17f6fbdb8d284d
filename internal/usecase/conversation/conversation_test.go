package conversation_test

import (
	"context"
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
	"github.com/ignatzorin/collab-backend/internal/usecase/conversation"
	"github.com/ignatzorin/collab-backend/internal/usecase/quota"
)

var now = time.Date(2026, time.July, 15, 8, 30, 0, 0, time.UTC)

func init() {
	logger.Silence()
}

type countingNotifier struct {
	byType map[entity.NotificationType]int
}

func (n *countingNotifier) Publish(_ context.Context, intents ...entity.NotificationIntent) {
	for _, i := range intents {
		n.byType[i.Type]++
	}
}

func setup(t *testing.T, plan entitlement.Plan) (*memory.Store, conversation.Deps, *countingNotifier, entity.Principal) {
	t.Helper()
	store := memory.NewStore()
	notifier := &countingNotifier{byType: map[entity.NotificationType]int{}}
	brand := entity.Principal{UserID: uuid.New(), Role: valueobject.RoleBrand, ProfileID: uuid.New()}

	if plan.IsPaid() {
		sub, err := entity.NewSubscription(brand.ProfileID, plan, now.AddDate(0, 1, 0), now)
		require.NoError(t, err)
		require.NoError(t, store.WithinTx(context.Background(), func(ctx context.Context, tx repository.Tx) error {
			return tx.Subscriptions().Create(ctx, sub)
		}))
	}
	deps := conversation.Deps{Tx: store, Notifier: notifier, Clock: func() time.Time { return now }}
	return store, deps, notifier, brand
}

func creator() entity.Principal {
	return entity.Principal{UserID: uuid.New(), Role: valueobject.RoleCreator, ProfileID: uuid.New()}
}

func TestStartConversation_NonePlanDenied(t *testing.T) {
	_, deps, _, brand := setup(t, entitlement.PlanNone)

	_, err := conversation.NewStartConversationUseCase(deps).Execute(context.Background(), brand, conversation.StartConversationInput{
		CreatorID: uuid.New(),
		Body:      "Здравствуйте!",
	})
	assert.True(t, apperror.IsEntitlementDenied(err))
}

func TestStartConversation_MonthlyQuota(t *testing.T) {
	store, deps, notifier, brand := setup(t, entitlement.PlanBasic)
	uc := conversation.NewStartConversationUseCase(deps)
	ctx := context.Background()

	var first uuid.UUID
	for i := 0; i < 10; i++ {
		c := creator()
		if i == 0 {
			first = c.ProfileID
		}
		res, err := uc.Execute(ctx, brand, conversation.StartConversationInput{CreatorID: c.ProfileID, Body: "Есть предложение"})
		require.NoError(t, err, "message %d", i+1)
		assert.True(t, res.Created)
	}

	_, err := uc.Execute(ctx, brand, conversation.StartConversationInput{CreatorID: uuid.New(), Body: "Есть предложение"})
	require.Error(t, err)
	assert.True(t, apperror.IsQuotaExceeded(err))

	// повторное сообщение уже знакомому креатору квоту не расходует
	res, err := uc.Execute(ctx, brand, conversation.StartConversationInput{CreatorID: first, Body: "Напоминаю о себе"})
	require.NoError(t, err)
	assert.False(t, res.Created)

	var snap quota.Snapshot
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		snap, err = quota.Read(ctx, tx, brand.ProfileID, entitlement.PlanBasic, now)
		return err
	}))
	assert.Equal(t, int64(10), snap.CreatorsMessaged)
	assert.Equal(t, 11, notifier.byType[entity.NotifyMessageReceived])
}

func TestStartConversation_QuotaStorageFailure(t *testing.T) {
	store, deps, _, brand := setup(t, entitlement.PlanPro)
	store.Faults.UsageErr = assert.AnError

	_, err := conversation.NewStartConversationUseCase(deps).Execute(context.Background(), brand, conversation.StartConversationInput{
		CreatorID: uuid.New(),
		Body:      "Привет",
	})
	assert.True(t, apperror.IsQuotaCheckFailed(err))
}

func TestSendMessage_AfterCompletedBooking(t *testing.T) {
	store, deps, _, brand := setup(t, entitlement.PlanBasic)
	ctx := context.Background()
	c := creator()

	res, err := conversation.NewStartConversationUseCase(deps).Execute(ctx, brand, conversation.StartConversationInput{CreatorID: c.ProfileID, Body: "Начнём?"})
	require.NoError(t, err)

	send := conversation.NewSendMessageUseCase(deps)
	_, err = send.Execute(ctx, res.Conversation.ID, brand, "Пока бронирования нет, пишу свободно")
	require.NoError(t, err)

	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := entity.NewBooking(entity.NewBookingParams{
			BrandID:       brand.ProfileID,
			CreatorID:     c.ProfileID,
			PackageType:   valueobject.PackageUnboxingReview,
			TotalPrice:    5000,
			DepositAmount: 1000,
		}, valueobject.FeeSchedule{BPS: valueobject.DefaultPlatformFeeBPS}, now)
		if err != nil {
			return err
		}
		b.Status = valueobject.BookingStatusCompleted
		return tx.Bookings().Create(ctx, b)
	}))

	_, err = send.Execute(ctx, res.Conversation.ID, brand, "Ещё одна съёмка?")
	assert.True(t, apperror.IsEntitlementDenied(err))

	_, err = send.Execute(ctx, res.Conversation.ID, c, "Спасибо за сотрудничество")
	require.NoError(t, err)

	_, err = send.Execute(ctx, res.Conversation.ID, creator(), "чужая беседа")
	assert.True(t, apperror.IsForbidden(err))

	msgs, err := conversation.NewListMessagesUseCase(deps).Execute(ctx, res.Conversation.ID, c, 0, 0)
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestMassMessage(t *testing.T) {
	_, deps, notifier, brand := setup(t, entitlement.PlanPro)
	ctx := context.Background()

	known := creator()
	_, err := conversation.NewStartConversationUseCase(deps).Execute(ctx, brand, conversation.StartConversationInput{CreatorID: known.ProfileID, Body: "Привет"})
	require.NoError(t, err)

	stranger := uuid.New()
	res, err := conversation.NewMassMessageUseCase(deps).Execute(ctx, brand, conversation.MassMessageInput{
		CreatorIDs: []uuid.UUID{known.ProfileID, stranger, known.ProfileID},
		Body:       "Летняя кампания открыта",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Delivered)
	assert.Equal(t, []uuid.UUID{stranger}, res.Skipped)
	assert.Equal(t, int64(1), res.Quota.Used)
	assert.Equal(t, entitlement.Limit(50), res.Quota.Limit)
	assert.Equal(t, 2, notifier.byType[entity.NotifyMessageReceived])
}

func TestMassMessage_BasicPlanHasNoAllowance(t *testing.T) {
	_, deps, _, brand := setup(t, entitlement.PlanBasic)

	_, err := conversation.NewMassMessageUseCase(deps).Execute(context.Background(), brand, conversation.MassMessageInput{
		CreatorIDs: []uuid.UUID{uuid.New()},
		Body:       "Всем привет",
	})
	assert.True(t, apperror.IsQuotaExceeded(err))
}

// staleLookupTx не видит беседу, созданную параллельной транзакцией.
type staleLookupTx struct {
	repository.Tx
}

func (t staleLookupTx) Conversations() repository.ConversationRepository {
	return staleLookupConversations{t.Tx.Conversations()}
}

type staleLookupConversations struct {
	repository.ConversationRepository
}

func (staleLookupConversations) FindByParticipants(context.Context, uuid.UUID, uuid.UUID) (*entity.Conversation, error) {
	return nil, nil
}

type staleLookupTransactor struct {
	inner repository.Transactor
}

func (s staleLookupTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	return s.inner.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		return fn(ctx, staleLookupTx{tx})
	})
}

func TestStartConversation_ConcurrentFirstContact(t *testing.T) {
	store, deps, _, brand := setup(t, entitlement.PlanBasic)
	ctx := context.Background()
	c := creator()

	_, err := conversation.NewStartConversationUseCase(deps).Execute(ctx, brand, conversation.StartConversationInput{CreatorID: c.ProfileID, Body: "Добрый день"})
	require.NoError(t, err)

	racing := deps
	racing.Tx = staleLookupTransactor{inner: store}
	_, err = conversation.NewStartConversationUseCase(racing).Execute(ctx, brand, conversation.StartConversationInput{CreatorID: c.ProfileID, Body: "Добрый день"})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrencyConflict(err))

	var snap quota.Snapshot
	require.NoError(t, store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		snap, err = quota.Read(ctx, tx, brand.ProfileID, entitlement.PlanBasic, now)
		return err
	}))
	assert.Equal(t, int64(1), snap.CreatorsMessaged)
}
