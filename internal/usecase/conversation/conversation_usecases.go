package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/entitlement"
	"github.com/ignatzorin/collab-backend/internal/logger"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
	"github.com/ignatzorin/collab-backend/internal/usecase/quota"
	"github.com/ignatzorin/collab-backend/internal/usecase/subscription"
)

const maxMassRecipients = 200

type Notifier interface {
	Publish(ctx context.Context, intents ...entity.NotificationIntent)
}

type Deps struct {
	Tx       repository.Transactor
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

type StartConversationInput struct {
	CreatorID uuid.UUID
	Body      string
}

type StartConversationResult struct {
	Conversation *entity.Conversation
	Message      *entity.Message
	// Created - беседа новая и списала единицу месячной квоты.
	Created bool
}

type StartConversationUseCase struct {
	deps Deps
}

func NewStartConversationUseCase(deps Deps) *StartConversationUseCase {
	return &StartConversationUseCase{deps: deps}
}

// Execute пишет креатору от имени бренда. Первое сообщение новому креатору
// расходует месячную квоту тарифа, повторное обращение к той же паре квоту не трогает.
func (uc *StartConversationUseCase) Execute(ctx context.Context, actor entity.Principal, input StartConversationInput) (*StartConversationResult, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "начать беседу может только бренд")
	}
	now := uc.deps.now()

	var result StartConversationResult
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		plan, err := subscription.ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		if err := entitlement.Require(plan, entitlement.CapContactCreators); err != nil {
			return err
		}

		conv, err := tx.Conversations().FindByParticipants(ctx, actor.ProfileID, input.CreatorID)
		if err != nil {
			return err
		}
		if conv == nil {
			conv, err = entity.NewConversation(actor.ProfileID, input.CreatorID, now)
			if err != nil {
				return err
			}
			res, err := quota.CheckAndConsumeMessageQuota(ctx, tx, actor.ProfileID, plan, now)
			if err != nil {
				return err
			}
			if !res.Allowed {
				return apperror.QuotaExceeded(string(entity.CounterCreatorsMessaged), res.Used, int64(res.Limit))
			}
			if err := tx.Conversations().Create(ctx, conv); err != nil {
				// параллельный запрос успел создать беседу для той же пары
				if errors.Is(err, repository.ErrDuplicate) {
					return apperror.New(apperror.ErrCodeConcurrencyConflict, "беседа уже создана параллельным запросом, повторите отправку")
				}
				return err
			}
			result.Created = true
		}

		msg, err := entity.NewMessage(conv.ID, actor.ProfileID, input.Body, now)
		if err != nil {
			return err
		}
		if err := tx.Conversations().AddMessage(ctx, msg); err != nil {
			return err
		}
		result.Conversation, result.Message = conv, msg
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"conversation_id": result.Conversation.ID,
		"brand_id":        actor.ProfileID,
		"creator_id":      input.CreatorID,
		"created":         result.Created,
	}).Info("conversation message sent")

	uc.deps.publish(ctx, messageIntent(result.Conversation, result.Message))
	return &result, nil
}

type SendMessageUseCase struct {
	deps Deps
}

func NewSendMessageUseCase(deps Deps) *SendMessageUseCase {
	return &SendMessageUseCase{deps: deps}
}

// Execute отправляет сообщение в существующую беседу. Бренду, у которого
// с креатором уже есть завершённое бронирование, нужна возможность
// canMessageAfterDelivery. Креатор отвечает без ограничений.
func (uc *SendMessageUseCase) Execute(ctx context.Context, conversationID uuid.UUID, actor entity.Principal, body string) (*entity.Message, error) {
	now := uc.deps.now()

	var (
		conv *entity.Conversation
		msg  *entity.Message
	)
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		var err error
		conv, err = tx.Conversations().FindByID(ctx, conversationID)
		if err != nil {
			return conversationError(err)
		}
		if !conv.IsParticipant(actor.ProfileID) {
			return apperror.ErrForbidden
		}

		if actor.IsBrand() {
			if err := requireAfterDelivery(ctx, tx, conv, now); err != nil {
				return err
			}
		}

		msg, err = entity.NewMessage(conv.ID, actor.ProfileID, body, now)
		if err != nil {
			return err
		}
		return tx.Conversations().AddMessage(ctx, msg)
	})
	if err != nil {
		return nil, err
	}

	uc.deps.publish(ctx, messageIntent(conv, msg))
	return msg, nil
}

func requireAfterDelivery(ctx context.Context, tx repository.Tx, conv *entity.Conversation, now time.Time) error {
	completed, err := tx.Bookings().HasCompletedBetween(ctx, conv.BrandProfileID, conv.CreatorProfileID)
	if err != nil || !completed {
		return err
	}
	plan, err := subscription.ActivePlan(ctx, tx, conv.BrandProfileID, now)
	if err != nil {
		return err
	}
	return entitlement.Require(plan, entitlement.CapMessageAfterDelivery)
}

type MassMessageInput struct {
	CreatorIDs []uuid.UUID
	Body       string
}

type MassMessageResult struct {
	Delivered int          `json:"delivered"`
	Skipped   []uuid.UUID  `json:"skipped"`
	Quota     quota.Result `json:"quota"`
}

type MassMessageUseCase struct {
	deps Deps
}

func NewMassMessageUseCase(deps Deps) *MassMessageUseCase {
	return &MassMessageUseCase{deps: deps}
}

// Execute рассылает одно сообщение в беседы бренда с перечисленными креаторами.
// Рассылка списывает одну единицу суточного лимита. Креаторы без беседы пропускаются:
// новые беседы открываются только через StartConversation и месячную квоту.
func (uc *MassMessageUseCase) Execute(ctx context.Context, actor entity.Principal, input MassMessageInput) (*MassMessageResult, error) {
	if !actor.IsBrand() {
		return nil, apperror.New(apperror.ErrCodeForbidden, "рассылка доступна только брендам")
	}
	if len(input.CreatorIDs) == 0 {
		return nil, apperror.New(apperror.ErrCodeValidation, "укажите получателей рассылки")
	}
	if len(input.CreatorIDs) > maxMassRecipients {
		return nil, apperror.New(apperror.ErrCodeValidation, "слишком много получателей").
			WithDetail("max", maxMassRecipients)
	}
	now := uc.deps.now()

	var (
		result  MassMessageResult
		intents []entity.NotificationIntent
	)
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		plan, err := subscription.ActivePlan(ctx, tx, actor.ProfileID, now)
		if err != nil {
			return err
		}
		if err := entitlement.Require(plan, entitlement.CapContactCreators); err != nil {
			return err
		}

		res, err := quota.CheckAndConsumeMassMessageQuota(ctx, tx, actor.ProfileID, plan, now)
		if err != nil {
			return err
		}
		if !res.Allowed {
			return apperror.QuotaExceeded(string(entity.CounterMassMessages), res.Used, int64(res.Limit))
		}
		result.Quota = res

		seen := make(map[uuid.UUID]bool, len(input.CreatorIDs))
		for _, creatorID := range input.CreatorIDs {
			if seen[creatorID] {
				continue
			}
			seen[creatorID] = true

			conv, err := tx.Conversations().FindByParticipants(ctx, actor.ProfileID, creatorID)
			if err != nil {
				return err
			}
			if conv == nil {
				result.Skipped = append(result.Skipped, creatorID)
				continue
			}
			msg, err := entity.NewMessage(conv.ID, actor.ProfileID, input.Body, now)
			if err != nil {
				return err
			}
			msg.IsMass = true
			if err := tx.Conversations().AddMessage(ctx, msg); err != nil {
				return err
			}
			result.Delivered++
			intents = append(intents, messageIntent(conv, msg))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.FromContext(ctx).WithFields(logrus.Fields{
		"brand_id":  actor.ProfileID,
		"delivered": result.Delivered,
		"skipped":   len(result.Skipped),
	}).Info("mass message sent")

	uc.deps.publish(ctx, intents...)
	return &result, nil
}

type ListMessagesUseCase struct {
	deps Deps
}

func NewListMessagesUseCase(deps Deps) *ListMessagesUseCase {
	return &ListMessagesUseCase{deps: deps}
}

func (uc *ListMessagesUseCase) Execute(ctx context.Context, conversationID uuid.UUID, actor entity.Principal, limit, offset int) ([]*entity.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var messages []*entity.Message
	err := uc.deps.Tx.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		conv, err := tx.Conversations().FindByID(ctx, conversationID)
		if err != nil {
			return conversationError(err)
		}
		if !conv.IsParticipant(actor.ProfileID) {
			return apperror.ErrForbidden
		}
		messages, err = tx.Conversations().ListMessages(ctx, conversationID, limit, offset)
		return err
	})
	return messages, err
}

func messageIntent(conv *entity.Conversation, msg *entity.Message) entity.NotificationIntent {
	return entity.NewIntent(entity.NotifyMessageReceived, conv.Counterparty(msg.SenderProfileID), map[string]any{
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
		"is_mass":         msg.IsMass,
	})
}

func conversationError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrConversationNotFound
	}
	return err
}
