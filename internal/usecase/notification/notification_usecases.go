// Package notification - входящие уведомления профиля: список, отметка о прочтении, счётчик.
package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

type InboxUseCase struct {
	repo repository.NotificationRepository
}

func NewInboxUseCase(repo repository.NotificationRepository) *InboxUseCase {
	return &InboxUseCase{repo: repo}
}

// List возвращает уведомления профиля, новые первыми.
func (uc *InboxUseCase) List(ctx context.Context, actor entity.Principal, limit, offset int, unreadOnly bool) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	items, err := uc.repo.List(ctx, actor.ProfileID, limit, offset, unreadOnly)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомления")
	}
	return items, nil
}

// MarkAsRead отмечает одно уведомление. Чужое уведомление неотличимо от несуществующего.
func (uc *InboxUseCase) MarkAsRead(ctx context.Context, actor entity.Principal, id uuid.UUID) error {
	n, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrNotificationNotFound
		}
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось получить уведомление")
	}
	if n.RecipientID != actor.ProfileID {
		return apperror.ErrNotificationNotFound
	}
	if n.IsRead {
		return nil
	}

	if err := uc.repo.MarkAsRead(ctx, id); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уведомление")
	}
	return nil
}

func (uc *InboxUseCase) MarkAllAsRead(ctx context.Context, actor entity.Principal) error {
	if err := uc.repo.MarkAllAsRead(ctx, actor.ProfileID); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось обновить уведомления")
	}
	return nil
}

func (uc *InboxUseCase) CountUnread(ctx context.Context, actor entity.Principal) (int, error) {
	count, err := uc.repo.CountUnread(ctx, actor.ProfileID)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.ErrCodeDatabaseError, "не удалось посчитать уведомления")
	}
	return count, nil
}
