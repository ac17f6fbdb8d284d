package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
)

type NotificationRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]entity.Notification
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{items: make(map[uuid.UUID]entity.Notification)}
}

func (r *NotificationRepository) Create(_ context.Context, n *entity.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.New()
	n.CreatedAt = time.Now().UTC()
	r.items[n.ID] = *n
	return nil
}

func (r *NotificationRepository) FindByID(_ context.Context, id uuid.UUID) (*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &n, nil
}

func (r *NotificationRepository) List(_ context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*entity.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*entity.Notification
	for _, n := range r.items {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, offset), nil
}

func (r *NotificationRepository) MarkAsRead(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.IsRead = true
	r.items[id] = n
	return nil
}

func (r *NotificationRepository) MarkAllAsRead(_ context.Context, recipientID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.items {
		if n.RecipientID == recipientID {
			n.IsRead = true
			r.items[id] = n
		}
	}
	return nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, recipientID uuid.UUID) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.items {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}
