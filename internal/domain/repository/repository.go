package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/valueobject"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStaleVersion возвращается, когда строку изменили между чтением и записью.
	ErrStaleVersion = errors.New("stale version")
	// ErrDuplicate - нарушение уникального индекса (второй открытый спор, вторая активная подписка).
	ErrDuplicate = errors.New("duplicate record")
)

// Transactor выполняет fn в одной транзакции хранилища. Ошибка из fn откатывает всё.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx - набор репозиториев, привязанных к одной транзакции.
type Tx interface {
	Bookings() BookingRepository
	Ledger() LedgerRepository
	Disputes() DisputeRepository
	Subscriptions() SubscriptionRepository
	Usage() UsageRepository
	Conversations() ConversationRepository
	Library() LibraryRepository
}

type BookingFilter struct {
	ProfileID uuid.UUID
	Role      valueobject.Role
	Status    *valueobject.BookingStatus
	Limit     int
	Offset    int
}

type BookingRepository interface {
	Create(ctx context.Context, b *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// FindByIDForUpdate блокирует строку до конца транзакции.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	// Update сохраняет бронирование, если версия не изменилась, и увеличивает её.
	Update(ctx context.Context, b *entity.Booking) error
	List(ctx context.Context, filter BookingFilter) ([]*entity.Booking, int, error)
	HasCompletedBetween(ctx context.Context, brandID, creatorID uuid.UUID) (bool, error)
}

type LedgerRepository interface {
	Append(ctx context.Context, tx *entity.EscrowTransaction) error
	UpdateStatus(ctx context.Context, tx *entity.EscrowTransaction) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]entity.EscrowTransaction, error)
}

type DisputeRepository interface {
	Create(ctx context.Context, d *entity.Dispute) error
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Dispute, error)
	// FindOpenByBooking возвращает nil, nil если открытого спора нет.
	FindOpenByBooking(ctx context.Context, bookingID uuid.UUID) (*entity.Dispute, error)
	Update(ctx context.Context, d *entity.Dispute) error
	ListOpen(ctx context.Context, limit, offset int) ([]*entity.Dispute, error)
}

type SubscriptionRepository interface {
	Create(ctx context.Context, s *entity.Subscription) error
	UpdateStatus(ctx context.Context, s *entity.Subscription) error
	// FindActive возвращает nil, nil если активной подписки нет.
	FindActive(ctx context.Context, brandID uuid.UUID) (*entity.Subscription, error)
	FindActiveForUpdate(ctx context.Context, brandID uuid.UUID) (*entity.Subscription, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Subscription, error)
	ListActivePaid(ctx context.Context) ([]*entity.Subscription, error)
	ListExpiredBetween(ctx context.Context, from, to time.Time) ([]*entity.Subscription, error)
}

type UsageRepository interface {
	// GetForUpdate создаёт строку счётчика при первом обращении и блокирует её.
	GetForUpdate(ctx context.Context, brandID uuid.UUID, now time.Time) (*entity.UsageCounter, error)
	Get(ctx context.Context, brandID uuid.UUID) (*entity.UsageCounter, error)
	Save(ctx context.Context, u *entity.UsageCounter) error
}

type ConversationRepository interface {
	Create(ctx context.Context, c *entity.Conversation) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error)
	// FindByParticipants возвращает nil, nil если беседы нет.
	FindByParticipants(ctx context.Context, brandID, creatorID uuid.UUID) (*entity.Conversation, error)
	AddMessage(ctx context.Context, m *entity.Message) error
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error)
}

type LibraryRepository interface {
	Create(ctx context.Context, item *entity.LibraryItem) error
	UsedBytes(ctx context.Context, brandID uuid.UUID) (int64, error)
	List(ctx context.Context, brandID uuid.UUID, limit, offset int) ([]*entity.LibraryItem, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Notification, error)
	List(ctx context.Context, recipientID uuid.UUID, limit, offset int, unreadOnly bool) ([]*entity.Notification, error)
	MarkAsRead(ctx context.Context, id uuid.UUID) error
	MarkAllAsRead(ctx context.Context, recipientID uuid.UUID) error
	CountUnread(ctx context.Context, recipientID uuid.UUID) (int, error)
}
