package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/domain/repository"
)

type ConversationRepository struct {
	q sqlx.ExtContext
}

func (r *ConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	query := `INSERT INTO conversations (id, brand_profile_id, creator_profile_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, c.ID, c.BrandProfileID, c.CreatorProfileID, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return dbError(err, "не удалось создать беседу")
	}
	return nil
}

func (r *ConversationRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Conversation, error) {
	var c conversationRow
	query := `SELECT id, brand_profile_id, creator_profile_id, created_at, updated_at FROM conversations WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.q, &c, query, id); err != nil {
		return nil, dbError(err, "не удалось получить беседу")
	}
	return c.toEntity(), nil
}

func (r *ConversationRepository) FindByParticipants(ctx context.Context, brandID, creatorID uuid.UUID) (*entity.Conversation, error) {
	var c conversationRow
	query := `SELECT id, brand_profile_id, creator_profile_id, created_at, updated_at
		FROM conversations WHERE brand_profile_id = $1 AND creator_profile_id = $2`
	if err := sqlx.GetContext(ctx, r.q, &c, query, brandID, creatorID); err != nil {
		err = dbError(err, "не удалось получить беседу")
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return c.toEntity(), nil
}

func (r *ConversationRepository) AddMessage(ctx context.Context, m *entity.Message) error {
	query := `INSERT INTO messages (id, conversation_id, sender_profile_id, body, is_mass, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	if _, err := r.q.ExecContext(ctx, query, m.ID, m.ConversationID, m.SenderProfileID, m.Body, m.IsMass, m.CreatedAt); err != nil {
		return dbError(err, "не удалось создать сообщение")
	}
	if _, err := r.q.ExecContext(ctx, `UPDATE conversations SET updated_at = $2 WHERE id = $1`, m.ConversationID, m.CreatedAt); err != nil {
		return dbError(err, "не удалось обновить беседу")
	}
	return nil
}

func (r *ConversationRepository) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*entity.Message, error) {
	var rows []messageRow
	query := `SELECT id, conversation_id, sender_profile_id, body, is_mass, created_at
		FROM messages WHERE conversation_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := sqlx.SelectContext(ctx, r.q, &rows, query, conversationID, limit, offset); err != nil {
		return nil, dbError(err, "не удалось получить сообщения")
	}
	result := make([]*entity.Message, len(rows))
	for i, row := range rows {
		result[i] = &entity.Message{
			ID:              row.ID,
			ConversationID:  row.ConversationID,
			SenderProfileID: row.SenderProfileID,
			Body:            row.Body,
			IsMass:          row.IsMass,
			CreatedAt:       row.CreatedAt,
		}
	}
	return result, nil
}

type conversationRow struct {
	ID               uuid.UUID `db:"id"`
	BrandProfileID   uuid.UUID `db:"brand_profile_id"`
	CreatorProfileID uuid.UUID `db:"creator_profile_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (c *conversationRow) toEntity() *entity.Conversation {
	return &entity.Conversation{
		ID:               c.ID,
		BrandProfileID:   c.BrandProfileID,
		CreatorProfileID: c.CreatorProfileID,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

type messageRow struct {
	ID              uuid.UUID `db:"id"`
	ConversationID  uuid.UUID `db:"conversation_id"`
	SenderProfileID uuid.UUID `db:"sender_profile_id"`
	Body            string    `db:"body"`
	IsMass          bool      `db:"is_mass"`
	CreatedAt       time.Time `db:"created_at"`
}
