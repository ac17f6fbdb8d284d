package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/pkg/apperror"
)

const MessageMaxLength = 4000

type Conversation struct {
	ID               uuid.UUID
	BrandProfileID   uuid.UUID
	CreatorProfileID uuid.UUID
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func NewConversation(brandID, creatorID uuid.UUID, now time.Time) (*Conversation, error) {
	if brandID == uuid.Nil || creatorID == uuid.Nil {
		return nil, apperror.New(apperror.ErrCodeValidation, "участники беседы обязательны")
	}
	if brandID == creatorID {
		return nil, apperror.New(apperror.ErrCodeValidation, "нельзя создать беседу с самим собой")
	}
	return &Conversation{
		ID:               uuid.New(),
		BrandProfileID:   brandID,
		CreatorProfileID: creatorID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}, nil
}

func (c *Conversation) IsParticipant(profileID uuid.UUID) bool {
	return c.BrandProfileID == profileID || c.CreatorProfileID == profileID
}

func (c *Conversation) Counterparty(profileID uuid.UUID) uuid.UUID {
	if profileID == c.BrandProfileID {
		return c.CreatorProfileID
	}
	return c.BrandProfileID
}

type Message struct {
	ID              uuid.UUID
	ConversationID  uuid.UUID
	SenderProfileID uuid.UUID
	Body            string
	IsMass          bool
	CreatedAt       time.Time
}

func NewMessage(conversationID, senderID uuid.UUID, body string, now time.Time) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение не может быть пустым")
	}
	if len([]rune(body)) > MessageMaxLength {
		return nil, apperror.New(apperror.ErrCodeValidation, "сообщение слишком длинное")
	}
	return &Message{
		ID:              uuid.New(),
		ConversationID:  conversationID,
		SenderProfileID: senderID,
		Body:            body,
		CreatedAt:       now,
	}, nil
}
