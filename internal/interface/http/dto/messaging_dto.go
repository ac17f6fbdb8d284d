package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/domain/entity"
	"github.com/ignatzorin/collab-backend/internal/usecase/conversation"
	"github.com/ignatzorin/collab-backend/internal/usecase/library"
)

type StartConversationRequest struct {
	CreatorID string `json:"creator_id" binding:"required,uuid"`
	Body      string `json:"body" binding:"required,max=4000"`
}

type SendMessageRequest struct {
	Body string `json:"body" binding:"required,max=4000"`
}

type MassMessageRequest struct {
	CreatorIDs []uuid.UUID `json:"creator_ids" binding:"required,min=1,max=200"`
	Body       string      `json:"body" binding:"required,max=4000"`
}

type ConversationResponse struct {
	ID               uuid.UUID `json:"id"`
	BrandProfileID   uuid.UUID `json:"brand_profile_id"`
	CreatorProfileID uuid.UUID `json:"creator_profile_id"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type MessageResponse struct {
	ID              uuid.UUID `json:"id"`
	ConversationID  uuid.UUID `json:"conversation_id"`
	SenderProfileID uuid.UUID `json:"sender_profile_id"`
	Body            string    `json:"body"`
	IsMass          bool      `json:"is_mass"`
	CreatedAt       time.Time `json:"created_at"`
}

func ToMessageResponse(m *entity.Message) MessageResponse {
	return MessageResponse{
		ID:              m.ID,
		ConversationID:  m.ConversationID,
		SenderProfileID: m.SenderProfileID,
		Body:            m.Body,
		IsMass:          m.IsMass,
		CreatedAt:       m.CreatedAt,
	}
}

func ToMessageResponses(items []*entity.Message) []MessageResponse {
	out := make([]MessageResponse, 0, len(items))
	for _, m := range items {
		out = append(out, ToMessageResponse(m))
	}
	return out
}

type StartConversationResponse struct {
	Conversation ConversationResponse `json:"conversation"`
	Message      MessageResponse      `json:"message"`
	Created      bool                 `json:"created"`
}

func ToStartConversationResponse(r *conversation.StartConversationResult) StartConversationResponse {
	c := r.Conversation
	return StartConversationResponse{
		Conversation: ConversationResponse{
			ID:               c.ID,
			BrandProfileID:   c.BrandProfileID,
			CreatorProfileID: c.CreatorProfileID,
			CreatedAt:        c.CreatedAt,
			UpdatedAt:        c.UpdatedAt,
		},
		Message: ToMessageResponse(r.Message),
		Created: r.Created,
	}
}

type LibraryItemResponse struct {
	ID        uuid.UUID  `json:"id"`
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
	FileName  string     `json:"file_name"`
	MimeType  string     `json:"mime_type"`
	SizeBytes int64      `json:"size_bytes"`
	Path      string     `json:"path"`
	CreatedAt time.Time  `json:"created_at"`
}

func ToLibraryItemResponse(it *entity.LibraryItem) LibraryItemResponse {
	return LibraryItemResponse{
		ID:        it.ID,
		BookingID: it.BookingID,
		FileName:  it.FileName,
		MimeType:  it.MimeType,
		SizeBytes: it.SizeBytes,
		Path:      it.StoragePath,
		CreatedAt: it.CreatedAt,
	}
}

type LibraryResponse struct {
	Items      []LibraryItemResponse `json:"items"`
	UsedBytes  int64                 `json:"used_bytes"`
	LimitBytes int64                 `json:"limit_bytes"`
}

func ToLibraryResponse(l *library.Listing) LibraryResponse {
	items := make([]LibraryItemResponse, 0, len(l.Items))
	for _, it := range l.Items {
		items = append(items, ToLibraryItemResponse(it))
	}
	return LibraryResponse{Items: items, UsedBytes: l.UsedBytes, LimitBytes: int64(l.Limit)}
}

type NotificationResponse struct {
	ID        uuid.UUID `json:"id"`
	Payload   any       `json:"payload"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func ToNotificationResponses(items []*entity.Notification) []NotificationResponse {
	out := make([]NotificationResponse, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationResponse{ID: n.ID, Payload: n.Payload, IsRead: n.IsRead, CreatedAt: n.CreatedAt})
	}
	return out
}
