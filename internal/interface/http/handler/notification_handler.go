package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/usecase/notification"
)

type NotificationHandler struct {
	inbox *notification.InboxUseCase
}

func NewNotificationHandler(inbox *notification.InboxUseCase) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

// List обрабатывает GET /notifications?unread=true.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}

	items, err := h.inbox.List(c.Request.Context(), actor,
		parseIntQuery(c, "limit", 20), parseIntQuery(c, "offset", 0), parseBoolQuery(c, "unread"))
	if err != nil {
		fail(c, err)
		return
	}
	unread, err := h.inbox.CountUnread(c.Request.Context(), actor)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{
		"items":  dto.ToNotificationResponses(items),
		"unread": unread,
	})
}

// MarkRead обрабатывает POST /notifications/:id/read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.inbox.MarkAsRead(c.Request.Context(), actor, id); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"id": id, "is_read": true})
}

// MarkAllRead обрабатывает POST /notifications/read-all.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	if err := h.inbox.MarkAllAsRead(c.Request.Context(), actor); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, gin.H{"unread": 0})
}
