package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/collab-backend/internal/interface/http/dto"
	"github.com/ignatzorin/collab-backend/internal/interface/http/response"
	"github.com/ignatzorin/collab-backend/internal/usecase/conversation"
)

type ConversationHandler struct {
	start *conversation.StartConversationUseCase
	send  *conversation.SendMessageUseCase
	mass  *conversation.MassMessageUseCase
	list  *conversation.ListMessagesUseCase
}

func NewConversationHandler(deps conversation.Deps) *ConversationHandler {
	return &ConversationHandler{
		start: conversation.NewStartConversationUseCase(deps),
		send:  conversation.NewSendMessageUseCase(deps),
		mass:  conversation.NewMassMessageUseCase(deps),
		list:  conversation.NewListMessagesUseCase(deps),
	}
}

// Start обрабатывает POST /conversations: первое сообщение бренда креатору.
func (h *ConversationHandler) Start(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.StartConversationRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.start.Execute(c.Request.Context(), actor, conversation.StartConversationInput{
		CreatorID: uuid.MustParse(req.CreatorID),
		Body:      req.Body,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToStartConversationResponse(res))
}

// Send обрабатывает POST /conversations/:id/messages.
func (h *ConversationHandler) Send(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !bind(c, &req) {
		return
	}

	msg, err := h.send.Execute(c.Request.Context(), id, actor, req.Body)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, dto.ToMessageResponse(msg))
}

// Messages обрабатывает GET /conversations/:id/messages.
func (h *ConversationHandler) Messages(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	msgs, err := h.list.Execute(c.Request.Context(), id, actor, parseIntQuery(c, "limit", 50), parseIntQuery(c, "offset", 0))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, dto.ToMessageResponses(msgs))
}

// Mass обрабатывает POST /messages/mass.
func (h *ConversationHandler) Mass(c *gin.Context) {
	actor, ok := principal(c)
	if !ok {
		return
	}
	var req dto.MassMessageRequest
	if !bind(c, &req) {
		return
	}

	res, err := h.mass.Execute(c.Request.Context(), actor, conversation.MassMessageInput{
		CreatorIDs: req.CreatorIDs,
		Body:       req.Body,
	})
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}
